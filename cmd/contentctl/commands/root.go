package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/tendant/site-content/pkg/sitecontent"
	"github.com/tendant/site-content/pkg/sitecontent/config"
)

// EnvPrefix is shared with content-server so both read the same store.
const EnvPrefix = "SITECONTENT_"

var (
	storeURL      string
	remoteBaseURL string
	verbose       bool
)

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "contentctl",
		Short: "Inspect and edit site content documents",
		Long: `contentctl reads and writes the documents a site renders from.

It talks to the same keyed store as content-server, configured through
SITECONTENT_* environment variables or the --store flag, so edits made
here reach running servers through the store's change relay.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.PersistentFlags().StringVar(&storeURL, "store", "", "store url, overrides SITECONTENT_STORE_URL")
	cmd.PersistentFlags().StringVar(&remoteBaseURL, "remote", "", "remote defaults base url, overrides SITECONTENT_REMOTE_BASE_URL")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	cmd.AddCommand(
		newDocsCmd(),
		newGetCmd(),
		newSetCmd(),
		newRestoreCmd(),
		newWatchCmd(),
		newTokenCmd(),
		newEnvCmd(),
	)
	return cmd
}

// Execute runs the root command.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		printError(rootCmd.ErrOrStderr(), err)
		return err
	}
	return nil
}

// SetVersion sets the version reported by --version.
func SetVersion(v string) {
	rootCmd.Version = v
}

func loadConfig() (*config.ServerConfig, error) {
	opts := []config.Option{config.WithEnv(EnvPrefix)}
	if storeURL != "" {
		opts = append(opts, config.WithStoreURL(storeURL))
	}
	if remoteBaseURL != "" {
		opts = append(opts, config.WithRemoteBaseURL(remoteBaseURL))
	}
	if verbose {
		opts = append(opts, config.WithLogLevel("debug"))
	}
	return config.Load(opts...)
}

// serviceFactory builds the content service for a command. Tests replace it.
var serviceFactory = func(ctx context.Context, stderr io.Writer) (sitecontent.ContentService, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	return cfg.BuildService(ctx, cfg.NewLogger(stderr))
}

func withService(cmd *cobra.Command, fn func(ctx context.Context, svc sitecontent.ContentService) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	svc, cleanup, err := serviceFactory(ctx, cmd.ErrOrStderr())
	if err != nil {
		return fmt.Errorf("failed to open content service: %w", err)
	}
	defer cleanup()
	return fn(ctx, svc)
}
