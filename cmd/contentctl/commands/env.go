package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tendant/site-content/pkg/sitecontent/config"
)

func newEnvCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "env",
		Short: "Describe the environment variables contentctl and content-server read",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprint(cmd.OutOrStdout(), config.EnvUsage(EnvPrefix))
			return nil
		},
	}
}
