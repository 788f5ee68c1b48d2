package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/tendant/site-content/pkg/sitecontent"
)

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch [key...]",
		Short: "Stream document changes until interrupted",
		Long: `Watches the named documents, or all of them, and prints a line whenever
one resolves to new content. Changes made by other processes arrive through
the store's relay or the poller.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return withService(cmd, func(_ context.Context, svc sitecontent.ContentService) error {
				return watchDocuments(ctx, svc, args, cmd.OutOrStdout())
			})
		},
	}
}

func watchDocuments(ctx context.Context, svc sitecontent.ContentService, keys []string, out io.Writer) error {
	if len(keys) == 0 {
		for _, spec := range svc.Documents() {
			keys = append(keys, spec.Key)
		}
	}

	var mu sync.Mutex
	printState := func(key string) func(sitecontent.State) {
		return func(s sitecontent.State) {
			mu.Lock()
			defer mu.Unlock()
			ts := faint.Sprint(time.Now().Format("15:04:05"))
			switch s.Status {
			case sitecontent.StatusReady:
				fmt.Fprintf(out, "%s %s %s\n", ts, key, tierColor(s.Data.SourceTier).Sprint(s.Data.SourceTier))
			case sitecontent.StatusError:
				fmt.Fprintf(out, "%s %s %s\n", ts, key, red.Sprint(s.Err))
			}
		}
	}

	for _, key := range keys {
		c, err := svc.UseContent(ctx, key, sitecontent.WithOnChange(printState(key)))
		if err != nil {
			return err
		}
		defer c.Close()
	}

	if err := svc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
