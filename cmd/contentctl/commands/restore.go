package commands

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/tendant/site-content/pkg/sitecontent"
)

func newRestoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore [key...]",
		Short: "Remove stored copies so documents fall back to their defaults",
		Long:  "Restores the named documents, or every document when no key is given.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, func(ctx context.Context, svc sitecontent.ContentService) error {
				if err := svc.Restore(ctx, args...); err != nil {
					return err
				}
				if len(args) == 0 {
					printSuccess(cmd.OutOrStdout(), "restored all documents")
					return nil
				}
				for _, k := range args {
					printSuccess(cmd.OutOrStdout(), "restored %s", k)
				}
				return nil
			})
		},
	}
}
