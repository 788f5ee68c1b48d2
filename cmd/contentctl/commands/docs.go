package commands

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/tendant/site-content/pkg/sitecontent"
)

func newDocsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "docs",
		Short: "List registered documents and where each currently resolves from",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, func(ctx context.Context, svc sitecontent.ContentService) error {
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "KEY\tTITLE\tSOURCE\tSTORE KEY")
				for _, spec := range svc.Documents() {
					source := "error"
					doc, err := svc.Resolve(ctx, spec.Key)
					if err == nil {
						source = tierColor(doc.SourceTier).Sprint(doc.SourceTier)
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", spec.Key, spec.Title, source, spec.PrimaryKey())
				}
				return tw.Flush()
			})
		},
	}
}
