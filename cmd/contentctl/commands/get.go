package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/tendant/site-content/pkg/sitecontent"
	"gopkg.in/yaml.v3"
)

func newGetCmd() *cobra.Command {
	var output string
	var payloadOnly bool

	cmd := &cobra.Command{
		Use:   "get <key>",
		Short: "Print the resolved document",
		Example: `  contentctl get about
  contentctl get footer.snsLinks -o yaml --payload`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, func(ctx context.Context, svc sitecontent.ContentService) error {
				doc, err := svc.Resolve(ctx, args[0])
				if err != nil {
					return err
				}
				var v any = doc
				if payloadOnly {
					v = doc.Payload
				}
				return writeValue(cmd.OutOrStdout(), output, v)
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "json", "output format (json or yaml)")
	cmd.Flags().BoolVar(&payloadOnly, "payload", false, "print only the payload")
	return cmd
}

func writeValue(w io.Writer, format string, v any) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		// round trip through json so yaml keys follow the json field names
		raw, err := json.Marshal(v)
		if err != nil {
			return err
		}
		var generic any
		if err := json.Unmarshal(raw, &generic); err != nil {
			return err
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(generic)
	default:
		return fmt.Errorf("unknown output format %q (want json or yaml)", format)
	}
}
