package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tendant/site-content/pkg/sitecontent"
	"gopkg.in/yaml.v3"
)

func newSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <file|->",
		Short: "Validate and save a document payload",
		Long: `Reads a JSON or YAML payload from a file, or stdin when the file is "-",
validates it against the document schema and saves it to the primary store key.
Files ending in .yaml or .yml are read as YAML; other input is read as JSON
and falls back to YAML unless the file ends in .json.`,
		Example: `  contentctl set about about.json
  cat links.yaml | contentctl set footer.snsLinks -`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, source := args[0], args[1]
			raw, err := readSource(cmd.InOrStdin(), source)
			if err != nil {
				return err
			}
			payload, err := parsePayload(key, raw, source)
			if err != nil {
				return err
			}

			return withService(cmd, func(ctx context.Context, svc sitecontent.ContentService) error {
				result, err := svc.Save(ctx, key, payload)
				var writeErr *sitecontent.StoreWriteError
				if errors.As(err, &writeErr) {
					printWarning(cmd.ErrOrStderr(), "%s", result.Warning)
					return err
				}
				if err != nil {
					return err
				}
				printSuccess(cmd.OutOrStdout(), "saved %s to %s", result.Key, result.StoreKey)
				return nil
			})
		},
	}
}

func readSource(stdin io.Reader, source string) ([]byte, error) {
	if source == "-" {
		return io.ReadAll(stdin)
	}
	raw, err := os.ReadFile(source)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", source, err)
	}
	return raw, nil
}

// parsePayload accepts JSON, or YAML when the file says so or when stdin
// is not JSON. YAML is normalized through JSON so only JSON-native values
// reach the service.
func parsePayload(key string, raw []byte, source string) (map[string]any, error) {
	ext := strings.ToLower(filepath.Ext(source))
	if ext == ".yaml" || ext == ".yml" {
		return parseYAML(key, raw)
	}

	payload, err := parseJSON(key, raw)
	if err != nil && ext != ".json" {
		if fromYAML, yerr := parseYAML(key, raw); yerr == nil {
			return fromYAML, nil
		}
	}
	return payload, err
}

func parseJSON(key string, raw []byte) (map[string]any, error) {
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, &sitecontent.DecodeError{Key: key, Kind: sitecontent.MalformedJSON, Err: err}
	}
	if payload == nil {
		return nil, &sitecontent.DecodeError{Key: key, Kind: sitecontent.MalformedJSON, Err: errors.New("payload must be a JSON object")}
	}
	return payload, nil
}

func parseYAML(key string, raw []byte) (map[string]any, error) {
	var v any
	if err := yaml.Unmarshal(raw, &v); err != nil {
		return nil, &sitecontent.DecodeError{Key: key, Kind: sitecontent.MalformedJSON, Err: fmt.Errorf("invalid yaml: %w", err)}
	}
	normalized, err := json.Marshal(v)
	if err != nil {
		return nil, &sitecontent.DecodeError{Key: key, Kind: sitecontent.MalformedJSON, Err: fmt.Errorf("yaml payload is not representable as json: %w", err)}
	}
	return parseJSON(key, normalized)
}
