package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
	formatTOML = "toml"
)

func parseFormat(raw string) (string, error) {
	format := strings.ToLower(strings.TrimSpace(raw))
	switch format {
	case "", formatText:
		return formatText, nil
	case formatJSON, formatYAML, formatTOML:
		return format, nil
	case "yml":
		return formatYAML, nil
	default:
		return "", fmt.Errorf("unsupported format %q (text|json|yaml|toml)", raw)
	}
}

// writeStructured encodes v in a machine-readable format. TOML needs a table at the top level,
// so callers pass structs rather than slices.
func writeStructured(w io.Writer, format string, v any) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	case formatTOML:
		if err := toml.NewEncoder(w).Encode(v); err != nil {
			return fmt.Errorf("encode toml: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("format %q is not structured", format)
	}
}
