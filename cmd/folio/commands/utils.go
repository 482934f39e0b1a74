// ABOUTME: Shared output helpers for CLI commands
// ABOUTME: Format validation, truncation and JSON/YAML rendering
package commands

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// truncate shortens a string to maxLen runes, adding "..." if truncated
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// resolveFormat maps "auto" to table and rejects unknown formats
func resolveFormat(format string) (string, error) {
	switch format {
	case "", "auto", "table":
		return "table", nil
	case "json", "yaml":
		return format, nil
	}
	return "", fmt.Errorf("unknown format %q (want auto, table, json or yaml)", format)
}

// writeStructured renders v as indented JSON or YAML
func writeStructured(w io.Writer, format string, v any) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
		return nil
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("marshaling YAML: %w", err)
		}
		return enc.Close()
	}
	return fmt.Errorf("unsupported structured format %q", format)
}

// shortHash abbreviates a hex fingerprint for table output
func shortHash(fp string) string {
	if len(fp) <= 12 {
		return fp
	}
	return fp[:12]
}
