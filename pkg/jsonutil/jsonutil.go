// Package jsonutil provides JSON formatting helpers shared by the document
// decoder and the CLI output paths.
package jsonutil

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// CompactValue renders v as compact JSON text. Values that cannot be
// marshaled fall back to their fmt representation, so a display cell is
// never lost.
func CompactValue(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

// PrettyValue renders v as indented JSON for terminal output.
func PrettyValue(v any) (string, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling value: %w", err)
	}
	return string(b), nil
}

// LooksLikeJSON reports whether the first non-blank byte opens a JSON
// object or array.
func LooksLikeJSON(b []byte) bool {
	trimmed := bytes.TrimLeft(b, " \t\r\n\uFEFF")
	return len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[')
}
