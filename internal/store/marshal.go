package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/flowc/internal/ir"
)

// marshalWarnings converts warnings to canonical JSON TEXT for storage.
func marshalWarnings(warnings []string) (string, error) {
	list := make(ir.List, 0, len(warnings))
	for _, w := range warnings {
		list = append(list, ir.String(w))
	}
	data, err := ir.MarshalCanonical(list)
	if err != nil {
		return "", fmt.Errorf("marshal warnings: %w", err)
	}
	return string(data), nil
}

// unmarshalWarnings parses JSON TEXT to a list of warnings.
// Returns an empty slice (not nil) for an empty list.
func unmarshalWarnings(data string) ([]string, error) {
	warnings := []string{}
	if data == "" || data == "[]" {
		return warnings, nil
	}
	if err := json.Unmarshal([]byte(data), &warnings); err != nil {
		return nil, fmt.Errorf("unmarshal warnings: %w", err)
	}
	return warnings, nil
}
