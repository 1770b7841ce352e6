package store

import (
	"encoding/json"
	"fmt"
)

// marshalStrings encodes a string slice as JSON for a text column.
// Nil and empty slices encode as "" so the column stays readable.
func marshalStrings(vals []string) (string, error) {
	if len(vals) == 0 {
		return "", nil
	}
	b, err := json.Marshal(vals)
	if err != nil {
		return "", fmt.Errorf("marshal string slice failed: %w", err)
	}
	return string(b), nil
}

// unmarshalStrings decodes a JSON text column back into a string slice.
func unmarshalStrings(raw string) ([]string, error) {
	if raw == "" {
		return nil, nil
	}
	var vals []string
	if err := json.Unmarshal([]byte(raw), &vals); err != nil {
		return nil, fmt.Errorf("unmarshal string slice failed: %w", err)
	}
	return vals, nil
}

// marshalStringMap encodes a string map as JSON for a text column.
func marshalStringMap(m map[string]string) (string, error) {
	if len(m) == 0 {
		return "", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("marshal string map failed: %w", err)
	}
	return string(b), nil
}

// unmarshalStringMap decodes a JSON text column back into a string map.
func unmarshalStringMap(raw string) (map[string]string, error) {
	if raw == "" {
		return nil, nil
	}
	m := make(map[string]string)
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, fmt.Errorf("unmarshal string map failed: %w", err)
	}
	return m, nil
}
