// Package util provides environment parsing helpers shared across the Emily API.
package util

import (
	"log/slog"
	"os"
	"strings"
)

// SplitList splits a comma-separated configuration value into its entries,
// trimming whitespace and dropping empties. An empty or all-comma value
// yields nil.
func SplitList(val string) []string {
	var out []string
	for _, item := range strings.Split(val, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

// ParseBoolEnv parses a boolean environment variable, falling back to the
// default. Accepts true/1/yes/on and false/0/no/off, case-insensitive.
func ParseBoolEnv(key string, defaultValue bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}
	switch strings.ToLower(strings.TrimSpace(val)) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	default:
		slog.Warn("ParseBoolEnv: invalid boolean value, using default", "key", key, "value", val, "default", defaultValue)
		return defaultValue
	}
}
