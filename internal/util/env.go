// Package util holds small helpers shared across SafePath components.
package util

import (
	"log/slog"
	"os"
	"strings"
)

// ParseBoolEnv reads a boolean switch from the environment. It accepts
// the usual spellings (true/1/yes/on, false/0/no/off, any case); unset
// keys and anything unrecognisable fall back to def.
func ParseBoolEnv(key string, def bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	}
	slog.Warn("Ignoring unparseable boolean env var", "key", key, "value", raw, "default", def)
	return def
}
