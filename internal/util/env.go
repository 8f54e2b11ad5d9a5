package util

import (
	"log/slog"
	"os"
	"strings"
)

// EnvOr returns the value of the environment variable key, or fallback when
// the variable is unset or blank.
func EnvOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

// BoolEnv reads a boolean environment variable. Recognized truthy values are
// true/1/yes/on; falsy values are false/0/no/off (case-insensitive). Unset or
// unrecognized values yield fallback.
func BoolEnv(key string, fallback bool) bool {
	raw := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch raw {
	case "":
		return fallback
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	}
	slog.Warn("BoolEnv unrecognized value", "key", key, "value", raw)
	return fallback
}
