// SPDX-License-Identifier: MIT

package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/vgrab/vgrab/internal/log"
)

// sensitiveKey reports whether an environment variable holds secret material
// whose value must never appear in log output.
func sensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	return strings.Contains(lower, "key") ||
		strings.Contains(lower, "token") ||
		strings.Contains(lower, "cookie") ||
		strings.Contains(lower, "password")
}

// ParseString reads a string from an environment variable or returns the
// default value. It logs the source (environment or default) for observability
// and masks sensitive values.
func ParseString(key, defaultValue string) string {
	logger := log.WithComponent("config")
	if value, exists := os.LookupEnv(key); exists {
		if value == "" {
			logger.Debug().Str("key", key).Str("source", "default").
				Msg("using default value (environment variable is empty)")
			return defaultValue
		}
		if sensitiveKey(key) {
			logger.Debug().Str("key", key).Str("source", "environment").
				Bool("sensitive", true).Msg("using environment variable")
		} else {
			logger.Debug().Str("key", key).Str("value", value).
				Str("source", "environment").Msg("using environment variable")
		}
		return value
	}
	logger.Debug().Str("key", key).Str("source", "default").Msg("using default value")
	return defaultValue
}

// ParseInt reads an integer from an environment variable or returns the
// default value. It falls back to the default on parse errors.
func ParseInt(key string, defaultValue int) int {
	logger := log.WithComponent("config")
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			logger.Debug().Str("key", key).Int("value", i).
				Str("source", "environment").Msg("using environment variable")
			return i
		}
		logger.Warn().Str("key", key).Str("value", v).Int("default", defaultValue).
			Msg("invalid integer in environment variable, using default")
	}
	return defaultValue
}

// ParseBool reads a boolean from an environment variable or returns the
// default value. It accepts "true", "false", "1", "0", "yes", "no"
// (case-insensitive).
func ParseBool(key string, defaultValue bool) bool {
	logger := log.WithComponent("config")
	if v, ok := os.LookupEnv(key); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "1", "yes":
			return true
		case "false", "0", "no":
			return false
		}
		logger.Warn().Str("key", key).Str("value", v).Bool("default", defaultValue).
			Msg("invalid boolean in environment variable, using default")
	}
	return defaultValue
}

// ParseDuration reads a duration in Go duration format (e.g. "5s") from an
// environment variable. It falls back to the default on parse errors.
func ParseDuration(key string, defaultValue time.Duration) time.Duration {
	logger := log.WithComponent("config")
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			logger.Debug().Str("key", key).Dur("value", d).
				Str("source", "environment").Msg("using environment variable")
			return d
		}
		logger.Warn().Str("key", key).Str("value", v).Dur("default", defaultValue).
			Msg("invalid duration in environment variable, using default")
	}
	return defaultValue
}
