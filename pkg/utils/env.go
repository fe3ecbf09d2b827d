package utils

import (
	"os"
	"strconv"
)

func GetEnvOrSetDefault(key string, defaultVal string) string {
	if os.Getenv(key) == "" {
		os.Setenv(key, defaultVal)
		return defaultVal
	}

	return os.Getenv(key)
}

// GetEnvBool parses the variable as a bool, falling back to the default on
// absence or garbage.
func GetEnvBool(key string, defaultVal bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultVal
	}

	parsed, err := strconv.ParseBool(raw)
	if err != nil {
		return defaultVal
	}

	return parsed
}

// GetEnvInt parses the variable as an int, falling back to the default on
// absence or garbage.
func GetEnvInt(key string, defaultVal int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultVal
	}

	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return defaultVal
	}

	return parsed
}
