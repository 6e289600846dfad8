package datasource

import (
	"fmt"
	"strconv"
)

// StringOption returns the first non-empty string stored under one of keys.
func StringOption(config map[string]any, keys ...string) (string, bool) {
	for _, k := range keys {
		if s, ok := config[k].(string); ok && s != "" {
			return s, true
		}
	}
	return "", false
}

// IntOption reads an integer stored as int, float64 (JSON) or a numeric string.
func IntOption(config map[string]any, key string) (int, bool, error) {
	switch v := config[key].(type) {
	case nil:
		return 0, false, nil
	case int:
		return v, true, nil
	case int64:
		return int(v), true, nil
	case float64: // JSON numbers are float64
		return int(v), true, nil
	case string:
		if v == "" {
			return 0, false, nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, false, fmt.Errorf("%s must be a number: %w", key, err)
		}
		return n, true, nil
	}
	return 0, false, fmt.Errorf("%s has unsupported type %T", key, config[key])
}

// BoolOption reads a bool stored as bool or as "true"/"false".
func BoolOption(config map[string]any, key string) (bool, bool) {
	switch v := config[key].(type) {
	case bool:
		return v, true
	case string:
		b, err := strconv.ParseBool(v)
		return b, err == nil
	}
	return false, false
}
