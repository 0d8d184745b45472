// Package input provides helpers for reading tool arguments out of a
// validated map[string]any.
package input

import (
	"fmt"
	"reflect"
)

// GetString returns the string stored under key, or defaultVal when the key
// is absent or nil. An explicit empty string is returned as is. Named string
// types are converted; any other value is formatted with %v.
func GetString(m map[string]any, key string, defaultVal string) string {
	val, ok := m[key]
	if !ok || val == nil {
		return defaultVal
	}

	if str, ok := val.(string); ok {
		return str
	}
	if v := reflect.ValueOf(val); v.Kind() == reflect.String {
		return v.String()
	}
	return fmt.Sprintf("%v", val)
}

// GetStringSlice returns the string list stored under key. It accepts
// []string and []any whose elements are all strings. An absent or nil key
// yields nil.
func GetStringSlice(m map[string]any, key string) ([]string, error) {
	val, ok := m[key]
	if !ok || val == nil {
		return nil, nil
	}

	switch slice := val.(type) {
	case []string:
		return slice, nil
	case []any:
		result := make([]string, 0, len(slice))
		for i, item := range slice {
			str, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%s[%d]: expected string, got %T", key, i, item)
			}
			result = append(result, str)
		}
		return result, nil
	default:
		return nil, fmt.Errorf("%s: expected array of strings, got %T", key, val)
	}
}
