package domain

import (
	"encoding/json"
	"fmt"
)

// Record is a single semi-structured record from a collection.
// Records are decoded JSON objects; values may be any JSON type.
type Record map[string]any

// StringField returns the named field rendered as a string.
// Nested objects and arrays are rendered as compact JSON.
// Returns empty string if the field is absent or null.
func (r Record) StringField(name string) string {
	v, ok := r[name]
	if !ok || v == nil {
		return ""
	}

	switch val := v.(type) {
	case string:
		return val
	case float64, bool, int, int64:
		return fmt.Sprintf("%v", val)
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(data)
	}
}

// Compact renders the whole record as compact JSON.
// Used as the fallback text form for generic records.
func (r Record) Compact() string {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Sprintf("%v", map[string]any(r))
	}
	return string(data)
}
