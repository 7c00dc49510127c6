package domain

import (
	"encoding/json"
	"strconv"
)

// Map is a decoded payload mapping with type-tolerant accessors. The decoder
// is loosely typed: numbers may arrive as float64, json.Number, or numeric
// strings depending on the upstream serializer. Accessors report absence and
// type mismatch through the ok result instead of panicking, so extraction
// rules degrade to "field not present".
type Map map[string]any

// Has reports whether the field is present, regardless of its type.
func (m Map) Has(key string) bool {
	_, ok := m[key]
	return ok
}

// Float returns the field as a float64.
func (m Map) Float(key string) (float64, bool) {
	v, ok := m[key]
	if !ok || v == nil {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// Bool returns the field as a bool. Numeric fields are treated as non-zero
// truth values, matching the decoder's mixed 0/1 and true/false encodings.
func (m Map) Bool(key string) (bool, bool) {
	v, ok := m[key]
	if !ok || v == nil {
		return false, false
	}
	switch b := v.(type) {
	case bool:
		return b, true
	case float64:
		return b != 0, true
	case int:
		return b != 0, true
	case string:
		parsed, err := strconv.ParseBool(b)
		return parsed, err == nil
	default:
		return false, false
	}
}

// String returns the field as a string. Only genuine strings qualify; other
// types are a mismatch, not a conversion.
func (m Map) String(key string) (string, bool) {
	v, ok := m[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// List returns the field as an ordered list of values.
func (m Map) List(key string) ([]any, bool) {
	v, ok := m[key]
	if !ok {
		return nil, false
	}
	l, ok := v.([]any)
	return l, ok
}

// StringList returns the field as a list of strings, dropping non-string
// elements. ok is false when the field is absent or not a list at all.
func (m Map) StringList(key string) ([]string, bool) {
	l, ok := m.List(key)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(l))
	for _, v := range l {
		if s, isStr := v.(string); isStr {
			out = append(out, s)
		}
	}
	return out, true
}

// StringOr returns the field as a string, or fallback when absent, empty, or
// not a string.
func (m Map) StringOr(key, fallback string) string {
	s, ok := m.String(key)
	if !ok || s == "" {
		return fallback
	}
	return s
}
