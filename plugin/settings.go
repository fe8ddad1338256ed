package plugin

import (
	"fmt"
	"math"
)

// Settings are the normalized settings of one node.
type Settings map[string]any

// Has reports whether key is set to a non-nil value.
func (s Settings) Has(key string) bool {
	v, ok := s[key]
	return ok && v != nil
}

// String returns a string setting or "".
func (s Settings) String(key string) string {
	if v, ok := s[key].(string); ok {
		return v
	}
	return ""
}

// Int returns an integer setting or 0.
func (s Settings) Int(key string) int {
	i, _ := toInt(s[key])
	return i
}

// Float returns a numeric setting or 0.
func (s Settings) Float(key string) float64 {
	f, _ := toFloat(s[key])
	return f
}

// Bool returns a boolean setting or false.
func (s Settings) Bool(key string) bool {
	b, _ := s[key].(bool)
	return b
}

// List returns a list setting or nil.
func (s Settings) List(key string) []any {
	l, _ := s[key].([]any)
	return l
}

// Ints returns a list setting of integers.
func (s Settings) Ints(key string) []int {
	list := s.List(key)
	out := make([]int, 0, len(list))
	for _, v := range list {
		if i, ok := toInt(v); ok {
			out = append(out, i)
		}
	}
	return out
}

// Object returns a nested object setting or nil.
func (s Settings) Object(key string) map[string]any {
	m, _ := s[key].(map[string]any)
	return m
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int8:
		return int(n), true
	case int16:
		return int(n), true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case uint:
		return int(n), true
	case uint8:
		return int(n), true
	case uint16:
		return int(n), true
	case uint32:
		return int(n), true
	case uint64:
		return int(n), true
	case float32:
		return floatToInt(float64(n))
	case float64:
		return floatToInt(n)
	default:
		return 0, false
	}
}

func floatToInt(f float64) (int, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	default:
		if i, ok := toInt(v); ok {
			return float64(i), true
		}
		return 0, false
	}
}

func describe(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case []any:
		return "list"
	case map[string]any:
		return "object"
	}
	if _, ok := toFloat(v); ok {
		return "number"
	}
	return fmt.Sprintf("%T", v)
}
