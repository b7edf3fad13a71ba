// Package normalize converts raw backend JSON records into the stable shapes
// in internal/model. Conversions never fail: missing or malformed fields fall
// back to zero values (or true for the in-stock flag), and normalizing an
// already-normalized record is a no-op for every numeric field.
package normalize

import (
	"encoding/json"
	"strconv"
)

// Raw is an untyped backend record as decoded from JSON.
type Raw = map[string]any

// --- field helpers ---

// Str coerces a backend id-like value to string. Numbers render without a
// trailing ".0" so that ids survive the float64 round-trip of encoding/json.
func Str(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case json.Number:
		return x.String()
	case float64:
		if x == float64(int64(x)) {
			return strconv.FormatInt(int64(x), 10)
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	default:
		return ""
	}
}

// Num coerces a numeric or numeric-string value to float64, defaulting to 0.
func Num(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case int:
		return float64(x)
	case int64:
		return float64(x)
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return 0
		}
		return f
	case string:
		f, err := strconv.ParseFloat(x, 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

// optNum returns a pointer only when the value is present and numeric.
func optNum(v any) *float64 {
	if v == nil {
		return nil
	}
	if _, ok := v.(string); ok {
		// optional price fields are numeric-only in every backend version
		return nil
	}
	if _, ok := v.(bool); ok {
		return nil
	}
	switch v.(type) {
	case float64, int, int64, json.Number:
		f := Num(v)
		return &f
	default:
		return nil
	}
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

func strList(v any) []string {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, e := range list {
		if s, ok := e.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func sub(r Raw, key string) Raw {
	m, _ := r[key].(Raw)
	return m
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
