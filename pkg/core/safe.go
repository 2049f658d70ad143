package core

import (
	"encoding/json"
	"strconv"

	"github.com/cockroachdb/apd/v3"
)

// The safe extraction helpers read optional fields out of loosely-typed
// upstream records without ever panicking or erroring. Venue payloads mix
// strings and numbers for the same conceptual field across endpoints, so
// every accessor coerces both forms. Absent or unusable values report
// ok=false (or nil for decimals) instead of a zero that could be mistaken
// for real data.

// SafeValue returns the raw value for key and whether it was present.
func SafeValue(m map[string]any, key string) (any, bool) {
	if m == nil {
		return nil, false
	}
	v, ok := m[key]
	return v, ok
}

// SafeString extracts a string-valued field, coercing numeric values to
// their decimal string form.
func SafeString(m map[string]any, key string) (string, bool) {
	v, ok := SafeValue(m, key)
	if !ok || v == nil {
		return "", false
	}
	switch s := v.(type) {
	case string:
		return s, true
	case json.Number:
		return s.String(), true
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64), true
	case int64:
		return strconv.FormatInt(s, 10), true
	case int:
		return strconv.Itoa(s), true
	case bool:
		return strconv.FormatBool(s), true
	default:
		return "", false
	}
}

// SafeString2 extracts the first of two keys that holds a usable string.
func SafeString2(m map[string]any, key1, key2 string) (string, bool) {
	if s, ok := SafeString(m, key1); ok {
		return s, true
	}
	return SafeString(m, key2)
}

// SafeStringOr extracts a string-valued field, returning def when absent.
func SafeStringOr(m map[string]any, key, def string) string {
	if s, ok := SafeString(m, key); ok {
		return s
	}
	return def
}

// SafeDecimal extracts a numeric field as an arbitrary-precision decimal.
// It accepts JSON numbers, numeric strings, and floats; absent or
// unparseable values yield nil.
func SafeDecimal(m map[string]any, key string) *apd.Decimal {
	v, ok := SafeValue(m, key)
	if !ok || v == nil {
		return nil
	}
	switch n := v.(type) {
	case json.Number:
		return decimalFromString(n.String())
	case string:
		if n == "" {
			return nil
		}
		return decimalFromString(n)
	case float64:
		d := new(apd.Decimal)
		if _, err := d.SetFloat64(n); err != nil {
			return nil
		}
		return d
	case int64:
		return apd.New(n, 0)
	case int:
		return apd.New(int64(n), 0)
	default:
		return nil
	}
}

// SafeDecimalOr extracts a numeric field, falling back to a zero decimal.
func SafeDecimalOr(m map[string]any, key string) apd.Decimal {
	if d := SafeDecimal(m, key); d != nil {
		return *d
	}
	return apd.Decimal{}
}

// SafeFloat extracts a numeric field as a float64.
func SafeFloat(m map[string]any, key string) (float64, bool) {
	v, ok := SafeValue(m, key)
	if !ok || v == nil {
		return 0, false
	}
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}

// SafeInteger extracts a numeric field as an int64, truncating fractional
// values the way an integer-typed upstream field would be read.
func SafeInteger(m map[string]any, key string) (int64, bool) {
	v, ok := SafeValue(m, key)
	if !ok || v == nil {
		return 0, false
	}
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
		if f, err := n.Float64(); err == nil {
			return int64(f), true
		}
		return 0, false
	case float64:
		return int64(n), true
	case int64:
		return n, true
	case int:
		return int64(n), true
	case string:
		if i, err := strconv.ParseInt(n, 10, 64); err == nil {
			return i, true
		}
		if f, err := strconv.ParseFloat(n, 64); err == nil {
			return int64(f), true
		}
		return 0, false
	default:
		return 0, false
	}
}

// SafeBool extracts a boolean field; absent or non-boolean values are false.
func SafeBool(m map[string]any, key string) bool {
	v, ok := SafeValue(m, key)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// SafeMap extracts a nested object field.
func SafeMap(m map[string]any, key string) (map[string]any, bool) {
	v, ok := SafeValue(m, key)
	if !ok {
		return nil, false
	}
	sub, ok := v.(map[string]any)
	return sub, ok
}

func decimalFromString(s string) *apd.Decimal {
	d := new(apd.Decimal)
	if _, _, err := d.SetString(s); err != nil {
		return nil
	}
	return d
}
