package model

import (
	"fmt"
	"math"
	"sort"
	"strconv"
)

// Values is the unvalidated attribute bag accepted at the ingress boundary.
// A key mapped to nil writes SQL NULL.
type Values map[string]any

// Has reports whether key is present, even if it maps to nil.
func (v Values) Has(key string) bool {
	_, ok := v[key]
	return ok
}

// Set stores value under key.
func (v Values) Set(key string, value any) {
	v[key] = value
}

// SetNull stores an explicit NULL under key.
func (v Values) SetNull(key string) {
	v[key] = nil
}

// Delete removes key.
func (v Values) Delete(key string) {
	delete(v, key)
}

// Clone returns a shallow copy.
func (v Values) Clone() Values {
	c := make(Values, len(v))
	for k, val := range v {
		c[k] = val
	}
	return c
}

// Keys returns the keys in sorted order so generated statements are stable.
func (v Values) Keys() []string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// String returns the value of key rendered as text. The second result is false
// when the key is missing or NULL.
func (v Values) String(key string) (string, bool) {
	val, ok := v[key]
	if !ok || val == nil {
		return "", false
	}
	return AsString(val), true
}

// Int64 returns the value of key as an integer. The second result is false when
// the key is missing, NULL, or not a number.
func (v Values) Int64(key string) (int64, bool) {
	val, ok := v[key]
	if !ok || val == nil {
		return 0, false
	}
	return AsInt64(val)
}

// AsString renders a scalar the way it would be bound as text.
func AsString(val any) string {
	switch x := val.(type) {
	case string:
		return x
	case []byte:
		return string(x)
	case bool:
		if x {
			return "1"
		}
		return "0"
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		if x == float64(int64(x)) {
			return strconv.FormatInt(int64(x), 10)
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}

// AsInt64 converts integers, whole floats, bools and numeric strings. Values
// outside the int64 range are rejected.
func AsInt64(val any) (int64, bool) {
	switch x := val.(type) {
	case int:
		return int64(x), true
	case int32:
		return int64(x), true
	case int64:
		return x, true
	case uint32:
		return int64(x), true
	case uint64:
		if x > math.MaxInt64 {
			return 0, false
		}
		return int64(x), true
	case float64:
		if x >= math.MaxInt64 || x < math.MinInt64 || x != float64(int64(x)) {
			return 0, false
		}
		return int64(x), true
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	case string:
		n, err := strconv.ParseInt(x, 10, 64)
		return n, err == nil
	case []byte:
		n, err := strconv.ParseInt(string(x), 10, 64)
		return n, err == nil
	}
	return 0, false
}
