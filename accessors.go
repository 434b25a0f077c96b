package settings

import (
	"encoding/json"
	"fmt"
	"math"
)

// String resolves key and asserts the value is a string.
func (v *View) String(key string) (string, error) {
	value, err := v.Get(key)
	if err != nil {
		return "", err
	}
	s, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("settings: key %q holds %T, not string", key, value)
	}
	return s, nil
}

// Bool resolves key and asserts the value is a bool.
func (v *View) Bool(key string) (bool, error) {
	value, err := v.Get(key)
	if err != nil {
		return false, err
	}
	b, ok := value.(bool)
	if !ok {
		return false, fmt.Errorf("settings: key %q holds %T, not bool", key, value)
	}
	return b, nil
}

// Int resolves key as an integer. Besides int it accepts the numeric
// encodings JSON decoding produces: float64 with an integral value and
// json.Number.
func (v *View) Int(key string) (int, error) {
	value, err := v.Get(key)
	if err != nil {
		return 0, err
	}
	switch n := value.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("settings: key %q holds non-integral number %v", key, n)
		}
		return int(n), nil
	case json.Number:
		parsed, err := n.Int64()
		if err != nil {
			return 0, fmt.Errorf("settings: key %q holds non-integral number %v", key, n)
		}
		return int(parsed), nil
	}
	return 0, fmt.Errorf("settings: key %q holds %T, not int", key, value)
}

// Float64 resolves key as a floating point number, accepting int, int64,
// float64, and json.Number values.
func (v *View) Float64(key string) (float64, error) {
	value, err := v.Get(key)
	if err != nil {
		return 0, err
	}
	switch n := value.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, fmt.Errorf("settings: key %q holds malformed number %v", key, n)
		}
		return parsed, nil
	}
	return 0, fmt.Errorf("settings: key %q holds %T, not float64", key, value)
}

// StringSlice resolves key as a slice of strings. JSON arrays decode as
// []any, so both []string and all-string []any values qualify.
func (v *View) StringSlice(key string) ([]string, error) {
	value, err := v.Get(key)
	if err != nil {
		return nil, err
	}
	switch typed := value.(type) {
	case []string:
		return typed, nil
	case []any:
		out := make([]string, 0, len(typed))
		for _, item := range typed {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("settings: key %q holds %T element, not string", key, item)
			}
			out = append(out, s)
		}
		return out, nil
	}
	return nil, fmt.Errorf("settings: key %q holds %T, not []string", key, value)
}

// Map resolves key as a nested object.
func (v *View) Map(key string) (Fragment, error) {
	value, err := v.Get(key)
	if err != nil {
		return nil, err
	}
	m, ok := value.(Fragment)
	if !ok {
		return nil, fmt.Errorf("settings: key %q holds %T, not object", key, value)
	}
	return m, nil
}
