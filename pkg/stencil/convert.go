package stencil

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/benjaminschreck/go-stencil-odt/pkg/stencil/value"
)

// FormatValue converts a value to its string representation
func FormatValue(v interface{}) string {
	if v == nil || value.IsUndefined(v) {
		return ""
	}

	switch x := v.(type) {
	case string:
		return x
	case int, int8, int16, int32, int64:
		return fmt.Sprintf("%d", x)
	case uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", x)
	case float32:
		return strconv.FormatFloat(float64(x), 'g', 10, 32)
	case float64:
		// 'g' with 15 digits drops trailing zeros and binary noise.
		return strconv.FormatFloat(x, 'g', 15, 64)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprintf("%v", x)
	}
}

// toNumber converts various types to float64
func toNumber(val interface{}) (float64, error) {
	if val == nil {
		return 0, nil
	}

	switch v := val.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int8:
		return float64(v), nil
	case int16:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case uint:
		return float64(v), nil
	case uint8:
		return float64(v), nil
	case uint16:
		return float64(v), nil
	case uint32:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("cannot convert string %q to number", v)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("cannot convert %T to number", val)
	}
}

// toInteger truncates any numeric value, or a numeric string, to an int.
func toInteger(val interface{}) (interface{}, error) {
	if val == nil {
		return nil, nil
	}
	if s, ok := val.(string); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, nil
		}
	}
	f, err := toNumber(val)
	if err != nil {
		return nil, fmt.Errorf("cannot convert %v to integer: %w", val, err)
	}
	return int(f), nil
}

func toDecimal(val interface{}) (interface{}, error) {
	if val == nil {
		return nil, nil
	}
	f, err := toNumber(val)
	if err != nil {
		return nil, fmt.Errorf("cannot convert %v to decimal: %w", val, err)
	}
	return f, nil
}

// toSlice returns the elements of any slice or array. Strings and maps are
// not collections here.
func toSlice(val interface{}) ([]interface{}, error) {
	if items, ok := val.([]interface{}); ok {
		return items, nil
	}
	rv := reflect.ValueOf(val)
	for rv.Kind() == reflect.Pointer && !rv.IsNil() {
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		items := make([]interface{}, rv.Len())
		for i := range items {
			items[i] = rv.Index(i).Interface()
		}
		return items, nil
	default:
		return nil, fmt.Errorf("expected a list, got %T", val)
	}
}

// isEmpty checks if a value is considered empty
func isEmpty(val interface{}) bool {
	if val == nil || value.IsUndefined(val) {
		return true
	}

	switch v := val.(type) {
	case bool:
		return !v
	case string:
		return v == ""
	}

	rv := reflect.ValueOf(val)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return rv.Float() == 0
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	default:
		return false
	}
}
