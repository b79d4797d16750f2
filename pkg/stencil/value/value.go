// Package value provides the lookup model used by template helpers when they
// read caller data that may be missing.
//
// Every lookup returns a Value. A missing map key, an absent struct field, an
// out of range index or a failed call produces Undefined, and Undefined
// absorbs any further lookup or call. Its text form is always "".
package value

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Value is the result of a lookup or call on template data.
type Value interface {
	// Attr returns the named field, map entry or method.
	Attr(name string) Value
	// Index returns the element at key for maps, slices, arrays and strings.
	Index(key any) Value
	// Call invokes a function value with args.
	Call(args ...any) Value
	// Interface returns the wrapped Go value, nil for Undefined.
	Interface() any
	// Defined reports whether the value is not Undefined.
	Defined() bool
	String() string
}

type undefined struct{}

// Undefined is the sentinel returned for anything that cannot be resolved.
var Undefined Value = undefined{}

func (undefined) Attr(string) Value { return Undefined }
func (undefined) Index(any) Value { return Undefined }
func (undefined) Call(...any) Value { return Undefined }
func (undefined) Interface() any { return nil }
func (undefined) Defined() bool { return false }
func (undefined) String() string { return "" }
func (undefined) GoString() string { return "value.Undefined" }
func (undefined) MarshalText() ([]byte, error) { return nil, nil }

// IsUndefined reports whether v is nil, Undefined, or a nil pointer.
func IsUndefined(v any) bool {
	return !Of(v).Defined()
}

type concrete struct {
	v any
}

// Of wraps v. Nil values, nil pointers and nil interfaces become Undefined.
func Of(v any) Value {
	if v == nil {
		return Undefined
	}
	if val, ok := v.(Value); ok {
		return val
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func:
		if rv.IsNil() {
			return Undefined
		}
	}
	return concrete{v: v}
}

// Lookup walks path from data. Each element may itself be dotted.
//
//	Lookup(data, "customer.address", "city")
func Lookup(data any, path ...string) Value {
	cur := Of(data)
	for _, p := range path {
		for _, name := range strings.Split(p, ".") {
			if name == "" {
				continue
			}
			cur = cur.Attr(name)
			if !cur.Defined() {
				return Undefined
			}
		}
	}
	return cur
}

func (c concrete) Interface() any { return c.v }
func (c concrete) Defined() bool { return true }

func (c concrete) String() string {
	switch t := c.v.(type) {
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	case error:
		return t.Error()
	}
	if rv := reflect.ValueOf(c.v); rv.Kind() == reflect.Pointer {
		return fromReflect(rv.Elem()).String()
	}
	return fmt.Sprint(c.v)
}

func (c concrete) Attr(name string) Value {
	rv := reflect.ValueOf(c.v)
	if m := rv.MethodByName(name); m.IsValid() && m.CanInterface() {
		return Of(m.Interface())
	}

	rv = indirect(rv)
	if !rv.IsValid() {
		return Undefined
	}

	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return Undefined
		}
		key := reflect.ValueOf(name).Convert(rv.Type().Key())
		return fromReflect(rv.MapIndex(key))
	case reflect.Struct:
		field, ok := rv.Type().FieldByName(name)
		if !ok || !field.IsExported() {
			return Undefined
		}
		return fromReflect(rv.FieldByIndex(field.Index))
	case reflect.Slice, reflect.Array, reflect.String:
		if i, err := strconv.Atoi(name); err == nil {
			return c.Index(i)
		}
	}
	return Undefined
}

func (c concrete) Index(key any) Value {
	rv := indirect(reflect.ValueOf(c.v))
	if !rv.IsValid() {
		return Undefined
	}

	switch rv.Kind() {
	case reflect.Map:
		kv, ok := convertArg(key, rv.Type().Key())
		if !ok {
			return Undefined
		}
		return fromReflect(rv.MapIndex(kv))
	case reflect.Slice, reflect.Array, reflect.String:
		i, ok := toInt(key)
		if !ok {
			return Undefined
		}
		if i < 0 {
			i += rv.Len()
		}
		if i < 0 || i >= rv.Len() {
			return Undefined
		}
		return fromReflect(rv.Index(i))
	}
	return Undefined
}

func (c concrete) Call(args ...any) (result Value) {
	fn := reflect.ValueOf(c.v)
	if fn.Kind() != reflect.Func {
		return Undefined
	}
	ft := fn.Type()

	if ft.IsVariadic() {
		if len(args) < ft.NumIn()-1 {
			return Undefined
		}
	} else if len(args) != ft.NumIn() {
		return Undefined
	}

	in := make([]reflect.Value, len(args))
	for i, arg := range args {
		var want reflect.Type
		if ft.IsVariadic() && i >= ft.NumIn()-1 {
			want = ft.In(ft.NumIn() - 1).Elem()
		} else {
			want = ft.In(i)
		}
		v, ok := convertArg(arg, want)
		if !ok {
			return Undefined
		}
		in[i] = v
	}

	defer func() {
		if r := recover(); r != nil {
			result = Undefined
		}
	}()

	out := fn.Call(in)
	switch len(out) {
	case 0:
		return Undefined
	case 1:
		return fromReflect(out[0])
	case 2:
		if err, _ := out[1].Interface().(error); err != nil {
			return Undefined
		}
		return fromReflect(out[0])
	}
	return Undefined
}

func fromReflect(rv reflect.Value) Value {
	if !rv.IsValid() || !rv.CanInterface() {
		return Undefined
	}
	return Of(rv.Interface())
}

func indirect(rv reflect.Value) reflect.Value {
	for rv.IsValid() && (rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface) {
		if rv.IsNil() {
			return reflect.Value{}
		}
		rv = rv.Elem()
	}
	return rv
}

func convertArg(arg any, want reflect.Type) (reflect.Value, bool) {
	if val, ok := arg.(Value); ok {
		arg = val.Interface()
	}
	if arg == nil {
		return reflect.Zero(want), true
	}
	av := reflect.ValueOf(arg)
	if av.Type().AssignableTo(want) {
		return av, true
	}
	if av.Type().ConvertibleTo(want) {
		// string(int) conversions are legal Go but never what a template means
		if want.Kind() == reflect.String && av.Kind() != reflect.String {
			return reflect.Value{}, false
		}
		return av.Convert(want), true
	}
	return reflect.Value{}, false
}

func toInt(key any) (int, bool) {
	switch k := key.(type) {
	case int:
		return k, true
	case int8:
		return int(k), true
	case int16:
		return int(k), true
	case int32:
		return int(k), true
	case int64:
		return int(k), true
	case uint:
		return int(k), true
	case uint8:
		return int(k), true
	case uint16:
		return int(k), true
	case uint32:
		return int(k), true
	case uint64:
		return int(k), true
	case float64:
		if k == float64(int(k)) {
			return int(k), true
		}
	case string:
		if i, err := strconv.Atoi(k); err == nil {
			return i, true
		}
	}
	return 0, false
}
