package stencil

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/benjaminschreck/go-stencil-odt/pkg/stencil/value"
)

func callBuiltin(t *testing.T, name string, args ...interface{}) (interface{}, error) {
	t.Helper()
	fn, ok := GetDefaultFunctionRegistry().GetFunction(name)
	if !ok {
		t.Fatalf("function %q is not registered", name)
	}
	return fn.Call(args...)
}

func TestBuiltinFunctions(t *testing.T) {
	tests := []struct {
		name string
		fn   string
		args []interface{}
		want interface{}
	}{
		{"empty nil", "empty", []interface{}{nil}, true},
		{"empty zero", "empty", []interface{}{0}, true},
		{"empty slice", "empty", []interface{}{[]string{}}, true},
		{"empty text", "empty", []interface{}{"x"}, false},
		{"coalesce", "coalesce", []interface{}{nil, "", "first", "second"}, "first"},
		{"coalesce none", "coalesce", []interface{}{nil, ""}, nil},
		{"default nil", "default", []interface{}{nil, "n/a"}, "n/a"},
		{"default keeps zero", "default", []interface{}{0, "n/a"}, 0},
		{"list", "list", []interface{}{1, "a"}, []interface{}{1, "a"}},
		{"str float", "str", []interface{}{1.5}, "1.5"},
		{"str nil", "str", []interface{}{nil}, ""},
		{"integer string", "integer", []interface{}{"42"}, 42},
		{"integer float", "integer", []interface{}{3.9}, 3},
		{"decimal", "decimal", []interface{}{"2.5"}, 2.5},
		{"joinAnd three", "joinAnd", []interface{}{[]string{"a", "b", "c"}, ", ", " and "}, "a, b and c"},
		{"joinAnd two", "joinAnd", []interface{}{[]interface{}{"a", "b"}, ", ", " and "}, "a and b"},
		{"joinAnd one", "joinAnd", []interface{}{[]int{1}, ", ", " and "}, "1"},
		{"round", "round", []interface{}{2.5}, 3},
		{"floor", "floor", []interface{}{-1.5}, -2},
		{"ceil", "ceil", []interface{}{"1.1"}, 2},
		{"sum ints", "sum", []interface{}{[]int{1, 2, 3}}, 6},
		{"sum floats", "sum", []interface{}{[]interface{}{1, 2.5}}, 3.5},
		{"contains", "contains", []interface{}{2, []interface{}{"1", "2"}}, true},
		{"contains missing", "contains", []interface{}{"x", []string{"a"}}, false},
		{"switch match", "switch", []interface{}{"b", "a", 1, "b", 2}, 2},
		{"switch default", "switch", []interface{}{"z", "a", 1, "other"}, "other"},
		{"switch no default", "switch", []interface{}{"z", "a", 1}, nil},
		{"pad default", "pad", []interface{}{7}, "00007"},
		{"pad width", "pad", []interface{}{"AB", 3}, "0AB"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := callBuiltin(t, tt.fn, tt.args...)
			if err != nil {
				t.Fatalf("%s() returned error: %v", tt.fn, err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("%s(%v) = %#v, want %#v", tt.fn, tt.args, got, tt.want)
			}
		})
	}
}

func TestBuiltinFunctionErrors(t *testing.T) {
	tests := []struct {
		fn   string
		args []interface{}
	}{
		{"sum", []interface{}{"123"}},
		{"contains", []interface{}{"a", "abc"}},
		{"integer", []interface{}{"abc"}},
		{"joinAnd", []interface{}{42, ",", "and"}},
		{"empty", nil},
		{"pad", []interface{}{1, 2, 3}},
	}
	for _, tt := range tests {
		if _, err := callBuiltin(t, tt.fn, tt.args...); err == nil {
			t.Errorf("%s(%v) should fail", tt.fn, tt.args)
		}
	}
}

func TestRegistry(t *testing.T) {
	registry := NewFunctionRegistry()
	if err := registry.RegisterFunction(NewSimpleFunction("", 0, 0, nil)); err == nil {
		t.Error("registering an unnamed function should fail")
	}

	greet := NewSimpleFunction("greet", 1, 1, func(args ...interface{}) (interface{}, error) {
		return "hello " + FormatValue(args[0]), nil
	})
	if err := registry.RegisterFunction(greet); err != nil {
		t.Fatalf("RegisterFunction() error = %v", err)
	}
	if got := registry.ListFunctions(); !reflect.DeepEqual(got, []string{"greet"}) {
		t.Errorf("ListFunctions() = %v", got)
	}
	if fn, ok := registry.GetFunction("greet"); !ok || fn.MinArgs() != 1 || fn.MaxArgs() != 1 {
		t.Errorf("GetFunction() = %v, %v", fn, ok)
	}
}

type staticProvider map[string]Function

func (p staticProvider) ProvideFunctions() map[string]Function { return p }

func TestCreateRegistryWithProvider(t *testing.T) {
	registry, err := CreateRegistryWithProvider(staticProvider{
		"twice": NewSimpleFunction("twice", 1, 1, func(args ...interface{}) (interface{}, error) {
			n, err := toNumber(args[0])
			return n * 2, err
		}),
	})
	if err != nil {
		t.Fatalf("CreateRegistryWithProvider() error = %v", err)
	}
	for _, name := range []string{"twice", "pad", "format_number"} {
		if _, ok := registry.GetFunction(name); !ok {
			t.Errorf("function %q missing", name)
		}
	}
}

func TestBindFunction(t *testing.T) {
	var seen []interface{}
	echo := bindFunction(NewSimpleFunction("echo", 0, -1, func(args ...interface{}) (interface{}, error) {
		seen = args
		return len(args), nil
	}))

	got, err := echo("a", value.Undefined)
	if err != nil || got != 2 {
		t.Fatalf("echo() = %v, %v", got, err)
	}
	if seen[1] != nil {
		t.Errorf("undefined argument reached the function as %#v, want nil", seen[1])
	}

	boom := errors.New("boom")
	failing := bindFunction(NewSimpleFunction("fail", 0, 0, func(args ...interface{}) (interface{}, error) {
		return nil, boom
	}))
	_, err = failing()
	var fe *FunctionError
	if !errors.As(err, &fe) || fe.Function != "fail" || !errors.Is(err, boom) {
		t.Errorf("failing() error = %v, want *FunctionError wrapping boom", err)
	}

	panicking := bindFunction(NewSimpleFunction("explode", 0, 0, func(args ...interface{}) (interface{}, error) {
		var m map[string]int
		m["x"] = 1
		return nil, nil
	}))
	_, err = panicking()
	if !errors.As(err, &fe) || !strings.Contains(err.Error(), "panic recovered") {
		t.Errorf("panicking() error = %v, want recovered *FunctionError", err)
	}

	arity := []struct {
		fn   Function
		args []any
		want string
	}{
		{NewSimpleFunction("one", 1, 1, nil), nil, "takes 1 argument(s), got 0"},
		{NewSimpleFunction("some", 1, 2, nil), nil, "takes at least 1 argument(s), got 0"},
		{NewSimpleFunction("few", 0, 1, nil), []any{1, 2}, "takes at most 1 argument(s), got 2"},
	}
	for _, tt := range arity {
		_, err := bindFunction(tt.fn)(tt.args...)
		if !errors.As(err, &fe) || fe.Message != tt.want {
			t.Errorf("%s() error = %v, want *FunctionError %q", tt.fn.Name(), err, tt.want)
		}
	}
}

func TestFuncMap(t *testing.T) {
	funcs := funcMap(GetDefaultFunctionRegistry())
	for _, name := range GetDefaultFunctionRegistry().ListFunctions() {
		if funcs[name] == nil {
			t.Errorf("funcMap is missing %q", name)
		}
	}
}
