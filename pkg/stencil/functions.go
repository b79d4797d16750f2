package stencil

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/benjaminschreck/go-stencil-odt/pkg/stencil/engine"
	"github.com/benjaminschreck/go-stencil-odt/pkg/stencil/value"
)

// Function represents a callable function in templates
type Function interface {
	// Call executes the function with the given arguments
	Call(args ...interface{}) (interface{}, error)

	// Name returns the function name
	Name() string

	// MinArgs returns the minimum number of arguments required
	MinArgs() int

	// MaxArgs returns the maximum number of arguments allowed (-1 for unlimited)
	MaxArgs() int
}

// FunctionRegistry manages available functions
type FunctionRegistry interface {
	// RegisterFunction adds a function to the registry
	RegisterFunction(fn Function) error

	// GetFunction retrieves a function by name
	GetFunction(name string) (Function, bool)

	// ListFunctions returns all registered function names
	ListFunctions() []string
}

// DefaultFunctionRegistry is the default implementation of FunctionRegistry
type DefaultFunctionRegistry struct {
	functions map[string]Function
	mutex     sync.RWMutex
}

// NewFunctionRegistry creates an empty function registry
func NewFunctionRegistry() *DefaultFunctionRegistry {
	return &DefaultFunctionRegistry{
		functions: make(map[string]Function),
	}
}

func (r *DefaultFunctionRegistry) RegisterFunction(fn Function) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	name := fn.Name()
	if name == "" {
		return fmt.Errorf("function name cannot be empty")
	}

	r.functions[name] = fn
	return nil
}

func (r *DefaultFunctionRegistry) GetFunction(name string) (Function, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	fn, exists := r.functions[name]
	return fn, exists
}

// ListFunctions returns the registered names in sorted order.
func (r *DefaultFunctionRegistry) ListFunctions() []string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	names := make([]string, 0, len(r.functions))
	for name := range r.functions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var (
	globalRegistry *DefaultFunctionRegistry
	registryOnce   sync.Once
)

// GetDefaultFunctionRegistry returns the shared registry of built-in
// functions. Functions registered on it are visible to every engine created
// with New.
func GetDefaultFunctionRegistry() FunctionRegistry {
	registryOnce.Do(func() {
		globalRegistry = NewFunctionRegistry()
		registerBasicFunctions(globalRegistry)
	})
	return globalRegistry
}

// SimpleFunctionImpl provides a basic implementation of Function
type SimpleFunctionImpl struct {
	name    string
	minArgs int
	maxArgs int
	handler func(args ...interface{}) (interface{}, error)
}

func NewSimpleFunction(name string, minArgs, maxArgs int, handler func(args ...interface{}) (interface{}, error)) Function {
	return &SimpleFunctionImpl{
		name:    name,
		minArgs: minArgs,
		maxArgs: maxArgs,
		handler: handler,
	}
}

func (f *SimpleFunctionImpl) Call(args ...interface{}) (interface{}, error) {
	argCount := len(args)
	if argCount < f.minArgs {
		return nil, fmt.Errorf("function %s requires at least %d arguments, got %d", f.name, f.minArgs, argCount)
	}
	if f.maxArgs >= 0 && argCount > f.maxArgs {
		return nil, fmt.Errorf("function %s accepts at most %d arguments, got %d", f.name, f.maxArgs, argCount)
	}

	return f.handler(args...)
}

func (f *SimpleFunctionImpl) Name() string {
	return f.name
}

func (f *SimpleFunctionImpl) MinArgs() int {
	return f.minArgs
}

func (f *SimpleFunctionImpl) MaxArgs() int {
	return f.maxArgs
}

// FunctionProvider interface allows for providing custom functions during template rendering
type FunctionProvider interface {
	// ProvideFunctions returns a map of function name to Function implementation
	ProvideFunctions() map[string]Function
}

// CreateRegistryWithProvider creates a registry holding the built-in
// functions and those of provider.
func CreateRegistryWithProvider(provider FunctionProvider) (FunctionRegistry, error) {
	registry := NewFunctionRegistry()
	registerBasicFunctions(registry)

	for _, fn := range provider.ProvideFunctions() {
		if err := registry.RegisterFunction(fn); err != nil {
			return nil, err
		}
	}

	return registry, nil
}

// bindFunction adapts fn to the engine calling convention. Undefined
// arguments reach fn as nil. Errors and panics become *FunctionError.
func bindFunction(fn Function) engine.Func {
	return func(args ...any) (result any, err error) {
		defer func() {
			if r := recover(); r != nil {
				result = nil
				err = &FunctionError{Function: fn.Name(), Args: args, Cause: RecoverError(r)}
			}
		}()

		plain := make([]interface{}, len(args))
		for i, arg := range args {
			if !value.IsUndefined(arg) {
				plain[i] = arg
			}
		}

		if n := len(plain); n < fn.MinArgs() || (fn.MaxArgs() >= 0 && n > fn.MaxArgs()) {
			return nil, NewFunctionError(fn.Name(), plain, arityMessage(fn, n))
		}

		out, err := fn.Call(plain...)
		if err != nil {
			var fe *FunctionError
			if errors.As(err, &fe) {
				return nil, err
			}
			return nil, &FunctionError{Function: fn.Name(), Args: plain, Cause: err}
		}
		return out, nil
	}
}

func arityMessage(fn Function, got int) string {
	switch {
	case fn.MinArgs() == fn.MaxArgs():
		return fmt.Sprintf("takes %d argument(s), got %d", fn.MinArgs(), got)
	case got < fn.MinArgs():
		return fmt.Sprintf("takes at least %d argument(s), got %d", fn.MinArgs(), got)
	default:
		return fmt.Sprintf("takes at most %d argument(s), got %d", fn.MaxArgs(), got)
	}
}

// funcMap binds every function of registry.
func funcMap(registry FunctionRegistry) engine.FuncMap {
	names := registry.ListFunctions()
	funcs := make(engine.FuncMap, len(names))
	for _, name := range names {
		if fn, ok := registry.GetFunction(name); ok {
			funcs[name] = bindFunction(fn)
		}
	}
	return funcs
}

// registerBasicFunctions registers the built-in functions that need no
// render state. image, markdown and html are bound per render.
func registerBasicFunctions(registry *DefaultFunctionRegistry) {
	registerNumberFormatFunctions(registry)
	registerDateFunctions(registry)
	registerPadFunction(registry)

	registry.RegisterFunction(NewSimpleFunction("empty", 1, 1, func(args ...interface{}) (interface{}, error) {
		return isEmpty(args[0]), nil
	}))

	registry.RegisterFunction(NewSimpleFunction("coalesce", 1, -1, func(args ...interface{}) (interface{}, error) {
		for _, arg := range args {
			if !isEmpty(arg) {
				return arg, nil
			}
		}
		return nil, nil
	}))

	// default(value, fallback) keeps false and 0, unlike coalesce.
	registry.RegisterFunction(NewSimpleFunction("default", 2, 2, func(args ...interface{}) (interface{}, error) {
		if args[0] == nil {
			return args[1], nil
		}
		if s, ok := args[0].(string); ok && s == "" {
			return args[1], nil
		}
		return args[0], nil
	}))

	registry.RegisterFunction(NewSimpleFunction("list", 0, -1, func(args ...interface{}) (interface{}, error) {
		return args, nil
	}))

	registry.RegisterFunction(NewSimpleFunction("str", 1, 1, func(args ...interface{}) (interface{}, error) {
		return FormatValue(args[0]), nil
	}))

	registry.RegisterFunction(NewSimpleFunction("integer", 1, 1, func(args ...interface{}) (interface{}, error) {
		return toInteger(args[0])
	}))

	registry.RegisterFunction(NewSimpleFunction("decimal", 1, 1, func(args ...interface{}) (interface{}, error) {
		return toDecimal(args[0])
	}))

	registry.RegisterFunction(NewSimpleFunction("joinAnd", 3, 3, func(args ...interface{}) (interface{}, error) {
		return joinAnd(args[0], FormatValue(args[1]), FormatValue(args[2]))
	}))

	registry.RegisterFunction(NewSimpleFunction("round", 1, 1, func(args ...interface{}) (interface{}, error) {
		return roundWith(args[0], math.Round)
	}))
	registry.RegisterFunction(NewSimpleFunction("floor", 1, 1, func(args ...interface{}) (interface{}, error) {
		return roundWith(args[0], math.Floor)
	}))
	registry.RegisterFunction(NewSimpleFunction("ceil", 1, 1, func(args ...interface{}) (interface{}, error) {
		return roundWith(args[0], math.Ceil)
	}))

	registry.RegisterFunction(NewSimpleFunction("sum", 1, 1, func(args ...interface{}) (interface{}, error) {
		return sumList(args[0])
	}))

	registry.RegisterFunction(NewSimpleFunction("contains", 2, 2, func(args ...interface{}) (interface{}, error) {
		return containsValue(args[0], args[1])
	}))

	registry.RegisterFunction(NewSimpleFunction("switch", 3, -1, switchFunction))
}

// joinAnd joins items with sep, using last before the final item:
// joinAnd(["a","b","c"], ", ", " and ") is "a, b and c".
func joinAnd(collection interface{}, sep, last string) (interface{}, error) {
	if collection == nil {
		return "", nil
	}
	items, err := toSlice(collection)
	if err != nil {
		return nil, fmt.Errorf("first parameter must be a collection")
	}

	var strs []string
	for _, item := range items {
		if item != nil {
			strs = append(strs, FormatValue(item))
		}
	}

	switch len(strs) {
	case 0:
		return "", nil
	case 1:
		return strs[0], nil
	}
	out := strs[0]
	for _, s := range strs[1 : len(strs)-1] {
		out += sep + s
	}
	return out + last + strs[len(strs)-1], nil
}

func roundWith(val interface{}, fn func(float64) float64) (interface{}, error) {
	if val == nil {
		return nil, nil
	}
	num, err := toNumber(val)
	if err != nil {
		return nil, err
	}
	return int(fn(num)), nil
}

// sumList adds the numbers of a list. The result is an int when every
// element is integral.
func sumList(val interface{}) (interface{}, error) {
	if val == nil {
		return 0, nil
	}
	if _, ok := val.(string); ok {
		return nil, fmt.Errorf("sum() requires a list, got %T", val)
	}
	items, err := toSlice(val)
	if err != nil {
		return nil, fmt.Errorf("sum() requires a list, got %T", val)
	}

	var sum float64
	hasFloat := false
	for _, item := range items {
		if item == nil {
			continue
		}
		num, err := toNumber(item)
		if err != nil {
			return nil, fmt.Errorf("sum() cannot convert item %v to number: %w", item, err)
		}
		sum += num
		switch item.(type) {
		case float32, float64:
			hasFloat = true
		}
	}

	if !hasFloat && sum == math.Trunc(sum) {
		return int(sum), nil
	}
	return sum, nil
}

// containsValue reports whether the list holds an element with the same
// string form as searchVal.
func containsValue(searchVal, listVal interface{}) (interface{}, error) {
	if listVal == nil {
		return false, nil
	}
	if _, ok := listVal.(string); ok {
		return nil, fmt.Errorf("contains() second parameter must be a list, got %T", listVal)
	}
	items, err := toSlice(listVal)
	if err != nil {
		return nil, fmt.Errorf("contains() second parameter must be a list, got %T", listVal)
	}

	want := FormatValue(searchVal)
	for _, item := range items {
		if FormatValue(item) == want {
			return true, nil
		}
	}
	return false, nil
}

// switchFunction returns the value paired with the first case equal to the
// expression: switch(expr, case1, value1, case2, value2[, default]).
func switchFunction(args ...interface{}) (interface{}, error) {
	expr := args[0]
	rest := args[1:]
	for len(rest) >= 2 {
		if matchesCase(expr, rest[0]) {
			return rest[1], nil
		}
		rest = rest[2:]
	}
	if len(rest) == 1 {
		return rest[0], nil
	}
	return nil, nil
}

func matchesCase(expr, caseValue interface{}) (result bool) {
	if expr == nil || caseValue == nil {
		return expr == nil && caseValue == nil
	}
	// Slices and maps panic on ==; they never match.
	defer func() {
		if recover() != nil {
			result = false
		}
	}()
	return expr == caseValue
}
