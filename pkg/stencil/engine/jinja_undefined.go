package engine

import (
	"reflect"
	"unsafe"

	"github.com/nikolalohinski/gonja/v2/exec"
	"github.com/nikolalohinski/gonja/v2/nodes"
	"github.com/nikolalohinski/gonja/v2/tokens"

	"github.com/benjaminschreck/go-stencil-odt/pkg/stencil/value"
)

// gonja resolves a missing name to nil and then fails on any attribute,
// item or call applied to it. guardUndefined rewrites a parsed template so
// that every such target passes through a helper first: defined values come
// back unchanged, undefined ones are replaced by a value on which the access
// finds nothing. A chain like missing.a().b then renders as empty text.
//
// The helper names start with '$', which the lexer never produces, so data
// keys cannot shadow them.
const (
	receiverGuard = "$receiver"
	callableGuard = "$callable"
)

var undefinedGuards = map[string]any{
	receiverGuard: guardReceiver,
	callableGuard: guardCallable,
}

func undefinedValue(v *exec.Value) bool {
	if v == nil || v.IsNil() {
		return true
	}
	if val, ok := v.Interface().(value.Value); ok {
		return !val.Defined()
	}
	return false
}

// guardReceiver($receiver(target[, method])) returns target when it is
// defined. Otherwise an empty list stands in for it, on which attribute and
// item lookups find nothing, or for a method call a map whose only entry is
// that method.
func guardReceiver(params *exec.VarArgs) *exec.Value {
	if len(params.Args) == 0 {
		return exec.AsValue(nil)
	}
	target := params.Args[0]
	if !undefinedValue(target) {
		return target
	}
	if len(params.Args) > 1 {
		return exec.AsValue(map[string]any{params.Args[1].String(): absorbCall})
	}
	return exec.AsValue([]any{})
}

// guardCallable($callable(fn)) returns fn, or a function yielding nothing
// when fn is undefined.
func guardCallable(params *exec.VarArgs) *exec.Value {
	if len(params.Args) == 0 || undefinedValue(params.Args[0]) {
		return exec.AsValue(absorbCall)
	}
	return params.Args[0]
}

func absorbCall(*exec.VarArgs) *exec.Value {
	return exec.AsValue(nil)
}

var tokenType = reflect.TypeOf(&tokens.Token{})

// guardUndefined rewrites root in place. Control structures keep their
// expressions in unexported fields, so the walk goes through reflection.
func guardUndefined(root *nodes.Template) {
	g := &undefinedGuard{seen: make(map[uintptr]bool)}
	g.walk(reflect.ValueOf(root))
}

type undefinedGuard struct {
	seen map[uintptr]bool
}

func (g *undefinedGuard) walk(v reflect.Value) {
	switch v.Kind() {
	case reflect.Interface:
		if !v.IsNil() {
			g.walk(v.Elem())
		}
	case reflect.Pointer:
		if v.IsNil() || v.Type() == tokenType || g.seen[v.Pointer()] {
			return
		}
		g.seen[v.Pointer()] = true
		if n, ok := v.Interface().(nodes.Node); ok && g.rewrite(n) {
			return
		}
		g.walk(v.Elem())
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			g.walk(accessible(v.Field(i)))
		}
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			g.walk(v.Index(i))
		}
	case reflect.Map:
		iter := v.MapRange()
		for iter.Next() {
			g.walk(iter.Value())
		}
	}
}

// accessible lifts the read-only flag of an unexported field. Fields that are
// not addressable yield the zero Value, which walk ignores.
func accessible(f reflect.Value) reflect.Value {
	if f.CanInterface() {
		return f
	}
	if !f.CanAddr() {
		return reflect.Value{}
	}
	return reflect.NewAt(f.Type(), unsafe.Pointer(f.UnsafeAddr())).Elem()
}

func (g *undefinedGuard) node(n nodes.Node) {
	if n != nil {
		g.walk(reflect.ValueOf(n))
	}
}

// rewrite guards the targets of n after rewriting its operands. It reports
// whether n was handled.
func (g *undefinedGuard) rewrite(n nodes.Node) bool {
	switch n := n.(type) {
	case *nodes.GetAttribute:
		g.node(n.Node)
		n.Node = guardCall(receiverGuard, n.Location, n.Node)
	case *nodes.GetItem:
		g.node(n.Node)
		g.node(n.Arg)
		n.Node = guardCall(receiverGuard, n.Location, n.Node)
	case *nodes.GetSlice:
		g.node(n.Node)
		g.node(n.Start)
		g.node(n.End)
		n.Node = guardCall(receiverGuard, n.Location, n.Node)
	case *nodes.Call:
		// A method call must keep its attribute node: gonja falls back to
		// the built-in string, list and dict methods through it.
		if attr, ok := n.Func.(*nodes.GetAttribute); ok && attr.Attribute != "" {
			g.seen[reflect.ValueOf(attr).Pointer()] = true
			g.node(attr.Node)
			method := &nodes.String{Location: attr.Location, Val: attr.Attribute}
			attr.Node = guardCall(receiverGuard, attr.Location, attr.Node, method)
		} else {
			g.node(n.Func)
			n.Func = guardCall(callableGuard, n.Location, n.Func)
		}
		for _, arg := range n.Args {
			g.node(arg)
		}
		for _, arg := range n.Kwargs {
			g.node(arg)
		}
	default:
		return false
	}
	return true
}

func guardCall(helper string, at *tokens.Token, args ...nodes.Node) *nodes.Call {
	if at == nil {
		at = &tokens.Token{}
	}
	call := &nodes.Call{
		Location: at,
		Func: &nodes.Name{Name: &tokens.Token{
			Type: tokens.Name,
			Val:  helper,
			Pos:  at.Pos,
			Line: at.Line,
			Col:  at.Col,
		}},
		Kwargs: map[string]nodes.Expression{},
	}
	for _, arg := range args {
		call.Args = append(call.Args, arg)
	}
	return call
}
