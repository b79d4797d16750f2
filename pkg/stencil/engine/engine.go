// Package engine adapts general purpose template engines to the renderer.
//
// The renderer hands an engine a complete template source, the caller's
// data and a set of helper functions. Two adapters are provided: pongo2
// (Django syntax, the default) and gonja (Jinja2 syntax). Both render
// missing variables as empty text unless the Strict policy is requested.
package engine

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/benjaminschreck/go-stencil-odt/pkg/stencil/value"
)

// Engine renders a template source against data.
type Engine interface {
	// Name identifies the engine, such as "pongo2".
	Name() string
	// Compile parses source without evaluating it.
	Compile(source string) error
	Render(ctx context.Context, source string, data map[string]any, funcs FuncMap) (string, error)
}

// Func is a helper callable from templates. Arguments arrive as plain Go
// values; undefined arguments arrive as value.Undefined.
type Func func(args ...any) (any, error)

// FuncMap maps template names to helpers.
type FuncMap map[string]Func

// Safe is markup that is inserted as is, even with autoescaping on.
type Safe string

// UndefinedPolicy decides what a missing variable renders to.
type UndefinedPolicy int

const (
	// Silent renders missing variables as empty text.
	Silent UndefinedPolicy = iota
	// Strict fails the render on a missing variable.
	Strict
)

func (p UndefinedPolicy) String() string {
	if p == Strict {
		return "strict"
	}
	return "silent"
}

// Options configures an engine.
type Options struct {
	Undefined    UndefinedPolicy
	Autoescape   bool
	TrimBlocks   bool
	LStripBlocks bool
}

var (
	// ErrUnknownEngine is returned by New for an unrecognized name.
	ErrUnknownEngine = errors.New("unknown template engine")
	// ErrUnsupported is returned when an engine cannot honor an option.
	ErrUnsupported = errors.New("option not supported by engine")
)

// New returns the engine registered under name. An empty name selects
// pongo2.
func New(name string, opts Options) (Engine, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "pongo2", "django":
		return NewPongo2(opts)
	case "jinja", "jinja2", "gonja":
		return NewJinja(opts)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownEngine, name)
}

// Error is a failure reported by a template engine. Line and Column are
// 1-based positions in the source, 0 when the engine did not report them.
type Error struct {
	Engine string
	Line   int
	Column int
	// Token is the source text the engine pointed at, if any.
	Token string
	Cause error
}

func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Engine)
	if e.Line > 0 {
		fmt.Fprintf(&sb, " line %d", e.Line)
		if e.Column > 0 {
			fmt.Fprintf(&sb, " column %d", e.Column)
		}
	}
	if e.Token != "" {
		fmt.Fprintf(&sb, " near %q", e.Token)
	}
	if e.Cause != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Cause.Error())
	}
	return sb.String()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// callRecorder keeps the first error returned by a helper during one render
// so that it survives the engine's own error wrapping.
type callRecorder struct {
	err error
}

func (r *callRecorder) call(fn Func, args []any) (any, error) {
	out, err := fn(args...)
	if err != nil {
		if r.err == nil {
			r.err = err
		}
		return nil, err
	}
	return result(out), nil
}

// cause prefers the recorded helper error over the engine's report.
func (r *callRecorder) cause(err error) error {
	if r.err != nil {
		return r.err
	}
	return err
}

// result converts a helper's return value for the engine. Undefined values
// become nil so that the engine applies its own missing-value handling.
func result(v any) any {
	if val, ok := v.(value.Value); ok {
		if !val.Defined() {
			return nil
		}
		return val.Interface()
	}
	return v
}

// argument converts an engine value handed to a helper. nil stands for an
// undefined variable.
func argument(v any) any {
	if v == nil {
		return value.Undefined
	}
	return v
}

var (
	linePattern   = regexp.MustCompile(`(?i)\bline:?\s*(\d+)`)
	columnPattern = regexp.MustCompile(`(?i)\bcol(?:umn)?:?\s*(\d+)`)
)

// positionFromMessage recovers a line and column from an error message for
// engines that only report positions as text.
func positionFromMessage(msg string) (line, col int) {
	if m := linePattern.FindStringSubmatch(msg); m != nil {
		line, _ = strconv.Atoi(m[1])
	}
	if m := columnPattern.FindStringSubmatch(msg); m != nil {
		col, _ = strconv.Atoi(m[1])
	}
	return line, col
}
