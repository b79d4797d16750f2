package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"sync"

	"github.com/flosch/pongo2/v6"
)

const (
	autoescapeOn  = "{% autoescape on %}"
	autoescapeOff = "{% autoescape off %}"
	autoescapeEnd = "{% endautoescape %}"
)

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

type pongo2Engine struct {
	opts Options

	// FromString marks the set as used without locking.
	mu  sync.Mutex
	set *pongo2.TemplateSet
}

// NewPongo2 returns the Django syntax engine. pongo2 always renders missing
// variables as empty text, so the Strict policy is rejected.
func NewPongo2(opts Options) (Engine, error) {
	if opts.Undefined == Strict {
		return nil, fmt.Errorf("pongo2: %s undefined policy: %w", opts.Undefined, ErrUnsupported)
	}
	set := pongo2.NewSet("stencil", noIncludes{})
	set.Options.TrimBlocks = opts.TrimBlocks
	set.Options.LStripBlocks = opts.LStripBlocks
	return &pongo2Engine{opts: opts, set: set}, nil
}

func (e *pongo2Engine) Name() string {
	return "pongo2"
}

func (e *pongo2Engine) Compile(source string) error {
	e.mu.Lock()
	_, err := e.set.FromString(autoescapeOff + source + autoescapeEnd)
	e.mu.Unlock()
	if err != nil {
		return e.wrap(err, nil, len(autoescapeOff))
	}
	return nil
}

// Render evaluates source. Helpers take precedence over data entries with
// the same name; data keys that are not identifiers are skipped.
func (e *pongo2Engine) Render(ctx context.Context, source string, data map[string]any, funcs FuncMap) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	prefix := autoescapeOff
	if e.opts.Autoescape {
		prefix = autoescapeOn
	}

	e.mu.Lock()
	tpl, err := e.set.FromString(prefix + source + autoescapeEnd)
	e.mu.Unlock()
	if err != nil {
		return "", e.wrap(err, nil, len(prefix))
	}

	rec := &callRecorder{}
	pctx := make(pongo2.Context, len(data)+len(funcs))
	for k, v := range data {
		if identifier.MatchString(k) {
			pctx[k] = v
		}
	}
	for name, fn := range funcs {
		pctx[name] = e.bind(rec, fn)
	}

	out, err := tpl.Execute(pctx)
	if err != nil {
		return "", e.wrap(err, rec, len(prefix))
	}
	return out, nil
}

func (e *pongo2Engine) bind(rec *callRecorder, fn Func) func(...*pongo2.Value) (*pongo2.Value, error) {
	return func(args ...*pongo2.Value) (*pongo2.Value, error) {
		in := make([]any, len(args))
		for i, a := range args {
			in[i] = argument(a.Interface())
		}
		out, err := rec.call(fn, in)
		if err != nil {
			return pongo2.AsValue(nil), err
		}
		if s, ok := out.(Safe); ok {
			return pongo2.AsSafeValue(string(s)), nil
		}
		return pongo2.AsValue(out), nil
	}
}

// wrap converts a pongo2 error. shift is the length of the autoescape
// prefix added in front of the first line.
func (e *pongo2Engine) wrap(err error, rec *callRecorder, shift int) error {
	out := &Error{Engine: e.Name(), Cause: err}
	var perr *pongo2.Error
	if errors.As(err, &perr) {
		out.Line, out.Column = perr.Line, perr.Column
		if perr.Token != nil {
			out.Token = perr.Token.Val
		}
		if perr.OrigError != nil {
			out.Cause = perr.OrigError
		}
	}
	if out.Line == 1 && out.Column > shift {
		out.Column -= shift
	}
	if rec != nil {
		out.Cause = rec.cause(out.Cause)
	}
	return out
}

// noIncludes refuses {% include %} and {% extends %}: a document part is a
// self-contained template.
type noIncludes struct{}

func (noIncludes) Abs(_, name string) string {
	return name
}

func (noIncludes) Get(path string) (io.Reader, error) {
	return nil, fmt.Errorf("cannot load %q: includes are not supported", path)
}
