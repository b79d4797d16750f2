package engine

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/nikolalohinski/gonja/v2/builtins"
	"github.com/nikolalohinski/gonja/v2/config"
	"github.com/nikolalohinski/gonja/v2/exec"
	"github.com/nikolalohinski/gonja/v2/loaders"
)

const jinjaRoot = "document"

type jinjaEngine struct {
	cfg *config.Config
}

// NewJinja returns the Jinja2 syntax engine backed by gonja.
func NewJinja(opts Options) (Engine, error) {
	cfg := &config.Config{
		BlockStartString:    "{%",
		BlockEndString:      "%}",
		VariableStartString: "{{",
		VariableEndString:   "}}",
		CommentStartString:  "{#",
		CommentEndString:    "#}",
		AutoEscape:          opts.Autoescape,
		StrictUndefined:     opts.Undefined == Strict,
		TrimBlocks:          opts.TrimBlocks,
		LeftStripBlocks:     opts.LStripBlocks,
	}
	return &jinjaEngine{cfg: cfg}, nil
}

func (e *jinjaEngine) Name() string {
	return "gonja"
}

func (e *jinjaEngine) Compile(source string) error {
	env := &exec.Environment{
		Filters:           builtins.Filters,
		Tests:             builtins.Tests,
		ControlStructures: builtins.ControlStructures,
		Methods:           builtins.Methods,
		Context:           exec.NewContext(map[string]any{}),
	}
	if _, err := exec.NewTemplate(jinjaRoot, e.cfg, sourceLoader(source), env); err != nil {
		return e.wrap(err, nil)
	}
	return nil
}

func (e *jinjaEngine) Render(ctx context.Context, source string, data map[string]any, funcs FuncMap) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	rec := &callRecorder{}
	globals := make(map[string]any, len(funcs)+len(undefinedGuards))
	for name, fn := range funcs {
		globals[name] = bindJinja(rec, fn)
	}
	if !e.cfg.StrictUndefined {
		for name, guard := range undefinedGuards {
			globals[name] = guard
		}
	}
	// A fresh context per render: Update writes into its receiver.
	env := &exec.Environment{
		Filters:           builtins.Filters,
		Tests:             builtins.Tests,
		ControlStructures: builtins.ControlStructures,
		Methods:           builtins.Methods,
		Context: exec.NewContext(map[string]any{}).
			Update(builtins.GlobalFunctions).
			Update(exec.NewContext(globals)),
	}

	tpl, err := exec.NewTemplate(jinjaRoot, e.cfg, sourceLoader(source), env)
	if err != nil {
		return "", e.wrap(err, nil)
	}

	var out strings.Builder
	r := exec.NewRenderer(&exec.Environment{
		Filters:           env.Filters,
		Tests:             env.Tests,
		ControlStructures: env.ControlStructures,
		Methods:           env.Methods,
		Context:           env.Context.Inherit().Update(exec.NewContext(data)),
	}, &out, e.cfg, sourceLoader(source), tpl)
	if !e.cfg.StrictUndefined {
		guardUndefined(r.RootNode)
	}
	if err := r.Execute(); err != nil {
		return "", e.wrap(err, rec)
	}
	return out.String(), nil
}

func bindJinja(rec *callRecorder, fn Func) func(*exec.Evaluator, *exec.VarArgs) *exec.Value {
	return func(_ *exec.Evaluator, params *exec.VarArgs) *exec.Value {
		var in []any
		if params != nil {
			for _, a := range params.Args {
				in = append(in, argument(a.Interface()))
			}
			if len(params.KwArgs) > 0 {
				kw := make(map[string]any, len(params.KwArgs))
				for k, v := range params.KwArgs {
					kw[k] = v.Interface()
				}
				in = append(in, kw)
			}
		}
		out, err := rec.call(fn, in)
		if err != nil {
			return exec.AsValue(exec.ErrInvalidCall(err))
		}
		if s, ok := out.(Safe); ok {
			return exec.AsSafeValue(string(s))
		}
		return exec.AsValue(out)
	}
}

func (e *jinjaEngine) wrap(err error, rec *callRecorder) error {
	out := &Error{Engine: e.Name(), Cause: err}
	out.Line, out.Column = positionFromMessage(err.Error())
	if rec != nil {
		out.Cause = rec.cause(err)
	}
	return out
}

// sourceLoader serves a single in-memory template and refuses includes.
type sourceLoader string

var _ loaders.Loader = sourceLoader("")

func (l sourceLoader) Read(path string) (io.Reader, error) {
	if path != jinjaRoot {
		return nil, fmt.Errorf("cannot load %q: includes are not supported", path)
	}
	return strings.NewReader(string(l)), nil
}

func (l sourceLoader) Resolve(path string) (string, error) {
	return path, nil
}

func (l sourceLoader) Inherit(string) (loaders.Loader, error) {
	return l, nil
}
