// Package script loads Starlark files whose top-level functions form the
// host-global namespace reachable through the call verb, and evaluates
// expressions for the eval verb.
package script

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/phillarmonic/dotpipe/internal/pipeline"
	"github.com/phillarmonic/dotpipe/internal/types"
)

// MaxSteps bounds the work one call or evaluation may perform
const MaxSteps = 10_000_000

var fileOptions = &syntax.FileOptions{
	Set:             true,
	While:           true,
	TopLevelControl: true,
	GlobalReassign:  true,
}

// Globals is a loaded, frozen Starlark module
type Globals struct {
	path    string
	globals starlark.StringDict
	logger  *slog.Logger
}

// Load executes a Starlark file and freezes its globals. src may be nil,
// in which case the file is read from path.
func Load(ctx context.Context, path string, src any, logger *slog.Logger) (*Globals, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	thread, done := newThread(ctx, "load "+path, logger)
	defer done()

	globals, err := starlark.ExecFileOptions(fileOptions, thread, path, src, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load script %s: %w", path, err)
	}
	globals.Freeze()

	return &Globals{path: path, globals: globals, logger: logger}, nil
}

// Function returns a top-level callable of the module
func (g *Globals) Function(name string) (pipeline.Function, bool) {
	v, ok := g.globals[name]
	if !ok {
		return nil, false
	}
	callable, ok := v.(starlark.Callable)
	if !ok {
		return nil, false
	}

	return func(ctx context.Context, args []types.Value) (types.Value, error) {
		thread, done := newThread(ctx, name, g.logger)
		defer done()

		tuple := make(starlark.Tuple, len(args))
		for i, a := range args {
			tuple[i] = ToStarlark(a)
		}
		out, err := starlark.Call(thread, callable, tuple, nil)
		if err != nil {
			return types.Undefined(), fmt.Errorf("%s: %w", name, err)
		}
		return FromStarlark(out), nil
	}, true
}

// Names returns the callable globals in sorted order
func (g *Globals) Names() []string {
	var names []string
	for name, v := range g.globals {
		if _, ok := v.(starlark.Callable); ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Path returns the file the module was loaded from
func (g *Globals) Path() string {
	return g.path
}

// Eval evaluates a single expression with vars bound as globals
func Eval(ctx context.Context, expr string, vars map[string]types.Value) (types.Value, error) {
	env := make(starlark.StringDict, len(vars))
	for name, v := range vars {
		env[name] = ToStarlark(v)
	}

	thread, done := newThread(ctx, "eval", slog.New(slog.DiscardHandler))
	defer done()

	out, err := starlark.EvalOptions(fileOptions, thread, "<eval>", expr, env)
	if err != nil {
		return types.Undefined(), fmt.Errorf("eval %q: %w", expr, err)
	}
	return FromStarlark(out), nil
}

// newThread creates a bounded thread that is cancelled with ctx
func newThread(ctx context.Context, name string, logger *slog.Logger) (*starlark.Thread, func() bool) {
	thread := &starlark.Thread{
		Name: name,
		Print: func(t *starlark.Thread, msg string) {
			logger.Info(msg, "thread", t.Name)
		},
	}
	thread.SetMaxExecutionSteps(MaxSteps)
	stop := context.AfterFunc(ctx, func() {
		thread.Cancel(context.Cause(ctx).Error())
	})
	return thread, stop
}
