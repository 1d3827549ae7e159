package builtins

import (
	"context"
	"fmt"
	"strings"

	dperrors "github.com/phillarmonic/dotpipe/internal/errors"
	"github.com/phillarmonic/dotpipe/internal/pipeline"
	"github.com/phillarmonic/dotpipe/internal/script"
	"github.com/phillarmonic/dotpipe/internal/types"
)

// callVerb invokes a verb or a host-global function by name:
// |call:name[:arg...]. The token `this` passes the trigger element.
// Failures are logged and yield undefined.
func callVerb(inv *pipeline.Invocation) pipeline.Result {
	if len(inv.Args) == 0 {
		return pipeline.Fail(fmt.Errorf("%w: function name", dperrors.ErrMissingArgument))
	}
	name := inv.Arg(0).String()

	args := make([]types.Value, 0, len(inv.Args)-1)
	for i := 1; i < len(inv.Args); i++ {
		if inv.Raw[i] == "this" && inv.Trigger != nil {
			args = append(args, types.Object(inv.Trigger))
			continue
		}
		args = append(args, inv.Args[i])
	}

	swallow := func(err error) (types.Value, error) {
		inv.Logger.Error("call failed", "function", name, "error", err)
		return types.Undefined(), nil
	}

	if verb, ok := inv.Verbs.Lookup(name); ok {
		sub := *inv
		sub.Name = name
		sub.Args = args
		sub.Raw = inv.Raw[1:]
		sub.Logger = inv.Logger.With("function", name)
		return pipeline.Invoke(verb, &sub).Catch(swallow)
	}

	if inv.Globals != nil {
		if fn, ok := inv.Globals.Function(name); ok {
			args := plainArgs(args)
			future := pipeline.Async(inv.Context, func(ctx context.Context) (types.Value, error) {
				return fn(ctx, args)
			})
			return pipeline.Await(future).Catch(swallow)
		}
	}

	inv.Logger.Error("call target not found", "function", name)
	return pipeline.Return(types.Undefined())
}

// plainArgs renders host objects such as elements to strings while the
// loop lock is held, so a script running on its own goroutine never
// touches the document
func plainArgs(args []types.Value) []types.Value {
	out := make([]types.Value, len(args))
	for i, a := range args {
		if s, ok := a.Interface().(fmt.Stringer); ok && a.Kind() == types.ObjectKind {
			a = types.String(s.String())
		}
		out[i] = a
	}
	return out
}

// evalVerb evaluates a Starlark expression with the active scope's
// variables as globals: |eval:n * 2 + 1
func evalVerb(inv *pipeline.Invocation) pipeline.Result {
	expr := strings.TrimSpace(strings.Join(inv.Raw, ":"))
	if expr == "" {
		return pipeline.Fail(fmt.Errorf("%w: expression", dperrors.ErrMissingArgument))
	}
	v, err := script.Eval(inv.Context, expr, inv.Scope.Vars().Snapshot())
	if err != nil {
		return pipeline.Fail(err)
	}
	return pipeline.Return(v)
}
