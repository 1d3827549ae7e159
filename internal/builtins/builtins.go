// Package builtins provides the standard verb set of the pipeline
// interpreter.
package builtins

import (
	"context"
	"fmt"
	"math"
	"strings"

	dperrors "github.com/phillarmonic/dotpipe/internal/errors"
	"github.com/phillarmonic/dotpipe/internal/fetch"
	"github.com/phillarmonic/dotpipe/internal/pipeline"
	"github.com/phillarmonic/dotpipe/internal/types"
)

// Fetcher performs network requests for ajax and vars
type Fetcher interface {
	Do(ctx context.Context, req fetch.Request) (string, error)
}

// SecretReader reads credentials for the secret verb
type SecretReader interface {
	Get(namespace, key string) (string, error)
}

// Deps are the collaborators verbs reach outside the interpreter
type Deps struct {
	Fetcher   Fetcher
	Secrets   SecretReader
	Namespace string // secret namespace, "default" when empty
}

// Register installs the standard verbs into r
func Register(r *pipeline.Registry, deps Deps) {
	r.Register("log", logVerb)
	r.Register("inc", stepVerb(1))
	r.Register("dec", stepVerb(-1))
	r.Register("toggle", toggleVerb)
	r.Register("clamp", clampVerb)
	r.Register("exc", excVerb)
	r.Register("sleep", sleepVerb)
	r.Register("call", callVerb)
	r.Register("eval", evalVerb)
	r.Register("ajax", ajaxVerb(deps.Fetcher))
	r.Register("vars", varsVerb(deps.Fetcher))
	r.Register("secret", secretVerb(deps.Secrets, deps.Namespace))
}

// Names lists the verbs installed by Register
func Names() []string {
	r := pipeline.NewRegistry()
	Register(r, Deps{})
	return r.Names()
}

// logVerb writes its arguments to the diagnostic log and passes the first through
func logVerb(inv *pipeline.Invocation) pipeline.Result {
	parts := make([]string, len(inv.Args))
	for i, a := range inv.Args {
		parts[i] = a.String()
	}
	inv.Logger.Info(strings.Join(parts, " "), "scope", inv.Scope.Name())
	return pipeline.Return(inv.Arg(0))
}

// varName returns the variable a numeric verb operates on
func varName(inv *pipeline.Invocation) (string, error) {
	if len(inv.Args) == 0 {
		return "", fmt.Errorf("%w: variable name", dperrors.ErrMissingArgument)
	}
	name := strings.TrimPrefix(inv.Arg(0).String(), "$")
	if name == "" {
		return "", fmt.Errorf("%w: variable name", dperrors.ErrMissingArgument)
	}
	return name, nil
}

// number reads an optional numeric argument
func number(inv *pipeline.Invocation, i int, def float64) (float64, error) {
	if i >= len(inv.Args) {
		return def, nil
	}
	n, ok := inv.Arg(i).AsNumber()
	if !ok {
		return 0, fmt.Errorf("%q is not a number", inv.Arg(i).String())
	}
	return n, nil
}

// current reads a variable as a number; unset and non-numeric values count as 0
func current(vars *pipeline.Store, name string) float64 {
	n, ok := vars.Get(name).AsNumber()
	if !ok {
		return 0
	}
	return n
}

// stepVerb builds inc (sign 1) and dec (sign -1): |inc:name[:step]
func stepVerb(sign float64) pipeline.Verb {
	return func(inv *pipeline.Invocation) pipeline.Result {
		name, err := varName(inv)
		if err != nil {
			return pipeline.Fail(err)
		}
		step, err := number(inv, 1, 1)
		if err != nil {
			return pipeline.Fail(err)
		}

		vars := inv.Scope.Vars()
		v := types.Number(current(vars, name) + sign*step)
		vars.Set(name, v)
		return pipeline.Return(v)
	}
}

// toggleVerb flips a boolean variable; unset counts as false
func toggleVerb(inv *pipeline.Invocation) pipeline.Result {
	name, err := varName(inv)
	if err != nil {
		return pipeline.Fail(err)
	}
	vars := inv.Scope.Vars()
	v := types.Bool(!vars.Get(name).Truthy())
	vars.Set(name, v)
	return pipeline.Return(v)
}

// clampVerb bounds a variable: |clamp:name[:min[:max]], defaulting to 0..100
func clampVerb(inv *pipeline.Invocation) pipeline.Result {
	name, err := varName(inv)
	if err != nil {
		return pipeline.Fail(err)
	}
	lo, err := number(inv, 1, 0)
	if err != nil {
		return pipeline.Fail(err)
	}
	hi, err := number(inv, 2, 100)
	if err != nil {
		return pipeline.Fail(err)
	}

	vars := inv.Scope.Vars()
	v := types.Number(math.Min(math.Max(current(vars, name), lo), hi))
	vars.Set(name, v)
	return pipeline.Return(v)
}

// excVerb feeds a value into the pipeline: `this` is the trigger element,
// a bare name reads the variable, anything else passes through.
func excVerb(inv *pipeline.Invocation) pipeline.Result {
	if len(inv.Raw) == 0 {
		return pipeline.Return(types.Undefined())
	}
	raw := inv.Raw[0]
	if raw == "this" {
		if inv.Trigger == nil {
			return pipeline.Return(types.Undefined())
		}
		return pipeline.Return(types.Object(inv.Trigger))
	}
	if !strings.HasPrefix(raw, "!") {
		if v, ok := inv.Scope.Vars().Lookup(raw); ok {
			return pipeline.Return(v)
		}
	}
	return pipeline.Return(inv.Arg(0))
}
