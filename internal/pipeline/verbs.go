package pipeline

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/phillarmonic/dotpipe/internal/dom"
	"github.com/phillarmonic/dotpipe/internal/types"
)

// Verb is a named operation invoked from a verb-call segment
type Verb func(inv *Invocation) Result

// Function is a host-global callable reachable through the call verb
type Function func(ctx context.Context, args []types.Value) (types.Value, error)

// Globals is the host namespace consulted after the verb registry
type Globals interface {
	Function(name string) (Function, bool)
}

// Invocation carries everything a verb sees for one call
type Invocation struct {
	Context context.Context
	Name    string

	// Args are the resolved parameters: `!name` tokens replaced by the
	// variable's value, everything else passed through as a string.
	Args []types.Value
	// Raw are the parameter tokens as written
	Raw []string

	Scope   Scope
	Trigger dom.Element
	Verbs   *Registry
	Globals Globals
	Logger  *slog.Logger
}

// Arg returns the i-th resolved argument, or undefined
func (inv *Invocation) Arg(i int) types.Value {
	if i < 0 || i >= len(inv.Args) {
		return types.Undefined()
	}
	return inv.Args[i]
}

// Result is what a verb hands back to the driver: a value, a failure, or a
// pending future the driver suspends on.
type Result struct {
	value  types.Value
	err    error
	future *Future
	then   func(types.Value) (types.Value, error)
	catch  func(error) (types.Value, error)
}

// Return completes a verb immediately with v
func Return(v types.Value) Result {
	return Result{value: v}
}

// Fail completes a verb with an error, abandoning the execution
func Fail(err error) Result {
	return Result{err: err}
}

// Await suspends the execution until f settles
func Await(f *Future) Result {
	return Result{future: f}
}

// Then registers a continuation that runs on the interpreter's loop once
// the future settles; it may safely touch stores and elements.
func (r Result) Then(fn func(types.Value) (types.Value, error)) Result {
	r.then = fn
	return r
}

// Catch registers a recovery handler for a failure of the verb, its future
// or its continuation. Returning a nil error turns the failure into a value.
func (r Result) Catch(fn func(error) (types.Value, error)) Result {
	r.catch = fn
	return r
}

// settle applies the continuation and the recovery handler
func (r Result) settle(v types.Value, err error) (types.Value, error) {
	if err == nil && r.then != nil {
		v, err = r.then(v)
	}
	if err != nil && r.catch != nil {
		v, err = r.catch(err)
	}
	return v, err
}

// Pending reports whether the result suspends the execution
func (r Result) Pending() bool {
	return r.future != nil
}

// Future is a value that settles later
type Future struct {
	done  chan struct{}
	once  sync.Once
	value types.Value
	err   error
}

// NewFuture returns an unsettled future
func NewFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// Resolve settles the future with a value; later calls are ignored
func (f *Future) Resolve(v types.Value) {
	f.settle(v, nil)
}

// Reject settles the future with an error; later calls are ignored
func (f *Future) Reject(err error) {
	f.settle(types.Undefined(), err)
}

func (f *Future) settle(v types.Value, err error) {
	f.once.Do(func() {
		f.value = v
		f.err = err
		close(f.done)
	})
}

// Done is closed once the future settles
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Result returns the settled value and error; it must only be called after Done
func (f *Future) Result() (types.Value, error) {
	return f.value, f.err
}

// Async runs fn on its own goroutine and returns a future for its result.
// fn must not touch stores or elements; use Result.Then for that.
func Async(ctx context.Context, fn func(ctx context.Context) (types.Value, error)) *Future {
	f := NewFuture()
	go func() {
		v, err := fn(ctx)
		f.settle(v, err)
	}()
	return f
}

// Registry maps verb names to callables; the last registration wins
type Registry struct {
	mu    sync.RWMutex
	verbs map[string]Verb
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{verbs: make(map[string]Verb)}
}

// Register adds or replaces a verb
func (r *Registry) Register(name string, verb Verb) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.verbs[name] = verb
}

// Lookup returns a verb by name
func (r *Registry) Lookup(name string) (Verb, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.verbs[name]
	return v, ok
}

// Names returns the registered verb names in sorted order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.verbs))
	for name := range r.verbs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
