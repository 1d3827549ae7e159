package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/phillarmonic/dotpipe/internal/dom"
	dperrors "github.com/phillarmonic/dotpipe/internal/errors"
	"github.com/phillarmonic/dotpipe/internal/types"
)

// State is the lifecycle state of one execution
type State int

const (
	Idle State = iota
	Running
	Suspended
	Finished
	Abandoned
)

// String returns the state's name
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Suspended:
		return "suspended"
	case Finished:
		return "finished"
	case Abandoned:
		return "abandoned"
	default:
		return "unknown"
	}
}

// Execution is one traversal of an entry's script. Several executions of
// the same entry may be in flight at once; they share the entry's store.
type Execution struct {
	in      *Interpreter
	entry   *Entry
	trigger dom.Element

	// driver state, guarded by the interpreter loop lock
	segments []string
	pos      int
	scope    Scope
	shell    *Shell
	current  types.Value
	closing  []pendingClose

	mu    sync.Mutex
	state State
	err   error
	value types.Value
	done  chan struct{}
}

// Key returns the entry key
func (x *Execution) Key() string {
	if x.entry == nil {
		return ""
	}
	return x.entry.Key
}

// State returns the current lifecycle state
func (x *Execution) State() State {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.state
}

// Err returns the reason an execution was abandoned
func (x *Execution) Err() error {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.err
}

// Value returns the running value the execution ended with
func (x *Execution) Value() types.Value {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.value
}

// Done is closed when the execution reaches a terminal state
func (x *Execution) Done() <-chan struct{} {
	return x.done
}

// Wait blocks until the execution terminates or ctx is done
func (x *Execution) Wait(ctx context.Context) error {
	select {
	case <-x.done:
		return x.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (x *Execution) setState(s State) {
	x.mu.Lock()
	x.state = s
	x.mu.Unlock()
}

// RunInline executes the script of the entry registered under key. It runs
// synchronously up to the first verb that suspends and returns a handle;
// the remainder resumes on its own goroutine once the verb settles.
// Cancelling ctx abandons a suspended execution.
func (in *Interpreter) RunInline(ctx context.Context, key string) *Execution {
	x := &Execution{
		in:    in,
		state: Idle,
		done:  make(chan struct{}),
	}

	in.loop.Lock()
	defer in.loop.Unlock()

	entry, ok := in.entries[key]
	if !ok || strings.TrimSpace(entry.Script) == "" {
		in.logger.Warn("no script registered", "key", key)
		x.finish(fmt.Errorf("%w: %s", dperrors.ErrUnknownEntry, key))
		return x
	}

	x.entry = entry
	x.trigger = entry.element
	x.segments = Split(entry.Script)
	x.scope = entry
	x.setState(Running)
	in.logger.Debug("run", "key", key, "segments", len(x.segments))

	x.run(ctx)
	return x
}

// run advances through the segments until the end, a suspension or an
// abandonment. The loop lock must be held.
func (x *Execution) run(ctx context.Context) {
	for x.pos < len(x.segments) {
		seg := x.segments[x.pos]
		x.pos++

		st := x.step(ctx, seg)
		switch {
		case st.abandon != nil:
			x.finish(st.abandon)
			return
		case st.await.Pending():
			x.suspend(ctx, st.await, seg)
			return
		}
	}
	x.finish(nil)
}

// suspend parks the execution until the future settles, then resumes it
// on the loop.
func (x *Execution) suspend(ctx context.Context, r Result, seg string) {
	x.commit("")
	x.setState(Suspended)
	verb, params := verbParts(seg)

	go func() {
		cancelled := false
		select {
		case <-r.future.Done():
		case <-ctx.Done():
			cancelled = true
		}

		x.in.loop.Lock()
		defer x.in.loop.Unlock()

		var (
			v   types.Value
			err error
		)
		if cancelled {
			err = fmt.Errorf("%w: %w", dperrors.ErrAbandoned, ctx.Err())
		} else {
			v, err = r.settle(r.future.Result())
		}
		if err != nil {
			verr := dperrors.NewVerbError(verb, params, err)
			x.in.logger.Error("verb failed", "key", x.Key(), "verb", verb, "args", params, "error", err)
			x.finish(verr)
			return
		}

		x.current = v
		x.setState(Running)
		x.run(ctx)
	}()
}

// finish commits pending shell merges and moves to a terminal state.
// Side effects already applied are never rolled back.
func (x *Execution) finish(err error) {
	x.commit("")

	x.mu.Lock()
	x.err = err
	x.value = x.current
	if err != nil {
		x.state = Abandoned
	} else {
		x.state = Finished
	}
	x.mu.Unlock()
	close(x.done)
}
