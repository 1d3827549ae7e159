// Package pipeline implements the pipeline macro interpreter: segment
// matching, variable stores, shells, verb dispatch and the driver that
// runs an entry's script in response to a trigger.
package pipeline

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/phillarmonic/dotpipe/internal/dom"
	"github.com/phillarmonic/dotpipe/internal/types"
)

// DefaultAttribute is the attribute that carries a pipeline script
const DefaultAttribute = "inline"

// Interpreter owns the entries of one host document, the shell arena and
// the verb registry. Script logic runs cooperatively: one loop lock is held
// while a segment executes and released while an execution is suspended.
type Interpreter struct {
	host    dom.Host
	verbs   *Registry
	globals Globals
	logger  *slog.Logger
	attr    string

	loop    sync.Mutex
	entries map[string]*Entry
	order   []string
	shells  *ShellManager
}

// Option configures an Interpreter
type Option func(*Interpreter)

// WithLogger sets the diagnostic logger
func WithLogger(logger *slog.Logger) Option {
	return func(in *Interpreter) {
		in.logger = logger
	}
}

// WithRegistry shares a verb registry between interpreters
func WithRegistry(r *Registry) Option {
	return func(in *Interpreter) {
		in.verbs = r
	}
}

// WithGlobals sets the host namespace consulted by the call verb
func WithGlobals(g Globals) Option {
	return func(in *Interpreter) {
		in.globals = g
	}
}

// WithAttribute changes the script attribute scanned by Register
func WithAttribute(name string) Option {
	return func(in *Interpreter) {
		in.attr = name
	}
}

// New creates an interpreter bound to a host document
func New(host dom.Host, opts ...Option) *Interpreter {
	in := &Interpreter{
		host:    host,
		verbs:   NewRegistry(),
		logger:  slog.New(slog.DiscardHandler),
		attr:    DefaultAttribute,
		entries: make(map[string]*Entry),
		shells:  NewShellManager(host),
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// Host returns the host document
func (in *Interpreter) Host() dom.Host {
	return in.host
}

// Verbs returns the verb registry
func (in *Interpreter) Verbs() *Registry {
	return in.verbs
}

// RegisterVerb adds or replaces a verb
func (in *Interpreter) RegisterVerb(name string, verb Verb) {
	in.verbs.Register(name, verb)
}

// SetGlobals replaces the host namespace consulted by call
func (in *Interpreter) SetGlobals(g Globals) {
	in.loop.Lock()
	defer in.loop.Unlock()
	in.globals = g
}

// Register scans the host for elements carrying the script attribute and
// creates an entry for each one without running anything. An element is
// keyed by its id, else by its script text, else by a generated key.
// Re-registering an element keeps its existing entry and store; its open
// shells are dropped when the script text changed.
func (in *Interpreter) Register() []string {
	in.loop.Lock()
	defer in.loop.Unlock()

	var keys []string
	for _, el := range in.host.ElementsWithAttr(in.attr) {
		script, _ := el.Attr(in.attr)

		key := el.ID()
		if key == "" {
			key = strings.TrimSpace(script)
		}
		if key == "" {
			key = in.keyOf(el)
		}
		if key == "" {
			key = uuid.NewString()
		}

		if existing, ok := in.entries[key]; ok && existing.element == el {
			if existing.Script != script {
				// dangling shells captured the old script's segments
				in.shells.drop(key)
				existing.Script = script
			}
			keys = append(keys, key)
			continue
		}
		if _, ok := in.entries[key]; !ok {
			in.order = append(in.order, key)
		}
		in.shells.drop(key)
		in.entries[key] = &Entry{
			Key:     key,
			Script:  script,
			element: el,
			vars:    NewStore(),
		}
		keys = append(keys, key)
		in.logger.Debug("registered entry", "key", key, "element", el)
	}
	return keys
}

// Keys returns the entry keys in registration order
func (in *Interpreter) Keys() []string {
	in.loop.Lock()
	defer in.loop.Unlock()
	return append([]string(nil), in.order...)
}

// Entry returns a registered entry
func (in *Interpreter) Entry(key string) (*Entry, bool) {
	in.loop.Lock()
	defer in.loop.Unlock()
	e, ok := in.entries[key]
	return e, ok
}

// Remove forgets an entry and its open shells
func (in *Interpreter) Remove(key string) {
	in.loop.Lock()
	defer in.loop.Unlock()
	if _, ok := in.entries[key]; !ok {
		return
	}
	delete(in.entries, key)
	in.shells.drop(key)
	for i, k := range in.order {
		if k == key {
			in.order = append(in.order[:i], in.order[i+1:]...)
			break
		}
	}
}

// Snapshot copies an entry's variables
func (in *Interpreter) Snapshot(key string) (map[string]types.Value, bool) {
	in.loop.Lock()
	defer in.loop.Unlock()
	e, ok := in.entries[key]
	if !ok {
		return nil, false
	}
	return e.vars.Snapshot(), true
}

// Shells returns the open shells of an entry
func (in *Interpreter) Shells(key string) []*Shell {
	in.loop.Lock()
	defer in.loop.Unlock()
	return in.shells.List(key)
}

// LoadVariables merges values into an entry's store
func (in *Interpreter) LoadVariables(key string, values map[string]types.Value) bool {
	in.loop.Lock()
	defer in.loop.Unlock()
	e, ok := in.entries[key]
	if !ok {
		return false
	}
	for name, v := range values {
		e.vars.Set(name, v)
	}
	return true
}

// Bindings maps trigger events to the entries they run. Buttons and
// elements with data-auto-click bind to click; data-event lists extra
// events separated by ';'.
func (in *Interpreter) Bindings() map[string][]string {
	in.loop.Lock()
	defer in.loop.Unlock()

	out := make(map[string][]string)
	for _, key := range in.order {
		el := in.entries[key].element
		if el.Tag() == "button" {
			out["click"] = append(out["click"], key)
		} else if _, ok := el.Attr("data-auto-click"); ok {
			out["click"] = append(out["click"], key)
		}
		events, _ := el.Attr("data-event")
		for _, ev := range strings.Split(events, ";") {
			ev = strings.TrimSpace(ev)
			if ev == "" || (ev == "click" && contains(out["click"], key)) {
				continue
			}
			out[ev] = append(out[ev], key)
		}
	}
	return out
}

// Trigger runs every entry bound to event and returns their executions
func (in *Interpreter) Trigger(ctx context.Context, event string) []*Execution {
	var runs []*Execution
	for _, key := range in.Bindings()[event] {
		runs = append(runs, in.RunInline(ctx, key))
	}
	return runs
}

// keyOf returns the key of the entry declared on el, if any
func (in *Interpreter) keyOf(el dom.Element) string {
	for key, e := range in.entries {
		if e.element == el {
			return key
		}
	}
	return ""
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
