package pipeline

import (
	"github.com/phillarmonic/dotpipe/internal/dom"
)

// Scope is the active variable context of a segment: an entry or a shell
type Scope interface {
	Name() string
	Vars() *Store
	Element() dom.Element
}

// Entry is the top-level context of one scriptable element. Its store
// persists across triggers for as long as the interpreter lives.
type Entry struct {
	Key     string
	Script  string
	element dom.Element
	vars    *Store
}

// Name returns the entry key
func (e *Entry) Name() string { return e.Key }

// Vars returns the entry's persistent store
func (e *Entry) Vars() *Store { return e.vars }

// Element returns the element the script is declared on
func (e *Entry) Element() dom.Element { return e.element }

// Segments splits the entry's script
func (e *Entry) Segments() []string {
	return Split(e.Script)
}
