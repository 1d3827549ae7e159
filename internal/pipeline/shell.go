package pipeline

import (
	"sort"

	"github.com/phillarmonic/dotpipe/internal/dom"
)

// Shell is an isolated scope opened by `+target:name`. It never sees its
// parent's variables and is merged back into the parent on close.
type Shell struct {
	name     string
	entry    string
	target   string
	element  dom.Element
	vars     *Store
	segments []string
}

// Name returns the shell name
func (s *Shell) Name() string { return s.name }

// Vars returns the shell's own store
func (s *Shell) Vars() *Store { return s.vars }

// Element returns the element the shell is bound to
func (s *Shell) Element() dom.Element { return s.element }

// Target returns the target id given at open time
func (s *Shell) Target() string { return s.target }

// Segments returns the body captured when the shell was opened
func (s *Shell) Segments() []string { return s.segments }

type shellKey struct {
	entry string
	name  string
}

// ShellManager is the arena of open shells, keyed by entry and shell name
type ShellManager struct {
	host   dom.Host
	shells map[shellKey]*Shell
}

// NewShellManager creates an empty arena
func NewShellManager(host dom.Host) *ShellManager {
	return &ShellManager{
		host:   host,
		shells: make(map[shellKey]*Shell),
	}
}

// Open returns the named shell of parent, creating it when missing. An
// existing shell is reused as is; its store is not reset. A new shell binds
// to the target element, or to the parent's element when the target is
// not found.
func (m *ShellManager) Open(targetID, name string, body []string, parent *Entry) (*Shell, bool) {
	key := shellKey{entry: parent.Key, name: name}
	if sh, ok := m.shells[key]; ok {
		return sh, true
	}

	el := m.host.ElementByID(targetID)
	if el == nil {
		el = parent.Element()
	}
	sh := &Shell{
		name:     name,
		entry:    parent.Key,
		target:   targetID,
		element:  el,
		vars:     NewStore(),
		segments: append([]string(nil), body...),
	}
	m.shells[key] = sh
	return sh, false
}

// Lookup returns an open shell of parent
func (m *ShellManager) Lookup(name string, parent *Entry) (*Shell, bool) {
	sh, ok := m.shells[shellKey{entry: parent.Key, name: name}]
	return sh, ok
}

// Close merges the shell's store into parent's and discards the shell.
// It reports false when no such shell is open.
func (m *ShellManager) Close(name string, parent *Entry) bool {
	sh, ok := m.Detach(name, parent)
	if !ok {
		return false
	}
	parent.Vars().Merge(sh.vars)
	return true
}

// Detach removes the named shell of parent from the arena without merging
// and returns it
func (m *ShellManager) Detach(name string, parent *Entry) (*Shell, bool) {
	key := shellKey{entry: parent.Key, name: name}
	sh, ok := m.shells[key]
	if !ok {
		return nil, false
	}
	delete(m.shells, key)
	return sh, true
}

// List returns the open shells of an entry, sorted by name
func (m *ShellManager) List(entry string) []*Shell {
	var out []*Shell
	for key, sh := range m.shells {
		if key.entry == entry {
			out = append(out, sh)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

// drop discards every shell of an entry without merging
func (m *ShellManager) drop(entry string) {
	for key := range m.shells {
		if key.entry == entry {
			delete(m.shells, key)
		}
	}
}
