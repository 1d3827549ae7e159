package pipeline

import (
	"sort"

	"github.com/phillarmonic/dotpipe/internal/types"
)

// Store maps variable names to values for one entry or shell.
// Reading an unset name yields undefined, never an error.
type Store struct {
	vars map[string]types.Value

	// rev counts writes; written holds the revision of each name's last write
	rev     uint64
	written map[string]uint64
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		vars:    make(map[string]types.Value),
		written: make(map[string]uint64),
	}
}

func (s *Store) touch(name string) {
	s.rev++
	s.written[name] = s.rev
}

// Revision returns a counter that grows with every write
func (s *Store) Revision() uint64 {
	return s.rev
}

// Get returns the value of name, or undefined
func (s *Store) Get(name string) types.Value {
	return s.vars[name]
}

// Lookup returns the value of name and whether it is set
func (s *Store) Lookup(name string) (types.Value, bool) {
	v, ok := s.vars[name]
	if ok && v.IsUndefined() {
		return v, false
	}
	return v, ok
}

// Has reports whether name holds a defined value
func (s *Store) Has(name string) bool {
	_, ok := s.Lookup(name)
	return ok
}

// Set assigns name
func (s *Store) Set(name string, v types.Value) {
	s.vars[name] = v
	s.touch(name)
}

// Delete removes name
func (s *Store) Delete(name string) {
	delete(s.vars, name)
	s.touch(name)
}

// Merge copies every variable of other into s; other's values win
func (s *Store) Merge(other *Store) {
	for name, v := range other.vars {
		s.Set(name, v)
	}
}

// MergeSince copies the variables of other whose names s has not written
// after revision since. It returns the names it skipped, sorted.
func (s *Store) MergeSince(other *Store, since uint64) []string {
	var skipped []string
	for name, v := range other.vars {
		if s.written[name] > since {
			skipped = append(skipped, name)
			continue
		}
		s.Set(name, v)
	}
	sort.Strings(skipped)
	return skipped
}

// Len returns the number of variables
func (s *Store) Len() int {
	return len(s.vars)
}

// Names returns the variable names in sorted order
func (s *Store) Names() []string {
	names := make([]string, 0, len(s.vars))
	for name := range s.vars {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Snapshot returns a copy of the variables
func (s *Store) Snapshot() map[string]types.Value {
	out := make(map[string]types.Value, len(s.vars))
	for name, v := range s.vars {
		out[name] = v
	}
	return out
}
