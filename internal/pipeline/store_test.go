package pipeline

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/phillarmonic/dotpipe/internal/types"
)

func TestStore_MergeSince(t *testing.T) {
	parent := NewStore()
	parent.Set("x", types.Number(1))
	parent.Set("gone", types.Number(1))

	shell := NewStore()
	shell.Set("x", types.Number(2))
	shell.Set("y", types.Number(7))
	shell.Set("gone", types.Number(2))

	mark := parent.Revision()
	parent.Set("x", types.Number(3))
	parent.Delete("gone")

	skipped := parent.MergeSince(shell, mark)
	if diff := cmp.Diff([]string{"gone", "x"}, skipped); diff != "" {
		t.Errorf("Skipped mismatch (-want +got):\n%s", diff)
	}

	want := map[string]types.Value{"x": types.Number(3), "y": types.Number(7)}
	if diff := cmp.Diff(want, parent.Snapshot(), cmp.Comparer(types.Value.Equal)); diff != "" {
		t.Errorf("Store mismatch (-want +got):\n%s", diff)
	}
}

func TestStore_Revision(t *testing.T) {
	s := NewStore()
	if s.Revision() != 0 {
		t.Errorf("Expected revision 0, got %d", s.Revision())
	}
	s.Set("a", types.Number(1))
	s.Delete("a")
	if s.Revision() != 2 {
		t.Errorf("Expected revision 2, got %d", s.Revision())
	}
	if s.Has("a") {
		t.Error("Expected a to be deleted")
	}
}
