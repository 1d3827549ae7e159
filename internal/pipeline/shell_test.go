package pipeline

import (
	"testing"

	"github.com/phillarmonic/dotpipe/internal/dom"
	"github.com/phillarmonic/dotpipe/internal/types"
)

func TestShellManager_OpenCloseDetach(t *testing.T) {
	doc, err := dom.ParseString(shellPage)
	if err != nil {
		t.Fatalf("Failed to parse document: %v", err)
	}
	entry := &Entry{Key: "p", element: doc.ElementByID("p"), vars: NewStore()}
	m := NewShellManager(doc)

	sh, reused := m.Open("missing", "s", []string{"&x:1"}, entry)
	if reused {
		t.Error("Expected a new shell")
	}
	if sh.Element() != entry.Element() {
		t.Error("Expected unknown target to fall back to the entry element")
	}
	sh.Vars().Set("x", types.Number(1))

	if again, reused := m.Open("T", "s", nil, entry); !reused || again != sh {
		t.Error("Expected reopen to reuse the shell")
	}

	if !m.Close("s", entry) {
		t.Fatal("Expected close to succeed")
	}
	if got := entry.Vars().Get("x"); !got.Equal(types.Number(1)) {
		t.Errorf("Expected merged x = 1, got %#v", got)
	}
	if m.Close("s", entry) {
		t.Error("Expected second close to report false")
	}

	m.Open("T", "d", nil, entry)
	detached, ok := m.Detach("d", entry)
	if !ok || detached.Name() != "d" {
		t.Fatalf("Expected to detach d, got %v", detached)
	}
	if len(m.List("p")) != 0 {
		t.Error("Expected detached shell gone from the arena")
	}
	if entry.Vars().Len() != 1 {
		t.Errorf("Expected detach not to merge, got %v", entry.Vars().Names())
	}
}
