package envloader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func write(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
}

func TestLoad_Layers(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, ".env", "# base\nTHEME=light\nCOUNT=1\n\nexport API_URL=\"http://example.test\"\n")
	write(t, dir, ".env.local", "COUNT=2\n")
	write(t, dir, ".env.prod", "THEME='dark'\nbroken line\n")
	write(t, dir, ".env.prod.local", "EXTRA = yes\n")

	result, err := NewLoader(dir, "prod", nil).Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	want := map[string]string{
		"THEME":   "dark",
		"COUNT":   "2",
		"API_URL": "http://example.test",
		"EXTRA":   "yes",
	}
	if diff := cmp.Diff(want, result.Vars); diff != "" {
		t.Errorf("Vars mismatch (-want +got):\n%s", diff)
	}
	if len(result.Files) != 4 {
		t.Errorf("Expected 4 candidate files, got %d", len(result.Files))
	}
}

func TestLoad_NoEnvironment(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, ".env.prod", "X=1\n")

	loader := NewLoader(dir, "", nil)
	if got := len(loader.Files()); got != 2 {
		t.Errorf("Expected 2 candidate files, got %d", got)
	}
	result, err := loader.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(result.Vars) != 0 {
		t.Errorf("Expected environment files to be ignored, got %v", result.Vars)
	}
	for _, f := range result.Files {
		if f.Exists {
			t.Errorf("Expected %s to be missing", f.Path)
		}
	}
}

func TestLoad_UnreadableFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, ".env"), 0o755); err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}
	if _, err := NewLoader(dir, "", nil).Load(); err == nil {
		t.Error("Expected a directory named .env to fail the load")
	}
}

func TestMask(t *testing.T) {
	tests := []struct {
		key, value, want string
	}{
		{"THEME", "dark", "dark"},
		{"API_TOKEN", "abcdefgh", "abcd****"},
		{"password", "abc", "***"},
	}
	for _, tt := range tests {
		if got := Mask(tt.key, tt.value); got != tt.want {
			t.Errorf("Mask(%q, %q): expected %q, got %q", tt.key, tt.value, tt.want, got)
		}
	}
}
