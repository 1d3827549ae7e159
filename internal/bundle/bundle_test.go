package bundle

import (
	"archive/zip"
	"compress/gzip"
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeZip(t *testing.T, file string, members map[string]string) {
	t.Helper()
	f, err := os.Create(file)
	if err != nil {
		t.Fatalf("Failed to create zip: %v", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	for name, body := range members {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("Failed to add %s: %v", name, err)
		}
		w.Write([]byte(body))
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("Failed to finish zip: %v", err)
	}
}

func TestLoad_Plain(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "page.html")
	os.WriteFile(file, []byte(`<p id="x">hi</p>`), 0o644)

	page, err := Load(context.Background(), file, "")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	defer page.Close()

	if string(page.Markup) != `<p id="x">hi</p>` {
		t.Errorf("Expected page markup, got %q", page.Markup)
	}
	if page.Name != "page.html" {
		t.Errorf("Expected name page.html, got %q", page.Name)
	}
	abs, _ := filepath.Abs(dir)
	if page.Dir != abs {
		t.Errorf("Expected dir %s, got %s", abs, page.Dir)
	}
}

func TestLoad_Zip(t *testing.T) {
	file := filepath.Join(t.TempDir(), "site.zip")
	writeZip(t, file, map[string]string{
		"index.html":     "<main>home</main>",
		"data/vars.json": `{"n": 1}`,
		"alt.html":       "<main>alt</main>",
	})

	page, err := Load(context.Background(), file, "")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if string(page.Markup) != "<main>home</main>" {
		t.Errorf("Expected index.html markup, got %q", page.Markup)
	}
	data, err := os.ReadFile(filepath.Join(page.Dir, "data", "vars.json"))
	if err != nil || string(data) != `{"n": 1}` {
		t.Errorf("Expected data file beside the page, got %q (%v)", data, err)
	}

	dir := page.Dir
	if err := page.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Errorf("Expected extraction dir to be removed, got %v", err)
	}

	alt, err := Load(context.Background(), file, "alt.html")
	if err != nil {
		t.Fatalf("Load member failed: %v", err)
	}
	defer alt.Close()
	if string(alt.Markup) != "<main>alt</main>" {
		t.Errorf("Expected alt.html markup, got %q", alt.Markup)
	}
}

func TestLoad_MissingMember(t *testing.T) {
	file := filepath.Join(t.TempDir(), "site.zip")
	writeZip(t, file, map[string]string{"other.html": "x"})

	if _, err := Load(context.Background(), file, ""); err == nil {
		t.Error("Expected missing member to fail")
	}
}

func TestLoad_Gzip(t *testing.T) {
	file := filepath.Join(t.TempDir(), "page.html.gz")
	f, _ := os.Create(file)
	zw := gzip.NewWriter(f)
	zw.Write([]byte("<b>packed</b>"))
	zw.Close()
	f.Close()

	page, err := Load(context.Background(), file, "")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if string(page.Markup) != "<b>packed</b>" {
		t.Errorf("Expected decompressed markup, got %q", page.Markup)
	}
	if page.Name != "page.html" {
		t.Errorf("Expected name page.html, got %q", page.Name)
	}
}

func TestLoad_NotFound(t *testing.T) {
	if _, err := Load(context.Background(), filepath.Join(t.TempDir(), "none.html"), ""); err == nil {
		t.Error("Expected missing file to fail")
	}
}

func TestClean(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"index.html", "index.html", true},
		{"a/./b.html", "a/b.html", true},
		{`a\b.html`, "a/b.html", true},
		{"../etc/passwd", "", false},
		{"a/../../x", "", false},
		{"/abs", "", false},
	}
	for _, tt := range tests {
		got, ok := clean(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("clean(%q): expected (%q, %v), got (%q, %v)", tt.in, tt.want, tt.ok, got, ok)
		}
	}
}
