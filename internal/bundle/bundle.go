// Package bundle loads pages either from a plain markup file or from an
// archive that carries the page together with its data files.
package bundle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/mholt/archives"
)

// DefaultMember is the page looked up inside archives
const DefaultMember = "index.html"

// Page is a loaded page. Dir is the directory relative fetches resolve
// against; for archives it is a temporary extraction directory removed
// by Close.
type Page struct {
	Name   string
	Markup []byte
	Dir    string

	cleanup func() error
}

// Close releases the extraction directory, if any
func (p *Page) Close() error {
	if p.cleanup == nil {
		return nil
	}
	err := p.cleanup()
	p.cleanup = nil
	return err
}

// Load reads the page at file. Archives are extracted and member (or
// DefaultMember when empty) becomes the page; a compressed single file is
// decompressed in memory.
func Load(ctx context.Context, file, member string) (*Page, error) {
	if member == "" {
		member = DefaultMember
	}

	f, err := os.Open(file)
	if err != nil {
		return nil, fmt.Errorf("failed to open page: %w", err)
	}
	defer func() { _ = f.Close() }()

	format, stream, err := archives.Identify(ctx, file, f)
	if errors.Is(err, archives.NoMatch) {
		return plain(file)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to identify page format: %w", err)
	}

	if extractor, ok := format.(archives.Extractor); ok {
		return extract(ctx, file, member, extractor, stream)
	}
	if decompressor, ok := format.(archives.Decompressor); ok {
		return decompress(file, decompressor, stream)
	}
	return nil, fmt.Errorf("format does not support extraction: %s", file)
}

func plain(file string) (*Page, error) {
	markup, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read page: %w", err)
	}
	abs, err := filepath.Abs(filepath.Dir(file))
	if err != nil {
		return nil, err
	}
	return &Page{Name: filepath.Base(file), Markup: markup, Dir: abs}, nil
}

func decompress(file string, decompressor archives.Decompressor, stream io.Reader) (*Page, error) {
	rc, err := decompressor.OpenReader(stream)
	if err != nil {
		return nil, fmt.Errorf("failed to open decompressor: %w", err)
	}
	defer func() { _ = rc.Close() }()

	markup, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("decompression failed: %w", err)
	}
	abs, err := filepath.Abs(filepath.Dir(file))
	if err != nil {
		return nil, err
	}
	return &Page{Name: stripCompression(filepath.Base(file)), Markup: markup, Dir: abs}, nil
}

func extract(ctx context.Context, file, member string, extractor archives.Extractor, stream io.Reader) (*Page, error) {
	dir, err := os.MkdirTemp("", "dotpipe-page-")
	if err != nil {
		return nil, fmt.Errorf("failed to create extract directory: %w", err)
	}
	page := &Page{Name: member, Dir: dir, cleanup: func() error { return os.RemoveAll(dir) }}

	handler := func(ctx context.Context, f archives.FileInfo) error {
		name, ok := clean(f.NameInArchive)
		if !ok {
			return fmt.Errorf("illegal path in archive: %s", f.NameInArchive)
		}
		target := filepath.Join(dir, filepath.FromSlash(name))

		if f.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		if !f.Mode().IsRegular() {
			return nil
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("failed to create parent directory: %w", err)
		}

		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("failed to open file in archive: %w", err)
		}
		defer func() { _ = rc.Close() }()

		out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer func() { _ = out.Close() }()

		if _, err := io.Copy(out, rc); err != nil {
			return fmt.Errorf("failed to extract %s: %w", name, err)
		}
		return nil
	}

	if err := extractor.Extract(ctx, stream, handler); err != nil {
		_ = page.Close()
		return nil, fmt.Errorf("extraction of %s failed: %w", file, err)
	}

	markup, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(member)))
	if err != nil {
		_ = page.Close()
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s has no member %q", file, member)
		}
		return nil, err
	}
	page.Markup = markup
	return page, nil
}

// clean rejects absolute names and names escaping the archive root
func clean(name string) (string, bool) {
	name = path.Clean(strings.ReplaceAll(name, `\`, "/"))
	if path.IsAbs(name) || name == ".." || strings.HasPrefix(name, "../") {
		return "", false
	}
	return name, true
}

func stripCompression(name string) string {
	for _, ext := range []string{".gz", ".bz2", ".xz", ".zst", ".br", ".lz4", ".sz"} {
		if strings.HasSuffix(strings.ToLower(name), ext) {
			return name[:len(name)-len(ext)]
		}
	}
	return name
}
