// Package envloader reads the dotenv files that sit beside a page and
// turns them into preset variables for its entries.
package envloader

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// FileInfo describes one candidate file
type FileInfo struct {
	Path   string
	Exists bool
	Vars   map[string]string
	Error  error
}

// Result is the outcome of a load
type Result struct {
	Files       []FileInfo
	Vars        map[string]string
	Environment string
}

// Loader reads dotenv files from one directory
type Loader struct {
	dir         string
	environment string
	logger      *slog.Logger
}

// NewLoader creates a loader for dir. environment selects the
// .env.<environment> layers; empty skips them.
func NewLoader(dir, environment string, logger *slog.Logger) *Loader {
	if dir == "" {
		dir = "."
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Loader{dir: dir, environment: environment, logger: logger}
}

// Files returns the candidate files, lowest priority first
func (l *Loader) Files() []string {
	names := []string{".env", ".env.local"}
	if l.environment != "" {
		names = append(names,
			fmt.Sprintf(".env.%s", l.environment),
			fmt.Sprintf(".env.%s.local", l.environment),
		)
	}
	paths := make([]string, len(names))
	for i, name := range names {
		paths[i] = filepath.Join(l.dir, name)
	}
	return paths
}

// Load merges every existing file, later files overriding earlier ones.
// A file that exists but cannot be read fails the load.
func (l *Loader) Load() (*Result, error) {
	result := &Result{
		Vars:        make(map[string]string),
		Environment: l.environment,
	}

	for _, path := range l.Files() {
		info := l.loadFile(path)
		result.Files = append(result.Files, info)
		if info.Error != nil {
			return result, fmt.Errorf("failed to load %s: %w", path, info.Error)
		}
		if !info.Exists {
			continue
		}
		for key, value := range info.Vars {
			result.Vars[key] = value
			l.logger.Debug("page variable", "file", path, "name", key, "value", Mask(key, value))
		}
	}
	return result, nil
}

func (l *Loader) loadFile(path string) FileInfo {
	info := FileInfo{Path: path, Vars: make(map[string]string)}

	file, err := os.Open(path)
	if os.IsNotExist(err) {
		return info
	}
	info.Exists = true
	if err != nil {
		info.Error = err
		return info
	}
	defer func() { _ = file.Close() }()

	scanner := bufio.NewScanner(file)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")

		key, value, ok := strings.Cut(line, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			l.logger.Warn("skipping invalid line", "file", path, "line", lineNum)
			continue
		}
		info.Vars[key] = unquote(strings.TrimSpace(value))
	}
	info.Error = scanner.Err()
	return info
}

// unquote removes surrounding single or double quotes
func unquote(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

var sensitive = []string{
	"password", "secret", "key", "token", "auth", "api",
	"credential", "private", "access", "salt",
}

// Mask hides values whose names look sensitive, keeping the first four characters
func Mask(key, value string) string {
	lower := strings.ToLower(key)
	for _, pattern := range sensitive {
		if !strings.Contains(lower, pattern) {
			continue
		}
		if len(value) <= 4 {
			return "***"
		}
		return value[:4] + strings.Repeat("*", len(value)-4)
	}
	return value
}
