package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Domain: Watch Mode
// This file re-runs a page whenever the page or its script changes

// debounce collapses the burst of events an editor save produces
const debounce = 200 * time.Millisecond

// WatchPage runs the page, then runs it again after every change to the
// page or script file until ctx is cancelled
func WatchPage(ctx context.Context, w io.Writer, cfg Config, opts RunOptions, version string, logger *slog.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	scriptPath := opts.Script
	if scriptPath == "" {
		scriptPath = cfg.Script
	}

	files := make(map[string]bool)
	dirs := make(map[string]bool)
	for _, f := range []string{opts.Page, scriptPath} {
		if f == "" {
			continue
		}
		abs, err := filepath.Abs(f)
		if err != nil {
			return err
		}
		files[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	// editors replace files on save, so watch directories rather than files
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}

	rerun := func() {
		if err := ExecutePage(ctx, w, cfg, opts, version, logger); err != nil {
			logger.Error("run failed", "page", opts.Page, "error", err)
		}
	}
	rerun()

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !relevant(event, files) {
				continue
			}
			logger.Info("change detected", "file", event.Name, "op", event.Op.String())
			pending = time.After(debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", "error", err)

		case <-pending:
			pending = nil
			rerun()
		}
	}
}

func relevant(event fsnotify.Event, files map[string]bool) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return false
	}
	abs, err := filepath.Abs(event.Name)
	if err != nil {
		return false
	}
	return files[abs]
}
