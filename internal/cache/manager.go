// Package cache persists fetched responses and entry state snapshots in SoloDB
package cache

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	solodb "github.com/phillarmonic/SoloDB"
)

// Manager stores blobs with expiration. A disabled manager misses every
// read and drops every write.
type Manager struct {
	db         *solodb.DB
	expiration time.Duration
	disabled   bool

	hits   atomic.Int64
	misses atomic.Int64
}

// Options configures a Manager
type Options struct {
	Path       string        // database file, DefaultPath() when empty
	Expiration time.Duration // default TTL for Set callers that pass zero
	Disabled   bool
}

// Stats provides cache statistics
type Stats struct {
	Keys        int
	FileBytes   int64
	LiveRecords int64
	Hits        int64
	Misses      int64
}

// DefaultPath returns ~/.dotpipe/cache.solo
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".dotpipe", "cache.solo"), nil
}

// NewManager opens the cache database
func NewManager(opts Options) (*Manager, error) {
	if opts.Disabled {
		return &Manager{
			disabled:   true,
			expiration: opts.Expiration,
		}, nil
	}

	path := opts.Path
	if path == "" {
		var err error
		if path, err = DefaultPath(); err != nil {
			return nil, err
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	db, err := solodb.Open(solodb.Options{
		Path:       path,
		Durability: solodb.SyncBatch,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	return &Manager{
		db:         db,
		expiration: opts.Expiration,
	}, nil
}

// GenerateKey derives a fixed-length key from its parts within a namespace
func GenerateKey(namespace string, parts ...string) string {
	h := sha256.New()
	for i, part := range parts {
		if i > 0 {
			h.Write([]byte{0})
		}
		h.Write([]byte(part))
	}
	return namespace + ":" + hex.EncodeToString(h.Sum(nil))[:32]
}

// Expiration returns the default TTL
func (m *Manager) Expiration() time.Duration {
	return m.expiration
}

// Disabled reports whether the cache is a no-op
func (m *Manager) Disabled() bool {
	return m.disabled
}

// Get retrieves content from cache.
// Returns: content, hit (true if found and not expired), error
func (m *Manager) Get(key string) ([]byte, bool, error) {
	if m.disabled {
		return nil, false, nil
	}

	rc, _, _, err := m.db.GetBlob(key)
	if errors.Is(err, solodb.ErrNotFound) || errors.Is(err, solodb.ErrExpired) {
		m.misses.Add(1)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache read error: %w", err)
	}
	defer rc.Close()

	content, err := io.ReadAll(rc)
	if err != nil {
		return nil, false, fmt.Errorf("cache read error: %w", err)
	}

	m.hits.Add(1)
	return content, true, nil
}

// Set stores content with a TTL; zero uses the manager's default
func (m *Manager) Set(key string, content []byte, ttl time.Duration) error {
	if m.disabled {
		return nil
	}
	if ttl <= 0 {
		ttl = m.expiration
	}

	expiryTime := time.Now().Add(ttl)
	if err := m.db.SetBlob(key, bytes.NewReader(content), int64(len(content)), expiryTime); err != nil {
		return fmt.Errorf("cache write error: %w", err)
	}
	return nil
}

// Delete removes a key from cache
func (m *Manager) Delete(key string) error {
	if m.disabled {
		return nil
	}
	if err := m.db.Delete(key); err != nil && !errors.Is(err, solodb.ErrNotFound) {
		return err
	}
	return nil
}

// Stats returns cache statistics
func (m *Manager) Stats() Stats {
	if m.disabled || m.db == nil {
		return Stats{}
	}

	dbStats := m.db.Stats()
	return Stats{
		Keys:        dbStats.Keys,
		FileBytes:   dbStats.FileBytes,
		LiveRecords: int64(dbStats.LiveRecords),
		Hits:        m.hits.Load(),
		Misses:      m.misses.Load(),
	}
}

// Compact triggers manual compaction to reclaim disk space
func (m *Manager) Compact() error {
	if m.disabled || m.db == nil {
		return nil
	}
	return m.db.Compact()
}

// Close closes the cache database
func (m *Manager) Close() error {
	if m.disabled || m.db == nil {
		return nil
	}
	return m.db.Close()
}
