package cache

import (
	"encoding/json"
	"fmt"
	"time"
)

// StateTTL is how long an entry state snapshot survives without being rewritten
const StateTTL = 90 * 24 * time.Hour

// StateKey returns the key a page's snapshot is stored under
func StateKey(page string) string {
	return GenerateKey("state", page)
}

// SaveState stores a JSON snapshot for a page
func (m *Manager) SaveState(page string, state any) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}
	return m.Set(StateKey(page), data, StateTTL)
}

// LoadState decodes the snapshot of a page into state. It reports false
// when no snapshot exists.
func (m *Manager) LoadState(page string, state any) (bool, error) {
	data, ok, err := m.Get(StateKey(page))
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(data, state); err != nil {
		return false, fmt.Errorf("failed to decode state: %w", err)
	}
	return true, nil
}
