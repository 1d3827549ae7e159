//go:build linux

package secrets

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/zalando/go-keyring"
)

// The Secret Service API offers no enumeration through go-keyring, so the
// backend keeps its own key index under indexAccount.

// SecretServiceBackend provides Linux Secret Service storage (GNOME Keyring, KWallet)
type SecretServiceBackend struct {
	service string
	mu      sync.Mutex
}

// NewSecretServiceBackend checks the session bus and reports
// ErrBackendNotAvail when no secret service answers
func NewSecretServiceBackend(service string) (Backend, error) {
	if _, err := keyring.Get(service, indexAccount); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return nil, fmt.Errorf("%w: %v", ErrBackendNotAvail, err)
	}
	return &SecretServiceBackend{service: service}, nil
}

// Set stores a secret in the secret service
func (s *SecretServiceBackend) Set(key, value string) error {
	if err := checkSize(key, value); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := keyring.Set(s.service, key, value); err != nil {
		return err
	}
	return s.updateIndex(func(keys map[string]bool) { keys[key] = true })
}

// Get retrieves a secret from the secret service
func (s *SecretServiceBackend) Get(key string) (string, error) {
	value, err := keyring.Get(s.service, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrSecretNotFound
	}
	return value, err
}

// Delete removes a secret from the secret service
func (s *SecretServiceBackend) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := keyring.Delete(s.service, key); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return err
	}
	return s.updateIndex(func(keys map[string]bool) { delete(keys, key) })
}

// Exists checks if a secret exists in the secret service
func (s *SecretServiceBackend) Exists(key string) (bool, error) {
	_, err := keyring.Get(s.service, key)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, keyring.ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

// List returns all secret keys recorded in the index
func (s *SecretServiceBackend) List() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys, err := s.readIndex()
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(keys))
	for key := range keys {
		out = append(out, key)
	}
	return out, nil
}

func (s *SecretServiceBackend) readIndex() (map[string]bool, error) {
	keys := make(map[string]bool)
	raw, err := keyring.Get(s.service, indexAccount)
	if errors.Is(err, keyring.ErrNotFound) {
		return keys, nil
	}
	if err != nil {
		return nil, err
	}

	var list []string
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return nil, fmt.Errorf("corrupt secret index: %w", err)
	}
	for _, key := range list {
		keys[key] = true
	}
	return keys, nil
}

func (s *SecretServiceBackend) updateIndex(change func(map[string]bool)) error {
	keys, err := s.readIndex()
	if err != nil {
		return err
	}
	change(keys)

	list := make([]string, 0, len(keys))
	for key := range keys {
		list = append(list, key)
	}
	data, err := json.Marshal(list)
	if err != nil {
		return err
	}
	return keyring.Set(s.service, indexAccount, string(data))
}
