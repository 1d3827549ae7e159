// Package secrets stores credentials for pages in the operating system's
// credential store, falling back to an encrypted file.
package secrets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"sort"
	"strings"
)

// Service is the credential store service name
const Service = "dotpipe"

// Manager provides secure secret storage and retrieval
type Manager interface {
	// Set stores a secret value
	Set(namespace, key, value string) error

	// Get retrieves a secret value
	Get(namespace, key string) (string, error)

	// Delete removes a secret
	Delete(namespace, key string) error

	// Exists checks if a secret exists
	Exists(namespace, key string) (bool, error)

	// List returns all secret keys (not values) in namespace
	List(namespace string) ([]string, error)

	// ListNamespaces returns all available namespaces
	ListNamespaces() ([]string, error)
}

// Backend is the platform-specific storage of composite keys
type Backend interface {
	Set(key, value string) error
	Get(key string) (string, error)
	Delete(key string) error
	Exists(key string) (bool, error)
	List() ([]string, error)
}

// DefaultManager implements Manager on top of a Backend using
// "namespace:key" composite keys
type DefaultManager struct {
	backend   Backend
	service   string
	fallback  bool
	path      string
	separator string
}

// Option is a functional option for configuring the manager
type Option func(*DefaultManager)

// Valid key pattern: must start with letter, contain only alphanumeric, underscore, or dash
var validKeyPattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_-]*$`)

// NewManager creates a secrets manager for the current platform
func NewManager(opts ...Option) (Manager, error) {
	mgr := &DefaultManager{
		service:   Service,
		separator: ":",
	}
	for _, opt := range opts {
		opt(mgr)
	}

	if mgr.backend != nil {
		return mgr, nil
	}

	var err error
	if mgr.fallback {
		mgr.backend, err = newFallback(mgr.path, mgr.service)
	} else {
		mgr.backend, err = detectBackend(mgr.service, mgr.path)
	}
	if err != nil {
		return nil, err
	}
	return mgr, nil
}

// WithService changes the service name secrets are filed under
func WithService(service string) Option {
	return func(m *DefaultManager) {
		m.service = service
	}
}

// WithFallback forces the encrypted file backend
func WithFallback() Option {
	return func(m *DefaultManager) {
		m.fallback = true
	}
}

// WithStoragePath sets the encrypted file used by the fallback backend
func WithStoragePath(path string) Option {
	return func(m *DefaultManager) {
		m.path = path
	}
}

// WithBackend uses a specific backend
func WithBackend(b Backend) Option {
	return func(m *DefaultManager) {
		m.backend = b
	}
}

// detectBackend chooses the credential store of the platform, using the
// encrypted file when it is not available
func detectBackend(service, path string) (Backend, error) {
	var (
		backend Backend
		err     error
	)
	switch runtime.GOOS {
	case "darwin":
		backend, err = NewKeychainBackend(service)
	case "windows":
		backend, err = NewCredentialBackend(service)
	case "linux":
		backend, err = NewSecretServiceBackend(service)
	default:
		err = ErrBackendNotAvail
	}
	if errors.Is(err, ErrBackendNotAvail) {
		return newFallback(path, service)
	}
	return backend, err
}

func newFallback(path, service string) (Backend, error) {
	if path == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			homeDir = "."
		}
		path = filepath.Join(homeDir, "."+service, "secrets.enc")
	}
	return NewFallbackBackend(path, service)
}

// Set stores a secret value
func (m *DefaultManager) Set(namespace, key, value string) error {
	if err := validate(namespace, key); err != nil {
		return NewSecretError("set", namespace, key, err)
	}
	if err := m.backend.Set(m.formatKey(namespace, key), value); err != nil {
		return NewSecretError("set", namespace, key, err)
	}
	return nil
}

// Get retrieves a secret value
func (m *DefaultManager) Get(namespace, key string) (string, error) {
	if err := validate(namespace, key); err != nil {
		return "", NewSecretError("get", namespace, key, err)
	}
	value, err := m.backend.Get(m.formatKey(namespace, key))
	if err != nil {
		return "", NewSecretError("get", namespace, key, err)
	}
	return value, nil
}

// Delete removes a secret
func (m *DefaultManager) Delete(namespace, key string) error {
	if err := validate(namespace, key); err != nil {
		return NewSecretError("delete", namespace, key, err)
	}
	if err := m.backend.Delete(m.formatKey(namespace, key)); err != nil {
		return NewSecretError("delete", namespace, key, err)
	}
	return nil
}

// Exists checks if a secret exists
func (m *DefaultManager) Exists(namespace, key string) (bool, error) {
	if err := validate(namespace, key); err != nil {
		return false, NewSecretError("exists", namespace, key, err)
	}
	exists, err := m.backend.Exists(m.formatKey(namespace, key))
	if err != nil {
		return false, NewSecretError("exists", namespace, key, err)
	}
	return exists, nil
}

// List returns the keys of a namespace in sorted order
func (m *DefaultManager) List(namespace string) ([]string, error) {
	if err := validateNamespace(namespace); err != nil {
		return nil, NewSecretError("list", namespace, "", err)
	}

	all, err := m.backend.List()
	if err != nil {
		return nil, NewSecretError("list", namespace, "", err)
	}

	prefix := namespace + m.separator
	var keys []string
	for _, full := range all {
		if key, ok := strings.CutPrefix(full, prefix); ok {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// ListNamespaces returns the namespaces holding at least one secret
func (m *DefaultManager) ListNamespaces() ([]string, error) {
	all, err := m.backend.List()
	if err != nil {
		return nil, NewSecretError("list-namespaces", "", "", err)
	}

	seen := make(map[string]bool)
	var namespaces []string
	for _, full := range all {
		ns, _, ok := strings.Cut(full, m.separator)
		if !ok || seen[ns] {
			continue
		}
		seen[ns] = true
		namespaces = append(namespaces, ns)
	}
	sort.Strings(namespaces)
	return namespaces, nil
}

// formatKey creates the composite key in format "namespace:key"
func (m *DefaultManager) formatKey(namespace, key string) string {
	return fmt.Sprintf("%s%s%s", namespace, m.separator, key)
}

func validate(namespace, key string) error {
	if err := validateNamespace(namespace); err != nil {
		return err
	}
	return validateKey(key)
}

// validateNamespace validates that a namespace is valid
func validateNamespace(namespace string) error {
	if !validKeyPattern.MatchString(namespace) {
		return ErrNamespaceInvalid
	}
	return nil
}

// validateKey validates that a key is valid
func validateKey(key string) error {
	if !validKeyPattern.MatchString(key) {
		return ErrInvalidKey
	}
	return nil
}
