package secrets

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type memoryBackend map[string]string

func (m memoryBackend) Set(key, value string) error {
	m[key] = value
	return nil
}

func (m memoryBackend) Get(key string) (string, error) {
	v, ok := m[key]
	if !ok {
		return "", ErrSecretNotFound
	}
	return v, nil
}

func (m memoryBackend) Delete(key string) error {
	delete(m, key)
	return nil
}

func (m memoryBackend) Exists(key string) (bool, error) {
	_, ok := m[key]
	return ok, nil
}

func (m memoryBackend) List() ([]string, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys, nil
}

func newTestManager(t *testing.T) (Manager, memoryBackend) {
	t.Helper()
	backend := memoryBackend{}
	mgr, err := NewManager(WithBackend(backend))
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}
	return mgr, backend
}

func TestManagerSetGet(t *testing.T) {
	mgr, backend := newTestManager(t)

	if err := mgr.Set("default", "api_key", "s3cret"); err != nil {
		t.Fatalf("Failed to set secret: %v", err)
	}
	if backend["default:api_key"] != "s3cret" {
		t.Errorf("Expected composite key default:api_key, got %v", backend)
	}

	value, err := mgr.Get("default", "api_key")
	if err != nil {
		t.Fatalf("Failed to get secret: %v", err)
	}
	if value != "s3cret" {
		t.Errorf("Expected 's3cret', got %q", value)
	}

	_, err = mgr.Get("default", "missing")
	if !errors.Is(err, ErrSecretNotFound) {
		t.Errorf("Expected ErrSecretNotFound, got %v", err)
	}
	var secretErr *SecretError
	if !errors.As(err, &secretErr) || secretErr.Op != "get" || secretErr.Key != "missing" {
		t.Errorf("Expected a SecretError for get/missing, got %#v", err)
	}
}

func TestManagerDelete(t *testing.T) {
	mgr, _ := newTestManager(t)
	mgr.Set("default", "token", "x")

	if err := mgr.Delete("default", "token"); err != nil {
		t.Fatalf("Failed to delete secret: %v", err)
	}
	exists, err := mgr.Exists("default", "token")
	if err != nil {
		t.Fatalf("Failed to check existence: %v", err)
	}
	if exists {
		t.Error("Expected secret to be deleted")
	}
}

func TestManagerExists(t *testing.T) {
	mgr, _ := newTestManager(t)
	mgr.Set("prod", "db_pass", "x")

	tests := []struct {
		namespace, key string
		want           bool
	}{
		{"prod", "db_pass", true},
		{"prod", "other", false},
		{"staging", "db_pass", false},
	}
	for _, tt := range tests {
		got, err := mgr.Exists(tt.namespace, tt.key)
		if err != nil {
			t.Fatalf("Exists(%s, %s): %v", tt.namespace, tt.key, err)
		}
		if got != tt.want {
			t.Errorf("Exists(%s, %s): expected %v, got %v", tt.namespace, tt.key, tt.want, got)
		}
	}
}

func TestManagerList(t *testing.T) {
	mgr, _ := newTestManager(t)
	mgr.Set("app", "zeta", "1")
	mgr.Set("app", "alpha", "2")
	mgr.Set("other", "beta", "3")

	keys, err := mgr.List("app")
	if err != nil {
		t.Fatalf("Failed to list: %v", err)
	}
	if diff := cmp.Diff([]string{"alpha", "zeta"}, keys); diff != "" {
		t.Errorf("List mismatch (-want +got):\n%s", diff)
	}

	keys, _ = mgr.List("empty")
	if len(keys) != 0 {
		t.Errorf("Expected no keys, got %v", keys)
	}
}

func TestManagerListNamespaces(t *testing.T) {
	mgr, _ := newTestManager(t)
	mgr.Set("prod", "a", "1")
	mgr.Set("dev", "a", "1")
	mgr.Set("prod", "b", "1")

	namespaces, err := mgr.ListNamespaces()
	if err != nil {
		t.Fatalf("Failed to list namespaces: %v", err)
	}
	if diff := cmp.Diff([]string{"dev", "prod"}, namespaces); diff != "" {
		t.Errorf("ListNamespaces mismatch (-want +got):\n%s", diff)
	}
}

func TestManagerWithFallback(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.enc")
	mgr, err := NewManager(WithFallback(), WithStoragePath(path), WithService("dotpipe-test"))
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}
	if err := mgr.Set("default", "key", "value"); err != nil {
		t.Fatalf("Failed to set secret: %v", err)
	}

	reopened, err := NewManager(WithFallback(), WithStoragePath(path), WithService("dotpipe-test"))
	if err != nil {
		t.Fatalf("Failed to reopen manager: %v", err)
	}
	value, err := reopened.Get("default", "key")
	if err != nil || value != "value" {
		t.Errorf("Expected 'value', got %q (%v)", value, err)
	}
}

func TestValidateKey(t *testing.T) {
	tests := []struct {
		key   string
		valid bool
	}{
		{"api_key", true},
		{"API-KEY-2", true},
		{"a", true},
		{"", false},
		{"1key", false},
		{"_key", false},
		{"key with space", false},
		{"key:colon", false},
		{"key.dot", false},
	}
	for _, tt := range tests {
		err := validateKey(tt.key)
		if tt.valid && err != nil {
			t.Errorf("Expected %q to be valid, got %v", tt.key, err)
		}
		if !tt.valid && !errors.Is(err, ErrInvalidKey) {
			t.Errorf("Expected %q to be invalid, got %v", tt.key, err)
		}
	}
}

func TestValidateNamespace(t *testing.T) {
	tests := []struct {
		namespace string
		valid     bool
	}{
		{"default", true},
		{"my-page_2", true},
		{"", false},
		{"-page", false},
		{"a/b", false},
	}
	for _, tt := range tests {
		err := validateNamespace(tt.namespace)
		if tt.valid && err != nil {
			t.Errorf("Expected %q to be valid, got %v", tt.namespace, err)
		}
		if !tt.valid && !errors.Is(err, ErrNamespaceInvalid) {
			t.Errorf("Expected %q to be invalid, got %v", tt.namespace, err)
		}
	}
	if _, err := (&DefaultManager{backend: memoryBackend{}, separator: ":"}).List("bad ns"); !errors.Is(err, ErrNamespaceInvalid) {
		t.Errorf("Expected List to reject namespace, got %v", err)
	}
}
