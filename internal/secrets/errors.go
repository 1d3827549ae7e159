package secrets

import (
	"errors"
	"fmt"
)

// Common errors
var (
	ErrSecretNotFound   = errors.New("secret not found")
	ErrInvalidKey       = errors.New("invalid secret key")
	ErrBackendNotAvail  = errors.New("secrets backend not available")
	ErrNamespaceInvalid = errors.New("invalid namespace")
	ErrValueTooLarge    = errors.New("secret value too large")
)

// SecretError wraps an error with the operation and the secret it concerned
type SecretError struct {
	Namespace string
	Key       string
	Op        string
	Err       error
}

func (e *SecretError) Error() string {
	switch {
	case e.Namespace != "" && e.Key != "":
		return fmt.Sprintf("secret operation '%s' failed for %s:%s: %v", e.Op, e.Namespace, e.Key, e.Err)
	case e.Namespace != "":
		return fmt.Sprintf("secret operation '%s' failed for namespace %s: %v", e.Op, e.Namespace, e.Err)
	default:
		return fmt.Sprintf("secret operation '%s' failed: %v", e.Op, e.Err)
	}
}

func (e *SecretError) Unwrap() error {
	return e.Err
}

// NewSecretError creates a new SecretError
func NewSecretError(op, namespace, key string, err error) *SecretError {
	return &SecretError{
		Namespace: namespace,
		Key:       key,
		Op:        op,
		Err:       err,
	}
}
