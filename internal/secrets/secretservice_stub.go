//go:build !linux

package secrets

// NewSecretServiceBackend is only available on Linux
func NewSecretServiceBackend(string) (Backend, error) {
	return nil, ErrBackendNotAvail
}
