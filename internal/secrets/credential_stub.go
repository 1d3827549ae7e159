//go:build !windows

package secrets

// NewCredentialBackend is only available on Windows
func NewCredentialBackend(string) (Backend, error) {
	return nil, ErrBackendNotAvail
}
