//go:build !darwin

package secrets

// NewKeychainBackend is only available on macOS
func NewKeychainBackend(string) (Backend, error) {
	return nil, ErrBackendNotAvail
}
