package secrets

import (
	"fmt"
	"strings"
)

// indexAccount holds the JSON list of stored keys on backends that
// cannot enumerate their items
const indexAccount = "__index__"

// maxBlobSize is the largest secret the OS credential stores accept
// everywhere (Windows caps generic credential blobs at 5*512 bytes)
const maxBlobSize = 5 * 512

// splitAccount separates a composite "namespace:key" account name. Accounts
// without a namespace belong to the default one.
func splitAccount(account string) (namespace, key string) {
	namespace, key, ok := strings.Cut(account, ":")
	if !ok {
		return "default", account
	}
	return namespace, key
}

// describe returns the label shown for an account in OS credential UIs
func describe(service, account string) string {
	namespace, key := splitAccount(account)
	return fmt.Sprintf("%s secret %s/%s", service, namespace, key)
}

// checkSize rejects values the platform store would truncate or refuse
func checkSize(account, value string) error {
	if len(value) <= maxBlobSize {
		return nil
	}
	namespace, key := splitAccount(account)
	return NewSecretError("set", namespace, key,
		fmt.Errorf("%w: %d bytes exceeds %d", ErrValueTooLarge, len(value), maxBlobSize))
}

// ownAccount reports whether a listed account was written by this package
func ownAccount(account string) bool {
	return account != indexAccount && strings.Contains(account, ":")
}
