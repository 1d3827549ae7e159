//go:build darwin

package secrets

import (
	"errors"
	"sort"

	"github.com/keybase/go-keychain"
)

// KeychainBackend provides macOS Keychain storage. Every secret is a
// generic password item whose account is the "namespace:key" pair and
// whose label names the page secret in Keychain Access.
type KeychainBackend struct {
	name    string
	service string
}

// NewKeychainBackend files items under com.phillarmonic.<service>
func NewKeychainBackend(service string) (Backend, error) {
	return &KeychainBackend{
		name:    service,
		service: "com.phillarmonic." + service,
	}, nil
}

func (k *KeychainBackend) item(account string) keychain.Item {
	item := keychain.NewItem()
	item.SetSecClass(keychain.SecClassGenericPassword)
	item.SetService(k.service)
	item.SetAccount(account)
	return item
}

// Set replaces the item for account
func (k *KeychainBackend) Set(account, value string) error {
	if err := checkSize(account, value); err != nil {
		return err
	}
	if err := k.Delete(account); err != nil {
		return err
	}

	namespace, _ := splitAccount(account)
	item := k.item(account)
	item.SetLabel(describe(k.name, account))
	item.SetDescription(k.name + " " + namespace + " secret")
	item.SetData([]byte(value))
	item.SetSynchronizable(keychain.SynchronizableNo)
	item.SetAccessible(keychain.AccessibleWhenUnlocked)

	return keychain.AddItem(item)
}

// Get retrieves the item's data
func (k *KeychainBackend) Get(account string) (string, error) {
	query := k.item(account)
	query.SetMatchLimit(keychain.MatchLimitOne)
	query.SetReturnData(true)

	results, err := keychain.QueryItem(query)
	switch {
	case errors.Is(err, keychain.ErrorItemNotFound):
		return "", ErrSecretNotFound
	case err != nil:
		return "", err
	case len(results) == 0:
		return "", ErrSecretNotFound
	}
	return string(results[0].Data), nil
}

// Delete removes the item; a missing item is not an error
func (k *KeychainBackend) Delete(account string) error {
	err := keychain.DeleteItem(k.item(account))
	if err != nil && !errors.Is(err, keychain.ErrorItemNotFound) {
		return err
	}
	return nil
}

// Exists checks for the item without reading its data
func (k *KeychainBackend) Exists(account string) (bool, error) {
	query := k.item(account)
	query.SetMatchLimit(keychain.MatchLimitOne)

	results, err := keychain.QueryItem(query)
	if errors.Is(err, keychain.ErrorItemNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return len(results) > 0, nil
}

// List returns the accounts stored for the service, skipping items
// some other tool filed under the same service name
func (k *KeychainBackend) List() ([]string, error) {
	query := keychain.NewItem()
	query.SetSecClass(keychain.SecClassGenericPassword)
	query.SetService(k.service)
	query.SetMatchLimit(keychain.MatchLimitAll)
	query.SetReturnAttributes(true)

	results, err := keychain.QueryItem(query)
	if errors.Is(err, keychain.ErrorItemNotFound) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}

	accounts := make([]string, 0, len(results))
	for _, item := range results {
		if ownAccount(item.Account) {
			accounts = append(accounts, item.Account)
		}
	}
	sort.Strings(accounts)
	return accounts, nil
}
