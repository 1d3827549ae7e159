//go:build windows

package secrets

import (
	"errors"
	"sort"
	"strings"

	"github.com/danieljoos/wincred"
)

// CredentialBackend provides Windows Credential Manager storage. Generic
// credentials are named "<service>:<namespace>:<key>", carry the namespace
// as their user name and a comment naming the page secret.
type CredentialBackend struct {
	name   string
	prefix string
}

// NewCredentialBackend stores generic credentials under the service prefix
func NewCredentialBackend(service string) (Backend, error) {
	return &CredentialBackend{
		name:   service,
		prefix: service + ":",
	}, nil
}

func (c *CredentialBackend) target(account string) string {
	return c.prefix + account
}

// Set writes the credential, replacing any previous blob
func (c *CredentialBackend) Set(account, value string) error {
	if err := checkSize(account, value); err != nil {
		return err
	}

	namespace, _ := splitAccount(account)
	cred := wincred.NewGenericCredential(c.target(account))
	cred.UserName = namespace
	cred.Comment = describe(c.name, account)
	cred.CredentialBlob = []byte(value)
	cred.Persist = wincred.PersistLocalMachine

	return cred.Write()
}

// Get reads the credential blob
func (c *CredentialBackend) Get(account string) (string, error) {
	cred, err := wincred.GetGenericCredential(c.target(account))
	if errors.Is(err, wincred.ErrElementNotFound) {
		return "", ErrSecretNotFound
	}
	if err != nil {
		return "", err
	}
	return string(cred.CredentialBlob), nil
}

// Delete removes the credential; a missing one is not an error
func (c *CredentialBackend) Delete(account string) error {
	cred, err := wincred.GetGenericCredential(c.target(account))
	if errors.Is(err, wincred.ErrElementNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return cred.Delete()
}

// Exists checks for the credential
func (c *CredentialBackend) Exists(account string) (bool, error) {
	_, err := wincred.GetGenericCredential(c.target(account))
	if errors.Is(err, wincred.ErrElementNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// List returns the accounts of every credential under the service prefix
func (c *CredentialBackend) List() ([]string, error) {
	creds, err := wincred.List()
	if err != nil {
		return nil, err
	}

	var accounts []string
	for _, cred := range creds {
		account, ok := strings.CutPrefix(cred.TargetName, c.prefix)
		if ok && ownAccount(account) {
			accounts = append(accounts, account)
		}
	}
	sort.Strings(accounts)
	return accounts, nil
}
