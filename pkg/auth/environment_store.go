package auth

import (
	"os"
	"time"
)

// EnvironmentStore implements CredentialStore using environment variables.
// It is read-only and exists so a token can be supplied without touching
// any on-disk store.
type EnvironmentStore struct{}

// NewEnvironmentStore creates a new environment-based credential store.
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for environment variables.
func (e *EnvironmentStore) Store(account *Account) error {
	return ErrStoreUnavailable
}

// Retrieve gets the token from environment variables. The host argument is
// only used to label the account; MKARCHIVE_HOST wins when set.
func (e *EnvironmentStore) Retrieve(host string) (*Account, error) {
	token := os.Getenv("MKARCHIVE_TOKEN")
	if token == "" {
		return nil, ErrCredentialsNotFound
	}

	if envHost := os.Getenv("MKARCHIVE_HOST"); envHost != "" {
		host = envHost
	}
	if host == "" {
		host = "default"
	}

	return &Account{
		Host:         host,
		Token:        token,
		LastModified: time.Now(),
	}, nil
}

// List returns a single account if environment variables are set.
func (e *EnvironmentStore) List() ([]*Account, error) {
	account, err := e.Retrieve("")
	if err != nil {
		return []*Account{}, nil
	}
	return []*Account{account}, nil
}

// Delete is not supported for environment variables.
func (e *EnvironmentStore) Delete(host string) error {
	return ErrStoreUnavailable
}

// Exists checks if environment credentials exist.
func (e *EnvironmentStore) Exists(host string) bool {
	return os.Getenv("MKARCHIVE_TOKEN") != ""
}
