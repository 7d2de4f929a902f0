package auth

import "sync"

// MockStore is an in-memory CredentialStore for tests.
type MockStore struct {
	mu       sync.RWMutex
	accounts map[string]*Account

	// Optional error injection
	StoreErr    error
	RetrieveErr error
	ListErr     error
	DeleteErr   error
}

// NewMockStore creates an empty in-memory store.
func NewMockStore() *MockStore {
	return &MockStore{
		accounts: make(map[string]*Account),
	}
}

func (m *MockStore) Store(account *Account) error {
	if m.StoreErr != nil {
		return m.StoreErr
	}
	if account == nil || account.Host == "" {
		return ErrInvalidCredentials
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	acc := *account
	m.accounts[account.Host] = &acc
	return nil
}

func (m *MockStore) Retrieve(host string) (*Account, error) {
	if m.RetrieveErr != nil {
		return nil, m.RetrieveErr
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	account, ok := m.accounts[host]
	if !ok {
		return nil, ErrCredentialsNotFound
	}
	acc := *account
	return &acc, nil
}

func (m *MockStore) List() ([]*Account, error) {
	if m.ListErr != nil {
		return nil, m.ListErr
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	var accounts []*Account
	for _, account := range m.accounts {
		acc := *account
		accounts = append(accounts, &acc)
	}
	return accounts, nil
}

func (m *MockStore) Delete(host string) error {
	if m.DeleteErr != nil {
		return m.DeleteErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[host]; !ok {
		return ErrCredentialsNotFound
	}
	delete(m.accounts, host)
	return nil
}

func (m *MockStore) Exists(host string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.accounts[host]
	return ok
}

// NewManagerWithStores builds a manager over an explicit store list, for
// tests that must not touch the keychain or the filesystem.
func NewManagerWithStores(stores ...CredentialStore) *Manager {
	return &Manager{stores: stores}
}
