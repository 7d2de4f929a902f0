package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerStore(t *testing.T) {
	t.Run("stores in the first accepting store", func(t *testing.T) {
		primary := NewMockStore()
		fallback := NewMockStore()
		manager := NewManagerWithStores(primary, fallback)

		account := &Account{Host: "misskey.example", Token: "secret"}
		require.NoError(t, manager.Store(account))

		assert.True(t, primary.Exists("misskey.example"))
		assert.False(t, fallback.Exists("misskey.example"))
		assert.False(t, account.LastModified.IsZero())
	})

	t.Run("falls back when the first store fails", func(t *testing.T) {
		broken := NewMockStore()
		broken.StoreErr = ErrStoreUnavailable
		fallback := NewMockStore()
		manager := NewManagerWithStores(broken, fallback)

		require.NoError(t, manager.Store(&Account{Host: "misskey.example", Token: "secret"}))
		assert.True(t, fallback.Exists("misskey.example"))
	})

	t.Run("rejects missing host or token", func(t *testing.T) {
		manager := NewManagerWithStores(NewMockStore())
		assert.Error(t, manager.Store(&Account{Token: "secret"}))
		assert.Error(t, manager.Store(&Account{Host: "misskey.example"}))
	})
}

func TestManagerRetrieve(t *testing.T) {
	primary := NewMockStore()
	secondary := NewMockStore()
	require.NoError(t, secondary.Store(&Account{Host: "misskey.example", Token: "secret"}))
	manager := NewManagerWithStores(primary, secondary)

	t.Run("searches all stores", func(t *testing.T) {
		account, err := manager.Retrieve("misskey.example")
		require.NoError(t, err)
		assert.Equal(t, "secret", account.Token)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := manager.Retrieve("other.example")
		assert.Error(t, err)
	})
}

func TestManagerList(t *testing.T) {
	older := &Account{Host: "misskey.example", Token: "old", LastModified: time.Now().Add(-time.Hour)}
	newer := &Account{Host: "misskey.example", Token: "new", LastModified: time.Now()}

	first := NewMockStore()
	require.NoError(t, first.Store(older))
	second := NewMockStore()
	require.NoError(t, second.Store(newer))
	require.NoError(t, second.Store(&Account{Host: "other.example", Token: "x", LastModified: time.Now()}))

	manager := NewManagerWithStores(first, second)
	accounts, err := manager.List()
	require.NoError(t, err)
	require.Len(t, accounts, 2)

	for _, account := range accounts {
		if account.Host == "misskey.example" {
			assert.Equal(t, "new", account.Token, "most recently modified wins on collision")
		}
	}
}

func TestManagerDelete(t *testing.T) {
	store := NewMockStore()
	require.NoError(t, store.Store(&Account{Host: "misskey.example", Token: "secret"}))
	manager := NewManagerWithStores(store)

	require.NoError(t, manager.Delete("misskey.example"))
	assert.False(t, store.Exists("misskey.example"))

	assert.Error(t, manager.Delete("misskey.example"))
}

func TestSanitizeAccount(t *testing.T) {
	t.Run("long token keeps edges", func(t *testing.T) {
		account := &Account{Host: "misskey.example", Token: "abcdefghijklmnop"}
		sanitized := SanitizeAccount(account)
		assert.Equal(t, "abcd...mnop", sanitized.Token)
		assert.Equal(t, "misskey.example", sanitized.Host)
		// The original is untouched.
		assert.Equal(t, "abcdefghijklmnop", account.Token)
	})

	t.Run("short token fully masked", func(t *testing.T) {
		sanitized := SanitizeAccount(&Account{Host: "misskey.example", Token: "short"})
		assert.Equal(t, "********", sanitized.Token)
	})

	t.Run("nil account", func(t *testing.T) {
		assert.Nil(t, SanitizeAccount(nil))
	})
}
