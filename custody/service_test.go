package custody

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/solpump/custodian/internal/cache"
	"github.com/solpump/custodian/internal/crypto"
	"github.com/solpump/custodian/internal/model"
	"github.com/solpump/custodian/internal/store"
)

const testKeyHex = "d7a8f3b2e1c9d8b7a6f5e4d3c2b1a0f9e8d7c6b5a4f3e2d1c0b9a8f7e6d5c4b3"

type fixture struct {
	store   *store.MemoryStore
	cache   *cache.Cache
	key     []byte
	service *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	key, err := crypto.ParseKey(testKeyHex)
	require.NoError(t, err)

	memStore := store.NewMemoryStore()
	walletCache := cache.New(zap.NewNop())
	return &fixture{
		store:   memStore,
		cache:   walletCache,
		key:     key,
		service: NewService(memStore, walletCache, key, zap.NewNop()),
	}
}

func TestCreateWallet(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	entry, seed, err := f.service.CreateWallet(ctx, "42", "")
	require.NoError(t, err)
	require.NotEmpty(t, seed)
	require.NotEmpty(t, entry.Address)
	require.Equal(t, "0", entry.Balance)
	require.NotEmpty(t, entry.Name)

	record, err := f.store.FindByUser(ctx, "42")
	require.NoError(t, err)
	require.Len(t, record.Wallets, 1)
	require.Equal(t, 0, record.ActiveWalletIndex)

	// Secrets are persisted only as decryptable envelopes.
	stored := record.Wallets[0]
	require.NotContains(t, stored.EncryptedSeed, seed)
	decryptedSeed, err := crypto.Decrypt(f.key, stored.EncryptedSeed)
	require.NoError(t, err)
	require.Equal(t, seed, decryptedSeed)

	// Address is derivable from the returned seed.
	keypair, err := KeypairFromSeed(seed)
	require.NoError(t, err)
	require.Equal(t, entry.Address, keypair.Address)

	// Cache is populated with decrypted material.
	cached, ok := f.cache.Get("42")
	require.True(t, ok)
	require.Equal(t, entry.Address, cached.Address)
	require.Equal(t, seed, cached.Seed)
}

func TestCreateWallet_AlreadyExists(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, _, err := f.service.CreateWallet(ctx, "42", "")
	require.NoError(t, err)

	_, _, err = f.service.CreateWallet(ctx, "42", "")
	require.ErrorIs(t, err, ErrAlreadyExists)

	record, err := f.store.FindByUser(ctx, "42")
	require.NoError(t, err)
	require.Len(t, record.Wallets, 1, "repeat create must not add a second wallet")
}

func TestCreateWallet_ConcurrentSameUser(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, errs[i] = f.service.CreateWallet(ctx, "42", "")
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
		} else {
			require.ErrorIs(t, err, ErrAlreadyExists)
		}
	}
	require.Equal(t, 1, successes, "exactly one concurrent create may win")

	record, err := f.store.FindByUser(ctx, "42")
	require.NoError(t, err)
	require.Len(t, record.Wallets, 1)
}

func TestRecoverWallet(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, seed, err := f.service.CreateWallet(ctx, "42", "main")
	require.NoError(t, err)
	original, err := f.store.FindByUser(ctx, "42")
	require.NoError(t, err)

	require.NoError(t, f.service.DeleteWallet(ctx, "42"))

	recovered, err := f.service.RecoverWallet(ctx, "42", seed, "recovered")
	require.NoError(t, err)
	require.Equal(t, original.Wallets[0].Address, recovered.Address,
		"recovery from the same seed must yield the same address")
}

func TestRecoverWallet_InvalidSeed(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.service.RecoverWallet(ctx, "42", "not a seed", "")
	require.ErrorIs(t, err, ErrInvalidSeed)

	_, err = f.store.FindByUser(ctx, "42")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestRecoverWallet_AlreadyExists(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, seed, err := f.service.CreateWallet(ctx, "42", "")
	require.NoError(t, err)

	_, err = f.service.RecoverWallet(ctx, "42", seed, "")
	require.ErrorIs(t, err, ErrAlreadyExists)
}

func TestDeleteWallet(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	require.ErrorIs(t, f.service.DeleteWallet(ctx, "42"), ErrNoWallet)

	_, _, err := f.service.CreateWallet(ctx, "42", "")
	require.NoError(t, err)

	require.NoError(t, f.service.DeleteWallet(ctx, "42"))

	_, err = f.store.FindByUser(ctx, "42")
	require.ErrorIs(t, err, store.ErrNotFound)
	_, ok := f.cache.Get("42")
	require.False(t, ok, "cache entry must be removed with the record")
}

// failingDeleteStore simulates a store whose delete operation errors out.
type failingDeleteStore struct {
	store.WalletStore
}

func (s *failingDeleteStore) DeleteByUser(context.Context, string) (bool, error) {
	return false, errors.New("store unavailable")
}

func TestDeleteWallet_StoreFailureKeepsCache(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, _, err := f.service.CreateWallet(ctx, "42", "")
	require.NoError(t, err)

	broken := NewService(&failingDeleteStore{WalletStore: f.store}, f.cache, f.key, zap.NewNop())
	require.Error(t, broken.DeleteWallet(ctx, "42"))

	_, ok := f.cache.Get("42")
	require.True(t, ok, "cache entry must survive a failed store delete")
}

func TestSwitchActiveWallet(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	require.ErrorIs(t, f.service.SwitchActiveWallet(ctx, "42", 0), ErrNoWallet)

	_, _, err := f.service.CreateWallet(ctx, "42", "first")
	require.NoError(t, err)

	require.ErrorIs(t, f.service.SwitchActiveWallet(ctx, "42", 1), ErrIndexOutOfRange)

	// Add a second wallet directly through the store, then switch to it.
	keypair, err := NewKeypair()
	require.NoError(t, err)
	encSeed, err := crypto.Encrypt(f.key, keypair.Seed)
	require.NoError(t, err)
	encPriv, err := crypto.Encrypt(f.key, keypair.PrivateKey.String())
	require.NoError(t, err)
	require.NoError(t, f.store.AppendWallet(ctx, "42", model.WalletEntry{
		Address:             keypair.Address,
		EncryptedSeed:       encSeed,
		EncryptedPrivateKey: encPriv,
		PublicKey:           keypair.PublicKey,
		Name:                "second",
		Balance:             "0",
	}))

	require.NoError(t, f.service.SwitchActiveWallet(ctx, "42", 1))

	record, err := f.store.FindByUser(ctx, "42")
	require.NoError(t, err)
	require.Equal(t, 1, record.ActiveWalletIndex)

	cached, ok := f.cache.Get("42")
	require.True(t, ok)
	require.Equal(t, keypair.Address, cached.Address, "cache must follow the active pointer")
}

func TestActiveWallet_CacheMissDecryptsFromStore(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	entry, seed, err := f.service.CreateWallet(ctx, "42", "")
	require.NoError(t, err)

	// Simulate a restart: cache is gone, store survives.
	f.cache.Remove("42")

	resolved, err := f.service.ActiveWallet(ctx, "42")
	require.NoError(t, err)
	require.Equal(t, entry.Address, resolved.Address)
	require.Equal(t, seed, resolved.Seed)

	_, ok := f.cache.Get("42")
	require.True(t, ok, "miss must repopulate the cache")
}

func TestActiveWallet_NoWallet(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.service.ActiveWallet(ctx, "42")
	require.ErrorIs(t, err, ErrNoWallet)
}

// Lifecycle scenario: create -> recover fails -> delete -> recover succeeds.
func TestUserLifecycleScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, _, err := f.service.CreateWallet(ctx, "42", "")
	require.NoError(t, err)

	record, err := f.service.Record(ctx, "42")
	require.NoError(t, err)
	require.Len(t, record.Wallets, 1)
	require.Equal(t, 0, record.ActiveWalletIndex)
	require.Equal(t, "0", record.Wallets[0].Balance)

	other, err := NewKeypair()
	require.NoError(t, err)
	_, err = f.service.RecoverWallet(ctx, "42", other.Seed, "")
	require.ErrorIs(t, err, ErrAlreadyExists)

	require.NoError(t, f.service.DeleteWallet(ctx, "42"))
	_, err = f.service.Record(ctx, "42")
	require.ErrorIs(t, err, ErrNoWallet)

	recovered, err := f.service.RecoverWallet(ctx, "42", other.Seed, "")
	require.NoError(t, err)
	require.Equal(t, other.Address, recovered.Address)

	record, err = f.service.Record(ctx, "42")
	require.NoError(t, err)
	require.Len(t, record.Wallets, 1)
}

func TestRefreshBalance(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, _, err := f.service.CreateWallet(ctx, "42", "")
	require.NoError(t, err)

	f.service.RefreshBalance(ctx, "42", "1.250000000")

	record, err := f.store.FindByUser(ctx, "42")
	require.NoError(t, err)
	require.Equal(t, "1.250000000", record.Wallets[0].Balance)

	cached, ok := f.cache.Get("42")
	require.True(t, ok)
	require.Equal(t, "1.250000000", cached.Balance)
}
