// Package custody orchestrates the wallet store, the hot cache and the secret
// cipher: it owns wallet lifecycle (create, recover, delete, switch) and the
// token-creation transaction issuer.
package custody

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/solpump/custodian/internal/cache"
	"github.com/solpump/custodian/internal/crypto"
	"github.com/solpump/custodian/internal/model"
	"github.com/solpump/custodian/internal/store"
)

var (
	// ErrAlreadyExists means the user already has a wallet record. Repeating
	// a create/recover is a no-op error, never a second wallet.
	ErrAlreadyExists = errors.New("user already has a wallet")

	// ErrNoWallet means no wallet record exists for the user.
	ErrNoWallet = errors.New("no wallet exists for user")

	// ErrInvalidSeed means the supplied seed cannot be parsed into a keypair.
	ErrInvalidSeed = errors.New("invalid seed")

	// ErrIndexOutOfRange mirrors the store's bounds error at service level.
	ErrIndexOutOfRange = store.ErrIndexOutOfRange
)

// Service implements the per-user wallet state machine. For each user it is
// either NoWallet or HasWallet(activeIndex); the store's unique constraint is
// the arbiter that keeps concurrent transitions consistent.
type Service struct {
	store store.WalletStore
	cache *cache.Cache
	key   []byte
	log   *zap.Logger
}

// NewService wires the custody service together. key must be the parsed
// 32-byte server encryption key.
func NewService(walletStore store.WalletStore, walletCache *cache.Cache, key []byte, log *zap.Logger) *Service {
	return &Service{
		store: walletStore,
		cache: walletCache,
		key:   key,
		log:   log,
	}
}

// CreateWallet generates a fresh keypair for a user with no wallet, persists
// it encrypted, and caches the decrypted material. The returned seed is shown
// to the user exactly once and is not retrievable afterwards.
func (s *Service) CreateWallet(ctx context.Context, userID, name string) (*model.WalletEntry, string, error) {
	keypair, err := NewKeypair()
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate keypair: %w", err)
	}
	return s.storeNewWallet(ctx, userID, name, keypair)
}

// RecoverWallet derives the keypair from a user-supplied seed and persists it
// the same way CreateWallet does.
func (s *Service) RecoverWallet(ctx context.Context, userID, seed, name string) (*model.WalletEntry, error) {
	keypair, err := KeypairFromSeed(seed)
	if err != nil {
		return nil, ErrInvalidSeed
	}
	entry, _, err := s.storeNewWallet(ctx, userID, name, keypair)
	return entry, err
}

func (s *Service) storeNewWallet(ctx context.Context, userID, name string, keypair *Keypair) (*model.WalletEntry, string, error) {
	if name == "" {
		name = defaultWalletName()
	}

	encryptedSeed, err := crypto.Encrypt(s.key, keypair.Seed)
	if err != nil {
		return nil, "", fmt.Errorf("failed to encrypt seed: %w", err)
	}
	encryptedPrivateKey, err := crypto.Encrypt(s.key, keypair.PrivateKey.String())
	if err != nil {
		return nil, "", fmt.Errorf("failed to encrypt private key: %w", err)
	}

	entry := model.WalletEntry{
		Address:             keypair.Address,
		EncryptedSeed:       encryptedSeed,
		EncryptedPrivateKey: encryptedPrivateKey,
		PublicKey:           keypair.PublicKey,
		Name:                name,
		Balance:             "0",
		CreatedAt:           time.Now().UTC(),
	}

	record := &model.WalletRecord{
		UserID:            userID,
		Wallets:           []model.WalletEntry{entry},
		ActiveWalletIndex: 0,
	}

	if err := s.store.Create(ctx, record); err != nil {
		if errors.Is(err, store.ErrDuplicateUser) {
			// Expected signal for a lost create/recover race or a repeat
			// request, not an anomaly.
			return nil, "", ErrAlreadyExists
		}
		return nil, "", fmt.Errorf("failed to persist wallet record: %w", err)
	}

	s.cache.Put(userID, cache.Entry{
		Address:    entry.Address,
		Seed:       keypair.Seed,
		PrivateKey: keypair.PrivateKey.String(),
		PublicKey:  entry.PublicKey,
		Name:       entry.Name,
		Balance:    entry.Balance,
	})

	s.log.Info("wallet created",
		zap.String("userId", userID),
		zap.String("address", entry.Address))

	return &entry, keypair.Seed, nil
}

// WarmCache rebuilds the hot cache from persisted records, typically at
// startup. Returns the number of wallets cached.
func (s *Service) WarmCache(records []model.WalletRecord) int {
	return s.cache.Load(records, s.key)
}

// DeleteWallet removes the user's record and cache entry as one logical
// operation. If the store delete fails the cache entry is left in place, so
// there is never a deleted-but-still-cached state.
func (s *Service) DeleteWallet(ctx context.Context, userID string) error {
	existed, err := s.store.DeleteByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to delete wallet record: %w", err)
	}
	if !existed {
		return ErrNoWallet
	}

	s.cache.Remove(userID)
	s.log.Info("wallet deleted", zap.String("userId", userID))
	return nil
}

// SwitchActiveWallet moves the active wallet pointer and refreshes the cache
// with the newly active wallet's material.
func (s *Service) SwitchActiveWallet(ctx context.Context, userID string, index int) error {
	if err := s.store.SetActiveIndex(ctx, userID, index); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNoWallet
		}
		return err
	}

	// Best effort: the store already holds the new pointer; a failed cache
	// refresh just means the next ActiveWallet call decrypts from the store.
	if entry, err := s.loadActive(ctx, userID); err == nil {
		s.cache.Put(userID, entry)
	} else {
		s.cache.Remove(userID)
		s.log.Warn("cache refresh after switch failed", zap.String("userId", userID), zap.Error(err))
	}
	return nil
}

// ActiveWallet resolves the user's active wallet with decrypted signing
// material, from cache when possible, decrypting from the store on a miss.
func (s *Service) ActiveWallet(ctx context.Context, userID string) (cache.Entry, error) {
	if entry, ok := s.cache.Get(userID); ok {
		return entry, nil
	}

	entry, err := s.loadActive(ctx, userID)
	if err != nil {
		return cache.Entry{}, err
	}
	s.cache.Put(userID, entry)
	return entry, nil
}

// Record returns the user's persisted wallet record.
func (s *Service) Record(ctx context.Context, userID string) (*model.WalletRecord, error) {
	record, err := s.store.FindByUser(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNoWallet
	}
	return record, err
}

// RefreshBalance opportunistically writes a fresh balance string to the store
// and cache. Failures are logged, never fatal: stored balances are advisory.
func (s *Service) RefreshBalance(ctx context.Context, userID, balance string) {
	record, err := s.store.FindByUser(ctx, userID)
	if err != nil {
		return
	}
	if err := s.store.UpdateBalance(ctx, userID, record.ActiveWalletIndex, balance); err != nil {
		s.log.Warn("balance refresh failed", zap.String("userId", userID), zap.Error(err))
		return
	}
	if entry, ok := s.cache.Get(userID); ok {
		entry.Balance = balance
		s.cache.Put(userID, entry)
	}
}

func (s *Service) loadActive(ctx context.Context, userID string) (cache.Entry, error) {
	record, err := s.store.FindByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return cache.Entry{}, ErrNoWallet
		}
		return cache.Entry{}, err
	}

	active := record.ActiveWallet()
	if active == nil {
		return cache.Entry{}, ErrNoWallet
	}

	seed, err := crypto.Decrypt(s.key, active.EncryptedSeed)
	if err != nil {
		return cache.Entry{}, fmt.Errorf("failed to decrypt seed: %w", err)
	}
	privateKey, err := crypto.Decrypt(s.key, active.EncryptedPrivateKey)
	if err != nil {
		return cache.Entry{}, fmt.Errorf("failed to decrypt private key: %w", err)
	}

	return cache.Entry{
		Address:    active.Address,
		Seed:       seed,
		PrivateKey: privateKey,
		PublicKey:  active.PublicKey,
		Name:       active.Name,
		Balance:    active.Balance,
	}, nil
}

func defaultWalletName() string {
	return "Wallet " + uuid.NewString()[:8]
}
