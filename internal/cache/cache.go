// Package cache holds the process-wide hot map of decrypted wallet material.
//
// The cache is advisory: it is rebuilt from the store at startup, mutated
// best-effort on create/recover/delete, never persisted, and never the sole
// source of truth. Anything that needs fresh data (balances before a spend)
// must ask the ledger or the store, not this map.
package cache

import (
	"sync"

	"go.uber.org/zap"

	"github.com/solpump/custodian/internal/crypto"
	"github.com/solpump/custodian/internal/model"
)

// Entry is the decrypted in-memory view of a user's active wallet.
type Entry struct {
	Address    string
	Seed       string
	PrivateKey string
	PublicKey  string
	Name       string
	Balance    string
}

// Cache maps user identity to decrypted wallet material. Reads may run
// concurrently; writes lock exclusively but only ever touch a single key.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]Entry
	log     *zap.Logger
}

// New creates an empty cache.
func New(log *zap.Logger) *Cache {
	return &Cache{
		entries: make(map[string]Entry),
		log:     log,
	}
}

// Load rebuilds the cache from persisted records, decrypting each record's
// active wallet. A record that fails to decrypt is skipped with a warning so
// one corrupt user cannot block startup for everyone else. Returns the number
// of entries loaded.
func (c *Cache) Load(records []model.WalletRecord, key []byte) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	loaded := 0
	for _, record := range records {
		active := record.ActiveWallet()
		if active == nil {
			c.log.Warn("skipping wallet record with no wallets", zap.String("userId", record.UserID))
			continue
		}

		seed, err := crypto.Decrypt(key, active.EncryptedSeed)
		if err != nil {
			c.log.Warn("skipping wallet record: seed decryption failed",
				zap.String("userId", record.UserID), zap.Error(err))
			continue
		}

		privateKey, err := crypto.Decrypt(key, active.EncryptedPrivateKey)
		if err != nil {
			c.log.Warn("skipping wallet record: private key decryption failed",
				zap.String("userId", record.UserID), zap.Error(err))
			continue
		}

		c.entries[record.UserID] = Entry{
			Address:    active.Address,
			Seed:       seed,
			PrivateKey: privateKey,
			PublicKey:  active.PublicKey,
			Name:       active.Name,
			Balance:    active.Balance,
		}
		loaded++
	}
	return loaded
}

// Get returns the entry for userID, if present.
func (c *Cache) Get(userID string) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[userID]
	return entry, ok
}

// Put inserts or replaces the entry for userID.
func (c *Cache) Put(userID string, entry Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[userID] = entry
}

// Remove drops the entry for userID.
func (c *Cache) Remove(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, userID)
}

// Len reports the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
