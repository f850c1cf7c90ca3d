package store

import (
	"context"
	"sync"

	"github.com/solpump/custodian/internal/model"
)

// Ensure MemoryStore implements WalletStore
var _ WalletStore = (*MemoryStore)(nil)

// MemoryStore is an in-process WalletStore with the same semantics as the
// Mongo store (unique userId, atomic per-record mutation). Used by tests and
// local development without a database.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]model.WalletRecord
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]model.WalletRecord)}
}

func cloneRecord(r model.WalletRecord) model.WalletRecord {
	out := r
	out.Wallets = make([]model.WalletEntry, len(r.Wallets))
	copy(out.Wallets, r.Wallets)
	return out
}

// FindByUser returns a copy of the record for userID or ErrNotFound.
func (s *MemoryStore) FindByUser(_ context.Context, userID string) (*model.WalletRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[userID]
	if !ok {
		return nil, ErrNotFound
	}
	out := cloneRecord(record)
	return &out, nil
}

// Create inserts a new record, failing with ErrDuplicateUser if one exists.
func (s *MemoryStore) Create(_ context.Context, record *model.WalletRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[record.UserID]; ok {
		return ErrDuplicateUser
	}
	s.records[record.UserID] = cloneRecord(*record)
	return nil
}

// DeleteByUser removes the record and reports whether one existed.
func (s *MemoryStore) DeleteByUser(_ context.Context, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.records[userID]
	delete(s.records, userID)
	return ok, nil
}

// SetActiveIndex updates the active wallet pointer with bounds checking.
func (s *MemoryStore) SetActiveIndex(_ context.Context, userID string, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[userID]
	if !ok {
		return ErrNotFound
	}
	if index < 0 || index >= len(record.Wallets) {
		return ErrIndexOutOfRange
	}
	record.Wallets = append([]model.WalletEntry(nil), record.Wallets...)
	record.ActiveWalletIndex = index
	s.records[userID] = record
	return nil
}

// AppendWallet pushes an entry onto an existing record.
func (s *MemoryStore) AppendWallet(_ context.Context, userID string, entry model.WalletEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[userID]
	if !ok {
		return ErrNotFound
	}
	record.Wallets = append(append([]model.WalletEntry(nil), record.Wallets...), entry)
	s.records[userID] = record
	return nil
}

// UpdateBalance refreshes a stored balance string.
func (s *MemoryStore) UpdateBalance(_ context.Context, userID string, index int, balance string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[userID]
	if !ok {
		return ErrNotFound
	}
	if index < 0 || index >= len(record.Wallets) {
		return ErrIndexOutOfRange
	}
	record.Wallets = append([]model.WalletEntry(nil), record.Wallets...)
	record.Wallets[index].Balance = balance
	s.records[userID] = record
	return nil
}

// All returns a copy of every record.
func (s *MemoryStore) All(_ context.Context) ([]model.WalletRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.WalletRecord, 0, len(s.records))
	for _, record := range s.records {
		out = append(out, cloneRecord(record))
	}
	return out, nil
}
