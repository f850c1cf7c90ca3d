// Package store persists per-user wallet records. The store owns durable
// truth; the in-memory cache is only a derived accelerator on top of it.
package store

import (
	"context"
	"errors"

	"github.com/solpump/custodian/internal/model"
)

var (
	// ErrNotFound means no record exists for the user.
	ErrNotFound = errors.New("wallet record not found")

	// ErrDuplicateUser means a record already exists for the user. The unique
	// constraint behind this error is the arbiter for concurrent creations.
	ErrDuplicateUser = errors.New("wallet record already exists for user")

	// ErrIndexOutOfRange means the wallet index does not point at an entry.
	ErrIndexOutOfRange = errors.New("wallet index out of range")
)

// WalletStore defines wallet-record data access. All mutations are atomic per
// user record: concurrent readers never observe a partially applied write.
type WalletStore interface {
	FindByUser(ctx context.Context, userID string) (*model.WalletRecord, error)
	Create(ctx context.Context, record *model.WalletRecord) error
	DeleteByUser(ctx context.Context, userID string) (bool, error)
	SetActiveIndex(ctx context.Context, userID string, index int) error
	AppendWallet(ctx context.Context, userID string, entry model.WalletEntry) error
	UpdateBalance(ctx context.Context, userID string, index int, balance string) error
	All(ctx context.Context) ([]model.WalletRecord, error)
}
