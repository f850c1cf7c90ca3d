package custody

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"
)

// LegacyWallet is a wallet from the pre-store bootstrap era: secrets held
// only in memory (or a bootstrap file), never encrypted or persisted.
type LegacyWallet struct {
	UserID string `json:"userId"`
	Seed   string `json:"seed"`
	Name   string `json:"name,omitempty"`
}

// LoadLegacyWallets reads the optional legacy bootstrap file. A missing path
// means there is nothing to migrate.
func LoadLegacyWallets(path string) ([]LegacyWallet, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read legacy wallets file: %w", err)
	}

	var wallets []LegacyWallet
	if err := json.Unmarshal(data, &wallets); err != nil {
		return nil, fmt.Errorf("failed to parse legacy wallets file: %w", err)
	}
	return wallets, nil
}

// MigrateLegacy persists legacy wallets that are not yet in the store,
// encrypting their secrets on the way in. Users that already have a record
// are left untouched, so the migration is idempotent and safe to re-run.
// Per-user failures are logged and skipped; one bad wallet never aborts the
// rest. Runs once at startup, before traffic is accepted.
func (s *Service) MigrateLegacy(ctx context.Context, wallets []LegacyWallet) int {
	migrated := 0
	for _, legacy := range wallets {
		if legacy.UserID == "" {
			s.log.Warn("skipping legacy wallet with empty userId")
			continue
		}

		_, err := s.RecoverWallet(ctx, legacy.UserID, legacy.Seed, legacy.Name)
		switch {
		case err == nil:
			migrated++
			s.log.Info("migrated legacy wallet", zap.String("userId", legacy.UserID))
		case errors.Is(err, ErrAlreadyExists):
			// Already persisted; never overwrite existing custody data.
			s.log.Debug("legacy wallet already migrated", zap.String("userId", legacy.UserID))
		case errors.Is(err, ErrInvalidSeed):
			s.log.Warn("skipping legacy wallet with unparseable seed", zap.String("userId", legacy.UserID))
		default:
			s.log.Warn("failed to migrate legacy wallet",
				zap.String("userId", legacy.UserID), zap.Error(err))
		}
	}
	return migrated
}
