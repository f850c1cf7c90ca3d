package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config contains all configuration parameters for the service. Values are
// read once at startup and never re-read mid-operation.
type Config struct {
	Port          string `envconfig:"PORT" default:"8080"`
	MongoURI      string `envconfig:"MONGO_URI" required:"true"`
	MongoDatabase string `envconfig:"MONGO_DATABASE" default:"xrpump"`

	// EncryptionKey is the hex-encoded 32-byte server key used for all
	// secret envelopes. Generate one with cmd/genkey.
	EncryptionKey string `envconfig:"ENCRYPTION_KEY" required:"true"`

	SolanaRPCURL string `envconfig:"SOLANA_RPC_URL" default:"https://api.mainnet-beta.solana.com"`

	// BurnAddress is the fixed unspendable sink for token-creation payments.
	BurnAddress string `envconfig:"BURN_ADDRESS" default:"1nc1nerator11111111111111111111111111111111"`

	// TokenCreationFeeSOL is the SOL amount moved to the burn address per
	// token creation.
	TokenCreationFeeSOL string `envconfig:"TOKEN_CREATION_FEE_SOL" default:"0.01"`

	SubmitTimeoutSeconds int `envconfig:"SUBMIT_TIMEOUT_SECONDS" default:"60"`

	// LegacyWalletsFile optionally points at a JSON file of pre-store
	// wallets migrated into the store at startup.
	LegacyWalletsFile string `envconfig:"LEGACY_WALLETS_FILE"`
}

// cfg is the global configuration instance
var cfg *Config

// Init loads configuration from environment variables.
func Init() error {
	cfg = &Config{}
	if err := envconfig.Process("", cfg); err != nil {
		return fmt.Errorf("failed to process config: %w", err)
	}
	return nil
}

// Get returns the global configuration instance.
// Panics if Init() was not called.
func Get() *Config {
	if cfg == nil {
		panic("config not initialized, call Init() first")
	}
	return cfg
}

// SubmitTimeout returns the ledger submit/confirm deadline as a duration.
func (c *Config) SubmitTimeout() time.Duration {
	return time.Duration(c.SubmitTimeoutSeconds) * time.Second
}
