package custody

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
	"golang.org/x/crypto/pbkdf2"
)

const (
	seedLen = 32

	// BIP39 seed derivation parameters for mnemonic recovery.
	mnemonicMinWords  = 12
	mnemonicSalt      = "mnemonic"
	mnemonicPBKDF2Its = 2048
)

// Keypair is a freshly generated or recovered signing identity. The address
// is always derivable from the seed, so the seed alone recovers the wallet.
type Keypair struct {
	Seed       string // base58-encoded 32-byte seed
	PrivateKey solana.PrivateKey
	Address    string
	PublicKey  string
}

// NewKeypair generates a keypair from a fresh random seed.
func NewKeypair() (*Keypair, error) {
	seed := make([]byte, seedLen)
	if _, err := io.ReadFull(rand.Reader, seed); err != nil {
		return nil, fmt.Errorf("failed to generate seed: %w", err)
	}
	return keypairFromSeedBytes(seed)
}

// KeypairFromSeed derives a keypair from a user-supplied seed. Accepted
// forms: base58 of 32 bytes (the canonical form this service hands out),
// 64 hex characters, or a 12+-word mnemonic phrase.
func KeypairFromSeed(seed string) (*Keypair, error) {
	seed = strings.TrimSpace(seed)
	if seed == "" {
		return nil, ErrInvalidSeed
	}

	if words := strings.Fields(seed); len(words) >= mnemonicMinWords {
		return keypairFromMnemonic(words)
	}

	if decoded, err := base58.Decode(seed); err == nil && len(decoded) == seedLen {
		return keypairFromSeedBytes(decoded)
	}

	if decoded, err := hex.DecodeString(seed); err == nil && len(decoded) == seedLen {
		return keypairFromSeedBytes(decoded)
	}

	return nil, ErrInvalidSeed
}

// keypairFromMnemonic applies BIP39-style PBKDF2-SHA512 derivation and keeps
// the first 32 bytes as the ed25519 seed.
func keypairFromMnemonic(words []string) (*Keypair, error) {
	normalized := strings.ToLower(strings.Join(words, " "))
	derived := pbkdf2.Key([]byte(normalized), []byte(mnemonicSalt), mnemonicPBKDF2Its, 64, sha512.New)
	return keypairFromSeedBytes(derived[:seedLen])
}

func keypairFromSeedBytes(seed []byte) (*Keypair, error) {
	if len(seed) != seedLen {
		return nil, ErrInvalidSeed
	}

	privateKey := solana.PrivateKey(ed25519.NewKeyFromSeed(seed))
	address := privateKey.PublicKey().String()

	return &Keypair{
		Seed:       base58.Encode(seed),
		PrivateKey: privateKey,
		Address:    address,
		PublicKey:  address,
	}, nil
}
