package custody

import (
	"encoding/hex"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/require"
)

func TestNewKeypair(t *testing.T) {
	first, err := NewKeypair()
	require.NoError(t, err)
	second, err := NewKeypair()
	require.NoError(t, err)

	require.NotEqual(t, first.Seed, second.Seed)
	require.NotEqual(t, first.Address, second.Address)
	require.Len(t, first.PrivateKey, 64)
	require.Equal(t, first.Address, first.PublicKey)

	decoded, err := base58.Decode(first.Seed)
	require.NoError(t, err)
	require.Len(t, decoded, 32)
}

func TestKeypairFromSeed_Base58RoundTrip(t *testing.T) {
	generated, err := NewKeypair()
	require.NoError(t, err)

	recovered, err := KeypairFromSeed(generated.Seed)
	require.NoError(t, err)
	require.Equal(t, generated.Address, recovered.Address, "address must be derivable from the seed")
	require.Equal(t, generated.PrivateKey, recovered.PrivateKey)
}

func TestKeypairFromSeed_Hex(t *testing.T) {
	generated, err := NewKeypair()
	require.NoError(t, err)

	raw, err := base58.Decode(generated.Seed)
	require.NoError(t, err)

	recovered, err := KeypairFromSeed(hex.EncodeToString(raw))
	require.NoError(t, err)
	require.Equal(t, generated.Address, recovered.Address)
}

func TestKeypairFromSeed_Mnemonic(t *testing.T) {
	const phrase = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

	first, err := KeypairFromSeed(phrase)
	require.NoError(t, err)
	second, err := KeypairFromSeed(phrase)
	require.NoError(t, err)
	require.Equal(t, first.Address, second.Address, "mnemonic derivation must be deterministic")

	// Case and surrounding whitespace are normalized.
	third, err := KeypairFromSeed("  Abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon ABOUT ")
	require.NoError(t, err)
	require.Equal(t, first.Address, third.Address)
}

func TestKeypairFromSeed_Invalid(t *testing.T) {
	for _, seed := range []string{
		"",
		"   ",
		"tooshort",
		"zzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzz0OIl", // not base58, not hex
		"abcd1234", // valid hex, wrong length
	} {
		_, err := KeypairFromSeed(seed)
		require.ErrorIs(t, err, ErrInvalidSeed, "seed %q", seed)
	}
}
