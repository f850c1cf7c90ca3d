// Package crypto implements authenticated encryption of wallet secrets at rest.
//
// Secrets are stored as JSON envelopes {iv, encryptedData, authTag}, all fields
// hex-encoded. The cipher is AES-256-GCM with a fresh random 16-byte IV per
// call. All functions are stateless and take the server key explicitly.
package crypto

import (
	"encoding/hex"
	"errors"
	"fmt"
)

const (
	keyLen = 32 // AES-256
	ivLen  = 16
	tagLen = 16
)

var (
	// ErrInvalidKeyLength means the configured key does not decode to 32 bytes.
	ErrInvalidKeyLength = errors.New("encryption key must be 32 bytes")

	// ErrMalformedEnvelope means the input is not a well-formed envelope.
	ErrMalformedEnvelope = errors.New("malformed cipher envelope")

	// ErrAuthenticationFailed means the auth tag did not verify: the envelope
	// was tampered with or encrypted under a different key.
	ErrAuthenticationFailed = errors.New("envelope authentication failed")
)

// Envelope is the stored form of an encrypted secret.
type Envelope struct {
	IV            string `json:"iv"`
	EncryptedData string `json:"encryptedData"`
	AuthTag       string `json:"authTag"`
}

// ParseKey decodes a hex-encoded server key and checks its length.
func ParseKey(hexKey string) ([]byte, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("%w: not valid hex", ErrInvalidKeyLength)
	}
	if len(key) != keyLen {
		return nil, fmt.Errorf("%w: got %d bytes", ErrInvalidKeyLength, len(key))
	}
	return key, nil
}
