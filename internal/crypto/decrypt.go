package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Decrypt opens an envelope produced by Encrypt and returns the plaintext.
// The auth tag is verified before any plaintext is returned: a tampered or
// wrong-key envelope fails with ErrAuthenticationFailed, never with garbage.
func Decrypt(key []byte, envelopeJSON string) (string, error) {
	if len(key) != keyLen {
		return "", fmt.Errorf("%w: got %d bytes", ErrInvalidKeyLength, len(key))
	}

	var envelope Envelope
	if err := json.Unmarshal([]byte(envelopeJSON), &envelope); err != nil {
		return "", fmt.Errorf("%w: not valid JSON", ErrMalformedEnvelope)
	}
	if envelope.IV == "" || envelope.EncryptedData == "" || envelope.AuthTag == "" {
		return "", fmt.Errorf("%w: missing field", ErrMalformedEnvelope)
	}

	iv, err := hex.DecodeString(envelope.IV)
	if err != nil {
		return "", fmt.Errorf("%w: bad iv", ErrMalformedEnvelope)
	}
	if len(iv) != ivLen {
		return "", fmt.Errorf("%w: iv must be %d bytes", ErrMalformedEnvelope, ivLen)
	}

	ciphertext, err := hex.DecodeString(envelope.EncryptedData)
	if err != nil {
		return "", fmt.Errorf("%w: bad ciphertext", ErrMalformedEnvelope)
	}

	authTag, err := hex.DecodeString(envelope.AuthTag)
	if err != nil {
		return "", fmt.Errorf("%w: bad auth tag", ErrMalformedEnvelope)
	}
	if len(authTag) != tagLen {
		return "", fmt.Errorf("%w: auth tag must be %d bytes", ErrMalformedEnvelope, tagLen)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}

	aesGCM, err := cipher.NewGCMWithNonceSize(block, ivLen)
	if err != nil {
		return "", fmt.Errorf("failed to create GCM: %w", err)
	}

	plaintext, err := aesGCM.Open(nil, iv, append(ciphertext, authTag...), nil)
	if err != nil {
		return "", ErrAuthenticationFailed
	}

	return string(plaintext), nil
}
