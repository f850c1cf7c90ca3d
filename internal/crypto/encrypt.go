package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
)

// Encrypt encrypts plaintext under the server key and returns the JSON
// envelope string that is persisted in the wallet record.
// plaintext is never logged; callers should not retain it longer than needed.
func Encrypt(key []byte, plaintext string) (string, error) {
	if len(key) != keyLen {
		return "", fmt.Errorf("%w: got %d bytes", ErrInvalidKeyLength, len(key))
	}

	iv := make([]byte, ivLen)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", fmt.Errorf("failed to generate iv: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}

	aesGCM, err := cipher.NewGCMWithNonceSize(block, ivLen)
	if err != nil {
		return "", fmt.Errorf("failed to create GCM: %w", err)
	}

	// Seal appends the auth tag to the ciphertext; the envelope stores them
	// as separate fields.
	sealed := aesGCM.Seal(nil, iv, []byte(plaintext), nil)
	ciphertext := sealed[:len(sealed)-tagLen]
	authTag := sealed[len(sealed)-tagLen:]

	envelope, err := json.Marshal(Envelope{
		IV:            hex.EncodeToString(iv),
		EncryptedData: hex.EncodeToString(ciphertext),
		AuthTag:       hex.EncodeToString(authTag),
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal envelope: %w", err)
	}

	return string(envelope), nil
}
