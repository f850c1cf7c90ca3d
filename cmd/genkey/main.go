// genkey prints a fresh hex-encoded 32-byte encryption key for ENCRYPTION_KEY.
// Usage: go run ./cmd/genkey
package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
)

func main() {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(hex.EncodeToString(key))
}
