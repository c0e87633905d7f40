package secret

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"

	"golang.org/x/crypto/nacl/secretbox"
)

var (
	ErrMissingKey = errors.New("CREDENTIAL_KEY must be 64 hex characters")
	ErrOpenFailed = errors.New("failed to open sealed secret")
)

const nonceSize = 24

// Box seals and opens retailer passwords. Passwords must stay
// recoverable so the bot can log in to retailers on the user's behalf,
// which is why this is encryption rather than hashing.
type Box struct {
	key [32]byte
}

// NewBoxFromEnv reads the 32-byte key from CREDENTIAL_KEY (hex encoded)
func NewBoxFromEnv() (*Box, error) {
	raw, err := hex.DecodeString(os.Getenv("CREDENTIAL_KEY"))
	if err != nil || len(raw) != 32 {
		return nil, ErrMissingKey
	}

	b := &Box{}
	copy(b.key[:], raw)
	return b, nil
}

// NewBox builds a Box from a raw 32-byte key
func NewBox(key [32]byte) *Box {
	return &Box{key: key}
}

// Seal encrypts plaintext with a random nonce prefix
func (b *Box) Seal(plaintext []byte) ([]byte, error) {
	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return secretbox.Seal(nonce[:], plaintext, &nonce, &b.key), nil
}

// Open decrypts a value produced by Seal
func (b *Box) Open(sealed []byte) ([]byte, error) {
	if len(sealed) < nonceSize {
		return nil, ErrOpenFailed
	}

	var nonce [nonceSize]byte
	copy(nonce[:], sealed[:nonceSize])

	plaintext, ok := secretbox.Open(nil, sealed[nonceSize:], &nonce, &b.key)
	if !ok {
		return nil, ErrOpenFailed
	}
	return plaintext, nil
}
