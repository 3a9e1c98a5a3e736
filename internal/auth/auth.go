// Package auth covers the two credential shapes the console stores: minted
// API keys (kept as sha256 digests) and user passwords (kept as bcrypt
// hashes). Session handling lives outside this service.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 12

// NewKey mints a fresh API key. The plaintext is shown to the caller exactly
// once; only the digest is ever persisted.
func NewKey() (plaintext, digest string, err error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("generate key: %w", err)
	}
	plaintext = hex.EncodeToString(buf)
	return plaintext, Digest(plaintext), nil
}

// Digest returns the hex sha256 of a presented key, the form keys are stored
// and looked up in.
func Digest(key string) string {
	h := sha256.Sum256([]byte(key))
	return hex.EncodeToString(h[:])
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func CheckPassword(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}
