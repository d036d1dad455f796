package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// bcrypt silently ignores input past 72 bytes; truncate explicitly so
// hashing and verification agree on the bytes that matter.
const maxPasswordBytes = 72

// HashPassword hashes a password using bcrypt with a fresh random salt.
// Repeated calls on the same input produce different digests.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword(truncatePassword(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword checks a password against its bcrypt digest in constant
// time. Returns false for malformed digests rather than an error.
func VerifyPassword(password, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), truncatePassword(password)) == nil
}

func truncatePassword(password string) []byte {
	b := []byte(password)
	if len(b) > maxPasswordBytes {
		b = b[:maxPasswordBytes]
	}
	return b
}
