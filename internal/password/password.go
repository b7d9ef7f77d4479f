// Package password wraps bcrypt hashing for stored credentials.
package password

import (
	"log/slog"

	"golang.org/x/crypto/bcrypt"
)

// Work factor for new digests. Raising it only affects newly hashed
// passwords; existing digests keep the cost they were created with.
const hashCost = 12

// Hash derives a salted one-way digest from a plaintext secret.
func Hash(secret string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(secret), hashCost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

// Verify reports whether secret matches the stored digest. A corrupted
// digest denies access instead of failing the request: bcrypt errors are
// logged and reported as a mismatch.
func Verify(secret, digest string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(digest), []byte(secret))
	if err == nil {
		return true
	}
	if err != bcrypt.ErrMismatchedHashAndPassword {
		slog.Warn("password verify failed on stored digest", slog.Any("error", err))
	}
	return false
}
