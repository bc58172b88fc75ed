package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword derives a one-way bcrypt hash from the raw password. The
// raw value is never stored.
func HashPassword(rawPassword string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(rawPassword), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword reports whether rawPassword matches the stored hash.
// bcrypt's comparison is resistant to timing analysis.
func VerifyPassword(passwordHash, rawPassword string) bool {
	return bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(rawPassword)) == nil
}
