package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// HashAccessCode hashes a shared access code (investor deck gate).
func HashAccessCode(code string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash access code: %w", err)
	}
	return string(hash), nil
}

// VerifyAccessCode compares a submitted access code against its stored hash.
func VerifyAccessCode(code, hash string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(code))
}
