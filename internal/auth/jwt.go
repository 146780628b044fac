package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// ErrSecretNotConfigured is returned when no JWT secret has been installed;
// callers can fall back to verifying tokens against the auth backend.
var ErrSecretNotConfigured = errors.New("JWT secret not initialized")

var jwtSecret []byte

// Claims are the Supabase access token claims we care about.
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// InitializeJWT sets the project JWT secret used to verify access tokens
// locally without a round trip to the auth backend.
func InitializeJWT(secret string) {
	jwtSecret = []byte(secret)
}

// ValidateToken verifies a Supabase access token and returns its claims.
func ValidateToken(tokenString string) (*Claims, error) {
	if len(jwtSecret) == 0 {
		return nil, ErrSecretNotConfigured
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		// Supabase signs access tokens with HS256
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return jwtSecret, nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, fmt.Errorf("invalid token")
}
