package auth

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const (
	service = "vayu-cli"
)

// getKeyringKey returns a unique key for storing refresh tokens per project
func getKeyringKey(projectURL string) string {
	return fmt.Sprintf("refresh-%s", projectURL)
}

// SaveToken persists the refresh token securely in the OS keychain/credential manager
func SaveToken(projectURL, token string) error {
	key := getKeyringKey(projectURL)
	if err := keyring.Set(service, key, token); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

// LoadToken retrieves the refresh token from the OS keychain/credential manager
func LoadToken(projectURL string) (string, error) {
	key := getKeyringKey(projectURL)
	token, err := keyring.Get(service, key)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", fmt.Errorf("not authenticated. Please run 'vayu login' first")
		}
		return "", fmt.Errorf("failed to load token: %w", err)
	}
	return token, nil
}

// DeleteToken removes the refresh token from the OS keychain/credential manager
func DeleteToken(projectURL string) error {
	key := getKeyringKey(projectURL)
	if err := keyring.Delete(service, key); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil // Already deleted
		}
		return fmt.Errorf("failed to delete token: %w", err)
	}
	return nil
}
