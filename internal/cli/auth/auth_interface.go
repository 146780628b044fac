package auth

// TokenStore defines the interface for token storage operations
// This allows us to mock the keyring in tests
type TokenStore interface {
	SaveToken(projectURL, token string) error
	LoadToken(projectURL string) (string, error)
	DeleteToken(projectURL string) error
}

// defaultTokenStore implements TokenStore using the OS keyring
type defaultTokenStore struct{}

var Default TokenStore = &defaultTokenStore{}

func (d *defaultTokenStore) SaveToken(projectURL, token string) error {
	return SaveToken(projectURL, token)
}

func (d *defaultTokenStore) LoadToken(projectURL string) (string, error) {
	return LoadToken(projectURL)
}

func (d *defaultTokenStore) DeleteToken(projectURL string) error {
	return DeleteToken(projectURL)
}
