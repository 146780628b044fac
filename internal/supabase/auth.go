package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// SignUp registers a new user. GoTrue sends a verification email; the returned
// session is nil until the address is confirmed.
func (c *Client) SignUp(ctx context.Context, req SignUpRequest, redirectTo string) (*Session, error) {
	url := c.authURL + "/signup"
	if redirectTo != "" {
		url += "?redirect_to=" + redirectTo
	}

	body, status, err := c.request(ctx, http.MethodPost, url, req, "", nil)
	if err != nil {
		return nil, err
	}
	if status >= 400 {
		return nil, parseError(body, status)
	}

	var session Session
	if err := json.Unmarshal(body, &session); err != nil {
		return nil, fmt.Errorf("failed to decode signup response: %w", err)
	}
	return &session, nil
}

// SignInWithPassword authenticates with email and password.
func (c *Client) SignInWithPassword(ctx context.Context, req SignInRequest) (*Session, error) {
	url := c.authURL + "/token?grant_type=password"

	body, status, err := c.request(ctx, http.MethodPost, url, req, "", nil)
	if err != nil {
		return nil, err
	}
	if status >= 400 {
		return nil, parseError(body, status)
	}

	var session Session
	if err := json.Unmarshal(body, &session); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}
	return &session, nil
}

// RefreshToken exchanges a refresh token for a new session.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*Session, error) {
	url := c.authURL + "/token?grant_type=refresh_token"
	payload := map[string]string{"refresh_token": refreshToken}

	body, status, err := c.request(ctx, http.MethodPost, url, payload, "", nil)
	if err != nil {
		return nil, err
	}
	if status >= 400 {
		return nil, parseError(body, status)
	}

	var session Session
	if err := json.Unmarshal(body, &session); err != nil {
		return nil, fmt.Errorf("failed to decode refresh response: %w", err)
	}
	return &session, nil
}

// GetUser fetches the user behind an access token.
func (c *Client) GetUser(ctx context.Context, accessToken string) (*User, error) {
	body, status, err := c.request(ctx, http.MethodGet, c.authURL+"/user", nil, accessToken, nil)
	if err != nil {
		return nil, err
	}
	if status >= 400 {
		return nil, parseError(body, status)
	}

	var user User
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, fmt.Errorf("failed to decode user response: %w", err)
	}
	return &user, nil
}

// SignOut revokes the session behind the given access token.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	body, status, err := c.request(ctx, http.MethodPost, c.authURL+"/logout", nil, accessToken, nil)
	if err != nil {
		return err
	}
	if status >= 400 {
		return parseError(body, status)
	}
	return nil
}

// ResetPasswordForEmail sends a password-recovery email. The recovery link
// redirects to redirectTo with the recovery indicator in the URL fragment.
func (c *Client) ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error {
	url := c.authURL + "/recover"
	if redirectTo != "" {
		url += "?redirect_to=" + redirectTo
	}
	payload := map[string]string{"email": email}

	body, status, err := c.request(ctx, http.MethodPost, url, payload, "", nil)
	if err != nil {
		return err
	}
	if status >= 400 {
		return parseError(body, status)
	}
	return nil
}

// UpdateUserPassword sets a new password for the authenticated user.
func (c *Client) UpdateUserPassword(ctx context.Context, accessToken, newPassword string) error {
	payload := map[string]string{"password": newPassword}

	body, status, err := c.request(ctx, http.MethodPut, c.authURL+"/user", payload, accessToken, nil)
	if err != nil {
		return err
	}
	if status >= 400 {
		return parseError(body, status)
	}
	return nil
}

// SetSession installs a token pair delivered out of band (OAuth redirect
// fragment). With a refresh token present a full refresh-grant exchange is
// performed; otherwise the access token is validated by loading its user.
func (c *Client) SetSession(ctx context.Context, accessToken, refreshToken string) (*Session, error) {
	if refreshToken != "" {
		return c.RefreshToken(ctx, refreshToken)
	}

	user, err := c.GetUser(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	return &Session{AccessToken: accessToken, TokenType: "bearer", User: user}, nil
}
