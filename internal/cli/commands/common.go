package commands

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/vayu-prana/vayu/internal/cli/auth"
	"github.com/vayu-prana/vayu/internal/config"
	"github.com/vayu-prana/vayu/internal/localstore"
	"github.com/vayu-prana/vayu/internal/session"
	"github.com/vayu-prana/vayu/internal/supabase"
)

// env bundles everything a command needs to talk to the backend: the shared
// session file, the auth store, and a coordinator over both.
type env struct {
	cfg         *config.Config
	client      *supabase.Client
	local       *localstore.FileStore
	store       *session.SupabaseStore
	coordinator *session.Coordinator
}

// newEnv loads configuration and wires up the session machinery. The returned
// env must be released with close.
func newEnv() (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w\nSet SUPABASE_URL and SUPABASE_ANON_KEY (or put them in .env)", err)
	}

	// The CLI stays quiet unless something goes wrong
	logger := zerolog.Nop()

	client, err := supabase.New(supabase.Config{
		URL:        cfg.Supabase.URL,
		AnonKey:    cfg.Supabase.AnonKey,
		ServiceKey: cfg.Supabase.ServiceKey,
	})
	if err != nil {
		return nil, err
	}

	storePath, err := localstore.DefaultStorePath()
	if err != nil {
		return nil, err
	}
	local, err := localstore.NewFileStore(storePath, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open session store: %w", err)
	}

	store := session.NewSupabaseStore(client, local, logger)
	coordinator := session.New(session.Options{
		Store:      store,
		Local:      local,
		Nav:        session.NavigatorFunc(func(string) {}),
		Logger:     logger,
		AdminEmail: cfg.Site.AdminEmail,
	})

	return &env{cfg: cfg, client: client, local: local, store: store, coordinator: coordinator}, nil
}

func (e *env) close() {
	e.coordinator.Stop()
	e.local.Close()
}

// resolveUser establishes a session from the shared store, falling back to the
// keyring refresh token when the cached access token has expired.
func (e *env) resolveUser(ctx context.Context) (*session.AuthUser, error) {
	e.coordinator.Start(ctx, "")

	state := e.coordinator.State()
	if state.User != nil {
		return state.User, nil
	}

	refreshToken, err := auth.LoadToken(e.cfg.Supabase.URL)
	if err != nil {
		return nil, err
	}

	sess, err := e.store.ExchangeToken(ctx, "", refreshToken)
	if err != nil {
		return nil, fmt.Errorf("session expired. Please run 'vayu login' again: %w", err)
	}
	if sess.User == nil {
		return nil, fmt.Errorf("could not establish a session")
	}
	if sess.RefreshToken != "" {
		if err := auth.SaveToken(e.cfg.Supabase.URL, sess.RefreshToken); err != nil {
			return nil, err
		}
	}
	if err := e.local.Set(localstore.AccessTokenKey, sess.AccessToken); err != nil {
		return nil, fmt.Errorf("failed to cache access token: %w", err)
	}

	return &session.AuthUser{ID: sess.User.ID, Email: sess.User.Email}, nil
}

// accessToken returns the cached access token for direct API calls.
func (e *env) accessToken() (string, error) {
	token, ok := e.local.Get(localstore.AccessTokenKey)
	if !ok || token == "" {
		return "", fmt.Errorf("not authenticated. Please run 'vayu login' first")
	}
	return token, nil
}
