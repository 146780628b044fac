package session

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/vayu-prana/vayu/internal/localstore"
	"github.com/vayu-prana/vayu/internal/supabase"
)

// refreshCooldown suppresses back-to-back refresh grants; within the window
// the current session is returned as-is.
const refreshCooldown = 10 * time.Second

// SupabaseStore implements Store over the GoTrue auth API. It keeps the
// current session in memory and consults the local persistence shim for a
// cached access token on cold resolution.
type SupabaseStore struct {
	client *supabase.Client
	local  localstore.Store
	logger zerolog.Logger

	mu        sync.Mutex
	current   *supabase.Session
	listeners map[*storeSub]struct{}
}

type storeSub struct {
	store *SupabaseStore
	fn    func(event Event, sess *supabase.Session)
}

func (s *storeSub) Unsubscribe() {
	s.store.mu.Lock()
	delete(s.store.listeners, s)
	s.store.mu.Unlock()
}

// NewSupabaseStore creates a session store over the given Supabase client.
func NewSupabaseStore(client *supabase.Client, local localstore.Store, logger zerolog.Logger) *SupabaseStore {
	return &SupabaseStore{
		client:    client,
		local:     local,
		logger:    logger,
		listeners: make(map[*storeSub]struct{}),
	}
}

// ResolveSession returns the in-memory session when present, otherwise
// validates the cached access token by loading its user. No token means no
// session, which is not an error.
func (s *SupabaseStore) ResolveSession(ctx context.Context) (*supabase.Session, error) {
	s.mu.Lock()
	current := s.current
	s.mu.Unlock()
	if current != nil {
		return current, nil
	}

	token, ok := s.local.Get(localstore.AccessTokenKey)
	if !ok || token == "" {
		return nil, nil
	}

	user, err := s.client.GetUser(ctx, token)
	if err != nil {
		return nil, err
	}

	sess := &supabase.Session{AccessToken: token, TokenType: "bearer", User: user}
	s.setCurrent(sess)
	return sess, nil
}

// RefreshSession exchanges the refresh credential for a new session. Within
// the cooldown window the current session is returned without a network call.
func (s *SupabaseStore) RefreshSession(ctx context.Context) (*supabase.Session, error) {
	s.mu.Lock()
	current := s.current
	s.mu.Unlock()

	if last, ok := s.local.Get(localstore.LastRefreshKey); ok {
		if ms, err := strconv.ParseInt(last, 10, 64); err == nil {
			if time.Since(time.UnixMilli(ms)) < refreshCooldown {
				return current, nil
			}
		}
	}

	if current == nil || current.RefreshToken == "" {
		// Nothing to refresh with; fall back to plain resolution.
		return s.ResolveSession(ctx)
	}

	sess, err := s.client.RefreshToken(ctx, current.RefreshToken)
	if err != nil {
		return nil, err
	}

	s.setCurrent(sess)
	if err := s.local.Set(localstore.LastRefreshKey, strconv.FormatInt(time.Now().UnixMilli(), 10)); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to record refresh time")
	}
	return sess, nil
}

// ExchangeToken installs a token pair from an OAuth redirect and emits
// SIGNED_IN.
func (s *SupabaseStore) ExchangeToken(ctx context.Context, accessToken, refreshToken string) (*supabase.Session, error) {
	sess, err := s.client.SetSession(ctx, accessToken, refreshToken)
	if err != nil {
		return nil, err
	}

	s.setCurrent(sess)
	s.emit(EventSignedIn, sess)
	return sess, nil
}

// SignOut revokes the current session and emits SIGNED_OUT. The in-memory
// session is dropped even when revocation fails.
func (s *SupabaseStore) SignOut(ctx context.Context) error {
	s.mu.Lock()
	current := s.current
	s.current = nil
	s.mu.Unlock()

	s.emit(EventSignedOut, nil)

	if current == nil || current.AccessToken == "" {
		return nil
	}
	return s.client.SignOut(ctx, current.AccessToken)
}

// CleanupUserSession runs the backend-side cleanup procedure for a user.
func (s *SupabaseStore) CleanupUserSession(ctx context.Context, userID string) error {
	args := map[string]string{"target_uid": userID}
	return s.client.RPC(ctx, "cleanup_user_session", args, "", nil)
}

// SignInWithPassword authenticates with email and password, installs the
// session, and emits SIGNED_IN. Used by the CLI login flow.
func (s *SupabaseStore) SignInWithPassword(ctx context.Context, email, password string) (*supabase.Session, error) {
	sess, err := s.client.SignInWithPassword(ctx, supabase.SignInRequest{Email: email, Password: password})
	if err != nil {
		return nil, err
	}

	s.setCurrent(sess)
	s.emit(EventSignedIn, sess)
	return sess, nil
}

// OnAuthStateChange subscribes to auth state-change notifications.
func (s *SupabaseStore) OnAuthStateChange(fn func(event Event, sess *supabase.Session)) Subscription {
	sub := &storeSub{store: s, fn: fn}
	s.mu.Lock()
	s.listeners[sub] = struct{}{}
	s.mu.Unlock()
	return sub
}

func (s *SupabaseStore) setCurrent(sess *supabase.Session) {
	s.mu.Lock()
	s.current = sess
	s.mu.Unlock()
}

func (s *SupabaseStore) emit(event Event, sess *supabase.Session) {
	s.mu.Lock()
	fns := make([]func(Event, *supabase.Session), 0, len(s.listeners))
	for sub := range s.listeners {
		fns = append(fns, sub.fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(event, sess)
	}
}
