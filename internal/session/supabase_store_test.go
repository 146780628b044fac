package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vayu-prana/vayu/internal/localstore"
	"github.com/vayu-prana/vayu/internal/supabase"
)

type authBackend struct {
	mu           sync.Mutex
	userCalls    int
	refreshCalls int
	logoutCalls  int
	rpcCalls     []string
}

func (b *authBackend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/v1/user", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.userCalls++
		b.mu.Unlock()
		json.NewEncoder(w).Encode(supabase.User{ID: "u1", Email: "user@example.com"})
	})
	mux.HandleFunc("/auth/v1/token", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.refreshCalls++
		b.mu.Unlock()
		json.NewEncoder(w).Encode(supabase.Session{
			AccessToken:  "new-access",
			RefreshToken: "new-refresh",
			TokenType:    "bearer",
			User:         &supabase.User{ID: "u1", Email: "user@example.com"},
		})
	})
	mux.HandleFunc("/auth/v1/logout", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.logoutCalls++
		b.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("/rest/v1/rpc/", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.rpcCalls = append(b.rpcCalls, r.URL.Path)
		b.mu.Unlock()
		w.Write([]byte("null"))
	})
	return mux
}

func newBackendStore(t *testing.T) (*SupabaseStore, *authBackend, localstore.Store) {
	t.Helper()
	backend := &authBackend{}
	srv := httptest.NewServer(backend.handler())
	t.Cleanup(srv.Close)

	client, err := supabase.New(supabase.Config{URL: srv.URL, AnonKey: "anon"})
	require.NoError(t, err)

	local := localstore.NewMemBackend().OpenTab()
	return NewSupabaseStore(client, local, zerolog.Nop()), backend, local
}

func TestResolveSession_NoToken(t *testing.T) {
	store, backend, _ := newBackendStore(t)

	sess, err := store.ResolveSession(context.Background())
	require.NoError(t, err)
	assert.Nil(t, sess, "no cached token means no session, not an error")
	assert.Equal(t, 0, backend.userCalls)
}

func TestResolveSession_FromCachedToken(t *testing.T) {
	store, backend, local := newBackendStore(t)
	require.NoError(t, local.Set(localstore.AccessTokenKey, "cached-token"))

	sess, err := store.ResolveSession(context.Background())
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, "cached-token", sess.AccessToken)
	assert.Equal(t, "u1", sess.User.ID)
	assert.Equal(t, 1, backend.userCalls)

	// Second resolution hits the in-memory session, not the network
	_, err = store.ResolveSession(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, backend.userCalls)
}

func TestRefreshSession_CooldownSkipsNetwork(t *testing.T) {
	store, backend, local := newBackendStore(t)

	// Install a current session with a refresh token
	sess, err := store.ExchangeToken(context.Background(), "", "seed-refresh")
	require.NoError(t, err)
	require.NotNil(t, sess)
	require.Equal(t, 1, backend.refreshCalls)

	// Mark a refresh as just performed
	now := strconv.FormatInt(time.Now().UnixMilli(), 10)
	require.NoError(t, local.Set(localstore.LastRefreshKey, now))

	got, err := store.RefreshSession(context.Background())
	require.NoError(t, err)
	assert.Equal(t, sess, got, "within the cooldown the current session is returned as-is")
	assert.Equal(t, 1, backend.refreshCalls, "no refresh grant within the cooldown")
}

func TestRefreshSession_PerformsGrantAndRecordsTime(t *testing.T) {
	store, backend, local := newBackendStore(t)

	_, err := store.ExchangeToken(context.Background(), "", "seed-refresh")
	require.NoError(t, err)
	require.Equal(t, 1, backend.refreshCalls)

	sess, err := store.RefreshSession(context.Background())
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, "new-access", sess.AccessToken)
	assert.Equal(t, 2, backend.refreshCalls)

	_, ok := local.Get(localstore.LastRefreshKey)
	assert.True(t, ok, "refresh time is recorded")
}

func TestSignOut_EmitsAndRevokes(t *testing.T) {
	store, backend, local := newBackendStore(t)
	require.NoError(t, local.Set(localstore.AccessTokenKey, "cached-token"))
	_, err := store.ResolveSession(context.Background())
	require.NoError(t, err)

	var events []Event
	sub := store.OnAuthStateChange(func(event Event, sess *supabase.Session) {
		events = append(events, event)
	})
	defer sub.Unsubscribe()

	require.NoError(t, store.SignOut(context.Background()))
	assert.Equal(t, []Event{EventSignedOut}, events)
	assert.Equal(t, 1, backend.logoutCalls)

	// The in-memory session is gone; resolution starts over from the cache
	_, err = store.ResolveSession(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, backend.userCalls)
}

func TestCleanupUserSession_CallsRPC(t *testing.T) {
	store, backend, _ := newBackendStore(t)

	require.NoError(t, store.CleanupUserSession(context.Background(), "u1"))
	assert.Equal(t, []string{"/rest/v1/rpc/cleanup_user_session"}, backend.rpcCalls)
}

func TestExchangeToken_EmitsSignedIn(t *testing.T) {
	store, _, _ := newBackendStore(t)

	var events []Event
	sub := store.OnAuthStateChange(func(event Event, sess *supabase.Session) {
		events = append(events, event)
	})
	defer sub.Unsubscribe()

	sess, err := store.ExchangeToken(context.Background(), "", "seed-refresh")
	require.NoError(t, err)
	require.NotNil(t, sess.User)
	assert.Equal(t, []Event{EventSignedIn}, events)
}
