package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vayu-prana/vayu/internal/localstore"
	"github.com/vayu-prana/vayu/internal/supabase"
)

const adminEmail = "hello@dhruvaryan.com"

// fakeStore is a scriptable session store for coordinator tests.
type fakeStore struct {
	mu sync.Mutex

	resolveSess  *supabase.Session
	resolveErr   error
	refreshSess  *supabase.Session
	refreshErr   error
	exchangeSess *supabase.Session
	exchangeErr  error
	signOutErr   error
	cleanupErr   error

	resolveCalls  int
	refreshCalls  int
	exchangeCalls int
	signOutCalls  int
	cleanupUsers  []string

	onSignOut func()
	onCleanup func()

	listeners map[*fakeSub]struct{}
}

type fakeSub struct {
	store *fakeStore
	fn    func(Event, *supabase.Session)
}

func (s *fakeSub) Unsubscribe() {
	s.store.mu.Lock()
	delete(s.store.listeners, s)
	s.store.mu.Unlock()
}

func newFakeStore() *fakeStore {
	return &fakeStore{listeners: make(map[*fakeSub]struct{})}
}

func (f *fakeStore) ResolveSession(ctx context.Context) (*supabase.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resolveCalls++
	return f.resolveSess, f.resolveErr
}

func (f *fakeStore) RefreshSession(ctx context.Context) (*supabase.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshCalls++
	return f.refreshSess, f.refreshErr
}

func (f *fakeStore) ExchangeToken(ctx context.Context, accessToken, refreshToken string) (*supabase.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exchangeCalls++
	return f.exchangeSess, f.exchangeErr
}

func (f *fakeStore) SignOut(ctx context.Context) error {
	f.mu.Lock()
	f.signOutCalls++
	hook := f.onSignOut
	err := f.signOutErr
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	return err
}

func (f *fakeStore) CleanupUserSession(ctx context.Context, userID string) error {
	f.mu.Lock()
	f.cleanupUsers = append(f.cleanupUsers, userID)
	hook := f.onCleanup
	err := f.cleanupErr
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	return err
}

func (f *fakeStore) OnAuthStateChange(fn func(event Event, sess *supabase.Session)) Subscription {
	sub := &fakeSub{store: f, fn: fn}
	f.mu.Lock()
	f.listeners[sub] = struct{}{}
	f.mu.Unlock()
	return sub
}

func (f *fakeStore) emit(event Event, sess *supabase.Session) {
	f.mu.Lock()
	fns := make([]func(Event, *supabase.Session), 0, len(f.listeners))
	for sub := range f.listeners {
		fns = append(fns, sub.fn)
	}
	f.mu.Unlock()
	for _, fn := range fns {
		fn(event, sess)
	}
}

func (f *fakeStore) listenerCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.listeners)
}

func testSession(id, email string) *supabase.Session {
	return &supabase.Session{
		AccessToken:  "token-" + id,
		RefreshToken: "refresh-" + id,
		TokenType:    "bearer",
		User:         &supabase.User{ID: id, Email: email},
	}
}

type recordingNav struct {
	mu    sync.Mutex
	paths []string
}

func (n *recordingNav) Navigate(path string) {
	n.mu.Lock()
	n.paths = append(n.paths, path)
	n.mu.Unlock()
}

func (n *recordingNav) all() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.paths...)
}

// newTestCoordinator keeps the periodic refresh effectively disabled; tests
// exercising the refresh loop construct their own coordinator.
func newTestCoordinator(store Store, local localstore.Store, nav Navigator) *Coordinator {
	return New(Options{
		Store:           store,
		Local:           local,
		Nav:             nav,
		Logger:          zerolog.Nop(),
		AdminEmail:      adminEmail,
		RefreshInterval: time.Hour,
		SettleDelay:     5 * time.Millisecond,
	})
}

func TestStart_DefaultFlow_ResolvesExistingSession(t *testing.T) {
	store := newFakeStore()
	store.resolveSess = testSession("u1", "user@example.com")
	local := localstore.NewMemBackend().OpenTab()
	nav := &recordingNav{}

	c := newTestCoordinator(store, local, nav)
	defer c.Stop()
	c.Start(context.Background(), "")

	state := c.State()
	require.NotNil(t, state.User)
	assert.Equal(t, "u1", state.User.ID)
	assert.True(t, state.Initialized)
	assert.False(t, state.IsAdmin)

	// The access token is cached whenever a user is visible
	token, ok := local.Get(localstore.AccessTokenKey)
	assert.True(t, ok)
	assert.Equal(t, "token-u1", token)
	assert.Empty(t, nav.all())
}

func TestStart_DefaultFlow_NoSession(t *testing.T) {
	store := newFakeStore()
	local := localstore.NewMemBackend().OpenTab()

	c := newTestCoordinator(store, local, &recordingNav{})
	defer c.Stop()
	c.Start(context.Background(), "")

	state := c.State()
	assert.Nil(t, state.User)
	assert.True(t, state.Initialized, "initialized must become true even without a session")
	assert.False(t, state.IsAdmin)
}

func TestStart_DefaultFlow_ResolutionFailureDegradesToSignedOut(t *testing.T) {
	store := newFakeStore()
	store.resolveErr = assert.AnError
	local := localstore.NewMemBackend().OpenTab()
	require.NoError(t, local.Set(localstore.AccessTokenKey, "stale"))

	c := newTestCoordinator(store, local, &recordingNav{})
	defer c.Stop()
	c.Start(context.Background(), "")

	state := c.State()
	assert.Nil(t, state.User)
	assert.True(t, state.Initialized)

	// The stale cached token is cleared on failure
	_, ok := local.Get(localstore.AccessTokenKey)
	assert.False(t, ok)
}

func TestStart_AdminDetection(t *testing.T) {
	store := newFakeStore()
	store.resolveSess = testSession("admin", adminEmail)
	local := localstore.NewMemBackend().OpenTab()

	c := newTestCoordinator(store, local, &recordingNav{})
	defer c.Stop()
	c.Start(context.Background(), "")

	state := c.State()
	require.NotNil(t, state.User)
	assert.True(t, state.IsAdmin)
}

func TestStart_RecoveryFlow_RedirectsAndStops(t *testing.T) {
	store := newFakeStore()
	store.resolveSess = testSession("u1", "user@example.com")
	local := localstore.NewMemBackend().OpenTab()
	nav := &recordingNav{}

	c := newTestCoordinator(store, local, nav)
	defer c.Stop()
	c.Start(context.Background(), "#access_token=abc&type=recovery")

	// The fragment is stashed for the reset-password view
	stashed, ok := local.Get(localstore.RecoveryTokenKey)
	require.True(t, ok)
	assert.Equal(t, "access_token=abc&type=recovery", stashed)

	assert.Equal(t, []string{ResetPasswordPath}, nav.all())

	// No session work happens: no resolution, no subscriptions, not initialized
	assert.Equal(t, 0, store.resolveCalls)
	assert.Equal(t, 0, store.listenerCount())
	state := c.State()
	assert.Nil(t, state.User)
	assert.False(t, state.Initialized)
}

func TestStart_NonRecoveryEntryClearsStaleRecoveryStash(t *testing.T) {
	store := newFakeStore()
	store.resolveSess = testSession("u1", "user@example.com")
	local := localstore.NewMemBackend().OpenTab()
	require.NoError(t, local.Set(localstore.RecoveryTokenKey, "access_token=old&type=recovery"))

	c := newTestCoordinator(store, local, &recordingNav{})
	defer c.Stop()
	c.Start(context.Background(), "")

	// A stash left behind by an abandoned reset flow must not survive a
	// regular entry
	_, ok := local.Get(localstore.RecoveryTokenKey)
	assert.False(t, ok)
}

func TestConsumeRecoveryToken_RemovesStashOnRead(t *testing.T) {
	store := newFakeStore()
	local := localstore.NewMemBackend().OpenTab()

	c := newTestCoordinator(store, local, &recordingNav{})
	defer c.Stop()
	c.Start(context.Background(), "#access_token=abc&type=recovery")

	raw, ok := c.ConsumeRecoveryToken()
	require.True(t, ok)
	assert.Equal(t, "access_token=abc&type=recovery", raw)

	// The raw token is gone after the single read
	_, ok = local.Get(localstore.RecoveryTokenKey)
	assert.False(t, ok)
	_, ok = c.ConsumeRecoveryToken()
	assert.False(t, ok)
}

func TestStart_OAuthFlow_SkipsDefaultResolution(t *testing.T) {
	store := newFakeStore()
	store.exchangeSess = testSession("u2", "oauth@example.com")
	local := localstore.NewMemBackend().OpenTab()

	c := newTestCoordinator(store, local, &recordingNav{})
	defer c.Stop()
	c.Start(context.Background(), "#access_token=abc&refresh_token=def")

	assert.Equal(t, 1, store.exchangeCalls)
	assert.Equal(t, 0, store.resolveCalls, "OAuth entry must not fall through to default resolution")

	state := c.State()
	require.NotNil(t, state.User)
	assert.Equal(t, "u2", state.User.ID)
	assert.True(t, state.Initialized)

	// Subscriptions and the refresh loop still run after an OAuth entry
	assert.Equal(t, 1, store.listenerCount())
}

func TestStart_OAuthFlow_ExchangeFailureFallsBack(t *testing.T) {
	store := newFakeStore()
	store.exchangeErr = assert.AnError
	store.resolveSess = testSession("u3", "fallback@example.com")
	local := localstore.NewMemBackend().OpenTab()

	c := newTestCoordinator(store, local, &recordingNav{})
	defer c.Stop()
	c.Start(context.Background(), "#access_token=abc")

	assert.Equal(t, 1, store.exchangeCalls)
	assert.Equal(t, 1, store.resolveCalls)

	state := c.State()
	require.NotNil(t, state.User)
	assert.Equal(t, "u3", state.User.ID)
}

func TestRefreshLoop_FailureClearsUserButKeepsRunning(t *testing.T) {
	store := newFakeStore()
	store.resolveSess = testSession("u1", "user@example.com")
	store.refreshErr = assert.AnError
	local := localstore.NewMemBackend().OpenTab()

	c := New(Options{
		Store:           store,
		Local:           local,
		Nav:             &recordingNav{},
		Logger:          zerolog.Nop(),
		AdminEmail:      adminEmail,
		RefreshInterval: 20 * time.Millisecond,
		SettleDelay:     5 * time.Millisecond,
	})
	defer c.Stop()
	c.Start(context.Background(), "")
	require.NotNil(t, c.State().User)

	// First tick fails and degrades to signed out
	require.Eventually(t, func() bool {
		return c.State().User == nil
	}, time.Second, 5*time.Millisecond)
	assert.True(t, c.State().Initialized, "initialized never reverts")

	// A later successful refresh re-establishes the user: the loop survived
	store.mu.Lock()
	store.refreshErr = nil
	store.refreshSess = testSession("u1", "user@example.com")
	store.mu.Unlock()

	require.Eventually(t, func() bool {
		return c.State().User != nil
	}, time.Second, 5*time.Millisecond)
}

func TestAuthEvents_SignedOutClearsUserAndAdminTogether(t *testing.T) {
	store := newFakeStore()
	store.resolveSess = testSession("admin", adminEmail)
	local := localstore.NewMemBackend().OpenTab()

	c := newTestCoordinator(store, local, &recordingNav{})
	defer c.Stop()
	c.Start(context.Background(), "")
	require.True(t, c.State().IsAdmin)

	store.emit(EventSignedOut, nil)

	state := c.State()
	assert.Nil(t, state.User)
	assert.False(t, state.IsAdmin)
	assert.True(t, state.Initialized)
}

func TestAuthEvents_TokenRefreshedAppliesNewSession(t *testing.T) {
	store := newFakeStore()
	store.refreshSess = testSession("u1", "rotated@example.com")
	local := localstore.NewMemBackend().OpenTab()

	c := newTestCoordinator(store, local, &recordingNav{})
	defer c.Stop()
	c.Start(context.Background(), "")

	store.emit(EventTokenRefreshed, nil)

	state := c.State()
	require.NotNil(t, state.User)
	assert.Equal(t, "rotated@example.com", state.User.Email)

	token, _ := local.Get(localstore.AccessTokenKey)
	assert.Equal(t, "token-u1", token)
}

func TestAuthEvents_SignedInAppliesAfterSettleDelay(t *testing.T) {
	store := newFakeStore()
	local := localstore.NewMemBackend().OpenTab()

	c := newTestCoordinator(store, local, &recordingNav{})
	defer c.Stop()
	c.Start(context.Background(), "")
	require.Nil(t, c.State().User)

	store.emit(EventSignedIn, testSession("u9", "fresh@example.com"))

	require.Eventually(t, func() bool {
		state := c.State()
		return state.User != nil && state.User.ID == "u9"
	}, time.Second, 2*time.Millisecond)
}

func TestAuthEvents_SignedInWithoutSessionResolves(t *testing.T) {
	store := newFakeStore()
	local := localstore.NewMemBackend().OpenTab()

	c := newTestCoordinator(store, local, &recordingNav{})
	defer c.Stop()
	c.Start(context.Background(), "")

	store.mu.Lock()
	store.resolveSess = testSession("u10", "late@example.com")
	store.mu.Unlock()

	store.emit(EventSignedIn, nil)

	require.Eventually(t, func() bool {
		state := c.State()
		return state.User != nil && state.User.ID == "u10"
	}, time.Second, 2*time.Millisecond)
}

func TestCrossTab_SignOutSignalClearsUser(t *testing.T) {
	backend := localstore.NewMemBackend()
	tabA := backend.OpenTab()
	tabB := backend.OpenTab()

	store := newFakeStore()
	store.resolveSess = testSession("u1", "user@example.com")

	c := newTestCoordinator(store, tabA, &recordingNav{})
	defer c.Stop()
	c.Start(context.Background(), "")
	require.NotNil(t, c.State().User)

	// Another tab signs out and broadcasts the signal
	require.NoError(t, tabB.Set(localstore.SignOutSignalKey, "some-new-value"))

	state := c.State()
	assert.Nil(t, state.User)
	assert.False(t, state.IsAdmin)
}

func TestSignOut_OrderingAndBestEffortCleanup(t *testing.T) {
	backend := localstore.NewMemBackend()
	tabA := backend.OpenTab()
	tabB := backend.OpenTab()

	store := newFakeStore()
	store.resolveSess = testSession("u1", "user@example.com")
	nav := &recordingNav{}

	c := newTestCoordinator(store, tabA, nav)
	defer c.Stop()
	c.Start(context.Background(), "")
	require.NotNil(t, c.State().User)

	// Local artifacts must already be gone when the backend is notified
	store.mu.Lock()
	store.onSignOut = func() {
		_, ok := tabA.Get(localstore.AccessTokenKey)
		assert.False(t, ok, "cached token must be cleared before backend sign-out")
	}
	store.mu.Unlock()

	// A tab observing the broadcast signal must never see a live token
	var signalSeen bool
	var tokenAtSignal bool
	sub := tabB.OnExternalChange(localstore.SignOutSignalKey, func(string) {
		signalSeen = true
		_, tokenAtSignal = tabB.Get(localstore.AccessTokenKey)
	})
	defer sub.Unsubscribe()

	// Backend failures must not derail the flow
	store.mu.Lock()
	store.signOutErr = assert.AnError
	store.cleanupErr = assert.AnError
	store.mu.Unlock()

	c.SignOut(context.Background())

	state := c.State()
	assert.Nil(t, state.User)
	assert.False(t, state.IsAdmin)

	assert.Equal(t, 1, store.signOutCalls)
	assert.Equal(t, []string{"u1"}, store.cleanupUsers)

	assert.True(t, signalSeen, "sign-out signal must be broadcast")
	assert.False(t, tokenAtSignal, "no live token when the signal lands")

	assert.Equal(t, []string{EntryPath}, nav.all())
}

func TestSignOut_WithoutUserSkipsCleanup(t *testing.T) {
	store := newFakeStore()
	local := localstore.NewMemBackend().OpenTab()
	nav := &recordingNav{}

	c := newTestCoordinator(store, local, nav)
	defer c.Stop()
	c.Start(context.Background(), "")

	c.SignOut(context.Background())

	assert.Equal(t, 1, store.signOutCalls)
	assert.Empty(t, store.cleanupUsers, "no cleanup RPC without a user id")
	assert.Equal(t, []string{EntryPath}, nav.all())
}

func TestStop_IsIdempotentAndUnsubscribes(t *testing.T) {
	store := newFakeStore()
	local := localstore.NewMemBackend().OpenTab()

	c := newTestCoordinator(store, local, &recordingNav{})
	c.Start(context.Background(), "")
	require.Equal(t, 1, store.listenerCount())

	c.Stop()
	assert.Equal(t, 0, store.listenerCount())

	// Second stop must not panic
	c.Stop()
}

func TestStop_AfterRecoveryStart(t *testing.T) {
	store := newFakeStore()
	local := localstore.NewMemBackend().OpenTab()

	c := newTestCoordinator(store, local, &recordingNav{})
	c.Start(context.Background(), "#type=recovery")

	// Stop is safe even though nothing was started
	c.Stop()
	c.Stop()
}
