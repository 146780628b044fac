package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vayu-prana/vayu/internal/localstore"
	"github.com/vayu-prana/vayu/internal/supabase"
)

const (
	// ResetPasswordPath is where recovery redirects land.
	ResetPasswordPath = "/auth/reset-password"
	// EntryPath is where sign-out always navigates back to.
	EntryPath = "/"

	defaultRefreshInterval = time.Minute
	defaultSettleDelay     = 100 * time.Millisecond
)

// AuthUser is the coordinator's read-only view of the authenticated principal.
type AuthUser struct {
	ID    string
	Email string
}

// State is a snapshot of the coordinator's published state. Initialized is
// monotonic; IsAdmin is never true while User is nil.
type State struct {
	User        *AuthUser
	Initialized bool
	IsAdmin     bool
}

// Options configures a Coordinator.
type Options struct {
	Store      Store
	Local      localstore.Store
	Nav        Navigator
	Logger     zerolog.Logger
	AdminEmail string

	// RefreshInterval overrides the periodic refresh interval (default 1m).
	RefreshInterval time.Duration
	// SettleDelay overrides the SIGNED_IN settle delay (default 100ms).
	SettleDelay time.Duration
}

// Coordinator maintains the single authoritative view of the current user for
// one loaded page. Construct one per page load with New, drive it with Start,
// and release it with Stop.
type Coordinator struct {
	store           Store
	local           localstore.Store
	nav             Navigator
	logger          zerolog.Logger
	adminEmail      string
	refreshInterval time.Duration
	settleDelay     time.Duration

	mu          sync.Mutex
	user        *AuthUser
	initialized bool
	isAdmin     bool

	stopOnce  sync.Once
	stopCh    chan struct{}
	authSub   Subscription
	signalSub Subscription
}

// New creates a coordinator. It does nothing until Start is called.
func New(opts Options) *Coordinator {
	refreshInterval := opts.RefreshInterval
	if refreshInterval == 0 {
		refreshInterval = defaultRefreshInterval
	}
	settleDelay := opts.SettleDelay
	if settleDelay == 0 {
		settleDelay = defaultSettleDelay
	}

	return &Coordinator{
		store:           opts.Store,
		local:           opts.Local,
		nav:             opts.Nav,
		logger:          opts.Logger,
		adminEmail:      opts.AdminEmail,
		refreshInterval: refreshInterval,
		settleDelay:     settleDelay,
		stopCh:          make(chan struct{}),
	}
}

// Start runs the initialization protocol for the given URL fragment and, for
// non-recovery entries, starts the periodic refresh and both subscriptions.
// Errors from the session store never propagate; every failure degrades to the
// signed-out state.
func (c *Coordinator) Start(ctx context.Context, fragment string) {
	entry := ParseFragment(fragment)

	// Recovery takes precedence over everything: stash the fragment for the
	// reset-password view and stop without establishing a session.
	if entry.Recovery {
		if err := c.local.Set(localstore.RecoveryTokenKey, entry.Raw); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to stash recovery token")
		}
		c.logger.Info().Msg("Recovery flow detected, redirecting to password reset")
		c.nav.Navigate(ResetPasswordPath)
		return
	}

	// A recovery stash only serves the page load that wrote it. Any other
	// entry clears a stale one so the raw token never outlives the flow.
	if _, ok := c.local.Get(localstore.RecoveryTokenKey); ok {
		if err := c.local.Remove(localstore.RecoveryTokenKey); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to clear stale recovery stash")
		}
	}

	handled := false
	if entry.AccessToken != "" {
		handled = c.initFromFragment(ctx, entry)
	}
	if !handled {
		c.initFromStore(ctx)
	}

	go c.refreshLoop()
	c.authSub = c.store.OnAuthStateChange(c.handleAuthEvent)
	c.signalSub = c.local.OnExternalChange(localstore.SignOutSignalKey, func(string) {
		c.logger.Info().Msg("Sign-out observed from another tab")
		c.clearUser()
	})
}

// initFromFragment installs an OAuth token pair from the URL fragment. A
// failure falls through to default resolution.
func (c *Coordinator) initFromFragment(ctx context.Context, entry Entry) bool {
	sess, err := c.store.ExchangeToken(ctx, entry.AccessToken, entry.RefreshToken)
	if err != nil {
		c.logger.Warn().Err(err).Msg("OAuth token exchange failed, falling back to session resolution")
		return false
	}
	if sess == nil || sess.User == nil {
		return false
	}

	c.applySession(sess)
	c.markInitialized()
	c.logger.Info().Str("user_id", sess.User.ID).Msg("Session established from OAuth redirect")
	return true
}

// initFromStore resolves an existing session. Absence or failure leaves the
// user signed out with any cached token cleared; initialized becomes true in
// every case.
func (c *Coordinator) initFromStore(ctx context.Context) {
	sess, err := c.store.ResolveSession(ctx)
	switch {
	case err != nil:
		c.logger.Warn().Err(err).Msg("Session resolution failed, treating as signed out")
		c.clearUser()
		c.clearCachedToken()
	case sess == nil || sess.User == nil:
		c.clearUser()
		c.clearCachedToken()
	default:
		c.applySession(sess)
	}
	c.markInitialized()
}

// refreshLoop refreshes the session once per interval until Stop. A failed
// refresh clears local state but never kills the loop; the next cycle is
// independently scheduled.
func (c *Coordinator) refreshLoop() {
	ticker := time.NewTicker(c.refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.refreshOnce()
		}
	}
}

func (c *Coordinator) refreshOnce() {
	sess, err := c.store.RefreshSession(context.Background())
	if err != nil {
		c.logger.Warn().Err(err).Msg("Session refresh failed, treating as signed out")
		c.clearUser()
		c.clearCachedToken()
		return
	}
	if sess == nil || sess.User == nil {
		c.clearUser()
		return
	}
	c.applySession(sess)
}

// handleAuthEvent reacts to externally emitted auth state changes.
func (c *Coordinator) handleAuthEvent(event Event, sess *supabase.Session) {
	c.logger.Debug().Str("event", string(event)).Msg("Auth state change")

	switch event {
	case EventSignedOut:
		c.clearUser()

	case EventTokenRefreshed:
		refreshed, err := c.store.RefreshSession(context.Background())
		if err != nil {
			c.logger.Warn().Err(err).Msg("Post-refresh session read failed")
			return
		}
		if refreshed == nil || refreshed.User == nil {
			c.clearUser()
			return
		}
		c.applySession(refreshed)

	case EventSignedIn:
		// Give the session store a moment to settle its own state before
		// reading the new session.
		go func() {
			select {
			case <-c.stopCh:
				return
			case <-time.After(c.settleDelay):
			}
			if sess != nil && sess.User != nil {
				c.applySession(sess)
				return
			}
			resolved, err := c.store.ResolveSession(context.Background())
			if err != nil || resolved == nil || resolved.User == nil {
				if err != nil {
					c.logger.Warn().Err(err).Msg("Sign-in session read failed")
				}
				return
			}
			c.applySession(resolved)
		}()
	}
}

// ConsumeRecoveryToken hands the stashed recovery fragment to the
// reset-password view and removes it from the store in the same step, so the
// raw token is gone after its single read.
func (c *Coordinator) ConsumeRecoveryToken() (string, bool) {
	raw, ok := c.local.Get(localstore.RecoveryTokenKey)
	if !ok {
		return "", false
	}
	if err := c.local.Remove(localstore.RecoveryTokenKey); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to clear recovery stash")
	}
	return raw, true
}

// SignOut clears all local authentication artifacts first, then best-effort
// notifies the backend, writes the cross-tab signal, and always ends by
// navigating back to the entry point. Backend failures are logged only.
func (c *Coordinator) SignOut(ctx context.Context) {
	c.mu.Lock()
	var userID string
	if c.user != nil {
		userID = c.user.ID
	}
	if err := c.local.Remove(localstore.AccessTokenKey); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to clear cached token")
	}
	if err := c.local.Remove(localstore.LastRefreshKey); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to clear refresh marker")
	}
	c.user = nil
	c.isAdmin = false
	c.mu.Unlock()

	if err := c.store.SignOut(ctx); err != nil {
		c.logger.Warn().Err(err).Msg("Backend sign-out failed")
	}
	if userID != "" {
		if err := c.store.CleanupUserSession(ctx, userID); err != nil {
			c.logger.Warn().Err(err).Msg("Session cleanup failed")
		}
	}

	// Signal goes last, after token data is gone, so other tabs observing the
	// change never see a live token.
	if err := c.local.Set(localstore.SignOutSignalKey, uuid.NewString()); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to write sign-out signal")
	}

	c.nav.Navigate(EntryPath)
}

// Stop cancels the periodic refresh and both subscriptions. Idempotent, and
// safe to call after a failed or recovery-path initialization.
func (c *Coordinator) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopCh)
	})
	if c.authSub != nil {
		c.authSub.Unsubscribe()
		c.authSub = nil
	}
	if c.signalSub != nil {
		c.signalSub.Unsubscribe()
		c.signalSub = nil
	}
}

// State returns a snapshot of the published state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	var user *AuthUser
	if c.user != nil {
		u := *c.user
		user = &u
	}
	return State{User: user, Initialized: c.initialized, IsAdmin: c.isAdmin}
}

// applySession publishes a session's user. The access token is persisted
// before the user becomes visible, so a non-nil user always has a matching
// cached token.
func (c *Coordinator) applySession(sess *supabase.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if sess.AccessToken != "" {
		if err := c.local.Set(localstore.AccessTokenKey, sess.AccessToken); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to cache access token")
		}
	}
	c.user = &AuthUser{ID: sess.User.ID, Email: sess.User.Email}
	c.isAdmin = sess.User.Email == c.adminEmail
}

// clearUser clears user and isAdmin together; they never change independently.
func (c *Coordinator) clearUser() {
	c.mu.Lock()
	c.user = nil
	c.isAdmin = false
	c.mu.Unlock()
}

func (c *Coordinator) clearCachedToken() {
	if err := c.local.Remove(localstore.AccessTokenKey); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to clear cached token")
	}
}

// markInitialized flips initialized to true. It never reverts.
func (c *Coordinator) markInitialized() {
	c.mu.Lock()
	c.initialized = true
	c.mu.Unlock()
}
