// Package session owns the client-side view of "who is the current user" for
// the lifetime of a loaded page. It coordinates three entry flows (normal
// load, OAuth redirect, password recovery), refreshes the session
// periodically, reacts to auth state changes, and keeps multiple open tabs
// consistent through a broadcast sign-out signal.
package session

import (
	"context"

	"github.com/vayu-prana/vayu/internal/supabase"
)

// Event is an externally emitted auth state change.
type Event string

const (
	EventSignedIn       Event = "SIGNED_IN"
	EventSignedOut      Event = "SIGNED_OUT"
	EventTokenRefreshed Event = "TOKEN_REFRESHED"
)

// Subscription is an active auth state-change subscription.
type Subscription interface {
	Unsubscribe()
}

// Store is the session store contract: the hosted auth backend that owns the
// source of truth for sessions and tokens. All operations may fail; failures
// are non-fatal and degrade to "signed out" at the coordinator boundary.
type Store interface {
	// ResolveSession returns the existing session, or nil when there is none.
	ResolveSession(ctx context.Context) (*supabase.Session, error)
	// RefreshSession obtains a fresh session from the refresh credential.
	RefreshSession(ctx context.Context) (*supabase.Session, error)
	// ExchangeToken installs a token pair delivered via URL fragment.
	ExchangeToken(ctx context.Context, accessToken, refreshToken string) (*supabase.Session, error)
	// SignOut revokes the current session server-side.
	SignOut(ctx context.Context) error
	// CleanupUserSession runs the backend-side sign-out cleanup procedure.
	CleanupUserSession(ctx context.Context, userID string) error
	// OnAuthStateChange subscribes to auth state-change notifications.
	OnAuthStateChange(fn func(event Event, sess *supabase.Session)) Subscription
}

// Navigator abstracts forced navigation so the coordinator can redirect to the
// reset-password view and back to the entry point without knowing about the UI.
type Navigator interface {
	Navigate(path string)
}

// NavigatorFunc adapts a function to the Navigator interface.
type NavigatorFunc func(path string)

func (f NavigatorFunc) Navigate(path string) { f(path) }
