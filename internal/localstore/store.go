// Package localstore is the local persistence shim: a small key/value store
// shared by every execution context of the application on one machine, with
// change notifications for writes made by other contexts. It caches the
// current access token and carries the cross-tab sign-out signal.
package localstore

// Well-known keys. The sign-out signal value is opaque; only its change
// carries meaning.
const (
	AccessTokenKey   = "sb-auth-token"
	SignOutSignalKey = "auth_logout_event"
	RecoveryTokenKey = "recovery_token"
	LastRefreshKey   = "last_session_refresh"
)

// Subscription is an active change subscription.
type Subscription interface {
	Unsubscribe()
}

// Store is the shim contract consumed by the session coordinator.
// OnExternalChange fires only for changes made by other execution contexts,
// never for the current one's own writes.
type Store interface {
	Get(key string) (string, bool)
	Set(key, value string) error
	Remove(key string) error
	RemoveAll() error
	OnExternalChange(key string, fn func(value string)) Subscription
}
