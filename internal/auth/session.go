package auth

// SessionData represents the authenticated session context for a request
type SessionData struct {
	UserID      string `json:"user_id"`
	Email       string `json:"email"`
	IsAdmin     bool   `json:"is_admin"`
	AccessToken string `json:"-"` // Forwarded to the backend so RLS applies to the caller
}
