package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vayu-prana/vayu/internal/supabase"
)

// newCallbackRouter wires the callback route against a fake auth backend.
func newCallbackRouter(t *testing.T, handler http.HandlerFunc) *gin.Engine {
	t.Helper()
	backend := httptest.NewServer(handler)
	t.Cleanup(backend.Close)

	client, err := supabase.New(supabase.Config{URL: backend.URL, AnonKey: "anon"})
	require.NoError(t, err)

	s := &Server{logger: zerolog.Nop(), supabase: client}
	router := gin.New()
	router.GET("/api/auth/callback", s.authCallback)
	return router
}

func TestAuthCallback_ExchangesTokenPair(t *testing.T) {
	var gotPath, gotGrant string
	router := newCallbackRouter(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotGrant = r.URL.Query().Get("grant_type")

		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "rt", req["refresh_token"])

		json.NewEncoder(w).Encode(supabase.Session{
			AccessToken:  "fresh-at",
			RefreshToken: "fresh-rt",
			User:         &supabase.User{ID: "u1", Email: "user@example.com"},
		})
	})

	req := httptest.NewRequest(http.MethodGet, "/api/auth/callback?access_token=at&refresh_token=rt", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "/auth/v1/token", gotPath)
	assert.Equal(t, "refresh_token", gotGrant)

	var session supabase.Session
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &session))
	assert.Equal(t, "fresh-at", session.AccessToken)
	require.NotNil(t, session.User)
	assert.Equal(t, "u1", session.User.ID)
}

func TestAuthCallback_AccessTokenOnlyValidatesUser(t *testing.T) {
	router := newCallbackRouter(t, func(w http.ResponseWriter, r *http.Request) {
		// Without a refresh token the access token is validated directly
		assert.Equal(t, "/auth/v1/user", r.URL.Path)
		assert.Equal(t, "Bearer at", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(supabase.User{ID: "u1", Email: "user@example.com"})
	})

	req := httptest.NewRequest(http.MethodGet, "/api/auth/callback?access_token=at", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var session supabase.Session
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &session))
	assert.Equal(t, "at", session.AccessToken)
	require.NotNil(t, session.User)
	assert.Equal(t, "user@example.com", session.User.Email)
}

func TestAuthCallback_MissingAccessToken(t *testing.T) {
	router := newCallbackRouter(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("backend must not be called without an access token")
	})

	req := httptest.NewRequest(http.MethodGet, "/api/auth/callback", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthCallback_RejectedTokens(t *testing.T) {
	router := newCallbackRouter(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"invalid_grant","error_description":"Invalid Refresh Token"}`))
	})

	req := httptest.NewRequest(http.MethodGet, "/api/auth/callback?access_token=at&refresh_token=bad", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
