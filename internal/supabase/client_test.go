package supabase

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := New(Config{URL: srv.URL, AnonKey: "anon-key", ServiceKey: "service-key"})
	require.NoError(t, err)
	return client
}

func TestNew_RequiresURLAndKey(t *testing.T) {
	_, err := New(Config{AnonKey: "k"})
	assert.Error(t, err)

	_, err = New(Config{URL: "https://proj.supabase.co"})
	assert.Error(t, err)
}

func TestRequest_AnonKeyDoublesAsBearer(t *testing.T) {
	var gotAuth, gotAPIKey string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotAPIKey = r.Header.Get("apikey")
		json.NewEncoder(w).Encode(User{ID: "u1"})
	})

	_, err := client.GetUser(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "anon-key", gotAPIKey)
	assert.Equal(t, "Bearer anon-key", gotAuth)
}

func TestRequest_UserTokenTakesPrecedence(t *testing.T) {
	var gotAuth string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(User{ID: "u1"})
	})

	_, err := client.GetUser(context.Background(), "user-token")
	require.NoError(t, err)
	assert.Equal(t, "Bearer user-token", gotAuth)
}

func TestSignInWithPassword(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/token", r.URL.Path)
		assert.Equal(t, "password", r.URL.Query().Get("grant_type"))

		var req SignInRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "user@example.com", req.Email)

		json.NewEncoder(w).Encode(Session{
			AccessToken: "at",
			User:        &User{ID: "u1", Email: req.Email},
		})
	})

	sess, err := client.SignInWithPassword(context.Background(), SignInRequest{
		Email:    "user@example.com",
		Password: "secret",
	})
	require.NoError(t, err)
	assert.Equal(t, "at", sess.AccessToken)
	assert.Equal(t, "u1", sess.User.ID)
}

func TestSignInWithPassword_BadCredentials(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"invalid_grant","error_description":"Invalid login credentials"}`))
	})

	_, err := client.SignInWithPassword(context.Background(), SignInRequest{Email: "x", Password: "y"})
	require.Error(t, err)

	var supaErr *Error
	require.ErrorAs(t, err, &supaErr)
	assert.Equal(t, http.StatusBadRequest, supaErr.StatusCode)
	assert.Contains(t, supaErr.Message, "invalid_grant")
}

func TestQueryBuilder_URLConstruction(t *testing.T) {
	var gotPath, gotQuery string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.Write([]byte("[]"))
	})

	var rows []map[string]any
	err := client.From("blog_posts").
		Select("*").
		Eq("published", true).
		Gte("created_at", "2026-01-01").
		Order("created_at", false).
		Limit(5).
		Execute(context.Background(), &rows)
	require.NoError(t, err)

	assert.Equal(t, "/rest/v1/blog_posts", gotPath)
	assert.Contains(t, gotQuery, "select=%2A")
	assert.Contains(t, gotQuery, "published=eq.true")
	assert.Contains(t, gotQuery, "created_at=gte.2026-01-01")
	assert.Contains(t, gotQuery, "order=created_at.desc")
	assert.Contains(t, gotQuery, "limit=5")
}

func TestQueryBuilder_SingleSetsAcceptHeader(t *testing.T) {
	var gotAccept string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAccept = r.Header.Get("Accept")
		w.Write([]byte(`{"id":"1"}`))
	})

	var row map[string]any
	err := client.From("t").Eq("id", "1").Single().Execute(context.Background(), &row)
	require.NoError(t, err)
	assert.Equal(t, "application/vnd.pgrst.object+json", gotAccept)
}

func TestQueryBuilder_InsertSendsRepresentationPrefer(t *testing.T) {
	var gotMethod, gotPrefer string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPrefer = r.Header.Get("Prefer")
		w.Write([]byte(`[{"id":"1"}]`))
	})

	var created []map[string]any
	err := client.From("t").Insert(context.Background(), []map[string]any{{"a": 1}}, &created)
	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "return=representation", gotPrefer)
	require.Len(t, created, 1)
}

func TestQueryBuilder_ServiceRoleUsesServiceKey(t *testing.T) {
	var gotAuth string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte("[]"))
	})

	err := client.From("t").AsServiceRole().Execute(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "Bearer service-key", gotAuth)
}

func TestQueryBuilder_ErrorDecoding(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"code":"23505","message":"duplicate key value violates unique constraint"}`))
	})

	err := client.From("t").Insert(context.Background(), []map[string]any{{"a": 1}}, nil)
	require.Error(t, err)

	var supaErr *Error
	require.ErrorAs(t, err, &supaErr)
	assert.True(t, supaErr.IsUniqueViolation())
}

func TestRPC(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/rpc/cleanup_user_session", r.URL.Path)

		var args map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&args))
		assert.Equal(t, "u1", args["target_uid"])

		w.Write([]byte("null"))
	})

	err := client.RPC(context.Background(), "cleanup_user_session", map[string]string{"target_uid": "u1"}, "", nil)
	require.NoError(t, err)
}
