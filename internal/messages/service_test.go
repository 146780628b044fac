package messages

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vayu-prana/vayu/internal/supabase"
)

func newTestService(t *testing.T, handler http.HandlerFunc) *Service {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := supabase.New(supabase.Config{URL: srv.URL, AnonKey: "anon", ServiceKey: "service-key"})
	require.NoError(t, err)
	return NewService(client, zerolog.Nop())
}

func TestSubmit_InsertsRow(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/rest/v1/messages", r.URL.Path)

		var rows []map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&rows))
		require.Len(t, rows, 1)
		assert.Equal(t, "Asha", rows[0]["name"])
		assert.Equal(t, "asha@example.com", rows[0]["email"])
		assert.Equal(t, "Hello", rows[0]["message"])

		w.Write([]byte(`[{"id": "m1", "name": "Asha", "email": "asha@example.com", "message": "Hello"}]`))
	})

	msg, err := svc.Submit(context.Background(), "Asha", "asha@example.com", "Hello")
	require.NoError(t, err)
	assert.Equal(t, "m1", msg.ID)
	assert.Equal(t, "Hello", msg.Message)
}

func TestSubmit_BackendError(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"message":"permission denied for table messages"}`))
	})

	_, err := svc.Submit(context.Background(), "Asha", "asha@example.com", "Hello")
	require.Error(t, err)

	var supaErr *supabase.Error
	require.ErrorAs(t, err, &supaErr)
	assert.Equal(t, http.StatusForbidden, supaErr.StatusCode)
}

func TestListRecent_UsesServiceRole(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer service-key", r.Header.Get("Authorization"))
		assert.Contains(t, r.URL.RawQuery, "order=created_at.desc")
		assert.Contains(t, r.URL.RawQuery, "limit=50")
		w.Write([]byte(`[{"id": "m1", "name": "Asha", "email": "asha@example.com", "message": "Hello"}]`))
	})

	msgs, err := svc.ListRecent(context.Background(), 50)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "m1", msgs[0].ID)
}
