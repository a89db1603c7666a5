// ABOUTME: Tests for the HTTP remote store client
// ABOUTME: Uses httptest servers to verify wire shapes and error classification

package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewHTTPClient(HTTPOptions{BaseURL: srv.URL, AuthToken: "tok-123"})
}

func TestCreateConversation(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/conversations", r.URL.Path)
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var conv Conversation
		require.NoError(t, json.NewDecoder(r.Body).Decode(&conv))
		assert.Equal(t, "user-1", conv.UserID)
		assert.Equal(t, "sess-1", conv.SessionTag)

		conv.ID = "conv-1"
		json.NewEncoder(w).Encode(conv)
	})

	created, err := client.CreateConversation(context.Background(), &Conversation{
		UserID:     "user-1",
		SessionTag: "sess-1",
		Title:      "Hello",
	})
	require.NoError(t, err)
	assert.Equal(t, "conv-1", created.ID)
}

func TestGetConversationsByUser_Paging(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/users/user-1/conversations", r.URL.Path)
		assert.Equal(t, "25", r.URL.Query().Get("limit"))
		assert.Equal(t, "next-page", r.URL.Query().Get("token"))

		json.NewEncoder(w).Encode(ConversationPage{
			Items:             []Conversation{{ID: "conv-1"}},
			ContinuationToken: "",
		})
	})

	page, err := client.GetConversationsByUser(context.Background(), "user-1", 25, "next-page")
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Empty(t, page.ContinuationToken)
}

func TestUpdateConversation(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/v1/conversations/conv-1", r.URL.Path)
		assert.Equal(t, "user-1", r.URL.Query().Get("userId"))

		var patch ConversationPatch
		require.NoError(t, json.NewDecoder(r.Body).Decode(&patch))
		require.NotNil(t, patch.Title)
		assert.Equal(t, "new title", *patch.Title)
		assert.Nil(t, patch.Summary)

		w.WriteHeader(http.StatusNoContent)
	})

	title := "new title"
	err := client.UpdateConversation(context.Background(), "conv-1", "user-1", &ConversationPatch{Title: &title})
	require.NoError(t, err)
}

func TestCreateMessage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/conversations/conv-1/messages", r.URL.Path)

		var msg Message
		require.NoError(t, json.NewDecoder(r.Body).Decode(&msg))
		assert.Equal(t, "m1", msg.ID)
		json.NewEncoder(w).Encode(msg)
	})

	created, err := client.CreateMessage(context.Background(), &Message{
		ID:             "m1",
		ConversationID: "conv-1",
		Sender:         "user",
		Text:           "Hello",
		Timestamp:      time.Now(),
	})
	require.NoError(t, err)
	assert.Equal(t, "m1", created.ID)
}

func TestHealthCheck(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/health", r.URL.Path)
		json.NewEncoder(w).Encode(Health{Initialized: true})
	})

	h, err := client.HealthCheck(context.Background())
	require.NoError(t, err)
	assert.True(t, h.Initialized)
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		check  func(t *testing.T, err error)
	}{
		{"401 is auth", http.StatusUnauthorized, func(t *testing.T, err error) {
			assert.True(t, IsAuth(err))
			assert.False(t, IsTransient(err))
		}},
		{"403 is auth", http.StatusForbidden, func(t *testing.T, err error) {
			assert.True(t, IsAuth(err))
		}},
		{"404 is not-found", http.StatusNotFound, func(t *testing.T, err error) {
			assert.ErrorIs(t, err, ErrNotFound)
			assert.False(t, IsTransient(err))
		}},
		{"429 is transient", http.StatusTooManyRequests, func(t *testing.T, err error) {
			assert.True(t, IsTransient(err))
		}},
		{"500 is transient", http.StatusInternalServerError, func(t *testing.T, err error) {
			assert.True(t, IsTransient(err))
		}},
		{"503 is transient", http.StatusServiceUnavailable, func(t *testing.T, err error) {
			assert.True(t, IsTransient(err))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			})
			_, err := client.HealthCheck(context.Background())
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestNetworkFailureIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close() // connection refused from here on

	client := NewHTTPClient(HTTPOptions{BaseURL: srv.URL})
	_, err := client.HealthCheck(context.Background())
	require.Error(t, err)
	assert.True(t, IsTransient(err))
}

func TestTimeoutIsTransient(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	})
	client.httpClient.Timeout = 20 * time.Millisecond

	_, err := client.HealthCheck(context.Background())
	require.Error(t, err)
	assert.True(t, IsTransient(err))
}
