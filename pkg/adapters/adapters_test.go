package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/smtp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weftworks/weft/pkg/models"
)

func TestRegistry_LookupByProvider(t *testing.T) {
	pool := NewConnectionPool(time.Second)
	t.Cleanup(pool.Close)

	registry := NewRegistry()
	registry.Register(NewSlackAdapter(pool, ""))
	registry.Register(NewGitHubAdapter(pool, ""))

	a, err := registry.Get("slack")
	require.NoError(t, err)
	assert.Equal(t, "slack", a.Provider())

	_, err = registry.Get("jira")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jira")

	assert.ElementsMatch(t, []string{"slack", "github"}, registry.Providers())
}

func TestStaticCredentials_Resolve(t *testing.T) {
	resolver := StaticCredentials{
		"u1/slack": {"access_token": "xoxb-test"},
	}

	creds, err := resolver.Resolve(context.Background(), "u1", "slack")
	require.NoError(t, err)
	assert.Equal(t, "xoxb-test", creds["access_token"])

	_, err = resolver.Resolve(context.Background(), "u1", "github")
	assert.ErrorIs(t, err, ErrNoCredential)
}

func TestKindOf_Taxonomy(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind models.ErrorKind
	}{
		{"authentication", &AuthenticationError{Provider: "slack"}, models.ErrorKindAuthentication},
		{"rate limit", &RateLimitError{Provider: "slack", RetryAfter: time.Minute}, models.ErrorKindRateLimited},
		{"temporary", &TemporaryError{Provider: "slack", Message: "503"}, models.ErrorKindTemporary},
		{"permanent", &PermanentError{Provider: "slack", StatusCode: 404}, models.ErrorKindPermanent},
		{"plain", errors.New("boom"), models.ErrorKindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, KindOf(tt.err))
		})
	}
}

func TestSlackAdapter_SendMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat.postMessage", r.URL.Path)
		assert.Equal(t, "Bearer xoxb-test", r.Header.Get("Authorization"))

		var payload map[string]any

		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "#general", payload["channel"])

		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "ts": "123.456"})
	}))
	t.Cleanup(server.Close)

	pool := NewConnectionPool(time.Second)
	t.Cleanup(pool.Close)

	adapter := NewSlackAdapter(pool, server.URL)

	result, err := adapter.Call(context.Background(), "send_message",
		map[string]any{"channel": "#general", "text": "hi"},
		Credentials{"access_token": "xoxb-test"})

	require.NoError(t, err)
	assert.Equal(t, "123.456", result["ts"])
}

func TestSlackAdapter_OkFalseClassification(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": "token_revoked"})
	}))
	t.Cleanup(server.Close)

	pool := NewConnectionPool(time.Second)
	t.Cleanup(pool.Close)

	adapter := NewSlackAdapter(pool, server.URL)

	_, err := adapter.Call(context.Background(), "send_message",
		map[string]any{"channel": "#general", "text": "hi"},
		Credentials{"access_token": "stale"})

	var authErr *AuthenticationError

	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, models.ErrorKindAuthentication, KindOf(err))
}

func TestSlackAdapter_MissingToken(t *testing.T) {
	pool := NewConnectionPool(time.Second)
	t.Cleanup(pool.Close)

	adapter := NewSlackAdapter(pool, "http://unused.invalid")

	_, err := adapter.Call(context.Background(), "send_message",
		map[string]any{"channel": "#general", "text": "hi"}, Credentials{})

	var authErr *AuthenticationError

	assert.ErrorAs(t, err, &authErr)
}

func TestGitHubAdapter_CreateIssue(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/weftworks/weft/issues", r.URL.Path)

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{"number": float64(42), "state": "open"})
	}))
	t.Cleanup(server.Close)

	pool := NewConnectionPool(time.Second)
	t.Cleanup(pool.Close)

	adapter := NewGitHubAdapter(pool, server.URL)

	result, err := adapter.Call(context.Background(), "create_issue",
		map[string]any{"repository": "weftworks/weft", "title": "bug"},
		Credentials{"access_token": "ghp-test"})

	require.NoError(t, err)
	assert.Equal(t, float64(42), result["number"])
}

func TestGitHubAdapter_StatusClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		header http.Header
		kind   models.ErrorKind
	}{
		{"unauthorized", http.StatusUnauthorized, nil, models.ErrorKindAuthentication},
		{"rate limited", http.StatusTooManyRequests, http.Header{"Retry-After": []string{"30"}}, models.ErrorKindRateLimited},
		{"server error", http.StatusBadGateway, nil, models.ErrorKindTemporary},
		{"not found", http.StatusNotFound, nil, models.ErrorKindPermanent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				for key, values := range tt.header {
					w.Header()[key] = values
				}

				w.WriteHeader(tt.status)
			}))
			t.Cleanup(server.Close)

			pool := NewConnectionPool(time.Second)
			t.Cleanup(pool.Close)

			adapter := NewGitHubAdapter(pool, server.URL)

			_, err := adapter.Call(context.Background(), "get_issue",
				map[string]any{"repository": "o/r", "issue_number": "1"},
				Credentials{"access_token": "ghp-test"})

			require.Error(t, err)
			assert.Equal(t, tt.kind, KindOf(err))

			if tt.status == http.StatusTooManyRequests {
				var rateErr *RateLimitError

				require.ErrorAs(t, err, &rateErr)
				assert.Equal(t, 30*time.Second, rateErr.RetryAfter)
			}
		})
	}
}

func TestCalendarAdapter_CreateEvent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/calendars/primary/events", r.URL.Path)

		var payload map[string]any

		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "standup", payload["summary"])

		_ = json.NewEncoder(w).Encode(map[string]any{"id": "evt-1", "status": "confirmed"})
	}))
	t.Cleanup(server.Close)

	pool := NewConnectionPool(time.Second)
	t.Cleanup(pool.Close)

	adapter := NewCalendarAdapter(pool, server.URL)

	result, err := adapter.Call(context.Background(), "create_event",
		map[string]any{
			"summary": "standup",
			"start":   "2026-09-01T09:00:00Z",
			"end":     "2026-09-01T09:15:00Z",
		},
		Credentials{"access_token": "ya29-test"})

	require.NoError(t, err)
	assert.Equal(t, "evt-1", result["id"])
}

func TestCalendarAdapter_MissingRequiredParameter(t *testing.T) {
	pool := NewConnectionPool(time.Second)
	t.Cleanup(pool.Close)

	adapter := NewCalendarAdapter(pool, "http://unused.invalid")

	_, err := adapter.Call(context.Background(), "create_event",
		map[string]any{"summary": "standup"},
		Credentials{"access_token": "ya29-test"})

	var permErr *PermanentError

	require.ErrorAs(t, err, &permErr)
	assert.Contains(t, permErr.Message, "start")
}

func TestEmailAdapter_Send(t *testing.T) {
	var (
		gotAddr string
		gotFrom string
		gotTo   []string
		gotMsg  []byte
	)

	adapter := NewEmailAdapter()
	adapter.sendMail = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg

		return nil
	}

	result, err := adapter.Call(context.Background(), "send",
		map[string]any{"to": "a@example.com, b@example.com", "subject": "hello", "body": "world"},
		Credentials{"smtp_host": "mail.example.com", "username": "bot@example.com", "password": "secret"})

	require.NoError(t, err)
	assert.Equal(t, true, result["sent"])
	assert.Equal(t, "mail.example.com:587", gotAddr)
	assert.Equal(t, "bot@example.com", gotFrom)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, gotTo)
	assert.Contains(t, string(gotMsg), "Subject: hello")
}

func TestEmailAdapter_UnsupportedOperation(t *testing.T) {
	adapter := NewEmailAdapter()

	_, err := adapter.Call(context.Background(), "archive", nil, Credentials{})

	var permErr *PermanentError

	assert.ErrorAs(t, err, &permErr)
}
