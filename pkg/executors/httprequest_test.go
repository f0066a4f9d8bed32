package executors

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weftworks/weft/pkg/models"
)

func httpNode(url string, extra map[string]any) *models.Node {
	params := map[string]any{"url": url}
	for k, v := range extra {
		params[k] = v
	}

	return &models.Node{
		ID:         "h1",
		Name:       "fetch",
		Type:       models.NodeTypeAction,
		Subtype:    models.SubtypeHTTP,
		Parameters: params,
	}
}

func TestHTTPRequestExecutor_DecodesJSONResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "token-123", r.Header.Get("X-Api-Key"))

		var body map[string]any

		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "ping", body["op"])

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"pong": true})
	}))
	t.Cleanup(server.Close)

	executor := NewHTTPRequestExecutor(server.Client())

	outcome, err := executor.Execute(context.Background(), Request{
		Node: httpNode(server.URL, map[string]any{
			"method":  "POST",
			"headers": map[string]any{"X-Api-Key": "token-123"},
			"body":    map[string]any{"op": "ping"},
		}),
		Execution: executionContext(),
	})

	require.NoError(t, err)
	assert.Equal(t, models.NodeStatusSuccess, outcome.StatusOrDefault())
	assert.Equal(t, 200, outcome.OutputData["status_code"])

	body, ok := outcome.OutputData["body"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, body["pong"])
}

func TestHTTPRequestExecutor_ClassifiesFailures(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		kind      models.ErrorKind
		retryable bool
	}{
		{"server error retryable", http.StatusServiceUnavailable, models.ErrorKindTemporary, true},
		{"client error terminal", http.StatusUnprocessableEntity, models.ErrorKindPermanent, false},
		{"unauthorized", http.StatusUnauthorized, models.ErrorKindAuthentication, false},
		{"throttled", http.StatusTooManyRequests, models.ErrorKindRateLimited, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			}))
			t.Cleanup(server.Close)

			executor := NewHTTPRequestExecutor(server.Client())

			_, err := executor.Execute(context.Background(), Request{
				Node:      httpNode(server.URL, nil),
				Execution: executionContext(),
			})

			var nodeErr *models.NodeError

			require.ErrorAs(t, err, &nodeErr)
			assert.Equal(t, tt.kind, nodeErr.Kind)
			assert.Equal(t, tt.retryable, nodeErr.Kind.Retryable())
		})
	}
}

func TestHTTPRequestExecutor_TimeoutIsRetryable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(5 * time.Second):
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(server.Close)

	executor := NewHTTPRequestExecutor(server.Client())

	start := time.Now()
	_, err := executor.Execute(context.Background(), Request{
		Node:      httpNode(server.URL, map[string]any{"timeout_seconds": float64(0.2)}),
		Execution: executionContext(),
	})

	var nodeErr *models.NodeError

	require.ErrorAs(t, err, &nodeErr)
	assert.Equal(t, models.ErrorKindTemporary, nodeErr.Kind)
	assert.Less(t, time.Since(start), 3*time.Second)
}

func TestHTTPRequestExecutor_MissingURL(t *testing.T) {
	executor := NewHTTPRequestExecutor(nil)

	_, err := executor.Execute(context.Background(), Request{
		Node: &models.Node{
			ID: "h1", Type: models.NodeTypeAction, Subtype: models.SubtypeHTTP,
			Parameters: map[string]any{},
		},
		Execution: executionContext(),
	})

	var nodeErr *models.NodeError

	require.ErrorAs(t, err, &nodeErr)
	assert.Equal(t, models.ErrorKindPermanent, nodeErr.Kind)
}

func TestHTTPRequestExecutor_NonJSONBodyKeptAsString(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("plain text"))
	}))
	t.Cleanup(server.Close)

	executor := NewHTTPRequestExecutor(server.Client())

	outcome, err := executor.Execute(context.Background(), Request{
		Node:      httpNode(server.URL, nil),
		Execution: executionContext(),
	})

	require.NoError(t, err)
	assert.Equal(t, "plain text", outcome.OutputData["body"])
}
