package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weftworks/weft/pkg/adapters"
	"github.com/weftworks/weft/pkg/executors"
	"github.com/weftworks/weft/pkg/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	pool := adapters.NewConnectionPool(5 * time.Second)
	t.Cleanup(pool.Close)

	return NewClient(pool, server.URL, "sk-test")
}

func TestComplete(t *testing.T) {
	var captured map[string]any

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		_ = json.NewEncoder(w).Encode(map[string]any{
			"model": "gpt-4o-mini",
			"choices": []any{
				map[string]any{"message": map[string]any{"role": "assistant", "content": "All clear."}},
			},
			"usage": map[string]any{"prompt_tokens": 12, "completion_tokens": 3},
		})
	})

	resp, err := client.Complete(context.Background(), executors.LLMRequest{
		Model:   "gpt-4o-mini",
		Prompt:  "Summarize the incident",
		Input:   map[string]any{"severity": "low"},
		Options: map[string]any{"temperature": 0.2},
	})
	require.NoError(t, err)

	assert.Equal(t, "All clear.", resp.Content)
	assert.Equal(t, "gpt-4o-mini", resp.Model)
	assert.Equal(t, 12, resp.PromptTokens)
	assert.Equal(t, 3, resp.CompletionTokens)

	assert.Equal(t, "gpt-4o-mini", captured["model"])
	assert.InDelta(t, 0.2, captured["temperature"], 0.001)

	messages := captured["messages"].([]any)
	content := messages[0].(map[string]any)["content"].(string)
	assert.Contains(t, content, "Summarize the incident")
	assert.Contains(t, content, `"severity":"low"`)
}

func TestCompleteStatusClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		kind   models.ErrorKind
	}{
		{"unauthorized", http.StatusUnauthorized, models.ErrorKindAuthentication},
		{"rate limited", http.StatusTooManyRequests, models.ErrorKindRateLimited},
		{"server error", http.StatusBadGateway, models.ErrorKindTemporary},
		{"bad request", http.StatusBadRequest, models.ErrorKindPermanent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			})

			_, err := client.Complete(context.Background(), executors.LLMRequest{
				Model: "gpt-4o-mini", Prompt: "hi",
			})
			require.Error(t, err)

			var nodeErr *models.NodeError
			require.True(t, errors.As(err, &nodeErr))
			assert.Equal(t, tt.kind, nodeErr.Kind)
		})
	}
}

func TestCompleteBackendError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "model not found", "type": "invalid_request_error"},
		})
	})

	_, err := client.Complete(context.Background(), executors.LLMRequest{
		Model: "nope", Prompt: "hi",
	})

	var nodeErr *models.NodeError
	require.True(t, errors.As(err, &nodeErr))
	assert.Equal(t, models.ErrorKindPermanent, nodeErr.Kind)
	assert.Contains(t, nodeErr.Message, "model not found")
}

func TestCompleteNoChoices(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	})

	_, err := client.Complete(context.Background(), executors.LLMRequest{
		Model: "gpt-4o-mini", Prompt: "hi",
	})

	var nodeErr *models.NodeError
	require.True(t, errors.As(err, &nodeErr))
	assert.Equal(t, models.ErrorKindPermanent, nodeErr.Kind)
}
