// Package llm talks to OpenAI-compatible chat completion backends. Any
// service exposing /v1/chat/completions works, which covers hosted APIs
// and local inference servers alike.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/weftworks/weft/pkg/adapters"
	"github.com/weftworks/weft/pkg/executors"
	"github.com/weftworks/weft/pkg/models"
)

const (
	defaultBaseURL  = "https://api.openai.com"
	maxResponseSize = 4 << 20
)

// Client implements executors.LLMClient over an OpenAI-compatible HTTP API.
type Client struct {
	client  *http.Client
	baseURL string
	apiKey  string
}

// NewClient builds a client. An empty baseURL targets the OpenAI API.
func NewClient(pool *adapters.ConnectionPool, baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &Client{client: pool.Client(), baseURL: baseURL, apiKey: apiKey}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Complete sends one chat completion. The node input, when present, is
// appended to the prompt as a JSON document so the model sees the data the
// workflow resolved.
func (c *Client) Complete(ctx context.Context, req executors.LLMRequest) (*executors.LLMResponse, error) {
	content := req.Prompt

	if len(req.Input) > 0 {
		encoded, err := json.Marshal(req.Input)
		if err != nil {
			return nil, &models.NodeError{
				Kind:    models.ErrorKindPermanent,
				Message: fmt.Sprintf("llm: failed to encode input: %v", err),
			}
		}

		content = fmt.Sprintf("%s\n\nInput:\n%s", req.Prompt, encoded)
	}

	payload := chatRequest{
		Model:    req.Model,
		Messages: []chatMessage{{Role: "user", Content: content}},
	}

	if temperature, ok := req.Options["temperature"].(float64); ok {
		payload.Temperature = temperature
	}

	if maxTokens, ok := req.Options["max_tokens"].(float64); ok {
		payload.MaxTokens = int(maxTokens)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &models.NodeError{
			Kind:    models.ErrorKindInternal,
			Message: fmt.Sprintf("llm: failed to encode request: %v", err),
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, &models.NodeError{
			Kind:    models.ErrorKindInternal,
			Message: fmt.Sprintf("llm: failed to build request: %v", err),
		}
	}

	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, &models.NodeError{
			Kind:    models.ErrorKindTemporary,
			Message: fmt.Sprintf("llm: request failed: %v", err),
		}
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, &models.NodeError{
			Kind:    models.ErrorKindTemporary,
			Message: fmt.Sprintf("llm: failed to read response: %v", err),
		}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus(resp.StatusCode, resp.Header.Get("Retry-After"), raw)
	}

	var decoded chatResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, &models.NodeError{
			Kind:    models.ErrorKindTemporary,
			Message: fmt.Sprintf("llm: malformed response: %v", err),
		}
	}

	if decoded.Error != nil {
		return nil, &models.NodeError{
			Kind:    models.ErrorKindPermanent,
			Message: fmt.Sprintf("llm: backend error: %s", decoded.Error.Message),
		}
	}

	if len(decoded.Choices) == 0 {
		return nil, &models.NodeError{
			Kind:    models.ErrorKindPermanent,
			Message: "llm: backend returned no choices",
		}
	}

	return &executors.LLMResponse{
		Content:          decoded.Choices[0].Message.Content,
		Model:            decoded.Model,
		PromptTokens:     decoded.Usage.PromptTokens,
		CompletionTokens: decoded.Usage.CompletionTokens,
	}, nil
}

func classifyStatus(status int, retryAfter string, body []byte) error {
	detail := string(body)
	if len(detail) > 256 {
		detail = detail[:256]
	}

	var cause error

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		cause = &adapters.AuthenticationError{Provider: "llm", Message: detail}
	case status == http.StatusTooManyRequests:
		var after time.Duration
		if seconds, err := time.ParseDuration(retryAfter + "s"); err == nil {
			after = seconds
		}

		cause = &adapters.RateLimitError{Provider: "llm", RetryAfter: after}
	case status >= 500:
		cause = &adapters.TemporaryError{Provider: "llm", Message: fmt.Sprintf("status %d: %s", status, detail)}
	default:
		cause = &adapters.PermanentError{Provider: "llm", StatusCode: status, Message: detail}
	}

	return &models.NodeError{Kind: adapters.KindOf(cause), Message: cause.Error()}
}
