package adapters

import (
	"context"
	"fmt"
	"net/http"
)

const slackDefaultBaseURL = "https://slack.com/api"

// SlackAdapter calls the Slack Web API.
type SlackAdapter struct {
	pool    *ConnectionPool
	baseURL string
}

// NewSlackAdapter builds a Slack adapter on the given pool. An empty
// baseURL uses the public Slack API.
func NewSlackAdapter(pool *ConnectionPool, baseURL string) *SlackAdapter {
	if baseURL == "" {
		baseURL = slackDefaultBaseURL
	}

	return &SlackAdapter{pool: pool, baseURL: baseURL}
}

func (a *SlackAdapter) Provider() string { return "slack" }

func (a *SlackAdapter) Call(ctx context.Context, operation string, parameters map[string]any, credentials Credentials) (map[string]any, error) {
	token := credentials["access_token"]
	if token == "" {
		return nil, &AuthenticationError{Provider: a.Provider(), Message: "credentials missing access_token"}
	}

	switch operation {
	case "send_message":
		return a.sendMessage(ctx, parameters, token)
	case "list_channels":
		return doJSON(ctx, a.pool.Client(), a.Provider(), http.MethodGet, a.baseURL+"/conversations.list", token, nil)
	default:
		return nil, &PermanentError{Provider: a.Provider(), Message: fmt.Sprintf("unsupported operation %q", operation)}
	}
}

func (a *SlackAdapter) sendMessage(ctx context.Context, parameters map[string]any, token string) (map[string]any, error) {
	channel, err := requireParam(a.Provider(), parameters, "channel")
	if err != nil {
		return nil, err
	}

	text, err := requireParam(a.Provider(), parameters, "text")
	if err != nil {
		return nil, err
	}

	payload := map[string]any{"channel": channel, "text": text}
	if threadTS := stringParam(parameters, "thread_ts"); threadTS != "" {
		payload["thread_ts"] = threadTS
	}

	result, err := doJSON(ctx, a.pool.Client(), a.Provider(), http.MethodPost, a.baseURL+"/chat.postMessage", token, payload)
	if err != nil {
		return nil, err
	}

	// Slack reports API-level failures with 200 plus ok=false.
	if ok, present := result["ok"].(bool); present && !ok {
		return nil, a.classifySlackError(result)
	}

	return result, nil
}

func (a *SlackAdapter) classifySlackError(result map[string]any) error {
	code, _ := result["error"].(string)

	switch code {
	case "invalid_auth", "token_revoked", "token_expired", "not_authed", "account_inactive":
		return &AuthenticationError{Provider: a.Provider(), Message: code}
	case "ratelimited", "rate_limited":
		return &RateLimitError{Provider: a.Provider()}
	default:
		return &PermanentError{Provider: a.Provider(), Message: code}
	}
}
