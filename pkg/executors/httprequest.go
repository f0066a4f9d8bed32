package executors

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/weftworks/weft/pkg/models"
)

const defaultHTTPTimeout = 30 * time.Second

// HTTPRequestExecutor performs one HTTP call described by the node's
// parameters. 5xx responses and transport failures are temporary; 4xx are
// permanent, except 401/403 (authentication) and 429 (rate limited).
type HTTPRequestExecutor struct {
	client *http.Client
}

// NewHTTPRequestExecutor builds the executor on the given client. A nil
// client uses http.DefaultClient; per-node timeouts are applied through the
// request context either way.
func NewHTTPRequestExecutor(client *http.Client) *HTTPRequestExecutor {
	if client == nil {
		client = http.DefaultClient
	}

	return &HTTPRequestExecutor{client: client}
}

func (e *HTTPRequestExecutor) Execute(ctx context.Context, req Request) (*Outcome, error) {
	params := req.Node.Parameters

	url, _ := params["url"].(string)
	if url == "" {
		return nil, permanentError("http_request node %q missing url parameter", req.Node.ID)
	}

	method, _ := params["method"].(string)
	if method == "" {
		method = http.MethodGet
	}

	method = strings.ToUpper(method)

	timeout := defaultHTTPTimeout
	if seconds, ok := params["timeout_seconds"].(float64); ok && seconds > 0 {
		timeout = time.Duration(seconds * float64(time.Second))
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	body, err := e.requestBody(params)
	if err != nil {
		return nil, err
	}

	httpReq, buildErr := http.NewRequestWithContext(ctx, method, url, body)
	if buildErr != nil {
		return nil, permanentError("http_request node %q: invalid request: %v", req.Node.ID, buildErr)
	}

	httpReq.Header.Set("Content-Type", "application/json")

	if headers, ok := params["headers"].(map[string]any); ok {
		for key, value := range headers {
			if str, ok := value.(string); ok {
				httpReq.Header.Set(key, str)
			}
		}
	}

	resp, doErr := e.client.Do(httpReq)
	if doErr != nil {
		return nil, temporaryError("http_request node %q: %v", req.Node.ID, doErr)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	raw, readErr := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if readErr != nil {
		return nil, temporaryError("http_request node %q: read response: %v", req.Node.ID, readErr)
	}

	if classified := classifyHTTPStatus(resp.StatusCode); classified != "" {
		return nil, &models.NodeError{
			Message: fmt.Sprintf("http_request node %q: status %d: %s", req.Node.ID, resp.StatusCode, truncate(string(raw), 512)),
			Kind:    classified,
		}
	}

	return &Outcome{
		Status:     models.NodeStatusSuccess,
		OutputData: decodeResponse(resp, raw),
	}, nil
}

func (e *HTTPRequestExecutor) requestBody(params map[string]any) (io.Reader, error) {
	raw, present := params["body"]
	if !present {
		return nil, nil
	}

	switch value := raw.(type) {
	case string:
		return strings.NewReader(value), nil
	default:
		encoded, err := json.Marshal(value)
		if err != nil {
			return nil, permanentError("http_request body is not serializable: %v", err)
		}

		return bytes.NewReader(encoded), nil
	}
}

// classifyHTTPStatus returns the error kind for a failed status, or "" for
// success.
func classifyHTTPStatus(status int) models.ErrorKind {
	switch {
	case status >= 200 && status < 400:
		return ""
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return models.ErrorKindAuthentication
	case status == http.StatusTooManyRequests:
		return models.ErrorKindRateLimited
	case status >= 500:
		return models.ErrorKindTemporary
	default:
		return models.ErrorKindPermanent
	}
}

func decodeResponse(resp *http.Response, raw []byte) map[string]any {
	output := map[string]any{
		"status_code": resp.StatusCode,
		"headers":     flattenHeaders(resp.Header),
	}

	var decoded any
	if err := json.Unmarshal(raw, &decoded); err == nil {
		output["body"] = decoded
	} else {
		output["body"] = string(raw)
	}

	return output
}

func flattenHeaders(header http.Header) map[string]string {
	flat := make(map[string]string, len(header))
	for key := range header {
		flat[key] = header.Get(key)
	}

	return flat
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}

	return s[:max] + "..."
}
