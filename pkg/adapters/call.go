package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// doJSON performs one authenticated JSON request and decodes the response
// body. Transport failures become TemporaryError; non-2xx statuses go
// through statusError.
func doJSON(ctx context.Context, client *http.Client, provider, method, url, token string, payload any) (map[string]any, error) {
	var body io.Reader

	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, &PermanentError{Provider: provider, Message: fmt.Sprintf("encode request: %v", err)}
		}

		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, &PermanentError{Provider: provider, Message: fmt.Sprintf("build request: %v", err)}
	}

	req.Header.Set("Content-Type", "application/json")

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, &TemporaryError{Provider: provider, Message: err.Error(), Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &TemporaryError{Provider: provider, Message: "read response: " + err.Error(), Err: err}
	}

	if statusErr := statusError(provider, resp.StatusCode, parseRetryAfter(resp), string(raw)); statusErr != nil {
		return nil, statusErr
	}

	if len(raw) == 0 {
		return map[string]any{}, nil
	}

	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		// Some endpoints return bare arrays or text; wrap instead of failing.
		return map[string]any{"raw": string(raw)}, nil
	}

	return decoded, nil
}

func parseRetryAfter(resp *http.Response) time.Duration {
	header := resp.Header.Get("Retry-After")
	if header == "" {
		return 0
	}

	seconds, err := strconv.Atoi(header)
	if err != nil || seconds < 0 {
		return 0
	}

	return time.Duration(seconds) * time.Second
}

func stringParam(parameters map[string]any, key string) string {
	value, _ := parameters[key].(string)

	return value
}

func requireParam(provider string, parameters map[string]any, key string) (string, error) {
	value := stringParam(parameters, key)
	if value == "" {
		return "", &PermanentError{Provider: provider, Message: fmt.Sprintf("missing required parameter %q", key)}
	}

	return value, nil
}
