package adapters

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/weftworks/weft/pkg/models"
)

// AuthenticationError means the credential was rejected. Never retried;
// the fix is re-authorization, not repetition.
type AuthenticationError struct {
	Provider string
	Message  string
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("%s: authentication failed: %s", e.Provider, e.Message)
}

// RateLimitError means the provider throttled the call. Retryable after
// RetryAfter when the provider supplied one.
type RateLimitError struct {
	Provider   string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s: rate limited, retry after %s", e.Provider, e.RetryAfter)
	}

	return fmt.Sprintf("%s: rate limited", e.Provider)
}

// TemporaryError covers transient faults: 5xx responses, timeouts,
// connection resets. Retryable.
type TemporaryError struct {
	Provider string
	Message  string
	Err      error
}

func (e *TemporaryError) Error() string {
	return fmt.Sprintf("%s: temporary failure: %s", e.Provider, e.Message)
}

func (e *TemporaryError) Unwrap() error {
	return e.Err
}

// PermanentError covers faults retrying cannot fix: bad requests,
// missing resources, unsupported operations.
type PermanentError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *PermanentError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: permanent failure (status %d): %s", e.Provider, e.StatusCode, e.Message)
	}

	return fmt.Sprintf("%s: permanent failure: %s", e.Provider, e.Message)
}

// KindOf maps an adapter error onto the engine's retry taxonomy.
func KindOf(err error) models.ErrorKind {
	var (
		authErr *AuthenticationError
		rateErr *RateLimitError
		tempErr *TemporaryError
		permErr *PermanentError
	)

	switch {
	case errors.As(err, &authErr):
		return models.ErrorKindAuthentication
	case errors.As(err, &rateErr):
		return models.ErrorKindRateLimited
	case errors.As(err, &tempErr):
		return models.ErrorKindTemporary
	case errors.As(err, &permErr):
		return models.ErrorKindPermanent
	default:
		return models.ErrorKindInternal
	}
}

// statusError converts an HTTP response status into the typed taxonomy.
// Returns nil for 2xx.
func statusError(provider string, status int, retryAfter time.Duration, body string) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &AuthenticationError{Provider: provider, Message: body}
	case status == http.StatusTooManyRequests:
		return &RateLimitError{Provider: provider, RetryAfter: retryAfter}
	case status >= 500:
		return &TemporaryError{Provider: provider, Message: fmt.Sprintf("status %d: %s", status, body)}
	default:
		return &PermanentError{Provider: provider, StatusCode: status, Message: body}
	}
}
