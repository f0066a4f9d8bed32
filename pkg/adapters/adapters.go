// Package adapters defines the uniform contract for external integrations
// (Slack, GitHub, Google Calendar, email) and the typed error taxonomy the
// engine's retry policy inspects. The engine looks adapters up by provider
// name and treats them all identically.
package adapters

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Credentials is the opaque credential material an adapter needs. Keys are
// adapter-specific ("access_token", "username", ...); the engine never
// inspects them.
type Credentials map[string]string

// ErrNoCredential is returned by a resolver when the user has no valid
// credential for the provider.
var ErrNoCredential = errors.New("no credential available for provider")

// CredentialResolver supplies valid, non-expired credentials. OAuth flows
// and token refresh happen behind this interface.
type CredentialResolver interface {
	Resolve(ctx context.Context, userID, provider string) (Credentials, error)
}

// StaticCredentials is a resolver backed by a fixed (user, provider) map.
// Useful for tests and single-tenant deployments.
type StaticCredentials map[string]Credentials

func (s StaticCredentials) Resolve(_ context.Context, userID, provider string) (Credentials, error) {
	creds, ok := s[userID+"/"+provider]
	if !ok {
		return nil, fmt.Errorf("user %q provider %q: %w", userID, provider, ErrNoCredential)
	}

	return creds, nil
}

// Adapter executes one provider's operations.
type Adapter interface {
	// Provider returns the registry key, e.g. "slack".
	Provider() string
	// Call performs one operation. Failures are reported through the typed
	// taxonomy in this package so the retry policy can classify them.
	Call(ctx context.Context, operation string, parameters map[string]any, credentials Credentials) (map[string]any, error)
}

// Registry maps provider names to adapters. Safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
}

// NewRegistry returns an empty adapter registry.
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]Adapter)}
}

// Register adds an adapter under its provider name.
func (r *Registry) Register(a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[a.Provider()] = a
}

// Get returns the adapter for the given provider name.
func (r *Registry) Get(provider string) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.adapters[provider]
	if !ok {
		return nil, fmt.Errorf("no adapter registered for provider %q", provider)
	}

	return a, nil
}

// Providers lists the registered provider names.
func (r *Registry) Providers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}

	return names
}
