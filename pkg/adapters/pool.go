package adapters

import (
	"net/http"
	"time"
)

const defaultCallTimeout = 30 * time.Second

// ConnectionPool owns the HTTP client shared by the adapters. It is built
// once per process and injected; adapters never reach for a package-level
// client.
type ConnectionPool struct {
	client *http.Client
}

// NewConnectionPool builds a pool with a shared keep-alive transport.
// A non-positive timeout falls back to the default.
func NewConnectionPool(timeout time.Duration) *ConnectionPool {
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}

	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}

	return &ConnectionPool{
		client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}
}

// Client returns the shared HTTP client.
func (p *ConnectionPool) Client() *http.Client {
	return p.client
}

// Close releases idle connections held by the pool.
func (p *ConnectionPool) Close() {
	if transport, ok := p.client.Transport.(*http.Transport); ok {
		transport.CloseIdleConnections()
	}
}
