// Package gcp holds the pieces shared by the Google Cloud service adapters.
package gcp

import (
	"context"
	"sync"

	"google.golang.org/api/option"
	"google.golang.org/grpc"
)

// Handle lazily constructs a client on first use and keeps it for the life of
// the process. A failed construction is not cached, so the next Get retries.
type Handle[T any] struct {
	mu     sync.Mutex
	client T
	ready  bool
	dial   func(ctx context.Context) (T, error)
	close  func(T) error
}

// NewHandle returns a handle that dials with dial and releases with closeFn.
func NewHandle[T any](dial func(ctx context.Context) (T, error), closeFn func(T) error) *Handle[T] {
	return &Handle[T]{dial: dial, close: closeFn}
}

// Get returns the client, dialing it if needed.
func (h *Handle[T]) Get(ctx context.Context) (T, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.ready {
		return h.client, nil
	}
	c, err := h.dial(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	h.client = c
	h.ready = true
	return c, nil
}

// Close releases the client if it was ever dialed.
func (h *Handle[T]) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.ready || h.close == nil {
		return nil
	}
	h.ready = false
	return h.close(h.client)
}

// ClientConfig is the connection setup shared by every Google client.
type ClientConfig struct {
	ProjectID       string
	CredentialsFile string
	Endpoint        string
	Interceptor     grpc.UnaryClientInterceptor
}

// Options converts the config into client options.
func (c ClientConfig) Options() []option.ClientOption {
	var opts []option.ClientOption
	if c.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(c.CredentialsFile))
	}
	if c.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(c.Endpoint))
	}
	if c.Interceptor != nil {
		opts = append(opts, option.WithGRPCDialOption(grpc.WithChainUnaryInterceptor(c.Interceptor)))
	}
	return opts
}
