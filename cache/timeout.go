package cache

import (
	"context"
	"time"
)

// timeoutBackend bounds every backend operation with a deadline. A
// timed-out operation surfaces as a backend error, which callers treat
// as cache-unavailable rather than a request failure.
type timeoutBackend struct {
	next    Backend
	timeout time.Duration
}

// WithTimeout decorates a backend with a per-operation deadline.
// A non-positive timeout returns the backend unchanged.
func WithTimeout(next Backend, timeout time.Duration) Backend {
	if timeout <= 0 {
		return next
	}
	return &timeoutBackend{next: next, timeout: timeout}
}

func (b *timeoutBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	return b.next.Get(ctx, key)
}

func (b *timeoutBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	return b.next.Set(ctx, key, value, ttl)
}

func (b *timeoutBackend) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	return b.next.Delete(ctx, key)
}

func (b *timeoutBackend) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	return b.next.Ping(ctx)
}

var _ Backend = (*timeoutBackend)(nil)
