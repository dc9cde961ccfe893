package health

import (
	"context"
	"time"

	"github.com/jonwraymond/aicache/cache"
)

// DefaultCheckTimeout bounds a single backend ping.
const DefaultCheckTimeout = 2 * time.Second

// BackendChecker checks reachability of the cache backend.
type BackendChecker struct {
	backend cache.Backend
	timeout time.Duration
}

// NewBackendChecker creates a checker that pings the given backend.
// A non-positive timeout uses DefaultCheckTimeout.
func NewBackendChecker(backend cache.Backend, timeout time.Duration) *BackendChecker {
	if timeout <= 0 {
		timeout = DefaultCheckTimeout
	}
	return &BackendChecker{backend: backend, timeout: timeout}
}

// Check pings the backend with the configured timeout.
func (c *BackendChecker) Check(ctx context.Context) Result {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	err := c.backend.Ping(ctx)
	duration := time.Since(start)

	var result Result
	if err != nil {
		result = Unhealthy("cache backend unreachable", err)
	} else {
		result = Healthy("cache backend reachable")
	}
	result.Duration = duration
	return result
}

// Ensure BackendChecker implements Checker
var _ Checker = (*BackendChecker)(nil)
