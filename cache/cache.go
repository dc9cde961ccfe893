package cache

import (
	"context"
	"errors"
	"strings"
	"time"
)

// MaxKeyLength is the maximum allowed length for a cache key.
const MaxKeyLength = 512

// Sentinel errors for cache operations.
var (
	ErrNilBackend     = errors.New("cache: backend is nil")
	ErrInvalidKey     = errors.New("cache: key is invalid")
	ErrKeyTooLong     = errors.New("cache: key exceeds max length")
	ErrUnusableParams = errors.New("cache: params contain nothing serializable")
)

// Backend is the interface to the shared key-value store holding cache
// and jail entries.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: methods must honor cancellation/deadlines.
// - Errors: Get returns (nil, false, nil) on a plain miss; a non-nil
//   error means the backend itself failed and callers must fail open.
type Backend interface {
	// Get retrieves a stored value. Returns (nil, false, nil) on miss.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value with the given TTL. TTL=0 means no caching.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value. Idempotent - no error on miss.
	Delete(ctx context.Context, key string) error

	// Ping checks backend reachability.
	Ping(ctx context.Context) error
}

// ValidateKey checks if a key is valid for caching.
func ValidateKey(key string) error {
	if key == "" || strings.TrimSpace(key) == "" {
		return ErrInvalidKey
	}
	if len(key) > MaxKeyLength {
		return ErrKeyTooLong
	}
	// Reject keys with newlines or carriage returns
	if strings.ContainsAny(key, "\n\r") {
		return ErrInvalidKey
	}
	return nil
}

// TruncateKey shortens a key for log output. Keys are hashes; the first
// few characters identify an entry well enough for operators.
func TruncateKey(key string, max int) string {
	if max <= 0 || len(key) <= max {
		return key
	}
	return key[:max] + "..."
}
