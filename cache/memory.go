package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryBackend is an in-memory backend implementation. It is intended
// for tests and single-process deployments; production setups share a
// RedisBackend.
type MemoryBackend struct {
	mu      sync.RWMutex
	entries map[string]*memoryEntry
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// NewMemoryBackend creates a new in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		entries: make(map[string]*memoryEntry),
	}
}

// Get retrieves a value. Returns (nil, false, nil) on miss or expiry.
func (b *MemoryBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	b.mu.RLock()
	entry, ok := b.entries[key]
	b.mu.RUnlock()

	if !ok {
		return nil, false, nil
	}

	// Check expiry
	if time.Now().After(entry.expiresAt) {
		// Expired - clean up lazily
		b.mu.Lock()
		delete(b.entries, key)
		b.mu.Unlock()
		return nil, false, nil
	}

	return entry.value, true, nil
}

// Set stores a value with the given TTL. TTL=0 means immediate expiry (no caching).
func (b *MemoryBackend) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	// TTL=0 means don't cache
	if ttl <= 0 {
		return nil
	}

	b.mu.Lock()
	b.entries[key] = &memoryEntry{
		value:     value,
		expiresAt: time.Now().Add(ttl),
	}
	b.mu.Unlock()

	return nil
}

// Delete removes a value. Idempotent - no error on miss.
func (b *MemoryBackend) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	delete(b.entries, key)
	b.mu.Unlock()
	return nil
}

// Ping always succeeds for the in-memory backend.
func (b *MemoryBackend) Ping(_ context.Context) error {
	return nil
}

// Ensure MemoryBackend implements Backend
var _ Backend = (*MemoryBackend)(nil)
