// Package cache provides key derivation, the key-value backend
// abstraction, and the fail-open envelope store for model responses.
//
// It provides a Backend interface with memory and Redis implementations,
// SHA-256-based key derivation, and a Store that persists response
// envelopes with TTL without ever propagating backend failures.
package cache
