package cache

import (
	"context"
	"time"

	"github.com/jonwraymond/aicache/metrics"
	"github.com/jonwraymond/aicache/response"
	"github.com/jonwraymond/aicache/telemetry"
)

// Store persists response envelopes against the backend.
//
// Contract:
// - Errors: no Store operation ever propagates an error. A failed write
//   degrades to "response returned uncached"; a failed or malformed
//   read degrades to a miss. Failures are logged and counted.
// - Concurrency: safe for concurrent use; concurrent writers to the
//   same key are last-write-wins.
type Store struct {
	backend   Backend
	ttl       time.Duration
	collector *metrics.Collector
	logger    telemetry.Logger
	maxKeyLog int
}

// StoreOptions configures a Store.
type StoreOptions struct {
	// TTL is the lifetime of a stored envelope. Defaults to 24h.
	TTL time.Duration

	// Collector receives store/error recordings. May be nil.
	Collector *metrics.Collector

	// Logger receives diagnostics. Defaults to a no-op logger.
	Logger telemetry.Logger

	// MaxKeyLogLength truncates keys in log output. Defaults to 20.
	MaxKeyLogLength int
}

// NewStore creates a Store over the given backend.
func NewStore(backend Backend, opts StoreOptions) *Store {
	if opts.TTL <= 0 {
		opts.TTL = 24 * time.Hour
	}
	if opts.Logger == nil {
		opts.Logger = telemetry.NopLogger()
	}
	if opts.MaxKeyLogLength <= 0 {
		opts.MaxKeyLogLength = 20
	}
	return &Store{
		backend:   backend,
		ttl:       opts.TTL,
		collector: opts.Collector,
		logger:    opts.Logger.With("cache.store"),
		maxKeyLog: opts.MaxKeyLogLength,
	}
}

// TTL returns the configured envelope lifetime.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// Save materializes the response and writes it under key with the
// configured TTL. promoted marks writes coming out of the jail.
func (s *Store) Save(ctx context.Context, key string, resp *response.Response, promoted bool) {
	if err := ValidateKey(key); err != nil {
		s.fail(ctx, key, "validate", err)
		return
	}

	env := NewEnvelope(resp)
	data, err := env.Marshal()
	if err != nil {
		s.fail(ctx, key, "serialize", err)
		return
	}

	if err := s.backend.Set(ctx, key, data, s.ttl); err != nil {
		s.fail(ctx, key, "set", err)
		return
	}

	s.collector.RecordStore(ctx, key, len(data), promoted)
	s.logger.Debug(ctx, "stored response",
		telemetry.Field{Key: "key", Value: TruncateKey(key, s.maxKeyLog)},
		telemetry.Field{Key: "size", Value: len(data)},
		telemetry.Field{Key: "promoted", Value: promoted},
	)
}

// Get reads the envelope under key. Returns (nil, false) on miss,
// backend failure, or malformed data; the last two are logged and
// counted so the caller can simply fall through to the real call.
func (s *Store) Get(ctx context.Context, key string) (*Envelope, bool) {
	if err := ValidateKey(key); err != nil {
		return nil, false
	}

	data, ok, err := s.backend.Get(ctx, key)
	if err != nil {
		s.fail(ctx, key, "get", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}

	env, err := UnmarshalEnvelope(data)
	if err != nil {
		// A corrupt entry is a miss; let the TTL reap it.
		s.fail(ctx, key, "deserialize", err)
		return nil, false
	}

	return env, true
}

func (s *Store) fail(ctx context.Context, key, op string, err error) {
	s.collector.RecordError(ctx, key, op, err)
	s.logger.Warn(ctx, "cache "+op+" failed",
		telemetry.Field{Key: "key", Value: TruncateKey(key, s.maxKeyLog)},
		telemetry.Field{Key: "error", Value: err.Error()},
	)
}
