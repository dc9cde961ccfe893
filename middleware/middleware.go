package middleware

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/jonwraymond/aicache/cache"
	"github.com/jonwraymond/aicache/config"
	"github.com/jonwraymond/aicache/metrics"
	"github.com/jonwraymond/aicache/response"
	"github.com/jonwraymond/aicache/strategy"
	"github.com/jonwraymond/aicache/telemetry"
)

// Middleware wraps model calls with the response cache.
//
// Contract:
// - Concurrency: safe for concurrent use; concurrent identical misses
//   on the generate path collapse to one real call per key per flight.
// - Errors: cache failures never surface to the caller; the wrapped
//   function's errors pass through unchanged.
type Middleware struct {
	keyer     *cache.Keyer
	store     *cache.Store
	strat     *strategy.Strategy
	collector *metrics.Collector
	logger    telemetry.Logger
	tracer    trace.Tracer
	chunkSize int
	maxKeyLog int

	group singleflight.Group
}

// Options configures a Middleware.
type Options struct {
	// Backend is the shared key-value store. Required.
	Backend cache.Backend

	// Config holds cache tunables. Zero value uses config.Default().
	Config config.Config

	// Collector receives hit/miss/store/jail recordings. May be nil.
	Collector *metrics.Collector

	// Logger receives diagnostics. Defaults to a no-op logger.
	Logger telemetry.Logger

	// Tracer, when set, opens a span around each wrapped call.
	Tracer trace.Tracer
}

// New creates a Middleware over the given backend, wiring up the keyer,
// store, jail, and strategy from the configuration.
func New(opts Options) (*Middleware, error) {
	if opts.Backend == nil {
		return nil, cache.ErrNilBackend
	}

	cfg := opts.Config
	if cfg == (config.Config{}) {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil || !cfg.LoggingEnabled {
		logger = telemetry.NopLogger()
	}

	collector := opts.Collector
	if !cfg.MetricsEnabled {
		collector = nil
	}

	backend := cache.WithTimeout(opts.Backend, cfg.BackendTimeout)

	store := cache.NewStore(backend, cache.StoreOptions{
		TTL:             cfg.CacheTTL,
		Collector:       collector,
		Logger:          logger,
		MaxKeyLogLength: cfg.MaxKeyLogLength,
	})

	jail := strategy.NewJail(backend, store, strategy.JailOptions{
		KeyPrefix:       cfg.JailKeyPrefix,
		Threshold:       cfg.JailThreshold,
		TTL:             cfg.JailTTL,
		Collector:       collector,
		Logger:          logger,
		MaxKeyLogLength: cfg.MaxKeyLogLength,
	})

	strat := strategy.NewStrategy(store, jail, strategy.StrategyOptions{
		Logger:          logger,
		MaxKeyLogLength: cfg.MaxKeyLogLength,
	})

	return &Middleware{
		keyer:     cache.NewKeyer(cfg.KeyPrefix),
		store:     store,
		strat:     strat,
		collector: collector,
		logger:    logger.With("cache.middleware"),
		tracer:    opts.Tracer,
		chunkSize: cfg.StreamChunkSize,
		maxKeyLog: cfg.MaxKeyLogLength,
	}, nil
}

// WrapGenerate wraps a single-shot model call with the cache.
func (m *Middleware) WrapGenerate(fn response.GenerateFunc) response.GenerateFunc {
	return func(ctx context.Context, call response.Call) (*response.Response, error) {
		ctx, span := m.startSpan(ctx, "ai.cache.generate", call.ModelID)

		key, err := m.keyer.Derive(call.ModelID, call.Params)
		if err != nil || key == "" {
			// Caching unavailable for this call; pass straight through.
			m.logger.Debug(ctx, "key derivation failed, caching disabled for call",
				telemetry.Field{Key: "modelId", Value: call.ModelID},
			)
			resp, err := fn(ctx, call)
			m.endSpan(span, false, err)
			return resp, err
		}

		if env, ok := m.store.Get(ctx, key); ok {
			resp := env.Restore()
			m.mask(resp)
			m.collector.RecordHit(ctx, key, len(env.Text))
			m.logger.Debug(ctx, "cache hit",
				telemetry.Field{Key: "key", Value: cache.TruncateKey(key, m.maxKeyLog)},
			)
			m.endSpan(span, true, nil)
			return resp, nil
		}

		m.collector.RecordMiss(ctx, key)

		// Concurrent identical misses share one real call per flight.
		v, err, shared := m.group.Do(key, func() (any, error) {
			resp, err := fn(ctx, call)
			if err != nil {
				return nil, err
			}
			m.strat.Handle(ctx, key, resp)
			return resp, nil
		})
		if err != nil {
			m.endSpan(span, false, err)
			return nil, err
		}

		resp := v.(*response.Response)
		if shared {
			// Followers get their own copy so per-caller masking of the
			// leader's result stays safe.
			cp := *resp
			m.mask(&cp)
			resp = &cp
		}
		m.endSpan(span, false, nil)
		return resp, nil
	}
}

// mask rewrites response identity so two hits never share an id or
// timestamp.
func (m *Middleware) mask(resp *response.Response) {
	resp.Meta.Timestamp = time.Now().UTC()
	suffix := uuid.NewString()[:8]
	if resp.Meta.ID != "" {
		resp.Meta.ID = resp.Meta.ID + "-" + suffix
	} else {
		resp.Meta.ID = uuid.NewString()
	}
}

func (m *Middleware) startSpan(ctx context.Context, name, modelID string) (context.Context, trace.Span) {
	if m.tracer == nil {
		return ctx, nil
	}
	return m.tracer.Start(ctx, name,
		trace.WithAttributes(attribute.String("model.id", modelID)),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

func (m *Middleware) endSpan(span trace.Span, hit bool, err error) {
	if span == nil {
		return
	}
	span.SetAttributes(attribute.Bool("cache.hit", hit))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
