package strategy

import (
	"context"

	"github.com/jonwraymond/aicache/cache"
	"github.com/jonwraymond/aicache/response"
	"github.com/jonwraymond/aicache/telemetry"
)

// Strategy routes a classified live response to the cache store, the
// jail, or nowhere. It is invoked after every live (non-hit) call.
//
// Contract:
// - Errors: Handle never propagates an error; every branch carries its
//   own error handling.
type Strategy struct {
	store     *cache.Store
	jail      *Jail
	logger    telemetry.Logger
	maxKeyLog int
}

// StrategyOptions configures a Strategy.
type StrategyOptions struct {
	// Logger receives diagnostics. Defaults to a no-op logger.
	Logger telemetry.Logger

	// MaxKeyLogLength truncates keys in log output. Defaults to 20.
	MaxKeyLogLength int
}

// NewStrategy creates the orchestrator over the given store and jail.
func NewStrategy(store *cache.Store, jail *Jail, opts StrategyOptions) *Strategy {
	if opts.Logger == nil {
		opts.Logger = telemetry.NopLogger()
	}
	if opts.MaxKeyLogLength <= 0 {
		opts.MaxKeyLogLength = 20
	}
	return &Strategy{
		store:     store,
		jail:      jail,
		logger:    opts.Logger.With("cache.strategy"),
		maxKeyLog: opts.MaxKeyLogLength,
	}
}

// Handle classifies resp and stores, jails, or ignores it.
func (s *Strategy) Handle(ctx context.Context, key string, resp *response.Response) {
	switch Classify(resp) {
	case Successful:
		s.store.Save(ctx, key, resp, false)
	case Problematic:
		s.jail.RecordProblematic(ctx, key, resp)
	default:
		var reason response.FinishReason
		if resp != nil {
			reason = resp.FinishReason
		}
		s.logger.Debug(ctx, "not caching response",
			telemetry.Field{Key: "key", Value: cache.TruncateKey(key, s.maxKeyLog)},
			telemetry.Field{Key: "finishReason", Value: string(reason)},
		)
	}
}
