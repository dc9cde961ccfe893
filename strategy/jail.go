package strategy

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/jonwraymond/aicache/cache"
	"github.com/jonwraymond/aicache/metrics"
	"github.com/jonwraymond/aicache/response"
	"github.com/jonwraymond/aicache/telemetry"
)

// JailEntry tracks repeated problematic responses for one key. Count
// only increases until the entry is promoted or its TTL lapses.
type JailEntry struct {
	Count        int             `json:"count"`
	FirstSeen    time.Time       `json:"firstSeen"`
	LastSeen     time.Time       `json:"lastSeen"`
	LastResponse ResponseSummary `json:"lastResponse"`
}

// ResponseSummary is the compact shape of the most recent problematic
// response held in a jail entry.
type ResponseSummary struct {
	FinishReason response.FinishReason `json:"finishReason"`
	HasWarnings  bool                  `json:"hasWarnings"`
	TextLength   int                   `json:"textLength"`
}

// Jail quarantines keys whose responses look degraded but not yet
// provably stable. A single content-filter hit is likely input-specific
// noise; repeated problematic hits for the same key within the sliding
// TTL window mean the model stably returns this degraded result, so
// further retries are wasted cost.
//
// Contract:
// - Errors: RecordProblematic never propagates an error.
// - Concurrency: safe for concurrent use; concurrent updates to the
//   same entry are last-write-wins.
type Jail struct {
	backend   cache.Backend
	store     *cache.Store
	prefix    string
	threshold int
	ttl       time.Duration
	collector *metrics.Collector
	logger    telemetry.Logger
	maxKeyLog int
}

// JailOptions configures a Jail.
type JailOptions struct {
	// KeyPrefix namespaces jail keys. Defaults to "ai-jail".
	KeyPrefix string

	// Threshold is the problematic-hit count that triggers promotion.
	// Defaults to 3.
	Threshold int

	// TTL is the sliding lifetime of a jail entry; every update
	// refreshes it. Defaults to 24h.
	TTL time.Duration

	// Collector receives jail recordings. May be nil.
	Collector *metrics.Collector

	// Logger receives diagnostics. Defaults to a no-op logger.
	Logger telemetry.Logger

	// MaxKeyLogLength truncates keys in log output. Defaults to 20.
	MaxKeyLogLength int
}

// NewJail creates a Jail that promotes entries into the given store.
func NewJail(backend cache.Backend, store *cache.Store, opts JailOptions) *Jail {
	if opts.KeyPrefix == "" {
		opts.KeyPrefix = "ai-jail"
	}
	if opts.Threshold <= 0 {
		opts.Threshold = 3
	}
	if opts.TTL <= 0 {
		opts.TTL = 24 * time.Hour
	}
	if opts.Logger == nil {
		opts.Logger = telemetry.NopLogger()
	}
	if opts.MaxKeyLogLength <= 0 {
		opts.MaxKeyLogLength = 20
	}
	return &Jail{
		backend:   backend,
		store:     store,
		prefix:    opts.KeyPrefix,
		threshold: opts.Threshold,
		ttl:       opts.TTL,
		collector: opts.Collector,
		logger:    opts.Logger.With("cache.jail"),
		maxKeyLog: opts.MaxKeyLogLength,
	}
}

// Threshold returns the promotion threshold.
func (j *Jail) Threshold() int {
	return j.threshold
}

// RecordProblematic counts a problematic response for key and, once the
// count crosses the threshold, promotes the current response into the
// cache. The jail entry is left to expire naturally after promotion.
func (j *Jail) RecordProblematic(ctx context.Context, key string, resp *response.Response) {
	jailKey := j.jailKey(key)
	now := time.Now().UTC()

	entry := j.load(ctx, jailKey, now)
	entry.Count++
	entry.LastSeen = now
	entry.LastResponse = summarize(resp)

	data, err := json.Marshal(entry)
	if err != nil {
		j.fail(ctx, key, "serialize", err)
		return
	}

	// Sliding window: every update refreshes the TTL.
	if err := j.backend.Set(ctx, jailKey, data, j.ttl); err != nil {
		j.fail(ctx, key, "set", err)
		return
	}

	j.collector.RecordJailUpdate(ctx, key, entry.Count)
	j.logger.Debug(ctx, "jail entry updated",
		telemetry.Field{Key: "key", Value: cache.TruncateKey(key, j.maxKeyLog)},
		telemetry.Field{Key: "count", Value: entry.Count},
		telemetry.Field{Key: "threshold", Value: j.threshold},
	)

	if entry.Count >= j.threshold {
		j.store.Save(ctx, key, resp, true)
		j.collector.RecordJailPromotion(ctx, key, entry.Count)
		j.logger.Info(ctx, "jail entry promoted to cache",
			telemetry.Field{Key: "key", Value: cache.TruncateKey(key, j.maxKeyLog)},
			telemetry.Field{Key: "count", Value: entry.Count},
		)
	}
}

// load reads the jail entry for jailKey, returning a fresh entry on
// miss, backend failure, or corrupt data.
func (j *Jail) load(ctx context.Context, jailKey string, now time.Time) JailEntry {
	fresh := JailEntry{FirstSeen: now}

	data, ok, err := j.backend.Get(ctx, jailKey)
	if err != nil {
		j.fail(ctx, jailKey, "get", err)
		return fresh
	}
	if !ok {
		return fresh
	}

	var entry JailEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		// Corrupt entry: restart the count rather than guess.
		j.fail(ctx, jailKey, "deserialize", err)
		return fresh
	}
	return entry
}

// jailKey maps a cache key into the jail namespace by swapping the
// prefix in front of the hash.
func (j *Jail) jailKey(cacheKey string) string {
	if i := strings.LastIndex(cacheKey, ":"); i >= 0 {
		return j.prefix + cacheKey[i:]
	}
	return j.prefix + ":" + cacheKey
}

func (j *Jail) fail(ctx context.Context, key, op string, err error) {
	j.collector.RecordError(ctx, key, "jail_"+op, err)
	j.logger.Warn(ctx, "jail "+op+" failed",
		telemetry.Field{Key: "key", Value: cache.TruncateKey(key, j.maxKeyLog)},
		telemetry.Field{Key: "error", Value: err.Error()},
	)
}

func summarize(resp *response.Response) ResponseSummary {
	if resp == nil {
		return ResponseSummary{}
	}
	return ResponseSummary{
		FinishReason: resp.FinishReason,
		HasWarnings:  len(resp.Warnings) > 0,
		TextLength:   len(resp.Text()),
	}
}
