package metrics

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// DefaultEventCapacity is the default size of the event ring buffer.
const DefaultEventCapacity = 1000

// Snapshot is a point-in-time view of the collector's counters and
// gauges.
type Snapshot struct {
	Hits            uint64  `json:"hits"`
	Misses          uint64  `json:"misses"`
	Stores          uint64  `json:"stores"`
	JailUpdates     uint64  `json:"jailUpdates"`
	JailPromotions  uint64  `json:"jailPromotions"`
	Errors          uint64  `json:"errors"`
	HitRate         float64 `json:"hitRate"`
	AvgResponseSize float64 `json:"avgResponseSize"`
}

// Options configures a Collector.
type Options struct {
	// EventCapacity bounds the event ring buffer. Defaults to
	// DefaultEventCapacity when zero or negative.
	EventCapacity int

	// Meter, when set, mirrors every recording into OpenTelemetry
	// instruments so a configured exporter (e.g. prometheus) can serve
	// them.
	Meter metric.Meter
}

// Collector records cache activity.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Errors: Record methods never panic and never return errors; a
//   panicking subscriber must not break recording.
type Collector struct {
	mu sync.Mutex

	snap     Snapshot
	sizedHit uint64  // hits that carried a known size
	sizeSum  float64 // running sum for the average gauge

	ring *eventRing

	eventSubs  []func(Event)
	metricSubs []func(Snapshot)

	inst *instruments
}

// instruments are the OpenTelemetry mirrors of the collector state.
type instruments struct {
	hits           metric.Int64Counter
	misses         metric.Int64Counter
	stores         metric.Int64Counter
	jailUpdates    metric.Int64Counter
	jailPromotions metric.Int64Counter
	errors         metric.Int64Counter
	hitRate        metric.Float64Gauge
	avgSize        metric.Float64Gauge
	responseSize   metric.Int64Histogram
}

// New creates a Collector. The error is non-nil only when OpenTelemetry
// instrument creation fails.
func New(opts Options) (*Collector, error) {
	capacity := opts.EventCapacity
	if capacity <= 0 {
		capacity = DefaultEventCapacity
	}

	c := &Collector{ring: newEventRing(capacity)}

	if opts.Meter != nil {
		inst, err := newInstruments(opts.Meter)
		if err != nil {
			return nil, err
		}
		c.inst = inst
	}

	return c, nil
}

func newInstruments(meter metric.Meter) (*instruments, error) {
	var inst instruments
	var err error

	if inst.hits, err = meter.Int64Counter(
		"ai.cache.hits",
		metric.WithDescription("Total number of cache hits"),
		metric.WithUnit("{hit}"),
	); err != nil {
		return nil, err
	}

	if inst.misses, err = meter.Int64Counter(
		"ai.cache.misses",
		metric.WithDescription("Total number of cache misses"),
		metric.WithUnit("{miss}"),
	); err != nil {
		return nil, err
	}

	if inst.stores, err = meter.Int64Counter(
		"ai.cache.stores",
		metric.WithDescription("Total number of cache stores"),
		metric.WithUnit("{store}"),
	); err != nil {
		return nil, err
	}

	if inst.jailUpdates, err = meter.Int64Counter(
		"ai.cache.jail_updates",
		metric.WithDescription("Total number of jail entry updates"),
		metric.WithUnit("{update}"),
	); err != nil {
		return nil, err
	}

	if inst.jailPromotions, err = meter.Int64Counter(
		"ai.cache.jail_promotions",
		metric.WithDescription("Total number of jail-to-cache promotions"),
		metric.WithUnit("{promotion}"),
	); err != nil {
		return nil, err
	}

	if inst.errors, err = meter.Int64Counter(
		"ai.cache.errors",
		metric.WithDescription("Total number of cache subsystem errors"),
		metric.WithUnit("{error}"),
	); err != nil {
		return nil, err
	}

	if inst.hitRate, err = meter.Float64Gauge(
		"ai.cache.hit_rate",
		metric.WithDescription("Hits over hits plus misses"),
	); err != nil {
		return nil, err
	}

	// No unit: the Prometheus exporter would append a _bytes suffix and
	// change the exposed metric name.
	if inst.avgSize, err = meter.Float64Gauge(
		"ai.cache.avg_response_size",
		metric.WithDescription("Running mean size of cache hits with known size"),
	); err != nil {
		return nil, err
	}

	if inst.responseSize, err = meter.Int64Histogram(
		"ai.cache.response_size",
		metric.WithDescription("Size of stored responses"),
		metric.WithUnit("By"),
	); err != nil {
		return nil, err
	}

	return &inst, nil
}

// OnEvent registers a subscriber invoked for every recorded event.
func (c *Collector) OnEvent(fn func(Event)) {
	if c == nil || fn == nil {
		return
	}
	c.mu.Lock()
	c.eventSubs = append(c.eventSubs, fn)
	c.mu.Unlock()
}

// OnMetricsUpdate registers a subscriber invoked with a fresh snapshot
// after every recording.
func (c *Collector) OnMetricsUpdate(fn func(Snapshot)) {
	if c == nil || fn == nil {
		return
	}
	c.mu.Lock()
	c.metricSubs = append(c.metricSubs, fn)
	c.mu.Unlock()
}

// RecordHit records a cache hit. size is the response size in bytes;
// pass a negative value when unknown.
func (c *Collector) RecordHit(ctx context.Context, key string, size int) {
	if c == nil {
		return
	}
	meta := map[string]any{}
	if size >= 0 {
		meta["size"] = size
	}

	c.record(ctx, Event{Type: EventHit, Key: key, Metadata: meta}, func() {
		c.snap.Hits++
		c.recomputeHitRate()
		if size >= 0 {
			c.sizedHit++
			c.sizeSum += float64(size)
			c.snap.AvgResponseSize = c.sizeSum / float64(c.sizedHit)
		}
	}, func(snap Snapshot) {
		c.inst.hits.Add(ctx, 1)
		c.inst.hitRate.Record(ctx, snap.HitRate)
		if size >= 0 {
			c.inst.avgSize.Record(ctx, snap.AvgResponseSize)
		}
	})
}

// RecordMiss records a cache miss.
func (c *Collector) RecordMiss(ctx context.Context, key string) {
	if c == nil {
		return
	}
	c.record(ctx, Event{Type: EventMiss, Key: key}, func() {
		c.snap.Misses++
		c.recomputeHitRate()
	}, func(snap Snapshot) {
		c.inst.misses.Add(ctx, 1)
		c.inst.hitRate.Record(ctx, snap.HitRate)
	})
}

// RecordStore records a cache write. promoted marks stores that came
// out of the jail rather than directly from a successful response.
func (c *Collector) RecordStore(ctx context.Context, key string, size int, promoted bool) {
	if c == nil {
		return
	}
	meta := map[string]any{"size": size, "promoted": promoted}
	c.record(ctx, Event{Type: EventStore, Key: key, Metadata: meta}, func() {
		c.snap.Stores++
	}, func(Snapshot) {
		c.inst.stores.Add(ctx, 1, metric.WithAttributes(
			attribute.Bool("promoted", promoted),
		))
		c.inst.responseSize.Record(ctx, int64(size))
	})
}

// RecordJailUpdate records an increment of a jail entry.
func (c *Collector) RecordJailUpdate(ctx context.Context, key string, count int) {
	if c == nil {
		return
	}
	meta := map[string]any{"count": count}
	c.record(ctx, Event{Type: EventJailUpdate, Key: key, Metadata: meta}, func() {
		c.snap.JailUpdates++
	}, func(Snapshot) {
		c.inst.jailUpdates.Add(ctx, 1)
	})
}

// RecordJailPromotion records a jail entry crossing the threshold.
func (c *Collector) RecordJailPromotion(ctx context.Context, key string, count int) {
	if c == nil {
		return
	}
	meta := map[string]any{"count": count}
	c.record(ctx, Event{Type: EventJailPromotion, Key: key, Metadata: meta}, func() {
		c.snap.JailPromotions++
	}, func(Snapshot) {
		c.inst.jailPromotions.Add(ctx, 1)
	})
}

// RecordError records an internal cache error. op names the failed
// operation (get, set, serialize, ...).
func (c *Collector) RecordError(ctx context.Context, key, op string, err error) {
	if c == nil {
		return
	}
	meta := map[string]any{"op": op}
	if err != nil {
		meta["error"] = err.Error()
	}
	c.record(ctx, Event{Type: EventError, Key: key, Metadata: meta}, func() {
		c.snap.Errors++
	}, func(Snapshot) {
		c.inst.errors.Add(ctx, 1, metric.WithAttributes(
			attribute.String("op", op),
		))
	})
}

// Snapshot returns a point-in-time copy of the counters and gauges.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap
}

// Events returns up to limit recent events, most recent first.
// limit <= 0 returns everything retained.
func (c *Collector) Events(limit int) []Event {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ring.recent(limit)
}

// record applies the state mutation, buffers the event, mirrors to
// OpenTelemetry, and notifies subscribers. Subscriber and instrument
// calls are individually guarded so they cannot break recording.
func (c *Collector) record(_ context.Context, e Event, apply func(), emit func(Snapshot)) {
	e.Timestamp = timeNow()

	c.mu.Lock()
	apply()
	snap := c.snap
	c.ring.add(e)
	eventSubs := append([]func(Event){}, c.eventSubs...)
	metricSubs := append([]func(Snapshot){}, c.metricSubs...)
	c.mu.Unlock()

	if c.inst != nil {
		guard(func() { emit(snap) })
	}
	for _, fn := range eventSubs {
		fn := fn
		guard(func() { fn(e) })
	}
	for _, fn := range metricSubs {
		fn := fn
		guard(func() { fn(snap) })
	}
}

func (c *Collector) recomputeHitRate() {
	total := c.snap.Hits + c.snap.Misses
	if total == 0 {
		c.snap.HitRate = 0
		return
	}
	c.snap.HitRate = float64(c.snap.Hits) / float64(total)
}

func guard(fn func()) {
	defer func() {
		_ = recover()
	}()
	fn()
}
