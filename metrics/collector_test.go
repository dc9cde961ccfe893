package metrics

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

var errTest = errors.New("test error")

func newCollector(t *testing.T, opts Options) *Collector {
	t.Helper()
	c, err := New(opts)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func TestCollector_HitRate(t *testing.T) {
	c := newCollector(t, Options{})
	ctx := context.Background()

	c.RecordHit(ctx, "k1", 10)
	c.RecordHit(ctx, "k2", 20)
	c.RecordMiss(ctx, "k3")

	snap := c.Snapshot()
	if snap.Hits != 2 || snap.Misses != 1 {
		t.Fatalf("Hits = %d, Misses = %d, want 2/1", snap.Hits, snap.Misses)
	}
	want := 2.0 / 3.0
	if math.Abs(snap.HitRate-want) > 1e-9 {
		t.Errorf("HitRate = %f, want %f", snap.HitRate, want)
	}
}

func TestCollector_HitRateZeroWhenEmpty(t *testing.T) {
	c := newCollector(t, Options{})
	if rate := c.Snapshot().HitRate; rate != 0 {
		t.Errorf("HitRate = %f with no recordings, want 0", rate)
	}
}

func TestCollector_AvgResponseSize(t *testing.T) {
	c := newCollector(t, Options{})
	ctx := context.Background()

	c.RecordHit(ctx, "k1", 100)
	c.RecordHit(ctx, "k2", 200)
	c.RecordHit(ctx, "k3", -1) // unknown size: excluded from the mean

	snap := c.Snapshot()
	if snap.AvgResponseSize != 150 {
		t.Errorf("AvgResponseSize = %f, want 150", snap.AvgResponseSize)
	}
}

func TestCollector_Counters(t *testing.T) {
	c := newCollector(t, Options{})
	ctx := context.Background()

	c.RecordStore(ctx, "k1", 42, false)
	c.RecordStore(ctx, "k1", 42, true)
	c.RecordJailUpdate(ctx, "k1", 1)
	c.RecordJailPromotion(ctx, "k1", 3)
	c.RecordError(ctx, "k1", "get", fmt.Errorf("boom"))

	snap := c.Snapshot()
	if snap.Stores != 2 {
		t.Errorf("Stores = %d, want 2", snap.Stores)
	}
	if snap.JailUpdates != 1 {
		t.Errorf("JailUpdates = %d, want 1", snap.JailUpdates)
	}
	if snap.JailPromotions != 1 {
		t.Errorf("JailPromotions = %d, want 1", snap.JailPromotions)
	}
	if snap.Errors != 1 {
		t.Errorf("Errors = %d, want 1", snap.Errors)
	}
}

func TestCollector_EventsMostRecentFirst(t *testing.T) {
	c := newCollector(t, Options{})
	ctx := context.Background()

	c.RecordMiss(ctx, "k1")
	c.RecordHit(ctx, "k1", 5)
	c.RecordStore(ctx, "k1", 5, false)

	events := c.Events(0)
	if len(events) != 3 {
		t.Fatalf("Events() len = %d, want 3", len(events))
	}
	wantOrder := []EventType{EventStore, EventHit, EventMiss}
	for i, want := range wantOrder {
		if events[i].Type != want {
			t.Errorf("events[%d].Type = %q, want %q", i, events[i].Type, want)
		}
	}

	limited := c.Events(2)
	if len(limited) != 2 || limited[0].Type != EventStore {
		t.Errorf("Events(2) = %+v, want 2 most recent", limited)
	}
}

func TestCollector_RingEvictsOldest(t *testing.T) {
	c := newCollector(t, Options{EventCapacity: 3})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		c.RecordMiss(ctx, fmt.Sprintf("k%d", i))
	}

	events := c.Events(0)
	if len(events) != 3 {
		t.Fatalf("Events() len = %d, want capacity 3", len(events))
	}
	// Most recent first: k4, k3, k2. k0 and k1 were evicted.
	wantKeys := []string{"k4", "k3", "k2"}
	for i, want := range wantKeys {
		if events[i].Key != want {
			t.Errorf("events[%d].Key = %q, want %q", i, events[i].Key, want)
		}
	}
}

func TestCollector_EventMetadata(t *testing.T) {
	c := newCollector(t, Options{})
	ctx := context.Background()

	c.RecordError(ctx, "k1", "set", fmt.Errorf("boom"))

	events := c.Events(1)
	if len(events) != 1 {
		t.Fatalf("Events() len = %d, want 1", len(events))
	}
	e := events[0]
	if e.Type != EventError || e.Key != "k1" {
		t.Errorf("event = %+v, want error event for k1", e)
	}
	if e.Metadata["op"] != "set" || e.Metadata["error"] != "boom" {
		t.Errorf("metadata = %+v, want op/error set", e.Metadata)
	}
	if e.Timestamp.IsZero() {
		t.Error("event timestamp should be set")
	}
}

func TestCollector_PanickingSubscriberDoesNotBreakRecording(t *testing.T) {
	c := newCollector(t, Options{})
	ctx := context.Background()

	c.OnEvent(func(Event) { panic("bad subscriber") })
	c.OnMetricsUpdate(func(Snapshot) { panic("bad subscriber") })

	var got []Event
	c.OnEvent(func(e Event) { got = append(got, e) })

	c.RecordHit(ctx, "k1", 1)
	c.RecordMiss(ctx, "k2")

	snap := c.Snapshot()
	if snap.Hits != 1 || snap.Misses != 1 {
		t.Errorf("Hits = %d, Misses = %d, want 1/1 despite panicking subscribers", snap.Hits, snap.Misses)
	}
	if len(got) != 2 {
		t.Errorf("well-behaved subscriber saw %d events, want 2", len(got))
	}
}

func TestCollector_MetricsSubscriberSeesSnapshot(t *testing.T) {
	c := newCollector(t, Options{})

	var last Snapshot
	c.OnMetricsUpdate(func(s Snapshot) { last = s })

	c.RecordHit(context.Background(), "k1", 10)

	if last.Hits != 1 {
		t.Errorf("subscriber snapshot Hits = %d, want 1", last.Hits)
	}
	if last.HitRate != 1.0 {
		t.Errorf("subscriber snapshot HitRate = %f, want 1.0", last.HitRate)
	}
}

func TestCollector_NilSafe(t *testing.T) {
	var c *Collector

	// All methods must be no-ops on a nil collector.
	c.RecordHit(context.Background(), "k", 1)
	c.RecordMiss(context.Background(), "k")
	c.OnEvent(func(Event) {})

	if snap := c.Snapshot(); snap != (Snapshot{}) {
		t.Errorf("nil Snapshot() = %+v, want zero", snap)
	}
	if events := c.Events(10); events != nil {
		t.Errorf("nil Events() = %+v, want nil", events)
	}
}

func TestCollector_ConcurrentRecording(t *testing.T) {
	c := newCollector(t, Options{EventCapacity: 100})
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			c.RecordHit(ctx, "k", 10)
		}()
		go func() {
			defer wg.Done()
			c.RecordMiss(ctx, "k")
		}()
	}
	wg.Wait()

	snap := c.Snapshot()
	if snap.Hits != 20 || snap.Misses != 20 {
		t.Errorf("Hits = %d, Misses = %d, want 20/20", snap.Hits, snap.Misses)
	}
	if snap.HitRate != 0.5 {
		t.Errorf("HitRate = %f, want 0.5", snap.HitRate)
	}
}

func TestCollector_SubscribeDuringRecording(t *testing.T) {
	c := newCollector(t, Options{EventCapacity: 100})
	ctx := context.Background()

	var mu sync.Mutex
	seen := 0

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			c.OnEvent(func(Event) {
				mu.Lock()
				seen++
				mu.Unlock()
			})
		}()
		go func() {
			defer wg.Done()
			c.RecordHit(ctx, "k", 10)
		}()
	}
	wg.Wait()

	// Subscribers registered mid-flight must not corrupt recording.
	if snap := c.Snapshot(); snap.Hits != 20 {
		t.Errorf("Hits = %d, want 20", snap.Hits)
	}
	mu.Lock()
	if seen == 0 {
		t.Error("no subscriber calls observed")
	}
	mu.Unlock()
}

func TestCollector_PrometheusMetricNames(t *testing.T) {
	reg := prometheus.NewRegistry()
	exporter, err := otelprom.New(otelprom.WithRegisterer(reg))
	if err != nil {
		t.Fatalf("prometheus exporter error = %v", err)
	}
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	ctx := context.Background()
	defer provider.Shutdown(ctx)

	c := newCollector(t, Options{Meter: provider.Meter("aicache-test")})
	c.RecordHit(ctx, "k", 10)
	c.RecordMiss(ctx, "k")
	c.RecordStore(ctx, "k", 10, false)
	c.RecordJailUpdate(ctx, "k", 1)
	c.RecordJailPromotion(ctx, "k", 3)
	c.RecordError(ctx, "k", "get", errTest)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}

	for _, want := range []string{
		"ai_cache_hits_total",
		"ai_cache_misses_total",
		"ai_cache_stores_total",
		"ai_cache_jail_updates_total",
		"ai_cache_jail_promotions_total",
		"ai_cache_errors_total",
		"ai_cache_hit_rate",
		"ai_cache_avg_response_size",
	} {
		if !names[want] {
			t.Errorf("exposition missing %q (got %v)", want, names)
		}
	}
}
