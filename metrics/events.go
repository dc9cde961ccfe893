package metrics

import "time"

// timeNow is swapped in tests.
var timeNow = time.Now

// EventType discriminates cache events.
type EventType string

// Event types.
const (
	EventHit           EventType = "hit"
	EventMiss          EventType = "miss"
	EventStore         EventType = "store"
	EventJailUpdate    EventType = "jail_update"
	EventJailPromotion EventType = "jail_promotion"
	EventError         EventType = "error"
)

// Event is one recorded cache occurrence. Events reference a key but do
// not own it.
type Event struct {
	Type      EventType      `json:"type"`
	Key       string         `json:"cacheKey"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// eventRing is a fixed-capacity ring buffer of events, oldest evicted
// first. Not safe for concurrent use; the Collector serializes access.
type eventRing struct {
	buf  []Event
	head int // index of the oldest entry
	size int
}

func newEventRing(capacity int) *eventRing {
	return &eventRing{buf: make([]Event, capacity)}
}

func (r *eventRing) add(e Event) {
	if len(r.buf) == 0 {
		return
	}
	if r.size < len(r.buf) {
		r.buf[(r.head+r.size)%len(r.buf)] = e
		r.size++
		return
	}
	// Full: overwrite the oldest entry and advance.
	r.buf[r.head] = e
	r.head = (r.head + 1) % len(r.buf)
}

// recent returns up to limit events, most recent first. limit <= 0
// returns everything retained.
func (r *eventRing) recent(limit int) []Event {
	n := r.size
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]Event, 0, n)
	for i := 0; i < n; i++ {
		idx := (r.head + r.size - 1 - i) % len(r.buf)
		out = append(out, r.buf[idx])
	}
	return out
}
