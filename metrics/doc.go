// Package metrics provides an injected collector for cache telemetry:
// counters and gauges, a bounded ring buffer of recent events for live
// inspection, subscriber hooks, and optional OpenTelemetry emission.
//
// The collector is explicit state with an explicit lifecycle; construct
// one at process start and pass it to every call site. The event buffer
// is diagnostic only - the backend-held entries remain the sole
// authoritative state.
package metrics
