// Package strategy decides what happens to a live model response:
// classification into successful/problematic/ignorable, the
// failure-quarantine jail that promotes stably degraded responses into
// the cache, and the orchestrator routing between them.
package strategy
