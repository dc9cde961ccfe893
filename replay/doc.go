// Package replay reconstructs a streaming response from a fully
// materialized cached envelope, so a streaming caller's contract of
// incremental delivery holds even when the value is already known.
package replay
