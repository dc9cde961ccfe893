// Package response defines the model-call abstraction the cache wraps:
// a materialized Response for single-shot calls and a StreamReader of
// ordered parts for streaming calls.
package response
