// Package health provides liveness checks for the cache backend.
//
// An unhealthy backend never fails a wrapped request - the cache fails
// open - but operators need to see the degradation.
package health
