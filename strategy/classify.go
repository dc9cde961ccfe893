package strategy

import "github.com/jonwraymond/aicache/response"

// Classification is the caching verdict for a live response. It is
// transient: recomputed from each response, never persisted.
type Classification int

const (
	// Ignorable responses are cached on no path. This includes empty
	// content and error finishes: caching an error would turn a
	// transient failure into a permanent false answer.
	Ignorable Classification = iota

	// Successful responses go straight to the cache.
	Successful

	// Problematic responses returned usable content with a quality
	// signal attached; they are candidates for the jail.
	Problematic
)

func (c Classification) String() string {
	switch c {
	case Successful:
		return "successful"
	case Problematic:
		return "problematic"
	default:
		return "ignorable"
	}
}

// Classify maps a materialized response to its caching verdict.
func Classify(resp *response.Response) Classification {
	if resp == nil || resp.FinishReason == response.FinishError || len(resp.Content) == 0 {
		return Ignorable
	}

	degraded := resp.FinishReason == response.FinishOther ||
		resp.FinishReason == response.FinishContentFilter

	// The jail only needs some content to re-serve later; the direct
	// cache path demands text.
	if degraded || len(resp.Warnings) > 0 {
		return Problematic
	}

	if !resp.HasText() {
		return Ignorable
	}
	return Successful
}
