package response

import (
	"context"
	"strings"
	"time"
)

// FinishReason is the terminal status a model call returns.
type FinishReason string

// Known finish reasons.
const (
	FinishStop          FinishReason = "stop"
	FinishLength        FinishReason = "length"
	FinishContentFilter FinishReason = "content-filter"
	FinishToolCalls     FinishReason = "tool-calls"
	FinishError         FinishReason = "error"
	FinishOther         FinishReason = "other"
	FinishUnknown       FinishReason = "unknown"
)

// Usage holds token accounting for a call.
type Usage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
	TotalTokens      int `json:"totalTokens"`
}

// Warning is a quality signal attached to an otherwise usable response.
type Warning struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
}

// ContentPart is one piece of response content. Only text parts
// participate in caching; other part types pass through untouched.
type ContentPart struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// Meta carries response identity. The cache rewrites it on every hit
// so two hits never share an identifier or timestamp.
type Meta struct {
	ID        string    `json:"id,omitempty"`
	ModelID   string    `json:"modelId,omitempty"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// Response is a fully materialized model response.
type Response struct {
	Content      []ContentPart `json:"content"`
	FinishReason FinishReason  `json:"finishReason"`
	Usage        Usage         `json:"usage"`
	Warnings     []Warning     `json:"warnings,omitempty"`
	RawCall      any           `json:"rawCall,omitempty"`
	RawResponse  any           `json:"rawResponse,omitempty"`
	Meta         Meta          `json:"response,omitempty"`
}

// Text concatenates all non-empty text parts in order.
func (r *Response) Text() string {
	var b strings.Builder
	for _, p := range r.Content {
		if p.Type == "text" && p.Text != "" {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}

// HasText reports whether the response carries at least one non-empty
// text part.
func (r *Response) HasText() bool {
	for _, p := range r.Content {
		if p.Type == "text" && p.Text != "" {
			return true
		}
	}
	return false
}

// Call identifies one invocation of the wrapped model.
type Call struct {
	// ModelID is a stable identifier for the underlying model.
	ModelID string

	// Params are the call parameters. Values may be nested maps, slices,
	// and primitives; non-serializable values are ignored by key
	// derivation.
	Params map[string]any
}

// GenerateFunc performs a single-shot model call.
type GenerateFunc func(ctx context.Context, call Call) (*Response, error)

// StreamFunc performs a streaming model call.
type StreamFunc func(ctx context.Context, call Call) (StreamReader, error)
