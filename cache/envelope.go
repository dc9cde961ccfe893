package cache

import (
	"encoding/json"
	"fmt"

	"github.com/jonwraymond/aicache/response"
)

// Envelope is the persisted form of a materialized response. The JSON
// shape is the backend contract; fields must not be renamed.
//
// An Envelope is only ever constructed from a response that was not
// classified as an error, and is never mutated after write: each write
// fully replaces any prior value under the same key.
type Envelope struct {
	Text         string                 `json:"text"`
	FinishReason response.FinishReason  `json:"finishReason"`
	Usage        *response.Usage        `json:"usage,omitempty"`
	Warnings     []response.Warning     `json:"warnings,omitempty"`
	RawCall      any                    `json:"rawCall,omitempty"`
	RawResponse  any                    `json:"rawResponse,omitempty"`
	Meta         *response.Meta         `json:"response,omitempty"`
}

// NewEnvelope materializes a response into its persisted form.
func NewEnvelope(resp *response.Response) *Envelope {
	env := &Envelope{
		Text:         resp.Text(),
		FinishReason: resp.FinishReason,
		RawCall:      resp.RawCall,
		RawResponse:  resp.RawResponse,
	}

	if resp.Usage != (response.Usage{}) {
		u := resp.Usage
		env.Usage = &u
	}
	if len(resp.Warnings) > 0 {
		env.Warnings = resp.Warnings
	}
	if resp.Meta != (response.Meta{}) {
		m := resp.Meta
		env.Meta = &m
	}

	return env
}

// Restore converts the envelope back into a materialized response with
// a single text content part.
func (e *Envelope) Restore() *response.Response {
	resp := &response.Response{
		FinishReason: e.FinishReason,
		Warnings:     e.Warnings,
		RawCall:      e.RawCall,
		RawResponse:  e.RawResponse,
	}
	if e.Text != "" {
		resp.Content = []response.ContentPart{{Type: "text", Text: e.Text}}
	}
	if e.Usage != nil {
		resp.Usage = *e.Usage
	}
	if e.Meta != nil {
		resp.Meta = *e.Meta
	}
	return resp
}

// Marshal serializes the envelope for storage.
func (e *Envelope) Marshal() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("cache: failed to marshal envelope: %w", err)
	}
	return data, nil
}

// UnmarshalEnvelope parses a stored envelope.
func UnmarshalEnvelope(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("cache: failed to unmarshal envelope: %w", err)
	}
	return &env, nil
}
