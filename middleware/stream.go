package middleware

import (
	"context"
	"strings"

	"github.com/jonwraymond/aicache/cache"
	"github.com/jonwraymond/aicache/replay"
	"github.com/jonwraymond/aicache/response"
	"github.com/jonwraymond/aicache/telemetry"
)

// WrapStream wraps a streaming model call with the cache. On a hit the
// caller receives a fresh replay of the cached envelope; on a miss the
// live stream is passed through while its parts are captured, and the
// assembled response is classified and stored once the stream finishes.
func (m *Middleware) WrapStream(fn response.StreamFunc) response.StreamFunc {
	return func(ctx context.Context, call response.Call) (response.StreamReader, error) {
		ctx, span := m.startSpan(ctx, "ai.cache.stream", call.ModelID)

		key, err := m.keyer.Derive(call.ModelID, call.Params)
		if err != nil || key == "" {
			m.logger.Debug(ctx, "key derivation failed, caching disabled for call",
				telemetry.Field{Key: "modelId", Value: call.ModelID},
			)
			reader, err := fn(ctx, call)
			m.endSpan(span, false, err)
			return reader, err
		}

		if env, ok := m.store.Get(ctx, key); ok {
			m.collector.RecordHit(ctx, key, len(env.Text))
			m.logger.Debug(ctx, "cache hit, replaying stream",
				telemetry.Field{Key: "key", Value: cache.TruncateKey(key, m.maxKeyLog)},
			)
			m.endSpan(span, true, nil)
			return replay.New(m.maskedEnvelope(env), m.chunkSize), nil
		}

		m.collector.RecordMiss(ctx, key)

		reader, err := fn(ctx, call)
		if err != nil {
			m.endSpan(span, false, err)
			return nil, err
		}

		m.endSpan(span, false, nil)
		return &captureReader{
			next: reader,
			onFinish: func(resp *response.Response) {
				m.strat.Handle(ctx, key, resp)
			},
		}, nil
	}
}

// maskedEnvelope copies the envelope with rewritten response identity,
// so replayed parts carry a fresh id rather than the stored one.
func (m *Middleware) maskedEnvelope(env *cache.Envelope) *cache.Envelope {
	cp := *env
	var meta response.Meta
	if env.Meta != nil {
		meta = *env.Meta
	}
	resp := response.Response{Meta: meta}
	m.mask(&resp)
	cp.Meta = &resp.Meta
	return &cp
}

// captureReader tees a live stream: parts pass through unchanged while
// the text is accumulated. When the finish part arrives, the assembled
// response is handed to onFinish exactly once. A stream that errors
// before finishing is never stored or jailed.
type captureReader struct {
	next     response.StreamReader
	onFinish func(*response.Response)

	text     strings.Builder
	id       string
	notified bool
}

func (c *captureReader) Recv() (response.StreamPart, error) {
	part, err := c.next.Recv()
	if err != nil {
		return part, err
	}

	switch part.Type {
	case response.PartTextDelta:
		c.text.WriteString(part.TextDelta)
		if c.id == "" {
			c.id = part.ID
		}
	case response.PartFinish:
		if !c.notified {
			c.notified = true
			c.onFinish(c.assemble(part))
		}
	}

	return part, nil
}

func (c *captureReader) assemble(finish response.StreamPart) *response.Response {
	resp := &response.Response{
		FinishReason: finish.FinishReason,
		Usage:        finish.Usage,
		Meta:         response.Meta{ID: c.id},
	}
	if finish.ID != "" {
		resp.Meta.ID = finish.ID
	}
	if text := c.text.String(); text != "" {
		resp.Content = []response.ContentPart{{Type: "text", Text: text}}
	}
	return resp
}

// Ensure captureReader implements StreamReader
var _ response.StreamReader = (*captureReader)(nil)
