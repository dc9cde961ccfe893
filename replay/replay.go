package replay

import (
	"io"
	"sync"

	"github.com/jonwraymond/aicache/cache"
	"github.com/jonwraymond/aicache/response"
)

// DefaultChunkSize is the default number of characters per replayed
// text chunk.
const DefaultChunkSize = 5

// Reader replays a cached envelope as an ordered part sequence: one
// text-delta per chunk of the cached text, then exactly one finish
// part, then io.EOF.
//
// Contract:
// - Fidelity: concatenating every TextDelta reproduces the cached text
//   byte for byte.
// - Ordering: deltas in original text order; the finish part is last
//   and unique.
// - Ownership: a Reader serves one consumer and is not restartable;
//   construct a fresh one per consumer.
type Reader struct {
	mu     sync.Mutex
	chunks []string
	id     string
	finish response.StreamPart
	pos    int
	done   bool
}

// New builds a fresh Reader over the envelope. chunkSize is in
// characters; non-positive values use DefaultChunkSize.
func New(env *cache.Envelope, chunkSize int) *Reader {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	var id string
	if env.Meta != nil {
		id = env.Meta.ID
	}

	var usage response.Usage
	if env.Usage != nil {
		usage = *env.Usage
	}

	return &Reader{
		chunks: chunk(env.Text, chunkSize),
		id:     id,
		finish: response.StreamPart{
			Type:         response.PartFinish,
			ID:           id,
			FinishReason: env.FinishReason,
			Usage:        usage,
		},
	}
}

// Recv returns the next part, or io.EOF once the finish part has been
// delivered.
func (r *Reader) Recv() (response.StreamPart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.pos < len(r.chunks) {
		part := response.StreamPart{
			Type:      response.PartTextDelta,
			ID:        r.id,
			TextDelta: r.chunks[r.pos],
		}
		r.pos++
		return part, nil
	}

	if !r.done {
		r.done = true
		return r.finish, nil
	}

	return response.StreamPart{}, io.EOF
}

// chunk splits text into runs of size runes, splitting only on rune
// boundaries so concatenation stays byte-identical.
func chunk(text string, size int) []string {
	if text == "" {
		return nil
	}

	runes := []rune(text)
	chunks := make([]string, 0, (len(runes)+size-1)/size)
	for start := 0; start < len(runes); start += size {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}

// Ensure Reader implements StreamReader
var _ response.StreamReader = (*Reader)(nil)
