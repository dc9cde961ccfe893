package response

// StreamPartType discriminates stream parts.
type StreamPartType string

// Stream part types.
const (
	PartTextDelta StreamPartType = "text-delta"
	PartFinish    StreamPartType = "finish"
)

// StreamPart is one event in a streaming response. A well-formed stream
// emits zero or more text-delta parts followed by exactly one finish
// part.
type StreamPart struct {
	Type StreamPartType

	// ID is the response identifier, carried on every part.
	ID string

	// TextDelta is set on text-delta parts.
	TextDelta string

	// FinishReason and Usage are set on the finish part.
	FinishReason FinishReason
	Usage        Usage
}

// StreamReader yields stream parts in order.
//
// Contract:
// - Ordering: parts are returned in emission order; the finish part is
//   last and unique.
// - Termination: Recv returns io.EOF after the finish part.
// - Ownership: a reader is single-consumer and not restartable.
type StreamReader interface {
	// Recv returns the next part, or io.EOF when the stream is drained.
	Recv() (StreamPart, error)
}
