package ai

import "context"

// Context is the continuation token returned by the inference server. It is
// carried verbatim from one request to the next and never interpreted.
type Context []int

// IsZero reports whether c holds no usable token.
func (c Context) IsZero() bool { return len(c) == 0 }

// Request represents a single generation request.
type Request struct {
	Model   string
	Prompt  string
	Context Context
}

// Response is a whole blocking response or one chunk of a stream. Only the
// final chunk (Done) carries Context.
type Response struct {
	Text    string
	Context Context
	Done    bool
}

// Client performs blocking and streaming generation.
//
// GenerateStream returns a chunk channel that is closed when the stream ends
// and an error channel that yields at most one error and is closed after the
// chunk channel. Cancelling ctx stops the producer.
type Client interface {
	Name() string
	Generate(ctx context.Context, req Request) (Response, error)
	GenerateStream(ctx context.Context, req Request) (<-chan Response, <-chan error)
}
