package stream

import "context"

// Chunk represents a processed piece of content from the stream. Exactly one
// chunk with Done set or Error set terminates a stream.
type Chunk struct {
	Content string
	Done    bool
	Error   error
}

// Source is a pull-style view over a provider stream. Next advances to the
// next event and reports false once the stream is exhausted or failed.
type Source interface {
	Next() bool
	Text() string
	Err() error
	Close() error
}

// Parser handles the processing of provider stream events into chunks
type Parser struct {
	ctx    context.Context
	chunks chan Chunk
}

func NewParser(ctx context.Context) *Parser {
	return &Parser{
		ctx:    ctx,
		chunks: make(chan Chunk),
	}
}

func (p *Parser) Chunks() <-chan Chunk {
	return p.chunks
}
