// Package completion defines the streaming text-generation capability the
// recipe generator depends on, with an OpenAI-compatible implementation and
// decorators that stay invisible to callers.
package completion

import "context"

// Request is a single prompt with its sampling parameters
type Request struct {
	Model       string
	Prompt      string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// Stream is a finite, non-restartable sequence of text deltas.
// Recv returns io.EOF once the sequence is exhausted.
type Stream interface {
	Recv() (string, error)
	Close() error
}

// Provider opens streaming completions against a text-generation backend
type Provider interface {
	Stream(ctx context.Context, req Request) (Stream, error)
}
