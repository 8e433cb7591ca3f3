// Package llm wraps the OpenAI-compatible provider behind a small text
// generation interface. The pipeline treats it as an opaque async text
// generator with a model identifier; tests substitute fakes.
package llm

import (
	"context"
	"time"
)

// Generation is the completed output of one generation pass.
type Generation struct {
	Text    string
	Model   string
	Tokens  int
	Elapsed time.Duration
}

// ProgressFunc receives the accumulated text length as the model streams.
// Called zero or more times before Generate returns; never after.
type ProgressFunc func(partialLength int)

// TextGenerator produces natural-language text from a prompt, reporting
// progress as the underlying model streams tokens.
type TextGenerator interface {
	// Model returns the provider model identifier used for generation.
	Model() string

	// Generate streams a completion for the system/user prompt pair,
	// invoking onProgress as text accumulates, and returns the final text.
	Generate(ctx context.Context, system, user string, onProgress ProgressFunc) (*Generation, error)
}
