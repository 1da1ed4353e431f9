// Package llm provides the language-model providers behind diagram
// generation and the assistant.
//
// A Provider turns one prompt into one block of text. Gemini talks to the
// Google Generative Language API; Mock answers from keyword heuristics for
// local development; Fixture replays canned responses in tests.
package llm

import (
	"context"
	"errors"
)

// Provider generates text from a prompt
type Provider interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Name() string
}

// ErrEmptyResponse is returned when the model produced no text
var ErrEmptyResponse = errors.New("model returned no text")
