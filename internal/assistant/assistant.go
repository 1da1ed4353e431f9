// Package assistant answers free-form questions about diagrams and the
// supported components. It only talks to the language model; it never builds,
// validates or renders a specification.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"archsketch/internal/domain"
	"archsketch/internal/llm"
	"archsketch/internal/logs"
)

// ErrEmptyMessage is returned for blank input before any model call
var ErrEmptyMessage = errors.New("message is empty")

const assistantTemplate = `You are a helpful cloud architecture diagram assistant. You can:
1. Generate diagram specifications based on descriptions
2. Explain how to build diagrams
3. Suggest improvements to architectures
4. Answer questions about cloud components

SUPPORTED COMPONENTS: %s

USER MESSAGE: "%s"

INSTRUCTIONS:
- If the user wants a diagram, provide a JSON specification
- If the user asks questions, provide helpful explanations
- If the user's request is unclear, ask clarifying questions
- Always be helpful and educational

RESPONSE FORMAT:
- For diagram requests: Return JSON specification
- For questions: Provide clear explanations
- For unclear requests: Ask specific clarifying questions
`

// Prompt renders the assistant prompt
func Prompt(message string, types []string) string {
	return fmt.Sprintf(assistantTemplate, strings.Join(types, ", "), message)
}

// TypeLister provides the sorted supported type names
type TypeLister interface {
	Names() []string
}

// Reply is the assistant's answer
type Reply struct {
	Text           string
	SupportedTypes []string
}

// Responder answers one message at a time; it keeps no conversation state
type Responder struct {
	provider llm.Provider
	types    TypeLister
}

// New creates a responder
func New(provider llm.Provider, types TypeLister) *Responder {
	return &Responder{provider: provider, types: types}
}

// Respond asks the model about message
func (r *Responder) Respond(ctx context.Context, message string) (*Reply, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, ErrEmptyMessage
	}

	names := r.types.Names()
	text, err := r.provider.Generate(ctx, Prompt(message, names))
	if err != nil {
		return nil, domain.AsTimeout(ctx, "assistant", &domain.LLMError{Provider: r.provider.Name(), Err: err})
	}

	logs.From(ctx).DebugContext(ctx, "assistant replied", "bytes", len(text))

	return &Reply{
		Text:           strings.TrimSpace(text),
		SupportedTypes: names,
	}, nil
}
