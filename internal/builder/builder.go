// Package builder turns a natural-language description into a candidate
// Specification by prompting a language model.
//
// The prompt is a fixed template listing the supported node types. Output
// that cannot be decoded earns exactly one corrective re-prompt; a second
// failure is reported as a ParseError. The candidate is not validated here.
package builder

import (
	"context"
	"errors"
	"strings"

	"archsketch/internal/codec"
	"archsketch/internal/domain"
	"archsketch/internal/llm"
	"archsketch/internal/logs"
)

// ErrEmptyDescription is returned for blank input before any model call
var ErrEmptyDescription = errors.New("description is empty")

// maxAttempts bounds provider calls per Build: the first try plus one correction
const maxAttempts = 2

// Catalog is the slice of the node-type registry the builder needs
type Catalog interface {
	Names() []string
	Resolve(name string) (string, bool)
}

// Builder produces candidate specifications
type Builder struct {
	provider llm.Provider
	catalog  Catalog
	decoder  *codec.ModelOutput
}

// New creates a builder
func New(provider llm.Provider, catalog Catalog) *Builder {
	return &Builder{
		provider: provider,
		catalog:  catalog,
		decoder:  codec.NewModelOutput(catalog),
	}
}

// Build prompts the model and decodes its answer
func (b *Builder) Build(ctx context.Context, description string) (*domain.Specification, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, ErrEmptyDescription
	}

	logger := logs.From(ctx)
	prompt := GenerationPrompt(description, b.catalog.Names())
	current := prompt

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		text, err := b.provider.Generate(ctx, current)
		if err != nil {
			return nil, domain.AsTimeout(ctx, "generate", &domain.LLMError{Provider: b.provider.Name(), Err: err})
		}

		spec, err := b.decoder.Decode(text)
		if err == nil {
			logger.DebugContext(ctx, "specification decoded",
				"attempt", attempt,
				"nodes", len(spec.Nodes),
				"connections", len(spec.Connections),
				"clusters", len(spec.Clusters),
			)
			return spec, nil
		}

		lastErr = err
		logger.WarnContext(ctx, "model output rejected", "attempt", attempt, "error", err)
		current = CorrectionPrompt(prompt, text, err)
	}

	pe := &domain.ParseError{Attempts: maxAttempts, Err: lastErr}
	var inner *domain.ParseError
	if errors.As(lastErr, &inner) {
		pe.Msg = inner.Msg
		pe.Err = inner.Err
	}
	return nil, pe
}
