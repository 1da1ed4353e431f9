package service

import (
	"context"
	"errors"
	"time"

	"archsketch/internal/assistant"
	"archsketch/internal/builder"
	"archsketch/internal/domain"
	"archsketch/internal/logs"
	"archsketch/internal/pool"
	"archsketch/internal/render"
	"archsketch/internal/repository"
)

// ErrNoSpecification is returned by RenderSpecification when given nil
var ErrNoSpecification = errors.New("no specification to render")

// DefaultRequestTimeout bounds a whole generate request, admission included
const DefaultRequestTimeout = 120 * time.Second

// Builder produces a candidate specification from a description
type Builder interface {
	Build(ctx context.Context, description string) (*domain.Specification, error)
}

// Renderer draws a validated specification
type Renderer interface {
	Render(ctx context.Context, spec *domain.Specification) (*render.Artifact, error)
}

// Responder answers assistant messages
type Responder interface {
	Respond(ctx context.Context, message string) (*assistant.Reply, error)
}

// Catalog is the read-only node-type registry
type Catalog interface {
	Has(nodeType string) bool
	Names() []string
	Descriptions() map[string]string
}

// Result is a successful generate request
type Result struct {
	Specification *domain.Specification
	Artifact      *render.Artifact
	ImageURL      string
}

// Options configures a DiagramService
type Options struct {
	RequestTimeout time.Duration
	ImageBaseURL   string // Prefix for artifact names, "/api/images/" by default
}

// DiagramService runs generate and chat requests
type DiagramService struct {
	builder   Builder
	renderer  Renderer
	responder Responder
	catalog   Catalog
	pool      *pool.Pool
	ledger    repository.ArtifactLedger
	eventBus  *EventBus
	opts      Options
}

// NewDiagramService creates a diagram service. ledger and eventBus may be nil.
func NewDiagramService(
	builder Builder,
	renderer Renderer,
	responder Responder,
	catalog Catalog,
	p *pool.Pool,
	ledger repository.ArtifactLedger,
	eventBus *EventBus,
	opts Options,
) *DiagramService {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = DefaultRequestTimeout
	}
	if opts.ImageBaseURL == "" {
		opts.ImageBaseURL = "/api/images/"
	}
	return &DiagramService{
		builder:   builder,
		renderer:  renderer,
		responder: responder,
		catalog:   catalog,
		pool:      p,
		ledger:    ledger,
		eventBus:  eventBus,
		opts:      opts,
	}
}

// Generate turns description into a rendered diagram. The request deadline
// covers waiting for a pool slot as well as every pipeline stage.
func (s *DiagramService) Generate(ctx context.Context, description string) (*Result, error) {
	return s.run(ctx, "generate", func(ctx context.Context) (*domain.Specification, error) {
		return s.builder.Build(ctx, description)
	})
}

// RenderSpecification validates and draws a specification supplied by the
// caller, skipping the model. It is admitted through the pool like Generate.
func (s *DiagramService) RenderSpecification(ctx context.Context, candidate *domain.Specification) (*Result, error) {
	return s.run(ctx, "render", func(ctx context.Context) (*domain.Specification, error) {
		if candidate == nil {
			return nil, ErrNoSpecification
		}
		return candidate, nil
	})
}

func (s *DiagramService) run(ctx context.Context, op string, candidate func(context.Context) (*domain.Specification, error)) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.RequestTimeout)
	defer cancel()

	logger := logs.From(ctx).With("op", op)
	start := time.Now()

	result, err := pool.Submit(ctx, s.pool, func(ctx context.Context) (*Result, error) {
		s.eventBus.Publish(Event{
			Type:    EventDiagramAdmitted,
			Payload: map[string]any{"op": op, "waited_ms": time.Since(start).Milliseconds()},
		})
		spec, err := candidate(ctx)
		if err != nil {
			return nil, err
		}
		return s.finish(ctx, spec)
	})
	if err != nil {
		kind := ErrorKind(err)
		logger.WarnContext(ctx, "diagram failed", "kind", kind, "error", err, "elapsed", time.Since(start))
		s.eventBus.Publish(Event{
			Type:    EventDiagramFailed,
			Payload: map[string]any{"op": op, "kind": kind, "message": err.Error()},
		})
		return nil, err
	}

	logger.InfoContext(ctx, "diagram rendered",
		"artifact", result.Artifact.Name,
		"nodes", len(result.Specification.Nodes),
		"elapsed", time.Since(start),
	)
	s.eventBus.Publish(Event{
		Type: EventDiagramCompleted,
		Payload: map[string]any{
			"op":        op,
			"name":      result.Specification.Name,
			"image_url": result.ImageURL,
			"nodes":     len(result.Specification.Nodes),
		},
	})
	return result, nil
}

// finish validates, renders and records a candidate
func (s *DiagramService) finish(ctx context.Context, candidate *domain.Specification) (*Result, error) {
	spec, err := domain.Validate(candidate, s.catalog)
	if err != nil {
		return nil, err
	}

	artifact, err := s.renderer.Render(ctx, spec)
	if err != nil {
		return nil, err
	}

	if s.ledger != nil {
		rec := repository.Artifact{
			ID:          artifact.ID,
			Name:        artifact.Name,
			Path:        artifact.Path,
			Fingerprint: artifact.Fingerprint,
			Size:        artifact.Size,
			CreatedAt:   artifact.CreatedAt,
		}
		if err := s.ledger.Record(ctx, rec); err != nil {
			// Ledger failures do not fail the request
			logs.From(ctx).WarnContext(ctx, "record artifact", "artifact", artifact.Name, "error", err)
		}
	}

	return &Result{
		Specification: spec,
		Artifact:      artifact,
		ImageURL:      s.opts.ImageBaseURL + artifact.Name,
	}, nil
}

// Chat answers a free-form assistant message outside the pool
func (s *DiagramService) Chat(ctx context.Context, message string) (*assistant.Reply, error) {
	return s.responder.Respond(ctx, message)
}

// SupportedComponents returns name -> description for every node type
func (s *DiagramService) SupportedComponents() map[string]string {
	return s.catalog.Descriptions()
}

// PoolStats reports the execution pool's occupancy
func (s *DiagramService) PoolStats() pool.Stats {
	return s.pool.Stats()
}

// Artifact looks up a rendered image by file name
func (s *DiagramService) Artifact(ctx context.Context, name string) (*repository.Artifact, error) {
	if s.ledger == nil {
		return nil, repository.ErrNotFound
	}
	return s.ledger.Get(ctx, name)
}

// Error kinds reported to clients and in events
const (
	KindInput       = "input_error"
	KindLLM         = "llm_error"
	KindParse       = "parse_error"
	KindValidation  = "validation_error"
	KindRender      = "render_error"
	KindPoolTimeout = "pool_timeout"
	KindTimeout     = "timeout"
	KindInternal    = "internal_error"
)

// ErrorKind classifies a pipeline error. Admission timeouts are checked
// before generic timeouts so backpressure is reported as such.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, domain.ErrPoolTimeout):
		return KindPoolTimeout
	case errors.Is(err, domain.ErrTimeout):
		return KindTimeout
	case errors.Is(err, domain.ErrValidation):
		return KindValidation
	case errors.Is(err, domain.ErrParse):
		return KindParse
	case errors.Is(err, domain.ErrLLM):
		return KindLLM
	case errors.Is(err, domain.ErrRender):
		return KindRender
	case IsInputError(err):
		return KindInput
	}
	return KindInternal
}

// IsInputError reports errors caused by the request itself
func IsInputError(err error) bool {
	return errors.Is(err, builder.ErrEmptyDescription) ||
		errors.Is(err, assistant.ErrEmptyMessage) ||
		errors.Is(err, ErrNoSpecification)
}
