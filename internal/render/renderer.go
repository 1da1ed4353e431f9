// Package render draws validated specifications as image artifacts.
//
// A Renderer converts the specification to a Graphviz DOT document and hands
// it to an Engine. Every request works in its own directory under the output
// directory; the engine writes a temporary file there which is renamed into
// place only when rendering succeeds. The work directory is removed on every
// exit path, so a failed or cancelled render leaves nothing behind.
package render

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/google/uuid"

	"archsketch/internal/codec"
	"archsketch/internal/domain"
	"archsketch/internal/logs"
)

// Default engine limits
const (
	DefaultMaxNodes = 500
	DefaultMaxEdges = 2000
	DefaultFormat   = "png"
)

// Options configures a Renderer
type Options struct {
	OutputDir string
	Format    string // Engine output format, png by default
	MaxNodes  int
	MaxEdges  int
}

// Artifact is a rendered image on disk
type Artifact struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"` // File name within the output directory
	Path        string    `json:"path"`
	Format      string    `json:"format"`
	Size        int64     `json:"size"`
	Fingerprint string    `json:"fingerprint"` // Fingerprint of the rendered specification
	CreatedAt   time.Time `json:"created_at"`
}

// Renderer produces artifacts from validated specifications
type Renderer struct {
	engine Engine
	icons  IconLookup
	opts   Options
}

// New creates a renderer, creating the output directory if needed
func New(engine Engine, icons IconLookup, opts Options) (*Renderer, error) {
	if engine == nil {
		return nil, errors.New("render: nil engine")
	}
	if opts.OutputDir == "" {
		return nil, errors.New("render: output directory is required")
	}
	if opts.Format == "" {
		opts.Format = DefaultFormat
	}
	if opts.MaxNodes <= 0 {
		opts.MaxNodes = DefaultMaxNodes
	}
	if opts.MaxEdges <= 0 {
		opts.MaxEdges = DefaultMaxEdges
	}
	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("render: create output directory: %w", err)
	}
	return &Renderer{engine: engine, icons: icons, opts: opts}, nil
}

// OutputDir returns the directory artifacts are written to
func (r *Renderer) OutputDir() string {
	return r.opts.OutputDir
}

// Render writes spec as an image. Errors are *domain.RenderError, wrapped in
// *domain.TimeoutError when the request deadline cut the engine off.
func (r *Renderer) Render(ctx context.Context, spec *domain.Specification) (*Artifact, error) {
	if spec == nil {
		return nil, &domain.RenderError{Msg: "nil specification"}
	}
	if err := ctx.Err(); err != nil {
		return nil, domain.AsTimeout(ctx, "render", &domain.RenderError{Msg: "cancelled before rendering", Err: err})
	}

	if n := len(spec.Nodes); n > r.opts.MaxNodes {
		return nil, &domain.RenderError{
			Msg:        "diagram too large",
			Diagnostic: fmt.Sprintf("%d nodes exceeds the limit of %d", n, r.opts.MaxNodes),
		}
	}
	if n := len(spec.Connections); n > r.opts.MaxEdges {
		return nil, &domain.RenderError{
			Msg:        "diagram too large",
			Diagnostic: fmt.Sprintf("%d connections exceeds the limit of %d", n, r.opts.MaxEdges),
		}
	}

	fingerprint, err := codec.Fingerprint(spec)
	if err != nil {
		return nil, &domain.RenderError{Msg: "fingerprint specification", Err: err}
	}

	id := uuid.NewString()
	name := id + "." + r.opts.Format
	finalPath := filepath.Join(r.opts.OutputDir, name)

	workDir := filepath.Join(r.opts.OutputDir, ".work-"+id)
	if err := os.Mkdir(workDir, 0o755); err != nil {
		return nil, &domain.RenderError{Msg: "create work directory", Err: err}
	}
	defer func() {
		if err := os.RemoveAll(workDir); err != nil {
			logs.From(ctx).WarnContext(ctx, "remove render work directory", "dir", workDir, "error", err)
		}
	}()

	tmpPath := filepath.Join(workDir, name+".tmp")
	dot := DOT(spec, r.icons)

	logs.From(ctx).DebugContext(ctx, "rendering",
		"engine", r.engine.Name(),
		"artifact", id,
		"nodes", len(spec.Nodes),
		"connections", len(spec.Connections),
	)

	if err := r.engine.Render(ctx, dot, r.opts.Format, tmpPath); err != nil {
		return nil, domain.AsTimeout(ctx, "render", &domain.RenderError{
			Msg:        r.engine.Name() + " failed",
			Diagnostic: diagnosticOf(err),
			Err:        err,
		})
	}
	if err := ctx.Err(); err != nil {
		return nil, domain.AsTimeout(ctx, "render", &domain.RenderError{Msg: "cancelled during rendering", Err: err})
	}

	info, err := os.Stat(tmpPath)
	if err != nil {
		return nil, &domain.RenderError{Msg: "engine produced no output", Err: err}
	}
	if info.Size() == 0 {
		return nil, &domain.RenderError{Msg: "engine produced an empty image"}
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		return nil, &domain.RenderError{Msg: "publish artifact", Err: err}
	}

	return &Artifact{
		ID:          id,
		Name:        name,
		Path:        finalPath,
		Format:      r.opts.Format,
		Size:        info.Size(),
		Fingerprint: fingerprint,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

var artifactName = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}\.[a-z]+$`)

// ValidName reports whether name could have been produced by Render. It
// rejects paths, hidden files and anything else outside the artifact pattern.
func ValidName(name string) bool {
	return artifactName.MatchString(name)
}
