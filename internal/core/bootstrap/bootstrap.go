// Package bootstrap assembles archsketch's components from configuration
// and checks that the host can run them.
//
// Build wires the node-type registry, model provider, renderer, execution
// pool, artifact ledger, event bus and diagram service in dependency order.
// Preflight probes the environment (Graphviz, the images directory, provider
// credentials, catalog icons) and grades each finding ok, warn or fail.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"archsketch/internal/assistant"
	"archsketch/internal/builder"
	"archsketch/internal/config"
	"archsketch/internal/llm"
	"archsketch/internal/loader"
	"archsketch/internal/logs"
	"archsketch/internal/pool"
	"archsketch/internal/registry"
	"archsketch/internal/render"
	"archsketch/internal/repository/sqlite"
	"archsketch/internal/service"
)

// App holds every assembled component
type App struct {
	Config   *config.Config
	Registry *registry.Registry
	Provider llm.Provider
	Engine   render.Engine
	Renderer *render.Renderer
	Pool     *pool.Pool
	Ledger   *sqlite.Repository
	Events   *service.EventBus
	Service  *service.DiagramService
	Reaper   *service.Reaper

	closers []func() error
}

// Options overrides components Build would otherwise create from config
type Options struct {
	Engine   render.Engine // Graphviz at cfg.Render.DotPath when nil
	Provider llm.Provider  // Mock or Gemini per cfg when nil
}

// Build assembles the application. On error every component created so
// far is closed.
func Build(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	app := &App{Config: cfg}
	if err := app.assemble(ctx, cfg, opts); err != nil {
		app.Close()
		return nil, err
	}
	return app, nil
}

func (app *App) assemble(ctx context.Context, cfg *config.Config, opts Options) (err error) {
	logger := logs.From(ctx)

	app.Registry, err = loader.BuildRegistry(cfg.Catalog.Path)
	if err != nil {
		return fmt.Errorf("node-type registry: %w", err)
	}
	logger.InfoContext(ctx, "registry loaded", "types", app.Registry.Len(), "override", cfg.Catalog.Path)

	app.Provider = opts.Provider
	if app.Provider == nil {
		app.Provider, err = newProvider(ctx, cfg)
		if err != nil {
			return err
		}
		if c, ok := app.Provider.(interface{ Close() error }); ok {
			app.closers = append(app.closers, c.Close)
		}
	}
	logger.InfoContext(ctx, "model provider ready", "provider", app.Provider.Name())

	app.Engine = opts.Engine
	if app.Engine == nil {
		app.Engine = render.GraphvizEngine{Binary: cfg.Render.DotPath}
	}
	app.Renderer, err = render.New(app.Engine, app.Registry, render.Options{
		OutputDir: cfg.Render.ImagesDir,
		Format:    cfg.Render.Format,
		MaxNodes:  cfg.Render.MaxNodes,
		MaxEdges:  cfg.Render.MaxEdges,
	})
	if err != nil {
		return fmt.Errorf("renderer: %w", err)
	}

	app.Ledger, err = sqlite.New(cfg.Ledger.DSN)
	if err != nil {
		return fmt.Errorf("artifact ledger: %w", err)
	}
	app.closers = append(app.closers, app.Ledger.Close)

	app.Pool = pool.New(cfg.Pool.Size)
	app.Events = service.NewEventBus()
	app.Service = service.NewDiagramService(
		builder.New(app.Provider, app.Registry),
		app.Renderer,
		assistant.New(app.Provider, app.Registry),
		app.Registry,
		app.Pool,
		app.Ledger,
		app.Events,
		service.Options{RequestTimeout: cfg.Server.RequestTimeout.Duration()},
	)
	app.Reaper = service.NewReaper(app.Ledger, app.Events, cfg.Render.ArtifactTTL.Duration())

	logger.InfoContext(ctx, "components assembled",
		"pool", app.Pool.Capacity(),
		"images", app.Renderer.OutputDir(),
		"ledger", cfg.Ledger.DSN,
	)
	return nil
}

func newProvider(ctx context.Context, cfg *config.Config) (llm.Provider, error) {
	if cfg.UseMock() {
		return llm.NewMock(), nil
	}
	if cfg.LLM.APIKey == "" {
		return nil, config.ErrMissingAPIKey
	}
	g, err := llm.NewGemini(ctx, llm.GeminiOptions{
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxRetries:  cfg.LLM.MaxRetries,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return g, nil
}

// Close releases the provider client and the ledger, in reverse order of
// creation
func (a *App) Close() error {
	if a == nil {
		return nil
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
