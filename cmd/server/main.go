package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"archsketch/internal/config"
	"archsketch/internal/core/bootstrap"
	"archsketch/internal/handler"
	"archsketch/internal/hub"
	"archsketch/internal/logs"
	"archsketch/internal/render"
	"archsketch/internal/service"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "archsketch-server:", err)
		os.Exit(1)
	}
}

func run() error {
	// Command line flags override the config file and environment
	configPath := flag.String("config", "", "config file path (searched for when empty)")
	addr := flag.String("addr", "", "HTTP listen address")
	mock := flag.Bool("mock", false, "use the mock model provider")
	skipPreflight := flag.Bool("skip-preflight", false, "start even when preflight checks fail")
	flag.Parse()

	cfg, path, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *mock {
		cfg.LLM.Mock = true
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	level, err := logs.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return err
	}
	logger := logs.New(logs.Options{Level: level, Journal: cfg.Logging.Journal})
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logs.With(ctx, logger)

	logger.Info("starting archsketch server", "config", path, "settings", cfg.Summary())

	app, err := bootstrap.Build(ctx, cfg, bootstrap.Options{})
	if err != nil {
		return err
	}
	defer app.Close()

	report := bootstrap.Preflight(ctx, cfg, app.Registry)
	if !report.OK() && !*skipPreflight {
		return fmt.Errorf("preflight failed: %v", report.Failures())
	}

	// Initialize SSE hub
	sseHub := hub.New(logger)
	go sseHub.Run(ctx)

	// Connect event bus to SSE hub
	eventChan := make(chan service.Event, 100)
	app.Events.Subscribe(eventChan)
	go hub.Forward(ctx, sseHub, eventChan)

	go app.Reaper.Run(ctx)

	// Initialize HTTP handlers
	diagramHandler := handler.NewDiagramHandler(app.Service, app.Renderer.OutputDir())
	if engine, ok := app.Engine.(render.GraphvizEngine); ok {
		diagramHandler.SetHealthProbe("renderer", func() bool {
			_, err := engine.Available()
			return err == nil
		})
	}

	// Setup routes
	mux := http.NewServeMux()
	diagramHandler.Register(mux)

	// SSE events endpoint
	mux.Handle("GET /events", sseHub)

	// Apply middleware
	finalHandler := handler.Chain(mux,
		handler.Recover,
		handler.CORS,
		handler.LoggerWith(logger),
	)

	// Generation can take as long as the request timeout, plus encoding
	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      finalHandler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.Server.RequestTimeout.Duration() + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", cfg.Server.Addr)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Wait for interrupt signal or a listener failure
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
	}

	logger.Info("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server shutdown", "error", err)
	}

	logger.Info("server stopped")
	return nil
}

func loadConfig(path string) (*config.Config, string, error) {
	if path == "" {
		return config.Load()
	}
	if err := config.LoadDotEnv(".env"); err != nil {
		return nil, path, err
	}
	cfg, _, err := config.LoadFromPath(path)
	if err != nil {
		return nil, path, err
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}
