package bootstrap

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"archsketch/internal/config"
	"archsketch/internal/llm"
	"archsketch/internal/registry"
)

type fakeEngine struct{}

func (fakeEngine) Name() string { return "fake" }

func (fakeEngine) Render(ctx context.Context, dot []byte, format, outPath string) error {
	return os.WriteFile(outPath, []byte("img"), 0o644)
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Render.ImagesDir = filepath.Join(t.TempDir(), "images")
	cfg.LLM.Mock = true
	cfg.Pool.Size = 2
	return cfg
}

func TestBuildWithMockProvider(t *testing.T) {
	cfg := testConfig(t)

	app, err := Build(context.Background(), cfg, Options{Engine: fakeEngine{}})
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	defer app.Close()

	if app.Provider.Name() != "mock" {
		t.Errorf("Provider = %s, want mock", app.Provider.Name())
	}
	if app.Pool.Capacity() != 2 {
		t.Errorf("Pool capacity = %d, want 2", app.Pool.Capacity())
	}
	if !app.Reaper.Enabled() {
		t.Error("Reaper should be enabled with the default TTL")
	}

	result, err := app.Service.Generate(context.Background(), "a web app with a database")
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if filepath.Dir(result.Artifact.Path) != cfg.Render.ImagesDir {
		t.Errorf("artifact written to %s, want %s", result.Artifact.Path, cfg.Render.ImagesDir)
	}

	n, err := app.Ledger.Count(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("ledger rows = %d, want 1", n)
	}
}

func TestBuildRequiresKeyWithoutMock(t *testing.T) {
	cfg := testConfig(t)
	cfg.LLM.Mock = false

	_, err := Build(context.Background(), cfg, Options{Engine: fakeEngine{}})
	if !errors.Is(err, config.ErrMissingAPIKey) {
		t.Errorf("expected ErrMissingAPIKey, got %v", err)
	}
}

func TestBuildUsesGivenProvider(t *testing.T) {
	cfg := testConfig(t)
	cfg.LLM.Mock = false

	fixture := llm.NewFixture()
	app, err := Build(context.Background(), cfg, Options{Engine: fakeEngine{}, Provider: fixture})
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	defer app.Close()

	if app.Provider != llm.Provider(fixture) {
		t.Error("expected the provided fixture")
	}
}

func TestBuildFailuresReturnErrors(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		mutate func(cfg *config.Config)
	}{
		{"missing catalog", func(cfg *config.Config) { cfg.Catalog.Path = "/nonexistent/catalog.yaml" }},
		{"missing key", func(cfg *config.Config) { cfg.LLM.Mock = false }},
		{"images dir under a file", func(cfg *config.Config) { cfg.Render.ImagesDir = filepath.Join(blocker, "images") }},
		{"bad ledger dsn", func(cfg *config.Config) { cfg.Ledger.DSN = filepath.Join(blocker, "ledger.db") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			tt.mutate(cfg)

			var (
				app *App
				err error
			)
			func() {
				defer func() {
					if r := recover(); r != nil {
						t.Fatalf("Build panicked: %v", r)
					}
				}()
				app, err = Build(context.Background(), cfg, Options{Engine: fakeEngine{}})
			}()

			if err == nil {
				app.Close()
				t.Fatal("expected an error")
			}
			if app != nil {
				t.Error("expected a nil App on error")
			}
		})
	}
}

func TestCloseNilApp(t *testing.T) {
	var app *App
	if err := app.Close(); err != nil {
		t.Errorf("Close() on nil App = %v", err)
	}
}

func TestPreflight(t *testing.T) {
	cfg := testConfig(t)
	cfg.Render.DotPath = filepath.Join(t.TempDir(), "no-such-dot")
	cfg.Render.ArtifactTTL = 0

	reg, err := registry.New([]registry.Entry{
		{Name: "ec2", Description: "compute"},
		{Name: "s3", Description: "storage", Icon: registry.IconDescriptor{Icon: "/nonexistent/s3.png"}},
	})
	if err != nil {
		t.Fatal(err)
	}

	report := Preflight(context.Background(), cfg, reg)

	if report.OK() {
		t.Error("expected failure without a layout engine")
	}
	if len(report.Failures()) != 1 {
		t.Errorf("expected 1 failure, got %v", report.Failures())
	}

	tests := []struct {
		name string
		want Status
	}{
		{CheckLayoutEngine, StatusFail},
		{CheckImagesDir, StatusOK},
		{CheckProvider, StatusWarn},
		{CheckCatalogIcons, StatusWarn},
		{CheckReaper, StatusWarn},
	}
	for _, tt := range tests {
		c, ok := report.Get(tt.name)
		if !ok {
			t.Errorf("missing check %s", tt.name)
			continue
		}
		if c.Status != tt.want {
			t.Errorf("%s = %s (%s), want %s", tt.name, c.Status, c.Detail, tt.want)
		}
	}

	if report.Duration < 0 || report.Timestamp.After(time.Now()) {
		t.Error("report timing not recorded")
	}
}

func TestPreflightProviderKey(t *testing.T) {
	cfg := testConfig(t)
	cfg.LLM.Mock = false

	if c := checkProvider(cfg); c.Status != StatusFail {
		t.Errorf("expected fail without a key, got %s", c.Status)
	}

	cfg.LLM.APIKey = "k"
	if c := checkProvider(cfg); c.Status != StatusOK {
		t.Errorf("expected ok with a key, got %s", c.Status)
	}
}

func TestCheckImagesDirUnwritable(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	if c := checkImagesDir(filepath.Join(file, "images")); c.Status != StatusFail {
		t.Errorf("expected fail under a regular file, got %s", c.Status)
	}
}
