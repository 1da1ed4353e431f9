package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"archsketch/internal/assistant"
	"archsketch/internal/builder"
	"archsketch/internal/domain"
	"archsketch/internal/llm"
	"archsketch/internal/loader"
	"archsketch/internal/pool"
	"archsketch/internal/render"
	"archsketch/internal/repository"
	"archsketch/internal/repository/sqlite"

	"github.com/stretchr/testify/require"
)

// pngEngine writes a tiny fake image
type pngEngine struct{}

func (pngEngine) Name() string { return "fake" }

func (pngEngine) Render(ctx context.Context, dot []byte, format, outPath string) error {
	return os.WriteFile(outPath, []byte("\x89PNG"), 0o644)
}

// blockingBuilder waits for the request deadline
type blockingBuilder struct{}

func (blockingBuilder) Build(ctx context.Context, description string) (*domain.Specification, error) {
	<-ctx.Done()
	return nil, domain.AsTimeout(ctx, "generate", &domain.LLMError{Provider: "blocking", Err: ctx.Err()})
}

type testEnv struct {
	svc      *DiagramService
	ledger   *sqlite.Repository
	events   chan Event
	imageDir string
	pool     *pool.Pool
}

func newTestEnv(t *testing.T, provider llm.Provider, opts Options) *testEnv {
	t.Helper()

	reg, err := loader.BuildRegistry("")
	require.NoError(t, err)

	imageDir := t.TempDir()
	renderer, err := render.New(pngEngine{}, reg, render.Options{OutputDir: imageDir})
	require.NoError(t, err)

	ledger, err := sqlite.New(sqlite.MemoryDSN)
	require.NoError(t, err)
	t.Cleanup(func() { ledger.Close() })

	bus := NewEventBus()
	events := make(chan Event, 16)
	bus.Subscribe(events)

	p := pool.New(2)
	svc := NewDiagramService(
		builder.New(provider, reg),
		renderer,
		assistant.New(provider, reg),
		reg,
		p,
		ledger,
		bus,
		opts,
	)
	return &testEnv{svc: svc, ledger: ledger, events: events, imageDir: imageDir, pool: p}
}

func drain(ch chan Event) []EventType {
	var types []EventType
	for {
		select {
		case e := <-ch:
			types = append(types, e.Type)
		default:
			return types
		}
	}
}

func TestGenerateWebApp(t *testing.T) {
	env := newTestEnv(t, llm.NewMock(), Options{})
	ctx := context.Background()

	result, err := env.svc.Generate(ctx, "a web app with load balancer, two web servers, and a database")
	require.NoError(t, err)

	require.Equal(t, "/api/images/"+result.Artifact.Name, result.ImageURL)
	require.Len(t, result.Specification.NodesOfType("ec2"), 2)
	require.FileExists(t, result.Artifact.Path)

	rec, err := env.ledger.Get(ctx, result.Artifact.Name)
	require.NoError(t, err)
	require.Equal(t, result.Artifact.Fingerprint, rec.Fingerprint)

	require.Equal(t, []EventType{EventDiagramAdmitted, EventDiagramCompleted}, drain(env.events))
	require.Equal(t, pool.Stats{Capacity: 2}, env.svc.PoolStats())
}

func TestGenerateValidationFailure(t *testing.T) {
	provider := llm.NewFixture().Default(llm.Response{
		Text: `{"nodes":[{"id":"a","type":"ec2"},{"id":"m","type":"mainframe"}],"connections":[{"from":"a","to":"ghost"}]}`,
	})
	env := newTestEnv(t, provider, Options{})

	_, err := env.svc.Generate(context.Background(), "legacy system")
	require.ErrorIs(t, err, domain.ErrValidation)
	require.Equal(t, KindValidation, ErrorKind(err))

	var ve *domain.ValidationError
	require.True(t, errors.As(err, &ve))
	require.True(t, ve.Has(domain.ViolationUnknownNodeType))
	require.True(t, ve.Has(domain.ViolationDanglingConnectionEndpoint))

	entries, _ := os.ReadDir(env.imageDir)
	require.Empty(t, entries, "no artifact for a rejected specification")
	require.Equal(t, []EventType{EventDiagramAdmitted, EventDiagramFailed}, drain(env.events))
}

func TestGenerateStageTimeout(t *testing.T) {
	env := newTestEnv(t, llm.NewMock(), Options{RequestTimeout: 30 * time.Millisecond})
	env.svc.builder = blockingBuilder{}

	_, err := env.svc.Generate(context.Background(), "anything")
	require.ErrorIs(t, err, domain.ErrTimeout)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Equal(t, KindTimeout, ErrorKind(err))
	require.Zero(t, env.pool.InFlight(), "slot released after timeout")
}

func TestGeneratePoolTimeout(t *testing.T) {
	env := newTestEnv(t, llm.NewMock(), Options{RequestTimeout: 30 * time.Millisecond})

	release := make(chan struct{})
	var wg sync.WaitGroup
	for range env.pool.Capacity() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = pool.Submit(context.Background(), env.pool, func(ctx context.Context) (struct{}, error) {
				<-release
				return struct{}{}, nil
			})
		}()
	}
	defer func() {
		close(release)
		wg.Wait()
	}()
	require.Eventually(t, func() bool {
		return env.pool.InFlight() == int64(env.pool.Capacity())
	}, 2*time.Second, time.Millisecond)

	_, err := env.svc.Generate(context.Background(), "a web app")
	require.ErrorIs(t, err, domain.ErrPoolTimeout)
	require.Equal(t, KindPoolTimeout, ErrorKind(err))
	require.Equal(t, []EventType{EventDiagramFailed}, drain(env.events))
}

func TestGenerateEmptyDescription(t *testing.T) {
	env := newTestEnv(t, llm.NewMock(), Options{})

	_, err := env.svc.Generate(context.Background(), "  ")
	require.ErrorIs(t, err, builder.ErrEmptyDescription)
	require.Equal(t, KindInput, ErrorKind(err))
}

func TestChat(t *testing.T) {
	provider := llm.NewFixture().Default(llm.Response{Text: "Use a queue."})
	env := newTestEnv(t, provider, Options{})

	reply, err := env.svc.Chat(context.Background(), "how do I decouple services?")
	require.NoError(t, err)
	require.Equal(t, "Use a queue.", reply.Text)
	require.Contains(t, reply.SupportedTypes, "sqs")
	require.Empty(t, drain(env.events), "chat does not go through the pipeline")
	require.Zero(t, env.pool.InFlight())
}

func TestSupportedComponents(t *testing.T) {
	env := newTestEnv(t, llm.NewMock(), Options{})

	components := env.svc.SupportedComponents()
	require.Contains(t, components, "ec2")
	require.NotEmpty(t, components["rds"])
}

func TestErrorKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{&domain.LLMError{Err: errors.New("down")}, KindLLM},
		{&domain.ParseError{Attempts: 2, Msg: "bad"}, KindParse},
		{&domain.ValidationError{}, KindValidation},
		{&domain.RenderError{Msg: "dot"}, KindRender},
		{&domain.PoolTimeoutError{Capacity: 3, Err: context.DeadlineExceeded}, KindPoolTimeout},
		{&domain.TimeoutError{Stage: "render", Err: &domain.RenderError{Msg: "x"}}, KindTimeout},
		{assistant.ErrEmptyMessage, KindInput},
		{errors.New("???"), KindInternal},
	}
	for _, tt := range tests {
		if got := ErrorKind(tt.err); got != tt.want {
			t.Errorf("ErrorKind(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestReaperSweep(t *testing.T) {
	ctx := context.Background()
	ledger, err := sqlite.New(sqlite.MemoryDSN)
	require.NoError(t, err)
	defer ledger.Close()

	dir := t.TempDir()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	write := func(id string, age time.Duration) string {
		path := filepath.Join(dir, id+".png")
		require.NoError(t, os.WriteFile(path, []byte("img"), 0o644))
		require.NoError(t, ledger.Record(ctx, repository.Artifact{
			ID: id, Name: id + ".png", Path: path, Fingerprint: "fp", CreatedAt: now.Add(-age),
		}))
		return path
	}
	oldPath := write("old", 2*time.Hour)
	freshPath := write("fresh", 5*time.Minute)
	require.NoError(t, ledger.Record(ctx, repository.Artifact{
		ID: "vanished", Name: "vanished.png", Path: filepath.Join(dir, "vanished.png"), CreatedAt: now.Add(-3 * time.Hour),
	}))

	bus := NewEventBus()
	events := make(chan Event, 4)
	bus.Subscribe(events)

	reaper := NewReaper(ledger, bus, time.Hour)
	reaper.now = func() time.Time { return now }

	removed, err := reaper.Sweep(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, removed)

	require.NoFileExists(t, oldPath)
	require.FileExists(t, freshPath)

	n, err := ledger.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, []EventType{EventArtifactsReaped}, drain(events))
}

func TestReaperDisabled(t *testing.T) {
	require.False(t, NewReaper(nil, nil, time.Hour).Enabled())

	ledger, err := sqlite.New(sqlite.MemoryDSN)
	require.NoError(t, err)
	defer ledger.Close()

	reaper := NewReaper(ledger, nil, 0)
	require.False(t, reaper.Enabled())

	removed, err := reaper.Sweep(context.Background())
	require.NoError(t, err)
	require.Zero(t, removed)

	// Run returns immediately when disabled
	reaper.Run(context.Background())
}

func TestEventBusSkipsSlowSubscribers(t *testing.T) {
	bus := NewEventBus()
	full := make(chan Event)
	ready := make(chan Event, 1)
	bus.Subscribe(full)
	bus.Subscribe(ready)

	bus.Publish(Event{Type: EventDiagramCompleted})

	require.Equal(t, EventDiagramCompleted, (<-ready).Type)

	var nilBus *EventBus
	nilBus.Publish(Event{Type: EventDiagramFailed})
}

func TestRenderSpecification(t *testing.T) {
	env := newTestEnv(t, llm.NewFixture(), Options{})
	ctx := context.Background()

	spec := &domain.Specification{
		Name: "Imported",
		Nodes: []domain.Node{
			{ID: "api", Type: "ec2", Label: "API"},
			{ID: "db", Type: "rds", Label: "DB"},
		},
		Connections: []domain.Connection{{From: "api", To: "db"}},
	}

	result, err := env.svc.RenderSpecification(ctx, spec)
	require.NoError(t, err)
	require.FileExists(t, result.Artifact.Path)
	require.Equal(t, "Imported", result.Specification.Name)
	require.Equal(t, []EventType{EventDiagramAdmitted, EventDiagramCompleted}, drain(env.events))

	_, err = env.svc.RenderSpecification(ctx, nil)
	require.ErrorIs(t, err, ErrNoSpecification)
	require.Equal(t, KindInput, ErrorKind(err))

	spec.Nodes[1].Type = "mainframe"
	_, err = env.svc.RenderSpecification(ctx, spec)
	require.ErrorIs(t, err, domain.ErrValidation)
}
