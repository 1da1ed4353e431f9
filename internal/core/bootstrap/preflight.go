package bootstrap

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"archsketch/internal/config"
	"archsketch/internal/logs"
	"archsketch/internal/registry"
)

// Status grades a preflight check
type Status string

const (
	StatusOK   Status = "ok"
	StatusWarn Status = "warn"
	StatusFail Status = "fail"
)

// Check is a single preflight finding
type Check struct {
	Name   string `json:"name"`
	Status Status `json:"status"`
	Detail string `json:"detail"`
}

// Report contains every preflight finding
type Report struct {
	Timestamp time.Time     `json:"timestamp"`
	Duration  time.Duration `json:"duration"`
	Checks    []Check       `json:"checks"`
}

// OK reports whether no check failed
func (r *Report) OK() bool {
	for _, c := range r.Checks {
		if c.Status == StatusFail {
			return false
		}
	}
	return true
}

// Get returns the named check
func (r *Report) Get(name string) (Check, bool) {
	for _, c := range r.Checks {
		if c.Name == name {
			return c, true
		}
	}
	return Check{}, false
}

// Failures returns "name: detail" for every failed check
func (r *Report) Failures() []string {
	var out []string
	for _, c := range r.Checks {
		if c.Status == StatusFail {
			out = append(out, c.Name+": "+c.Detail)
		}
	}
	return out
}

// Check names
const (
	CheckLayoutEngine = "layout_engine"
	CheckImagesDir    = "images_dir"
	CheckProvider     = "provider"
	CheckCatalogIcons = "catalog_icons"
	CheckReaper       = "artifact_reaper"
)

// versionTimeout bounds the dot -V probe
const versionTimeout = 5 * time.Second

// Preflight checks the host can serve requests with cfg: the layout engine
// runs, the images directory is writable, a model provider is configured
// and the catalog's icon files exist.
func Preflight(ctx context.Context, cfg *config.Config, reg *registry.Registry) *Report {
	logger := logs.From(ctx)
	start := time.Now()

	report := &Report{}
	report.Checks = append(report.Checks,
		checkLayoutEngine(ctx, cfg.Render.DotPath),
		checkImagesDir(cfg.Render.ImagesDir),
		checkProvider(cfg),
		checkCatalogIcons(reg),
		checkReaper(cfg),
	)

	report.Timestamp = time.Now()
	report.Duration = time.Since(start)

	for _, c := range report.Checks {
		switch c.Status {
		case StatusFail:
			logger.ErrorContext(ctx, "preflight", "check", c.Name, "status", c.Status, "detail", c.Detail)
		case StatusWarn:
			logger.WarnContext(ctx, "preflight", "check", c.Name, "status", c.Status, "detail", c.Detail)
		default:
			logger.InfoContext(ctx, "preflight", "check", c.Name, "status", c.Status, "detail", c.Detail)
		}
	}
	logger.InfoContext(ctx, "preflight complete", "checks", len(report.Checks), "ok", report.OK(), "duration", report.Duration)

	return report
}

func checkLayoutEngine(ctx context.Context, binary string) Check {
	if binary == "" {
		binary = "dot"
	}
	path, err := exec.LookPath(binary)
	if err != nil {
		return Check{CheckLayoutEngine, StatusFail, fmt.Sprintf("%s not found: install Graphviz or set render.dot_path", binary)}
	}

	ctx, cancel := context.WithTimeout(ctx, versionTimeout)
	defer cancel()

	// dot prints its version on stderr
	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, path, "-V")
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		return Check{CheckLayoutEngine, StatusFail, fmt.Sprintf("%s -V: %v", path, err)}
	}

	version := strings.TrimSpace(strings.SplitN(out.String(), "\n", 2)[0])
	return Check{CheckLayoutEngine, StatusOK, fmt.Sprintf("%s (%s)", path, version)}
}

func checkImagesDir(dir string) Check {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Check{CheckImagesDir, StatusFail, err.Error()}
	}
	f, err := os.CreateTemp(dir, ".preflight-*")
	if err != nil {
		return Check{CheckImagesDir, StatusFail, fmt.Sprintf("%s is not writable: %v", dir, err)}
	}
	name := f.Name()
	f.Close()
	os.Remove(name)
	return Check{CheckImagesDir, StatusOK, dir}
}

func checkProvider(cfg *config.Config) Check {
	if cfg.UseMock() {
		return Check{CheckProvider, StatusWarn, "mock provider in use, diagrams come from keyword heuristics"}
	}
	if cfg.LLM.APIKey == "" {
		return Check{CheckProvider, StatusFail, config.ErrMissingAPIKey.Error()}
	}
	return Check{CheckProvider, StatusOK, "gemini " + cfg.LLM.Model}
}

func checkCatalogIcons(reg *registry.Registry) Check {
	if reg == nil {
		return Check{CheckCatalogIcons, StatusFail, "no node-type registry"}
	}

	var missing []string
	withIcons := 0
	for name, icon := range reg.SupportedTypes() {
		if icon.Icon == "" {
			continue
		}
		withIcons++
		if _, err := os.Stat(icon.Icon); err != nil {
			missing = append(missing, name+" ("+filepath.Base(icon.Icon)+")")
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return Check{CheckCatalogIcons, StatusWarn, "icons missing, falling back to shapes: " + strings.Join(missing, ", ")}
	}
	return Check{CheckCatalogIcons, StatusOK, fmt.Sprintf("%d types, %d with icons", reg.Len(), withIcons)}
}

func checkReaper(cfg *config.Config) Check {
	ttl := cfg.Render.ArtifactTTL.Duration()
	if ttl <= 0 {
		return Check{CheckReaper, StatusWarn, "artifact_ttl is 0, rendered images are never removed"}
	}
	return Check{CheckReaper, StatusOK, "artifacts removed after " + ttl.String()}
}
