package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Engine lays out a DOT document and writes the image to outPath
type Engine interface {
	Render(ctx context.Context, dot []byte, format, outPath string) error
	Name() string
}

// GraphvizEngine runs the Graphviz dot binary
type GraphvizEngine struct {
	Binary string // Path or name of dot, "dot" when empty
}

var _ Engine = GraphvizEngine{}

// Name identifies the engine in logs
func (e GraphvizEngine) Name() string {
	return "graphviz"
}

func (e GraphvizEngine) binary() string {
	if e.Binary == "" {
		return "dot"
	}
	return e.Binary
}

// Available reports the resolved binary path, or an error when dot cannot be found
func (e GraphvizEngine) Available() (string, error) {
	return exec.LookPath(e.binary())
}

// Render pipes dot to the binary. Stderr is returned as the diagnostic of a
// *EngineError when the process fails.
func (e GraphvizEngine) Render(ctx context.Context, dot []byte, format, outPath string) error {
	cmd := exec.CommandContext(ctx, e.binary(), "-T"+format, "-o", outPath)
	cmd.Stdin = bytes.NewReader(dot)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("graphviz interrupted: %w", ctxErr)
		}
		return &EngineError{Diagnostic: strings.TrimSpace(stderr.String()), Err: err}
	}
	return nil
}

// EngineError carries the engine's own diagnostic output
type EngineError struct {
	Diagnostic string
	Err        error
}

func (e *EngineError) Error() string {
	if e.Diagnostic == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%v: %s", e.Err, e.Diagnostic)
}

func (e *EngineError) Unwrap() error { return e.Err }

func diagnosticOf(err error) string {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Diagnostic
	}
	return ""
}
