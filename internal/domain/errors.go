package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Sentinel errors for programmatic checking via errors.Is().
var (
	// ErrLLM indicates the language-model provider was unreachable, timed out or refused the call.
	ErrLLM = errors.New("language model error")

	// ErrParse indicates model output that is not a structurally valid specification.
	ErrParse = errors.New("parse error")

	// ErrValidation indicates a structurally valid but semantically invalid graph.
	ErrValidation = errors.New("validation error")

	// ErrRender indicates a layout/rendering engine failure.
	ErrRender = errors.New("render error")

	// ErrPoolTimeout indicates no execution slot became free before the deadline.
	ErrPoolTimeout = errors.New("pool timeout")

	// ErrTimeout indicates a pipeline stage exceeded the request deadline.
	ErrTimeout = errors.New("request timed out")

	// ErrUnknownType is returned by registry lookups for unsupported node types.
	ErrUnknownType = errors.New("unknown node type")
)

// LLMError wraps a provider failure
type LLMError struct {
	Provider string
	Err      error
}

func (e *LLMError) Error() string {
	if e.Provider == "" {
		return fmt.Sprintf("%s: %v", ErrLLM, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", ErrLLM, e.Provider, e.Err)
}

func (e *LLMError) Unwrap() []error { return []error{ErrLLM, e.Err} }

// ParseError reports model output that could not be decoded
type ParseError struct {
	Attempts int    // Number of provider calls made before giving up
	Msg      string // Decoder diagnostic
	Err      error  // Underlying decoder error, may be nil
}

func (e *ParseError) Error() string {
	msg := e.Msg
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Attempts > 1 {
		return fmt.Sprintf("%s after %d attempts: %s", ErrParse, e.Attempts, msg)
	}
	return fmt.Sprintf("%s: %s", ErrParse, msg)
}

func (e *ParseError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrParse}
	}
	return []error{ErrParse, e.Err}
}

// ValidationError carries every invariant breach found in a candidate
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	if len(e.Violations) == 0 {
		return ErrValidation.Error()
	}
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, v.String())
	}
	return fmt.Sprintf("%s: %d violation(s): %s", ErrValidation, len(e.Violations), strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Has reports whether any violation of the given kind was recorded
func (e *ValidationError) Has(kind ViolationKind) bool {
	for _, v := range e.Violations {
		if v.Kind == kind {
			return true
		}
	}
	return false
}

// RenderError reports a rendering engine failure
type RenderError struct {
	Msg        string
	Diagnostic string // Engine stderr or limit description
	Err        error
}

func (e *RenderError) Error() string {
	s := fmt.Sprintf("%s: %s", ErrRender, e.Msg)
	if e.Diagnostic != "" {
		s += ": " + e.Diagnostic
	}
	if e.Err != nil {
		s += fmt.Sprintf(" (%v)", e.Err)
	}
	return s
}

func (e *RenderError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrRender}
	}
	return []error{ErrRender, e.Err}
}

// PoolTimeoutError reports that admission to the execution pool timed out
type PoolTimeoutError struct {
	Capacity int
	Waited   time.Duration
	Err      error
}

func (e *PoolTimeoutError) Error() string {
	return fmt.Sprintf("%s: no slot free among %d after %s", ErrPoolTimeout, e.Capacity, e.Waited.Round(time.Millisecond))
}

func (e *PoolTimeoutError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrPoolTimeout}
	}
	return []error{ErrPoolTimeout, e.Err}
}

// TimeoutError marks a stage that ran past the request deadline
type TimeoutError struct {
	Stage string
	Err   error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s during %s: %v", ErrTimeout, e.Stage, e.Err)
}

func (e *TimeoutError) Unwrap() []error { return []error{ErrTimeout, e.Err} }

// AsTimeout wraps err in a TimeoutError when the stage was cut off by ctx's deadline.
// Other errors are returned unchanged.
func AsTimeout(ctx context.Context, stage string, err error) error {
	if err == nil {
		return nil
	}
	var te *TimeoutError
	if errors.As(err, &te) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &TimeoutError{Stage: stage, Err: err}
	}
	return err
}
