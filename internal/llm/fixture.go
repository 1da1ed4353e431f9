package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Response is one canned reply
type Response struct {
	Text string
	Err  error
}

// Fixture replays canned responses for deterministic tests. A prompt is
// answered by the first registered key it contains; each key's responses are
// consumed in order and the last one repeats.
type Fixture struct {
	mu       sync.Mutex
	keys     []string
	replies  map[string][]Response
	fallback *Response
	prompts  []string
}

var _ Provider = (*Fixture)(nil)

// NewFixture creates an empty fixture provider
func NewFixture() *Fixture {
	return &Fixture{replies: make(map[string][]Response)}
}

// On registers responses for prompts containing key
func (f *Fixture) On(key string, responses ...Response) *Fixture {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.replies[key]; !ok {
		f.keys = append(f.keys, key)
	}
	f.replies[key] = append(f.replies[key], responses...)
	return f
}

// Default sets the response for prompts matching no key
func (f *Fixture) Default(r Response) *Fixture {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fallback = &r
	return f
}

// Name identifies the provider in logs and errors
func (f *Fixture) Name() string {
	return "fixture"
}

// Generate returns the next response for the first key contained in prompt
func (f *Fixture) Generate(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)

	for _, key := range f.keys {
		if !strings.Contains(prompt, key) {
			continue
		}
		queue := f.replies[key]
		r := queue[0]
		if len(queue) > 1 {
			f.replies[key] = queue[1:]
		}
		return r.Text, r.Err
	}

	if f.fallback != nil {
		return f.fallback.Text, f.fallback.Err
	}
	return "", fmt.Errorf("fixture: no response registered for prompt")
}

// Prompts returns every prompt received, in order
func (f *Fixture) Prompts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.prompts...)
}

// Calls returns the number of Generate calls
func (f *Fixture) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}
