package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	generativelanguage "cloud.google.com/go/ai/generativelanguage/apiv1beta"
	"cloud.google.com/go/ai/generativelanguage/apiv1beta/generativelanguagepb"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"archsketch/internal/logs"
)

// DefaultModel is used when GeminiOptions.Model is empty
const DefaultModel = "models/gemini-1.5-flash"

// GeminiOptions configures NewGemini
type GeminiOptions struct {
	APIKey      string
	Model       string
	Temperature *float32
	MaxRetries  int           // Retries on quota/unavailable errors, default 3
	Backoff     time.Duration // First retry delay, doubled per attempt, default 1s
}

// Gemini calls GenerateContent on the Generative Language API
type Gemini struct {
	client      *generativelanguage.GenerativeClient
	model       string
	temperature *float32
	maxRetries  int
	backoff     time.Duration
}

var _ Provider = (*Gemini)(nil)

// NewGemini dials the Generative Language API
func NewGemini(ctx context.Context, opts GeminiOptions) (*Gemini, error) {
	if opts.APIKey == "" {
		return nil, errors.New("gemini: API key is required")
	}

	client, err := generativelanguage.NewGenerativeClient(ctx, option.WithAPIKey(opts.APIKey))
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}

	g := &Gemini{
		client:      client,
		model:       modelName(opts.Model),
		temperature: opts.Temperature,
		maxRetries:  opts.MaxRetries,
		backoff:     opts.Backoff,
	}
	if g.maxRetries <= 0 {
		g.maxRetries = 3
	}
	if g.backoff <= 0 {
		g.backoff = time.Second
	}
	return g, nil
}

// Name identifies the provider in logs and errors
func (g *Gemini) Name() string {
	return "gemini"
}

// Model returns the fully qualified model name
func (g *Gemini) Model() string {
	return g.model
}

// Close releases the underlying connection
func (g *Gemini) Close() error {
	return g.client.Close()
}

// Generate sends prompt as a single user turn and returns the concatenated
// text parts of the first candidate
func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	req := &generativelanguagepb.GenerateContentRequest{
		Model: g.model,
		Contents: []*generativelanguagepb.Content{
			{
				Role: "user",
				Parts: []*generativelanguagepb.Part{
					{
						Data: &generativelanguagepb.Part_Text{
							Text: prompt,
						},
					},
				},
			},
		},
		GenerationConfig: &generativelanguagepb.GenerationConfig{
			Temperature: g.temperature,
		},
	}

	return doWithRetry(ctx, g.maxRetries, g.backoff, func() (string, error) {
		logs.From(ctx).DebugContext(ctx, "generating",
			"model", g.model,
			"prompt_bytes", len(prompt),
		)

		resp, err := g.client.GenerateContent(ctx, req)
		if err != nil {
			return "", err
		}
		return responseText(resp)
	})
}

func responseText(resp *generativelanguagepb.GenerateContentResponse) (string, error) {
	if fb := resp.GetPromptFeedback(); fb != nil && fb.GetBlockReason() != generativelanguagepb.GenerateContentResponse_PromptFeedback_BLOCK_REASON_UNSPECIFIED {
		return "", fmt.Errorf("prompt blocked: %s", fb.GetBlockReason())
	}
	if len(resp.GetCandidates()) == 0 {
		return "", ErrEmptyResponse
	}

	var b strings.Builder
	for _, part := range resp.GetCandidates()[0].GetContent().GetParts() {
		b.WriteString(part.GetText())
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

func modelName(model string) string {
	if model == "" {
		return DefaultModel
	}
	if !strings.HasPrefix(model, "models/") {
		return "models/" + model
	}
	return model
}

func doWithRetry[T any](
	ctx context.Context,
	maxRetries int,
	backoff time.Duration,
	fn func() (T, error),
) (ret T, err error) {
	for i := 0; ; i++ {
		ret, err = fn()
		if err == nil {
			return
		}
		if i >= maxRetries || !isRetryable(err) {
			return ret, err
		}
		logs.From(ctx).WarnContext(ctx, "retry",
			"attempt", i+1, "error", err,
		)
		select {
		case <-ctx.Done():
			err = ctx.Err()
			return
		case <-time.After(backoff * time.Duration(1<<i)):
		}
	}
}

func isRetryable(err error) bool {
	s, ok := status.FromError(err)
	if ok && (s.Code() == codes.ResourceExhausted || s.Code() == codes.Unavailable) {
		return true
	}
	return false
}
