package logs

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

type key struct{}

var loggerKey = key{}

// With returns a context carrying logger
func With(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// From returns the logger carried by ctx, or slog.Default when there is none
func From(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}

// WithRequestID derives a logger tagged with a fresh request id and stores it
// in the returned context
func WithRequestID(ctx context.Context, base *slog.Logger) (context.Context, string) {
	id := uuid.NewString()
	return With(ctx, base.With("request_id", id)), id
}
