package logger

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// New returns the JSON slog logger the platform runs on. Call sites reach
// it through context (From) or the gin request middleware; survey and call
// code must not depend on handler details.
func New(appEnv string) *slog.Logger {
	level := slog.LevelInfo
	if appEnv == "local" || appEnv == "dev" {
		level = slog.LevelDebug
	}

	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return slog.New(h)
}

type ctxKey struct{}

// With stores a logger in context.
func With(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// From gets a logger from context, falling back to slog.Default().
func From(ctx context.Context) *slog.Logger {
	if v := ctx.Value(ctxKey{}); v != nil {
		if l, ok := v.(*slog.Logger); ok && l != nil {
			return l
		}
	}
	return slog.Default()
}

// ShutdownFlush is a hook for draining buffered log output on shutdown.
// The JSON handler writes synchronously, so today it is a no-op.
func ShutdownFlush(_ context.Context, _ time.Duration) error { return nil }
