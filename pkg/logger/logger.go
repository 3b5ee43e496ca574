package logger

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// New builds the ledger's structured logger. Output is JSON on stdout;
// local and dev environments get debug-level detail.
func New(appEnv string) *slog.Logger {
	level := slog.LevelInfo
	if appEnv == "local" || appEnv == "dev" {
		level = slog.LevelDebug
	}

	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return slog.New(h)
}

type ctxKey struct{}

// With attaches a logger to the context so downstream calls keep the
// request's fields.
func With(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// From returns the context's logger, or slog.Default() when none was set.
func From(ctx context.Context) *slog.Logger {
	if v := ctx.Value(ctxKey{}); v != nil {
		if l, ok := v.(*slog.Logger); ok && l != nil {
			return l
		}
	}
	return slog.Default()
}

// ShutdownFlush exists so main can flush on exit once a buffered handler
// is in play; the JSON handler writes straight through.
func ShutdownFlush(_ context.Context, _ time.Duration) error { return nil }
