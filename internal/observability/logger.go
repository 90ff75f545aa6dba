package observability

import (
	"context"
	"log/slog"
	"os"
)

type ctxKey string

const ctxKeyUserID ctxKey = "user_id"

// Global logger, JSON to stdout by default. Switch to text output with
// HYDROLOG_LOG_FORMAT=text for local runs.
var logger = newLogger()

func newLogger() *slog.Logger {
	if os.Getenv("HYDROLOG_LOG_FORMAT") == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, nil))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, nil))
}

func Logger() *slog.Logger {
	return logger
}

// WithFields returns a logger with additional fields.
func WithFields(kv ...any) *slog.Logger {
	return logger.With(kv...)
}

// WithUserID stores the user the current flow is acting for in the context.
// The user id is this system's correlation key: one scheduler tick fans out
// into per-user goroutines and every log line needs to say whose.
func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyUserID, id)
}

// LoggerFromContext adds user_id if present.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	id, _ := ctx.Value(ctxKeyUserID).(string)
	if id == "" {
		return logger
	}
	return logger.With("user_id", id)
}
