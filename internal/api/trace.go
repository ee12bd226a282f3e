package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"fintrack/internal/log"
)

type contextKey string

const requestIDKey contextKey = "request_id"

// WithRequestID makes every request sent with ctx carry id as X-Request-ID,
// so one user action can be followed across several calls.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestID returns the id attached by WithRequestID, or a fresh one.
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok && id != "" {
		return id
	}
	return uuid.NewString()
}

// responseLevel picks the log level for a completed request.
func responseLevel(status int) slog.Level {
	if status >= 400 {
		return slog.LevelWarn
	}
	return slog.LevelDebug
}

// responseErrorType classifies a failed status for the error_type log field.
func responseErrorType(status int) string {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return log.ErrorTypeAuth
	case status >= 500:
		return log.ErrorTypeServer
	case status >= 400:
		return log.ErrorTypeValidation
	}
	return ""
}
