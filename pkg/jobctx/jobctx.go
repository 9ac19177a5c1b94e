// Package jobctx carries the job being watched and the current request id
// through a context, so HTTP calls and log lines can be correlated.
package jobctx

import (
	"context"

	"github.com/google/uuid"
)

type jobIDKey struct{}

type requestIDKey struct{}

// WithJobID returns a context tagged with jobID.
func WithJobID(ctx context.Context, jobID string) context.Context {
	return context.WithValue(ctx, jobIDKey{}, jobID)
}

// JobIDFromContext returns the job ID set by WithJobID, or empty string.
func JobIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(jobIDKey{}).(string)
	return id
}

// WithRequestID returns a context carrying a fixed request id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the request id set by WithRequestID, or empty string.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// RequestID returns the request id in ctx, or a new random one.
func RequestID(ctx context.Context) string {
	if id := RequestIDFromContext(ctx); id != "" {
		return id
	}
	return uuid.NewString()
}

// LogAttrs returns slog key/value pairs for the ids present in ctx.
func LogAttrs(ctx context.Context) []any {
	var attrs []any
	if id := JobIDFromContext(ctx); id != "" {
		attrs = append(attrs, "job_id", id)
	}
	return attrs
}
