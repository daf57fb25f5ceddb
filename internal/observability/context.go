package observability

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

// Synthesis-scoped values carried on the context and copied onto every log line.
const (
	RequestIDKey contextKey = "request_id"
	ProviderKey  contextKey = "provider"
	ModelKey     contextKey = "model"
	// AttemptKey holds the 1-based position of the current provider call in
	// the attempt log.
	AttemptKey contextKey = "attempt"
)

// WithRequestID injects request ID into context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// EnsureRequestID returns the request ID already on ctx, or generates and
// injects one.
func EnsureRequestID(ctx context.Context) (context.Context, string) {
	if requestID := GetRequestID(ctx); requestID != "" {
		return ctx, requestID
	}
	requestID := uuid.New().String()
	return WithRequestID(ctx, requestID), requestID
}

// WithAttempt scopes ctx to one provider call: the provider, its model (when
// known) and the attempt number.
func WithAttempt(ctx context.Context, provider, model string, attempt int) context.Context {
	ctx = context.WithValue(ctx, ProviderKey, provider)
	if model != "" {
		ctx = context.WithValue(ctx, ModelKey, model)
	}
	return context.WithValue(ctx, AttemptKey, attempt)
}

// GetRequestID extracts request ID from context.
func GetRequestID(ctx context.Context) string {
	requestID, _ := ctx.Value(RequestIDKey).(string)
	return requestID
}

// GetProvider extracts the provider being attempted.
func GetProvider(ctx context.Context) string {
	provider, _ := ctx.Value(ProviderKey).(string)
	return provider
}

// GetModel extracts the model being attempted.
func GetModel(ctx context.Context) string {
	model, _ := ctx.Value(ModelKey).(string)
	return model
}

// GetAttempt extracts the attempt number, or 0 outside an attempt.
func GetAttempt(ctx context.Context) int {
	attempt, _ := ctx.Value(AttemptKey).(int)
	return attempt
}
