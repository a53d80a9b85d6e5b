package shared

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/domain"
)

// ContextKey is the type of request context keys set by this package.
type ContextKey string

// Context keys for various values
const (
	// UserContextKey holds the authenticated *domain.User
	UserContextKey ContextKey = "user"

	// TraceIDKey holds the request trace ID
	TraceIDKey ContextKey = "traceID"

	// TraceIDHeader carries the trace ID in requests and responses
	TraceIDHeader = "X-Trace-ID"
)

// NewTraceID returns a fresh random trace ID.
func NewTraceID() string {
	return uuid.NewString()
}

// WithTraceID stores traceID in ctx.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// GetTraceID retrieves the trace ID from the context.
// If no trace ID exists, it returns an empty string.
func GetTraceID(ctx context.Context) string {
	traceID, ok := ctx.Value(TraceIDKey).(string)
	if !ok {
		return ""
	}
	return traceID
}

// WithUser stores the authenticated caller in ctx.
func WithUser(ctx context.Context, user *domain.User) context.Context {
	return context.WithValue(ctx, UserContextKey, user)
}

// UserFromContext returns the authenticated caller, if any.
func UserFromContext(ctx context.Context) (*domain.User, bool) {
	user, ok := ctx.Value(UserContextKey).(*domain.User)
	if !ok || user == nil {
		return nil, false
	}
	return user, true
}
