package contextutils

import "context"

// ContextKey namespaces values this package stores on a context
type ContextKey string

const (
	UserIDKey    ContextKey = "userID"
	RequestIDKey ContextKey = "requestID"
)

// WithUserID records the acting user for logging and auditing
func WithUserID(ctx context.Context, userID int) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

// GetUserIDFromContext returns 0 when no user is set
func GetUserIDFromContext(ctx context.Context) int {
	id, _ := ctx.Value(UserIDKey).(int)
	return id
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

func GetRequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDKey).(string)
	return id
}
