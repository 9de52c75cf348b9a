package types

import "context"

// contextKey is unexported so nothing outside this package can collide with
// or spoof the values it stores.
type contextKey int

const requestIDKey contextKey = iota

// WithRequestID returns a child context carrying the request correlation ID.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// GetRequestID returns the correlation ID, or "" when the context does not
// carry one.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
