package tenant

import (
	"context"
	"log/slog"
)

// contextKey is a private type to prevent collisions with other context keys.
type contextKey struct{}

// WithTenant adds a tenant name to the context.
func WithTenant(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, contextKey{}, name)
}

// FromContext retrieves the tenant name from the context.
// Returns "", false if no tenant is found.
func FromContext(ctx context.Context) (string, bool) {
	name, ok := ctx.Value(contextKey{}).(string)
	if !ok || name == "" {
		return "", false
	}
	return name, true
}

// MustFromContext retrieves the tenant name from the context.
// Panics if no tenant is found. Use this only in handlers
// that absolutely require a tenant to function.
func MustFromContext(ctx context.Context) string {
	name, ok := FromContext(ctx)
	if !ok {
		panic("tenant: no tenant in context")
	}
	return name
}

// LoggerExtractor returns a ContextExtractor for the logger that extracts the tenant name from context
func LoggerExtractor() func(ctx context.Context) (slog.Attr, bool) {
	return func(ctx context.Context) (slog.Attr, bool) {
		if name, ok := FromContext(ctx); ok {
			return slog.String("tenant", name), true
		}
		return slog.Attr{}, false
	}
}
