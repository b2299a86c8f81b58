package logger

import "context"

type contextKey struct{}

// NewContext returns a context carrying the given logger.
func NewContext(ctx context.Context, logg Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, logg)
}

// FromContext extracts the logger stored in ctx, falling back to a default
// info-level logger when none is present.
func FromContext(ctx context.Context) Logger {
	if logg, ok := ctx.Value(contextKey{}).(Logger); ok {
		return logg
	}
	return NewLogger("info", "")
}
