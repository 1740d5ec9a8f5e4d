package log

import (
	"context"

	"github.com/rs/zerolog"
)

type ctxKey struct{}

// WithLogger stores a logger in the context.
func WithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// WithRoom scopes the context logger to a chat room. Calls on an already
// scoped context are not deduplicated, so scope once per request.
func WithRoom(ctx context.Context, room string) context.Context {
	if room == "" {
		return ctx
	}
	return WithLogger(ctx, Ctx(ctx).With().Str(FieldRoom, room).Logger())
}

// Ctx returns the request logger, or the global logger outside a request.
func Ctx(ctx context.Context) zerolog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(zerolog.Logger); ok {
		return l
	}
	return L()
}
