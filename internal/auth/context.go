package auth

import "context"

type ctxKey struct{}

// Caller — идентичность, с которой работает ядро.
type Caller struct {
	ID   string
	Role string
}

func WithCaller(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, ctxKey{}, c)
}

func CallerFrom(ctx context.Context) (Caller, bool) {
	c, ok := ctx.Value(ctxKey{}).(Caller)
	return c, ok && c.ID != ""
}
