// Package authctx carries the authenticated caller through the request
// context, decoupling feature handlers from the gateway middleware.
package authctx

import (
	"context"

	"github.com/google/uuid"
)

// Caller identifies the authenticated user behind a request.
type Caller struct {
	UserID uuid.UUID
	Role   string
}

type ctxKey struct{}

// WithCaller stamps the caller onto the context.
func WithCaller(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, ctxKey{}, c)
}

// From extracts the caller; ok is false on unauthenticated requests.
func From(ctx context.Context) (Caller, bool) {
	c, ok := ctx.Value(ctxKey{}).(Caller)
	return c, ok
}
