package reqctx

import (
	"context"

	"github.com/google/uuid"

	"github.com/acolhe/clinicd_backend/internal/domain"
)

// WithActor stores the acting principal in the context. Set by the identity
// middleware after validating the session provider's claims.
func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, keyActor, actor)
}

// ActorFromContext retrieves the acting principal from the context.
// Returns a zero Actor and false if not set.
func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	v := ctx.Value(keyActor)
	if v == nil {
		return domain.Actor{}, false
	}
	actor, ok := v.(domain.Actor)
	return actor, ok
}

// MustActor retrieves the acting principal from the context.
// Panics if not set. Use only behind the identity middleware.
func MustActor(ctx context.Context) domain.Actor {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		panic("reqctx: actor not found in context")
	}
	return actor
}

// ActorIDFromContext extracts the acting principal's id.
// Returns uuid.Nil and false if no actor is set.
func ActorIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return uuid.Nil, false
	}
	return actor.ID, true
}
