package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/angelmondragon/bidmart-backend/pkg/types"
)

type actorKey struct{}

// WithActor stores the authenticated caller on ctx.
func WithActor(ctx context.Context, actor types.Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns the caller stored by WithActor. ok is false when
// none was stored or the stored identity is unusable.
func ActorFromContext(ctx context.Context) (types.Actor, bool) {
	if ctx == nil {
		return types.Actor{}, false
	}
	actor, ok := ctx.Value(actorKey{}).(types.Actor)
	if !ok || actor.UserID == uuid.Nil || !actor.Role.IsValid() {
		return types.Actor{}, false
	}
	return actor, true
}

// subjectOf keys per-caller state: the user id when authenticated, else "".
func subjectOf(ctx context.Context) string {
	if actor, ok := ActorFromContext(ctx); ok {
		return actor.UserID.String()
	}
	return ""
}
