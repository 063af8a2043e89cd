package middleware

import (
	"context"

	"github.com/communityhub/marketplace-backend/internal/policy"
	pkgerrors "github.com/communityhub/marketplace-backend/pkg/errors"
)

type contextKey string

const ctxActor contextKey = "actor"

// WithActor stores the authenticated caller on ctx.
func WithActor(ctx context.Context, actor policy.Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxActor, actor)
}

// ActorFromContext returns the caller seeded by Auth.
func ActorFromContext(ctx context.Context) (policy.Actor, bool) {
	if ctx == nil {
		return policy.Actor{}, false
	}
	actor, ok := ctx.Value(ctxActor).(policy.Actor)
	return actor, ok
}

// UserIDFromContext returns the caller's id as a string, or "" when unauthenticated.
func UserIDFromContext(ctx context.Context) string {
	if actor, ok := ActorFromContext(ctx); ok {
		return actor.UserID.String()
	}
	return ""
}

// RoleFromContext returns the caller's role, or "" when unauthenticated.
func RoleFromContext(ctx context.Context) string {
	if actor, ok := ActorFromContext(ctx); ok {
		return string(actor.Role)
	}
	return ""
}

// RequireActor is ActorFromContext for handlers behind Auth; a missing actor
// is reported as UNAUTHORIZED.
func RequireActor(ctx context.Context) (policy.Actor, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return policy.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	return actor, nil
}
