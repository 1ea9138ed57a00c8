package auth

import (
	"context"
)

var claimsCtxKey = &contextKey{"claims"}

type contextKey struct {
	name string
}

// WithClaimsContext stores verified access claims in ctx
func WithClaimsContext(ctx context.Context, claims *AccessClaims) context.Context {
	return context.WithValue(ctx, claimsCtxKey, claims)
}

// ClaimsFromContext returns the claims stored by WithClaimsContext
func ClaimsFromContext(ctx context.Context) (*AccessClaims, bool) {
	claims, ok := ctx.Value(claimsCtxKey).(*AccessClaims)
	return claims, ok && claims != nil
}

// ActorFromContext resolves the caller from claims stored in ctx
func ActorFromContext(ctx context.Context) (Actor, bool) {
	claims, ok := ClaimsFromContext(ctx)
	if !ok {
		return Actor{}, false
	}

	id, ok := claims.UserID()
	if !ok {
		return Actor{}, false
	}

	role, ok := claims.Role()
	if !ok {
		return Actor{}, false
	}

	return Actor{ID: id, Role: role}, true
}
