package auth

import (
	"context"

	"github.com/phishdrill/phishdrill/internal/authz"
)

type contextKey string

const principalContextKey contextKey = "principal"

// ContextWithPrincipal stores the authenticated principal on ctx.
func ContextWithPrincipal(ctx context.Context, p *authz.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, p)
}

// PrincipalFromContext returns the principal or nil when unauthenticated.
func PrincipalFromContext(ctx context.Context) *authz.Principal {
	p, ok := ctx.Value(principalContextKey).(*authz.Principal)
	if !ok {
		return nil
	}
	return p
}

// MustPrincipalFromContext panics when the auth middleware did not run.
func MustPrincipalFromContext(ctx context.Context) *authz.Principal {
	p := PrincipalFromContext(ctx)
	if p == nil {
		panic("principal not found - ensure auth middleware is applied")
	}
	return p
}

// AccountIDFromContext returns the caller's account id, or "".
func AccountIDFromContext(ctx context.Context) string {
	if p := PrincipalFromContext(ctx); p != nil {
		return p.Subject()
	}
	return ""
}
