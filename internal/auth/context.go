package auth

import (
	"context"

	"github.com/tallyhub/tallyhub/internal/model"
)

type contextKey string

const principalContextKey contextKey = "principal"

// ContextWithPrincipal stores the request principal.
func ContextWithPrincipal(ctx context.Context, p model.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, p)
}

// PrincipalFromContext returns the request principal, or an anonymous one
// when none was stored.
func PrincipalFromContext(ctx context.Context) model.Principal {
	p, ok := ctx.Value(principalContextKey).(model.Principal)
	if !ok {
		return model.Anonymous()
	}
	return p
}
