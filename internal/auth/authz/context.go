package authz

import (
	"context"
	"net/http"

	"github.com/aussiebroadwan/gatehouse/internal/auth/domain"
)

type claimsKey struct{}

// WithClaims stores the caller's claims in ctx.
func WithClaims(ctx context.Context, c domain.Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, c)
}

// ClaimsFromContext returns the claims stored by the authorization
// middleware. ok is false on routes that require no authentication.
func ClaimsFromContext(ctx context.Context) (domain.Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(domain.Claims)
	return c, ok
}

// IdentityKey is an httpx.KeyExtractor that buckets requests by caller.
// It returns "" before authorization has run.
func IdentityKey(r *http.Request) string {
	c, ok := ClaimsFromContext(r.Context())
	if !ok {
		return ""
	}
	return string(c.Scheme) + ":" + c.Identity
}
