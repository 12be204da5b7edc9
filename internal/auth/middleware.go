package auth

import (
	"context"
	"net/http"
	"strings"
)

type contextKey struct{}

var principalKey contextKey

// PrincipalFromContext returns the authenticated principal, or nil when the
// request carried no valid token.
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalKey).(*Principal)
	return p
}

// WithPrincipal is used by tests and the middleware to attach a principal.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// Middleware parses an optional bearer token and attaches the principal to
// the request context. It does not reject requests: authorization is the
// responsibility of per-endpoint checks, which deny nil principals.
func Middleware(issuer *TokenIssuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if strings.HasPrefix(header, "Bearer ") {
				if p, err := issuer.Parse(strings.TrimPrefix(header, "Bearer ")); err == nil {
					r = r.WithContext(WithPrincipal(r.Context(), p))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
