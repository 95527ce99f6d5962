package auth

import (
	"context"
	"net/http"
)

// Authenticator identifies the caller of an HTTP request.
//
// A caller that cannot be identified yields ErrMissingCredentials,
// ErrTokenMalformed or ErrTokenExpired, possibly wrapped. Any other error is
// an internal failure of the authenticator itself. Implementations are safe
// for concurrent use and make no network calls.
type Authenticator interface {
	Authenticate(r *http.Request) (*Identity, error)
}

// AuthenticatorFunc adapts a function to Authenticator.
type AuthenticatorFunc func(r *http.Request) (*Identity, error)

// Authenticate calls f(r).
func (f AuthenticatorFunc) Authenticate(r *http.Request) (*Identity, error) {
	return f(r)
}

type identityKey struct{}

// ContextWithIdentity returns a copy of ctx carrying id.
func ContextWithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the identity attached by RequireAuth.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(*Identity)
	return id, ok && id != nil
}

// Principal returns the principal in ctx, or "" for anonymous requests.
func Principal(ctx context.Context) string {
	if id, ok := IdentityFromContext(ctx); ok {
		return id.Principal
	}
	return ""
}
