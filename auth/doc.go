// Package auth provides bearer-token authentication and identity-scoped
// authorization for the gateway.
//
// Tokens are HS256-signed JWTs for two principal kinds: end users, whose
// subject is their identity, and the internal service principal, whose
// subject is ServiceSubject. Validation is local and never performs a
// network call.
package auth
