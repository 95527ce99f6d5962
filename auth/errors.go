package auth

import "errors"

// Sentinel errors for authentication and authorization.
var (
	// Authentication errors
	ErrMissingCredentials = errors.New("auth: missing credentials")
	ErrTokenExpired       = errors.New("auth: token expired")
	ErrTokenMalformed     = errors.New("auth: token malformed")
	ErrEmptySecret        = errors.New("auth: signing secret is empty")
	ErrEmptyIdentity      = errors.New("auth: identity is empty")

	// Authorization errors
	ErrForbidden = errors.New("auth: access denied")
)

// IsAuthenticationError reports whether err means the caller could not be
// authenticated (as opposed to being authenticated but denied).
func IsAuthenticationError(err error) bool {
	return errors.Is(err, ErrMissingCredentials) ||
		errors.Is(err, ErrTokenExpired) ||
		errors.Is(err, ErrTokenMalformed)
}
