package auth

import "time"

// ServiceSubject is the token subject of the internal service principal.
const ServiceSubject = "internal-service"

// Kind distinguishes end users from the internal service principal.
type Kind string

const (
	KindUser    Kind = "user"
	KindService Kind = "service"
)

// Identity represents an authenticated principal.
type Identity struct {
	// Kind is the principal kind.
	Kind Kind

	// Principal is the unique identifier. For users this is the username;
	// for the service principal it is ServiceSubject.
	Principal string

	// Claims contains the raw claims from the token.
	Claims map[string]any

	// ExpiresAt is when this identity expires.
	ExpiresAt time.Time

	// IssuedAt is when the token was issued.
	IssuedAt time.Time
}

// IsService reports whether the identity is the internal service principal.
// A service principal has no backing user record.
func (id *Identity) IsService() bool {
	return id != nil && id.Kind == KindService
}

// IsExpired checks if the identity has expired.
func (id *Identity) IsExpired() bool {
	if id.ExpiresAt.IsZero() {
		return false
	}
	return time.Now().After(id.ExpiresAt)
}

// Owns reports whether the identity is a user principal named identity.
func (id *Identity) Owns(identity string) bool {
	return id != nil && id.Kind == KindUser && identity != "" && id.Principal == identity
}

func kindForSubject(subject string) Kind {
	if subject == ServiceSubject {
		return KindService
	}
	return KindUser
}
