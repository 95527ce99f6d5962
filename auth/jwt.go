package auth

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Default token lifetimes.
const (
	DefaultServiceTokenTTL = 5 * time.Minute
	DefaultUserTokenTTL    = time.Hour
)

// JWTConfig configures where the bearer token is read from.
type JWTConfig struct {
	// HeaderName defaults to "Authorization".
	HeaderName string

	// Scheme defaults to "Bearer".
	Scheme string
}

// KeyProvider supplies the HMAC signing key.
type KeyProvider interface {
	SigningKey(ctx context.Context) ([]byte, error)
}

// StaticKeyProvider serves a fixed key.
type StaticKeyProvider []byte

// NewStaticKeyProvider returns a provider for key.
func NewStaticKeyProvider(key []byte) StaticKeyProvider {
	return StaticKeyProvider(key)
}

// SigningKey returns the key, or ErrEmptySecret when none was configured.
func (k StaticKeyProvider) SigningKey(context.Context) ([]byte, error) {
	if len(k) == 0 {
		return nil, ErrEmptySecret
	}
	return k, nil
}

// JWTAuthenticator validates HS256 bearer tokens.
type JWTAuthenticator struct {
	header string
	scheme string
	keys   KeyProvider
}

// NewJWTAuthenticator creates a JWT authenticator.
func NewJWTAuthenticator(config JWTConfig, keys KeyProvider) *JWTAuthenticator {
	a := &JWTAuthenticator{header: config.HeaderName, scheme: config.Scheme, keys: keys}
	if a.header == "" {
		a.header = "Authorization"
	}
	if a.scheme == "" {
		a.scheme = "Bearer"
	}
	return a
}

// Authenticate reads "<scheme> <token>" from the configured header.
func (a *JWTAuthenticator) Authenticate(r *http.Request) (*Identity, error) {
	header := strings.TrimSpace(r.Header.Get(a.header))
	if header == "" {
		return nil, ErrMissingCredentials
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, a.scheme) {
		if strings.EqualFold(header, a.scheme) {
			return nil, ErrMissingCredentials
		}
		return nil, ErrTokenMalformed
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrMissingCredentials
	}

	key, err := a.keys.SigningKey(r.Context())
	if err != nil {
		return nil, fmt.Errorf("jwt: signing key: %w", err)
	}
	return Validate(token, key)
}

// Validate parses and verifies a token signed with secret.
//
// It returns ErrTokenExpired for a well-formed token past its expiry and
// ErrTokenMalformed for anything unparsable, unsigned, signed with another
// key or algorithm, or missing its subject or expiry.
func Validate(tokenString string, secret []byte) (*Identity, error) {
	if tokenString == "" {
		return nil, ErrMissingCredentials
	}
	if len(secret) == 0 {
		return nil, ErrEmptySecret
	}

	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}

	identity := buildIdentity(claims)
	if identity.Principal == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrTokenMalformed)
	}
	if identity.IsExpired() {
		return nil, ErrTokenExpired
	}
	return identity, nil
}

// IssueServiceToken signs a token for the internal service principal.
// A non-positive ttl selects DefaultServiceTokenTTL.
func IssueServiceToken(secret []byte, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = DefaultServiceTokenTTL
	}
	return issue(secret, ServiceSubject, ttl)
}

// IssueUserToken signs a token whose subject is identity.
// A non-positive ttl selects DefaultUserTokenTTL.
func IssueUserToken(secret []byte, identity string, ttl time.Duration) (string, error) {
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return "", ErrEmptyIdentity
	}
	if identity == ServiceSubject {
		return "", fmt.Errorf("auth: %q is reserved for the service principal", identity)
	}
	if ttl <= 0 {
		ttl = DefaultUserTokenTTL
	}
	return issue(secret, identity, ttl)
}

func issue(secret []byte, subject string, ttl time.Duration) (string, error) {
	if len(secret) == 0 {
		return "", ErrEmptySecret
	}
	now := time.Now().UTC()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("jwt: sign token: %w", err)
	}
	return signed, nil
}

// ServiceTokenSource returns a function minting a fresh service token on
// every call, suitable for attaching to outbound provider requests.
func ServiceTokenSource(secret []byte, ttl time.Duration) func() (string, error) {
	return func() (string, error) {
		return IssueServiceToken(secret, ttl)
	}
}

func buildIdentity(claims jwt.MapClaims) *Identity {
	identity := &Identity{Claims: maps.Clone(map[string]any(claims))}

	if sub, err := claims.GetSubject(); err == nil {
		identity.Principal = sub
	}
	identity.Kind = kindForSubject(identity.Principal)

	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		identity.ExpiresAt = exp.Time
	}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		identity.IssuedAt = iat.Time
	}

	return identity
}

var (
	_ Authenticator = (*JWTAuthenticator)(nil)
	_ KeyProvider   = StaticKeyProvider(nil)
)
