package secret

import (
	"context"
	"errors"
	"strings"
)

// RefPrefix marks a configuration value as a secret reference.
const RefPrefix = "secretref:"

// Sentinel errors.
var (
	ErrSecretNotFound  = errors.New("secret: not found")
	ErrUnknownProvider = errors.New("secret: unknown provider")
	ErrEmptyValue      = errors.New("secret: provider returned empty value")
)

// Provider looks up a secret value by reference. Implementations are used
// concurrently and never log the values they return.
type Provider interface {
	Name() string
	Resolve(ctx context.Context, ref string) (string, error)
	Close() error
}

// Ref is a parsed "secretref:<provider>:<key>" reference.
type Ref struct {
	Provider string
	Key      string
}

// String renders the reference in its configuration form.
func (r Ref) String() string {
	return RefPrefix + r.Provider + ":" + r.Key
}

// ParseRef parses value as a whole-value reference. References never
// contain whitespace.
func ParseRef(value string) (Ref, bool) {
	rest, ok := strings.CutPrefix(value, RefPrefix)
	if !ok {
		return Ref{}, false
	}
	provider, key, ok := strings.Cut(rest, ":")
	if !ok || provider == "" || key == "" || strings.ContainsAny(rest, " \t\r\n") {
		return Ref{}, false
	}
	return Ref{Provider: provider, Key: key}, true
}
