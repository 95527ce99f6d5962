package secret

import (
	"context"
	"errors"
	"fmt"
	"regexp"
)

// inlineRef finds references embedded in a longer value, such as
// "Bearer secretref:env:OPENAI_API_KEY".
var inlineRef = regexp.MustCompile(`secretref:([^:\s]+):(\S+)`)

// Resolver turns configuration values into their secret contents.
//
// A value is first expanded against the environment. A value that is
// entirely a reference is replaced by the provider's answer; references
// embedded in other text are substituted in place. Anything else is
// returned as expanded.
type Resolver struct {
	providers map[string]Provider
	strict    bool
}

// NewResolver creates a resolver over providers. In strict mode an empty
// provider answer is an error.
func NewResolver(strict bool, providers ...Provider) *Resolver {
	r := &Resolver{providers: make(map[string]Provider, len(providers)), strict: strict}
	for _, p := range providers {
		r.Register(p)
	}
	return r
}

// Register adds or replaces a provider.
func (r *Resolver) Register(p Provider) {
	if p == nil {
		return
	}
	r.providers[p.Name()] = p
}

// ResolveValue resolves a single configuration value.
func (r *Resolver) ResolveValue(ctx context.Context, value string) (string, error) {
	expanded, err := ExpandEnvStrict(value)
	if err != nil {
		return "", err
	}
	if ref, ok := ParseRef(expanded); ok {
		return r.lookup(ctx, ref)
	}

	var firstErr error
	out := inlineRef.ReplaceAllStringFunc(expanded, func(m string) string {
		if firstErr != nil {
			return m
		}
		sub := inlineRef.FindStringSubmatch(m)
		v, err := r.lookup(ctx, Ref{Provider: sub[1], Key: sub[2]})
		if err != nil {
			firstErr = err
			return m
		}
		return v
	})
	if firstErr != nil {
		return "", firstErr
	}
	return out, nil
}

// ResolveInPlace resolves each non-empty field and overwrites it.
func (r *Resolver) ResolveInPlace(ctx context.Context, fields ...*string) error {
	for _, f := range fields {
		if f == nil || *f == "" {
			continue
		}
		v, err := r.ResolveValue(ctx, *f)
		if err != nil {
			return err
		}
		*f = v
	}
	return nil
}

// Close releases every provider.
func (r *Resolver) Close() error {
	if r == nil {
		return nil
	}
	var errs []error
	for _, p := range r.providers {
		errs = append(errs, p.Close())
	}
	return errors.Join(errs...)
}

func (r *Resolver) lookup(ctx context.Context, ref Ref) (string, error) {
	p, ok := r.providers[ref.Provider]
	if !ok {
		return "", fmt.Errorf("%w %q", ErrUnknownProvider, ref.Provider)
	}
	v, err := p.Resolve(ctx, ref.Key)
	if err != nil {
		return "", fmt.Errorf("secret: %s: %w", ref.Provider, err)
	}
	if v == "" && r.strict {
		return "", fmt.Errorf("%w: %s", ErrEmptyValue, ref.Provider)
	}
	return v, nil
}
