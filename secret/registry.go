package secret

import (
	"fmt"
	"maps"
	"slices"
	"sync"
)

// ProviderFactory builds a provider from its settings block.
type ProviderFactory func(settings map[string]any) (Provider, error)

// Registry maps provider names to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]ProviderFactory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]ProviderFactory)}
}

// DefaultRegistry holds the built-in "file" and "env" providers.
var DefaultRegistry = NewRegistry()

// Register adds a factory under name. Names are unique.
func (r *Registry) Register(name string, factory ProviderFactory) error {
	if name == "" || factory == nil {
		return fmt.Errorf("secret: invalid registration %q", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.factories[name]; dup {
		return fmt.Errorf("secret: provider %q already registered", name)
	}
	r.factories[name] = factory
	return nil
}

// List returns the registered names in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.factories))
}

// NewResolver builds the named providers, passing each its entry from
// settings, and returns a resolver over them.
func (r *Registry) NewResolver(strict bool, names []string, settings map[string]map[string]any) (*Resolver, error) {
	res := NewResolver(strict)
	for _, name := range names {
		r.mu.RLock()
		factory, ok := r.factories[name]
		r.mu.RUnlock()
		if !ok {
			res.Close()
			return nil, fmt.Errorf("%w %q", ErrUnknownProvider, name)
		}
		p, err := factory(settings[name])
		if err != nil {
			res.Close()
			return nil, fmt.Errorf("secret: build %s: %w", name, err)
		}
		res.Register(p)
	}
	return res, nil
}
