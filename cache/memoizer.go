package cache

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"
)

// ComputeFunc produces the value for a cache miss.
type ComputeFunc func(ctx context.Context) ([]byte, error)

// LookupFunc observes every memoized lookup.
type LookupFunc func(ctx context.Context, key string, hit bool)

// Memoizer wraps computations with cache lookup and write-back.
//
// By default concurrent misses on the same key each compute and each write
// (last write wins). WithCoalescing shares one in-flight computation between
// concurrent callers in this process. A caller that gives up does not
// cancel the computation the others are waiting on.
type Memoizer struct {
	cache    Cache
	policy   Policy
	coalesce bool
	group    singleflight.Group
	onLookup LookupFunc
}

// MemoizerOption configures a Memoizer.
type MemoizerOption func(*Memoizer)

// WithCoalescing enables in-process single-flight for concurrent misses.
func WithCoalescing() MemoizerOption {
	return func(m *Memoizer) { m.coalesce = true }
}

// WithLookupObserver registers fn to be called after every lookup.
func WithLookupObserver(fn LookupFunc) MemoizerOption {
	return func(m *Memoizer) { m.onLookup = fn }
}

// NewMemoizer creates a Memoizer over c.
func NewMemoizer(c Cache, policy Policy, opts ...MemoizerOption) *Memoizer {
	m := &Memoizer{cache: c, policy: policy}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Cache returns the underlying store.
func (m *Memoizer) Cache() Cache {
	return m.cache
}

// Do returns the cached value for key, or runs fn and caches its result for
// ttl (policy default when ttl<=0). hit reports whether the value came from
// the cache. Errors are never cached. An invalid key bypasses the cache.
func (m *Memoizer) Do(ctx context.Context, key string, ttl time.Duration, fn ComputeFunc) (value []byte, hit bool, err error) {
	if m.cache == nil || ValidateKey(key) != nil {
		v, err := fn(ctx)
		return v, false, err
	}

	if cached, ok := m.cache.Get(ctx, key); ok {
		m.observe(ctx, key, true)
		return cached, true, nil
	}
	m.observe(ctx, key, false)

	if !m.coalesce {
		v, err := m.compute(ctx, key, ttl, fn)
		return v, false, err
	}

	// The shared computation outlives any single caller; each caller still
	// honours its own cancellation.
	shared := context.WithoutCancel(ctx)
	ch := m.group.DoChan(key, func() (any, error) {
		return m.compute(shared, key, ttl, fn)
	})
	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, false, res.Err
		}
		return res.Val.([]byte), false, nil
	}
}

func (m *Memoizer) compute(ctx context.Context, key string, ttl time.Duration, fn ComputeFunc) ([]byte, error) {
	v, err := fn(ctx)
	if err != nil {
		return v, err
	}
	if ttl = m.policy.EffectiveTTL(ttl); ttl > 0 {
		_ = m.cache.Set(ctx, key, v, ttl)
	}
	return v, nil
}

func (m *Memoizer) observe(ctx context.Context, key string, hit bool) {
	if m.onLookup != nil {
		m.onLookup(ctx, key, hit)
	}
}
