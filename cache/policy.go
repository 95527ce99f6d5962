package cache

import "time"

// Policy bounds the TTLs handed to a Memoizer.
type Policy struct {
	DefaultTTL time.Duration // used when the caller passes ttl <= 0; zero disables storing
	MaxTTL     time.Duration // ceiling on any TTL; zero means none
}

// DefaultPolicy stores for an hour unless told otherwise and never longer
// than a day, the longest lifetime any gateway result uses.
func DefaultPolicy() Policy {
	return Policy{DefaultTTL: time.Hour, MaxTTL: 24 * time.Hour}
}

// EffectiveTTL resolves the TTL for one store.
func (p Policy) EffectiveTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		ttl = p.DefaultTTL
	}
	if p.MaxTTL > 0 {
		ttl = min(ttl, p.MaxTTL)
	}
	return ttl
}
