package cache

import (
	"context"
	"errors"
	"strings"
	"time"
)

// MaxKeyLength is the maximum allowed length for a cache key.
const MaxKeyLength = 512

// Sentinel errors for cache operations.
var (
	ErrNilCache         = errors.New("cache: cache is nil")
	ErrInvalidKey       = errors.New("cache: key is invalid")
	ErrKeyTooLong       = errors.New("cache: key exceeds max length")
	ErrUnsupportedImage = errors.New("cache: payload is not a decodable image")
)

// Cache is the interface for storing computed results.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: methods should honor cancellation/deadlines where applicable.
// - Errors: Get never errors; it returns (nil, false) on miss or store failure.
// - Writes are plain sets with expiry. No read-modify-write is ever issued.
type Cache interface {
	// Get retrieves a cached value. Returns (nil, false) on miss.
	Get(ctx context.Context, key string) ([]byte, bool)

	// Set stores a value with the given TTL. TTL<=0 means no caching.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a cached value. Idempotent - no error on miss.
	Delete(ctx context.Context, key string) error
}

// Pinger is implemented by caches backed by an external store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Healthy reports whether c is usable. Caches that do not implement Pinger
// are always healthy; a nil cache never is.
func Healthy(ctx context.Context, c Cache) bool {
	if c == nil {
		return false
	}
	if p, ok := c.(Pinger); ok {
		return p.Ping(ctx) == nil
	}
	return true
}

// Entry is a stored value together with its bookkeeping.
type Entry struct {
	Key       string
	Value     []byte
	TTL       time.Duration
	CreatedAt time.Time
}

// ExpiresAt returns when the entry stops being served.
func (e Entry) ExpiresAt() time.Time {
	return e.CreatedAt.Add(e.TTL)
}

// Expired reports whether the entry is past its TTL at now.
func (e Entry) Expired(now time.Time) bool {
	return now.After(e.ExpiresAt())
}

// ValidateKey checks if a key is valid for caching.
func ValidateKey(key string) error {
	if key == "" || strings.TrimSpace(key) == "" {
		return ErrInvalidKey
	}
	if len(key) > MaxKeyLength {
		return ErrKeyTooLong
	}
	// Reject keys with newlines or carriage returns
	if strings.ContainsAny(key, "\n\r") {
		return ErrInvalidKey
	}
	return nil
}
