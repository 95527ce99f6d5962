package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/redis/go-redis/v9"

	"github.com/jonwraymond/infergate/observe"
)

// ErrNilClient is returned by NewRedisCache when no client is supplied.
var ErrNilClient = errors.New("cache: redis client is nil")

// envelope is the stored form of a value. CreatedAt and TTL travel with the
// bytes so a reader can report entry age.
type envelope struct {
	Value     []byte `cbor:"v"`
	CreatedAt int64  `cbor:"c"`
	TTL       int64  `cbor:"t,omitempty"`
}

var (
	envEncMode cbor.EncMode
	envDecMode cbor.DecMode
)

func init() {
	var err error
	envEncMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("cache: cbor enc mode: %v", err))
	}
	envDecMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("cache: cbor dec mode: %v", err))
	}
}

func encodeEntry(e Entry) ([]byte, error) {
	return envEncMode.Marshal(envelope{
		Value:     e.Value,
		CreatedAt: e.CreatedAt.Unix(),
		TTL:       int64(e.TTL / time.Second),
	})
}

func decodeEntry(key string, data []byte) (Entry, error) {
	var env envelope
	if err := envDecMode.Unmarshal(data, &env); err != nil {
		return Entry{}, err
	}
	return Entry{
		Key:       key,
		Value:     env.Value,
		TTL:       time.Duration(env.TTL) * time.Second,
		CreatedAt: time.Unix(env.CreatedAt, 0),
	}, nil
}

// RedisCache stores values in Redis using GET and SET with expiry.
//
// Transport and decode failures are logged and downgraded: Get reports a
// miss and Set/Delete return nil. Ping is the only method that surfaces
// store status.
type RedisCache struct {
	rdb    redis.UniversalClient
	prefix string
	logger observe.Logger
}

// RedisOption configures a RedisCache.
type RedisOption func(*RedisCache)

// WithKeyPrefix prepends prefix to every key written to Redis.
func WithKeyPrefix(prefix string) RedisOption {
	return func(c *RedisCache) { c.prefix = prefix }
}

// WithLogger sets the logger that receives downgraded store errors.
func WithLogger(l observe.Logger) RedisOption {
	return func(c *RedisCache) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewRedisCache wraps an existing client. The caller owns the client.
func NewRedisCache(client redis.UniversalClient, opts ...RedisOption) (*RedisCache, error) {
	if client == nil {
		return nil, ErrNilClient
	}
	c := &RedisCache{
		rdb:    client,
		logger: observe.NopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *RedisCache) key(k string) string { return c.prefix + k }

// Get retrieves a value. Store errors are treated as misses.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	e, ok := c.Lookup(ctx, key)
	if !ok {
		return nil, false
	}
	return e.Value, true
}

// Lookup retrieves the full entry. Store errors are treated as misses.
func (c *RedisCache) Lookup(ctx context.Context, key string) (Entry, bool) {
	data, err := c.rdb.Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Entry{}, false
	}
	if err != nil {
		c.logger.Warn(ctx, "cache get failed; treating as miss",
			observe.Field{Key: "key", Value: key},
			observe.Field{Key: "error", Value: err.Error()},
		)
		return Entry{}, false
	}
	e, err := decodeEntry(key, data)
	if err != nil {
		c.logger.Warn(ctx, "cache entry undecodable; treating as miss",
			observe.Field{Key: "key", Value: key},
			observe.Field{Key: "error", Value: err.Error()},
		)
		return Entry{}, false
	}
	return e, true
}

// Set stores value with ttl. TTL<=0 is a no-op. Store errors are logged.
func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	data, err := encodeEntry(Entry{Key: key, Value: value, TTL: ttl, CreatedAt: time.Now()})
	if err != nil {
		c.logger.Warn(ctx, "cache entry unencodable; skipping write",
			observe.Field{Key: "key", Value: key},
			observe.Field{Key: "error", Value: err.Error()},
		)
		return nil
	}
	if err := c.rdb.Set(ctx, c.key(key), data, ttl).Err(); err != nil {
		c.logger.Warn(ctx, "cache set failed; skipping write",
			observe.Field{Key: "key", Value: key},
			observe.Field{Key: "error", Value: err.Error()},
		)
	}
	return nil
}

// Delete removes key. Store errors are logged.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	if err := c.rdb.Del(ctx, c.key(key)).Err(); err != nil {
		c.logger.Warn(ctx, "cache delete failed",
			observe.Field{Key: "key", Value: key},
			observe.Field{Key: "error", Value: err.Error()},
		)
	}
	return nil
}

// Ping checks connectivity to Redis.
func (c *RedisCache) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("cache: redis ping: %w", err)
	}
	return nil
}

var (
	_ Cache  = (*RedisCache)(nil)
	_ Pinger = (*RedisCache)(nil)
)
