package cache

import (
	"context"
	"time"
)

// Cache is the key-value surface the judge service needs from its cache.
type Cache interface {
	// Get returns "" with a nil error when key is absent.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value under key. A zero ttl means no expiry.
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error

	Del(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, keys ...string) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error

	Ping(ctx context.Context) error
	Close() error
}
