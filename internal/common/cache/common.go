package cache

import (
	"context"
	"crypto/rand"
	"math/big"
	"time"

	jsoniter "github.com/json-iterator/go"
)

// NullCacheValue marks a cached miss so absent rows do not hit the database
// on every lookup.
const NullCacheValue = "$NULL$"

var codec = jsoniter.ConfigCompatibleWithStandardLibrary

// Loader describes how GetWithCached fills a missing key.
type Loader[T any] struct {
	TTL      time.Duration
	EmptyTTL time.Duration
	// IsEmpty reports a value that should be cached as NullCacheValue.
	IsEmpty func(T) bool
	Fetch   func(context.Context) (T, error)
}

// GetWithCached is cache-aside with null caching. Values are stored as JSON;
// an undecodable entry is treated as a miss. Cache write failures are ignored.
func GetWithCached[T any](ctx context.Context, c Cache, key string, l Loader[T]) (T, error) {
	var zero T
	if cached, err := c.Get(ctx, key); err == nil && cached != "" {
		if cached == NullCacheValue {
			return zero, nil
		}
		var out T
		if err := codec.UnmarshalFromString(cached, &out); err == nil {
			return out, nil
		}
	}

	data, err := l.Fetch(ctx)
	if err != nil {
		return zero, err
	}
	if l.IsEmpty != nil && l.IsEmpty(data) {
		_ = c.Set(ctx, key, NullCacheValue, JitterTTL(l.EmptyTTL))
		return zero, nil
	}
	if encoded, err := codec.MarshalToString(data); err == nil {
		_ = c.Set(ctx, key, encoded, JitterTTL(l.TTL))
	}
	return data, nil
}

// JitterTTL shortens ttl by up to 10% so keys written together do not expire
// together.
func JitterTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return ttl
	}
	maxJitter := int64(ttl / 10)
	if maxJitter <= 0 {
		return ttl
	}
	n, err := rand.Int(rand.Reader, big.NewInt(maxJitter+1))
	if err != nil {
		return ttl
	}
	return ttl - time.Duration(n.Int64())
}
