package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type entry struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func newTestCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := NewRedisCacheWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	if err != nil {
		t.Fatalf("NewRedisCacheWithClient failed: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestGetWithCachedFillsAndServes(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()
	calls := 0
	loader := Loader[*entry]{
		TTL:      time.Minute,
		EmptyTTL: time.Second,
		IsEmpty:  func(e *entry) bool { return e == nil },
		Fetch: func(context.Context) (*entry, error) {
			calls++
			return &entry{ID: 7, Name: "two-sum"}, nil
		},
	}

	for i := 0; i < 3; i++ {
		got, err := GetWithCached(ctx, c, "q:7", loader)
		if err != nil {
			t.Fatalf("GetWithCached failed: %v", err)
		}
		if got == nil || got.Name != "two-sum" {
			t.Fatalf("unexpected value %+v", got)
		}
	}
	if calls != 1 {
		t.Fatalf("fetch called %d times, want 1", calls)
	}
	if ttl := mr.TTL("q:7"); ttl <= 0 || ttl > time.Minute {
		t.Fatalf("unexpected ttl %v", ttl)
	}
}

func TestGetWithCachedCachesMiss(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()
	calls := 0
	loader := Loader[*entry]{
		TTL:      time.Minute,
		EmptyTTL: 30 * time.Second,
		IsEmpty:  func(e *entry) bool { return e == nil },
		Fetch: func(context.Context) (*entry, error) {
			calls++
			return nil, nil
		},
	}
	for i := 0; i < 2; i++ {
		got, err := GetWithCached(ctx, c, "q:missing", loader)
		if err != nil || got != nil {
			t.Fatalf("GetWithCached() = %+v, %v", got, err)
		}
	}
	if calls != 1 {
		t.Fatalf("fetch called %d times, want 1", calls)
	}
	if v, _ := mr.Get("q:missing"); v != NullCacheValue {
		t.Fatalf("cached value = %q", v)
	}
}

func TestGetWithCachedPropagatesFetchError(t *testing.T) {
	c, mr := newTestCache(t)
	boom := errors.New("db down")
	_, err := GetWithCached(context.Background(), c, "q:1", Loader[*entry]{
		Fetch: func(context.Context) (*entry, error) { return nil, boom },
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected fetch error, got %v", err)
	}
	if mr.Exists("q:1") {
		t.Fatal("error result must not be cached")
	}
}

func TestRedisCacheBasicOps(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()
	if v, err := c.Get(ctx, "absent"); err != nil || v != "" {
		t.Fatalf("Get(absent) = %q, %v", v, err)
	}
	if err := c.Set(ctx, "k", "v", 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if n, err := c.Exists(ctx, "k", "absent"); err != nil || n != 1 {
		t.Fatalf("Exists = %d, %v", n, err)
	}
	if err := c.Del(ctx, "k"); err != nil {
		t.Fatalf("Del failed: %v", err)
	}
	if v, _ := c.Get(ctx, "k"); v != "" {
		t.Fatalf("value survived Del: %q", v)
	}
}

func TestJitterTTL(t *testing.T) {
	for i := 0; i < 50; i++ {
		got := JitterTTL(10 * time.Second)
		if got < 9*time.Second || got > 10*time.Second {
			t.Fatalf("JitterTTL out of range: %v", got)
		}
	}
	if got := JitterTTL(0); got != 0 {
		t.Fatalf("JitterTTL(0) = %v", got)
	}
}
