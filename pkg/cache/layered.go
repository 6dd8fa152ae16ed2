package cache

import (
	"context"
	"errors"
	"time"
)

// LayeredCache keeps a per-process memory layer in front of a shared Redis.
// Redis is the source of truth; the memory layer never outlives the Redis entry.
type LayeredCache struct {
	l1    *MemoryCache
	l2    *RedisCache
	l1TTL time.Duration
}

// NewLayeredCache creates a layered cache over redis.
func NewLayeredCache(redis *RedisCache, opts ...LayeredOption) *LayeredCache {
	cfg := &LayeredConfig{
		MemoryMaxSize: 1000,
		MemoryTTL:     time.Hour,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return &LayeredCache{
		l1:    NewMemoryCache(WithMemoryMaxSize(cfg.MemoryMaxSize), WithMemoryDefaultTTL(cfg.MemoryTTL)),
		l2:    redis,
		l1TTL: cfg.MemoryTTL,
	}
}

// Set writes through to Redis, then to memory.
func (lc *LayeredCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := encode(value)
	if err != nil {
		return err
	}
	if err := lc.l2.Set(ctx, key, data, expiration); err != nil {
		return err
	}
	_ = lc.l1.Set(ctx, key, data, lc.capTTL(expiration))
	return nil
}

// Get serves from memory when possible. A Redis hit is copied into memory for
// at most the entry's remaining Redis lifetime.
func (lc *LayeredCache) Get(ctx context.Context, key string, dest interface{}) error {
	if err := lc.l1.Get(ctx, key, dest); err == nil {
		return nil
	}

	var data []byte
	if err := lc.l2.Get(ctx, key, &data); err != nil {
		return err
	}
	if err := decode(data, dest); err != nil {
		return err
	}

	remaining, err := lc.l2.TTL(ctx, key)
	if err != nil || remaining == 0 {
		return nil
	}
	_ = lc.l1.Set(ctx, key, data, lc.capTTL(remaining))
	return nil
}

// capTTL bounds an L1 lifetime by the configured memory TTL. A non-positive
// expiration means the Redis entry does not expire.
func (lc *LayeredCache) capTTL(expiration time.Duration) time.Duration {
	if expiration > 0 && expiration < lc.l1TTL {
		return expiration
	}
	return lc.l1TTL
}

func (lc *LayeredCache) Delete(ctx context.Context, keys ...string) error {
	return errors.Join(lc.l1.Delete(ctx, keys...), lc.l2.Delete(ctx, keys...))
}

// DeleteByPattern clears matching keys from both layers. Other replicas keep
// their memory copies until the memory TTL lapses.
func (lc *LayeredCache) DeleteByPattern(ctx context.Context, pattern string) error {
	return errors.Join(lc.l1.DeleteByPattern(ctx, pattern), lc.l2.DeleteByPattern(ctx, pattern))
}

func (lc *LayeredCache) Exists(ctx context.Context, keys ...string) (bool, error) {
	if ok, _ := lc.l1.Exists(ctx, keys...); ok {
		return true, nil
	}
	return lc.l2.Exists(ctx, keys...)
}

// TryLock and Unlock go straight to Redis so the lock is shared across replicas.
func (lc *LayeredCache) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return lc.l2.TryLock(ctx, key, ttl)
}

func (lc *LayeredCache) Unlock(ctx context.Context, key string) error {
	return lc.l2.Unlock(ctx, key)
}

func (lc *LayeredCache) Close() error {
	return errors.Join(lc.l1.Close(), lc.l2.Close())
}
