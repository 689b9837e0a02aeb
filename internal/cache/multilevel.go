package cache

import (
	"context"
	"errors"
	"time"
)

// MultiLevelCache fronts an optional shared cache (l2, usually Redis) with
// a process-local MemoryCache (l1).
type MultiLevelCache struct {
	l1      *MemoryCache
	l2      Cache
	l1TTL   time.Duration
	metrics *CacheMetrics
}

// NewMultiLevelCache accepts a nil l2, in which case only l1 is used.
func NewMultiLevelCache(l2 Cache) *MultiLevelCache {
	return &MultiLevelCache{
		l1:      NewMemoryCache(),
		l2:      l2,
		l1TTL:   5 * time.Second,
		metrics: NewCacheMetrics(),
	}
}

func (c *MultiLevelCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	c.metrics.RecordSet()

	if err := c.l1.Set(ctx, key, value, c.localTTL(ttl)); err != nil {
		c.metrics.RecordError()
		return err
	}

	if c.l2 != nil {
		if err := c.l2.Set(ctx, key, value, ttl); err != nil {
			c.metrics.RecordError()
			return err
		}
	}

	return nil
}

func (c *MultiLevelCache) Get(ctx context.Context, key string, dest interface{}) error {
	if err := c.l1.Get(ctx, key, dest); err == nil {
		c.metrics.RecordHit()
		return nil
	}

	if c.l2 == nil {
		c.metrics.RecordMiss()
		return ErrCacheMiss
	}

	err := c.l2.Get(ctx, key, dest)
	switch {
	case err == nil:
		c.metrics.RecordHit()
		c.l1.Set(ctx, key, dest, c.l1TTL)
	case errors.Is(err, ErrCacheMiss):
		c.metrics.RecordMiss()
	default:
		c.metrics.RecordError()
	}
	return err
}

func (c *MultiLevelCache) Delete(ctx context.Context, key string) error {
	c.metrics.RecordDelete()
	c.l1.Delete(ctx, key)

	if c.l2 != nil {
		return c.l2.Delete(ctx, key)
	}

	return nil
}

func (c *MultiLevelCache) DeletePattern(ctx context.Context, pattern string) error {
	c.metrics.RecordDelete()
	if err := c.l1.DeletePattern(ctx, pattern); err != nil {
		return err
	}

	if c.l2 != nil {
		return c.l2.DeletePattern(ctx, pattern)
	}

	return nil
}

func (c *MultiLevelCache) Stats() map[string]interface{} {
	stats := map[string]interface{}{
		"l1":      c.l1.Stats(),
		"metrics": c.metrics.Snapshot(),
	}

	if c.l2 != nil {
		stats["l2"] = c.l2.Stats()
	}

	return stats
}

func (c *MultiLevelCache) Health(ctx context.Context) error {
	if c.l2 != nil {
		return c.l2.Health(ctx)
	}

	return nil
}

func (c *MultiLevelCache) Close() error {
	c.l1.Close()

	if c.l2 != nil {
		return c.l2.Close()
	}

	return nil
}

// localTTL caps l1 lifetimes so other instances' invalidations sent to l2
// are observed within l1TTL.
func (c *MultiLevelCache) localTTL(ttl time.Duration) time.Duration {
	if c.l2 == nil || (ttl > 0 && ttl < c.l1TTL) {
		return ttl
	}
	return c.l1TTL
}
