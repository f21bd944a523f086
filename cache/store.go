package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Store is the cache-aside contract the repositories use. Values are
// serialized on Set and decoded into dst on Get, so callers never share
// memory with what is cached.
type Store interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	DeletePattern(ctx context.Context, substr string) error
}

var _ Store = (*Local)(nil)

// Local backs Store with an in-process Cache.
type Local struct {
	cache *Cache
}

func NewLocal(c *Cache) *Local {
	if c == nil {
		c = New()
	}
	return &Local{cache: c}
}

func (l *Local) Get(_ context.Context, key string, dst any) (bool, error) {
	v, ok := l.cache.Get(key)
	if !ok {
		return false, nil
	}
	raw, ok := v.([]byte)
	if !ok {
		return false, fmt.Errorf("cache entry %q holds %T, not encoded bytes", key, v)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("failed to decode cache entry %q: %w", key, err)
	}
	return true, nil
}

func (l *Local) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry %q: %w", key, err)
	}
	l.cache.Set(key, raw, ttl)
	return nil
}

func (l *Local) Delete(_ context.Context, key string) error {
	l.cache.Invalidate(key)
	return nil
}

func (l *Local) DeletePattern(_ context.Context, substr string) error {
	l.cache.InvalidatePattern(substr)
	return nil
}
