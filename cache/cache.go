// Package cache implements the TTL response cache used by read-heavy
// list and detail endpoints.
//
// An entry is visible only while now < expiry. Expired entries are treated
// as absent and evicted lazily on the next lookup. Writers drop whole
// resource families with InvalidatePattern; over-invalidation is fine,
// under-invalidation is not.
package cache

import (
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// TTL tiers, picked per call site.
const (
	TTLShort  = 1 * time.Minute  // per-user data that changes often
	TTLMedium = 5 * time.Minute  // catalog lists
	TTLLong   = 15 * time.Minute // near-static reference data
)

type entry struct {
	value  any
	expiry time.Time
}

// Cache is an in-process key/value store with per-entry expiry.
type Cache struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
	logger  *zap.Logger
}

type Option func(*Cache)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *Cache) {
		c.logger = logger
	}
}

func New(opts ...Option) *Cache {
	c := &Cache{
		entries: make(map[string]entry),
		now:     time.Now,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GenerateKey builds a deterministic key from an endpoint and its query
// parameters. Parameters are sorted by name so equivalent queries collide.
func GenerateKey(endpoint string, params map[string]string) string {
	if len(params) == 0 {
		return endpoint
	}

	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(endpoint)
	b.WriteByte('?')
	for i, name := range names {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(name))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(params[name]))
	}
	return b.String()
}

// Get returns the value stored under key if it has not expired.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if !c.now().Before(e.expiry) {
		delete(c.entries, key)
		c.logger.Debug("Evicted expired cache entry", zap.String("key", key))
		return nil, false
	}
	return e.value, true
}

// Set stores value with expiry = now + ttl, replacing any previous entry.
// A non-positive ttl stores nothing.
func (c *Cache) Set(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		c.Invalidate(key)
		return
	}

	c.mu.Lock()
	c.entries[key] = entry{value: value, expiry: c.now().Add(ttl)}
	c.mu.Unlock()
}

// Invalidate removes one entry.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// InvalidatePattern removes every entry whose key contains substr and
// returns how many were dropped.
func (c *Cache) InvalidatePattern(substr string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key := range c.entries {
		if strings.Contains(key, substr) {
			delete(c.entries, key)
			removed++
		}
	}
	if removed > 0 {
		c.logger.Debug("Invalidated cache entries", zap.String("pattern", substr), zap.Int("count", removed))
	}
	return removed
}

// Len counts stored entries, expired ones included until they are evicted.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
