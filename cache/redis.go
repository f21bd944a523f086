package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	defaultNamespace = "storefront:"
	scanCount        = 200
)

var _ Store = (*Redis)(nil)

// Redis backs Store with a shared Redis instance so several client
// processes reuse each other's reads. Expiry is delegated to Redis TTLs.
type Redis struct {
	client    redis.UniversalClient
	namespace string
	logger    *zap.Logger
}

func NewRedis(client redis.UniversalClient, namespace string, logger *zap.Logger) *Redis {
	if namespace == "" {
		namespace = defaultNamespace
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Redis{
		client:    client,
		namespace: namespace,
		logger:    logger,
	}
}

func (r *Redis) Get(ctx context.Context, key string, dst any) (bool, error) {
	raw, err := r.client.Get(ctx, r.namespace+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get %q from redis: %w", key, err)
	}
	if err = json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("failed to decode cache entry %q: %w", key, err)
	}
	return true, nil
}

func (r *Redis) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if ttl <= 0 {
		return r.Delete(ctx, key)
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry %q: %w", key, err)
	}
	if err = r.client.Set(ctx, r.namespace+key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set %q in redis: %w", key, err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.namespace+key).Err(); err != nil {
		return fmt.Errorf("failed to delete %q from redis: %w", key, err)
	}
	return nil
}

// DeletePattern scans the namespace for keys containing substr and deletes them.
func (r *Redis) DeletePattern(ctx context.Context, substr string) error {
	match := r.namespace + "*" + escapeGlob(substr) + "*"
	iter := r.client.Scan(ctx, 0, match, scanCount).Iterator()

	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan redis for %q: %w", substr, err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete %d keys from redis: %w", len(keys), err)
	}
	r.logger.Debug("Invalidated redis cache entries", zap.String("pattern", substr), zap.Int("count", len(keys)))
	return nil
}

func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\', '^':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
