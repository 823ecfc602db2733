// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/meshintell/lexsearch/pkg/types"
)

// redisTier wraps the shared Redis tier behind the handful of
// operations the store needs. Expiry is delegated to Redis TTLs.
type redisTier struct {
	client *redis.Client
}

// newRedisTier connects to the shared tier and verifies the connection
// with a ping. Callers treat a connection error as "run memory-only",
// not as fatal.
func newRedisTier(ctx context.Context, cfg types.CacheConfig) (*redisTier, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", cfg.RedisAddr, err)
	}
	return &redisTier{client: client}, nil
}

// get returns the payload for key, a found flag for a clean miss, and
// an error for tier trouble (unreachable, protocol failure).
func (r *redisTier) get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return data, true, nil
}

func (r *redisTier) set(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	if err := r.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// deletePattern removes all keys matching the glob pattern, returning
// the count removed. Uses SCAN rather than KEYS so a large key space
// does not block the server.
func (r *redisTier) deletePattern(ctx context.Context, pattern string) (int, error) {
	var removed int
	iter := r.client.Scan(ctx, 0, pattern, 100).Iterator()
	batch := make([]string, 0, 100)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == cap(batch) {
			n, err := r.client.Del(ctx, batch...).Result()
			if err != nil {
				return removed, fmt.Errorf("redis del: %w", err)
			}
			removed += int(n)
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("redis scan %s: %w", pattern, err)
	}
	if len(batch) > 0 {
		n, err := r.client.Del(ctx, batch...).Result()
		if err != nil {
			return removed, fmt.Errorf("redis del: %w", err)
		}
		removed += int(n)
	}
	return removed, nil
}

// ttl returns the remaining lifetime of key, or false if the key does
// not exist or has no expiry.
func (r *redisTier) ttl(ctx context.Context, key string) (time.Duration, bool, error) {
	d, err := r.client.TTL(ctx, key).Result()
	if err != nil {
		return 0, false, fmt.Errorf("redis ttl %s: %w", key, err)
	}
	if d < 0 {
		return 0, false, nil
	}
	return d, true, nil
}

func (r *redisTier) close() error {
	return r.client.Close()
}
