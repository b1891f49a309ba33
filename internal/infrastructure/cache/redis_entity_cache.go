package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/store/backend/internal/infrastructure/config"
)

// RedisEntityCache implements EntityCache using Redis, shared by every
// instance of the service
type RedisEntityCache struct {
	client *redis.Client
}

// NewRedisEntityCache connects to Redis and verifies the connection
func NewRedisEntityCache(cfg config.RedisConfig) (*RedisEntityCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return &RedisEntityCache{client: client}, nil
}

// NewRedisEntityCacheWithClient wraps an existing client
func NewRedisEntityCacheWithClient(client *redis.Client) *RedisEntityCache {
	return &RedisEntityCache{client: client}
}

// Get implements EntityCache
func (c *RedisEntityCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cache key %s: %w", key, err)
	}
	return value, true, nil
}

// Set implements EntityCache
func (c *RedisEntityCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to write cache key %s: %w", key, err)
	}
	return nil
}

// Delete implements EntityCache
func (c *RedisEntityCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete cache keys: %w", err)
	}
	return nil
}

// DeletePrefix scans for matching keys and deletes them in batches
func (c *RedisEntityCache) DeletePrefix(ctx context.Context, prefix string) error {
	iter := c.client.Scan(ctx, 0, prefix+"*", 500).Iterator()
	batch := make([]string, 0, 500)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == cap(batch) {
			if err := c.Delete(ctx, batch...); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan cache keys %s*: %w", prefix, err)
	}
	return c.Delete(ctx, batch...)
}

// Ping implements EntityCache
func (c *RedisEntityCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close releases the connection pool
func (c *RedisEntityCache) Close() error {
	return c.client.Close()
}

var _ EntityCache = (*RedisEntityCache)(nil)
