package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const redisOpTimeout = 2 * time.Second

// NewRedisClient connects to Redis and verifies the connection.
func NewRedisClient(addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("unable to connect to redis: %w", err)
	}
	return client, nil
}

// Redis is a JSON-encoded TTL cache on top of Redis. Redis errors are logged
// and reported as misses.
type Redis[T any] struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedis creates a cache storing values under prefix+key.
func NewRedis[T any](client redis.Cmdable, prefix string, ttl time.Duration, logger *zap.Logger) *Redis[T] {
	return &Redis[T]{client: client, prefix: prefix, ttl: ttl, logger: logger}
}

// Get retrieves and decodes a value.
func (c *Redis[T]) Get(key string) (T, bool) {
	var zero T
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	raw, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("redis cache get failed", zap.String("key", key), zap.Error(err))
		}
		return zero, false
	}

	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		c.logger.Warn("redis cache entry undecodable", zap.String("key", key), zap.Error(err))
		return zero, false
	}
	return v, true
}

// Set encodes and stores a value with the configured TTL.
func (c *Redis[T]) Set(key string, value T) {
	raw, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("redis cache encode failed", zap.String("key", key), zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	if err := c.client.Set(ctx, c.prefix+key, raw, c.ttl).Err(); err != nil {
		c.logger.Warn("redis cache set failed", zap.String("key", key), zap.Error(err))
	}
}

// Delete removes a value.
func (c *Redis[T]) Delete(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	if err := c.client.Del(ctx, c.prefix+key).Err(); err != nil {
		c.logger.Warn("redis cache delete failed", zap.String("key", key), zap.Error(err))
	}
}
