package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/orgmap/backend/internal/domain/shared"
	"github.com/orgmap/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces upload keys in a shared Redis
const DefaultKeyPrefix = "orgmap:upload:"

// RedisUploadGuard stores claimed upload keys in Redis so that every
// instance behind a load balancer sees the same claims
type RedisUploadGuard struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisUploadGuard connects to Redis and verifies the connection
func NewRedisUploadGuard(ctx context.Context, cfg config.RedisConfig) (*RedisUploadGuard, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Addr(), err)
	}

	return NewRedisUploadGuardWithClient(client, DefaultKeyPrefix), nil
}

// NewRedisUploadGuardWithClient wraps an existing client
func NewRedisUploadGuardWithClient(client *redis.Client, keyPrefix string) *RedisUploadGuard {
	if keyPrefix == "" {
		keyPrefix = DefaultKeyPrefix
	}
	return &RedisUploadGuard{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// Claim sets the key with SETNX so that exactly one caller wins
func (g *RedisUploadGuard) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := g.client.SetNX(ctx, g.redisKey(key), time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim upload key: %w", err)
	}
	return ok, nil
}

// Release deletes the key
func (g *RedisUploadGuard) Release(ctx context.Context, key string) error {
	if err := g.client.Del(ctx, g.redisKey(key)).Err(); err != nil {
		return fmt.Errorf("failed to release upload key: %w", err)
	}
	return nil
}

// Close closes the Redis client
func (g *RedisUploadGuard) Close() error {
	return g.client.Close()
}

// Client returns the underlying Redis client
func (g *RedisUploadGuard) Client() *redis.Client {
	return g.client
}

func (g *RedisUploadGuard) redisKey(key string) string {
	return g.keyPrefix + key
}

var _ shared.UploadGuard = (*RedisUploadGuard)(nil)
