package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPrefix = "fridgesnap:"

type Log interface {
	Debug(string, ...zap.Field)
	Error(string, ...zap.Field)
}

// RedisCache implements Cache using Redis
type RedisCache struct {
	client *redis.Client
	log    Log
}

// NewRedisCache connects to addr and checks the connection.
func NewRedisCache(ctx context.Context, addr, password string, db int, log Log) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisCache{client: client, log: log}, nil
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := c.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		c.log.Debug("cache miss", zap.String("key", key))
		return nil, false, nil
	}
	if err != nil {
		c.log.Error("failed to read from cache", zap.String("key", key), zap.Error(err))
		return nil, false, fmt.Errorf("failed to get from cache: %w", err)
	}
	return data, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := c.client.Set(ctx, keyPrefix+key, value, ttl).Err(); err != nil {
		c.log.Error("failed to write to cache", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("failed to set cache: %w", err)
	}
	return nil
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}
