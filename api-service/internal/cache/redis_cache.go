package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrCacheMiss = errors.New("cache miss")

type RedisMessageCache struct {
	client *redis.Client
	prefix string
}

// NewRedisMessageCache wraps a connected client.
func NewRedisMessageCache(client *redis.Client, prefix string) *RedisMessageCache {
	return &RedisMessageCache{
		client: client,
		prefix: prefix,
	}
}

func (c *RedisMessageCache) BuildKey(roomID string, limit int) string {
	return fmt.Sprintf("%s:room:%s:recent:%d", c.prefix, roomID, limit)
}

// roomKeysKey indexes every page key cached for a room.
func (c *RedisMessageCache) roomKeysKey(roomID string) string {
	return fmt.Sprintf("%s:room:%s:keys", c.prefix, roomID)
}

func (c *RedisMessageCache) Get(ctx context.Context, key string) (*MessageCacheResult, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	var result MessageCacheResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cache data: %w", err)
	}

	return &result, nil
}

func (c *RedisMessageCache) Set(ctx context.Context, roomID, key string, result *MessageCacheResult, ttl time.Duration) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal cache data: %w", err)
	}

	index := c.roomKeysKey(roomID)
	pipe := c.client.TxPipeline()
	pipe.Set(ctx, key, data, ttl)
	pipe.SAdd(ctx, index, key)
	pipe.Expire(ctx, index, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to set in redis: %w", err)
	}

	return nil
}

func (c *RedisMessageCache) InvalidateRoom(ctx context.Context, roomID string) error {
	index := c.roomKeysKey(roomID)
	keys, err := c.client.SMembers(ctx, index).Result()
	if err != nil {
		return fmt.Errorf("failed to read room cache index: %w", err)
	}

	keys = append(keys, index)
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete from redis: %w", err)
	}

	return nil
}

func (c *RedisMessageCache) Close() error {
	return c.client.Close()
}
