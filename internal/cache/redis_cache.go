package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisAudioCache struct {
	rdb *redis.Client
}

func NewRedisAudioCache(rdb *redis.Client) *RedisAudioCache {
	return &RedisAudioCache{rdb: rdb}
}

func (c *RedisAudioCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := c.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (c *RedisAudioCache) Set(ctx context.Context, key string, audio []byte, ttl time.Duration) error {
	return c.rdb.Set(ctx, key, audio, ttl).Err()
}

func (c *RedisAudioCache) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.rdb.Del(ctx, keys...).Err()
}
