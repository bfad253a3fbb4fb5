package profilecache

import (
	"context"
	"time"

	redis "github.com/redis/go-redis/v9"
)

type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(addr string, password string, db int) *RedisCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisCache{client: client}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) Get(ctx context.Context, userID string) (string, bool, error) {
	val, err := c.client.Get(ctx, key(userID)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (c *RedisCache) Set(ctx context.Context, userID string, displayName string, ttl time.Duration) error {
	return c.client.Set(ctx, key(userID), displayName, ttl).Err()
}

func (c *RedisCache) Invalidate(ctx context.Context, userID string) error {
	return c.client.Del(ctx, key(userID)).Err()
}

func key(userID string) string {
	return "profile:display_name:" + userID
}
