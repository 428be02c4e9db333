package utils

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisClient is a thin wrapper for the cache use this server has:
// JSON values with a TTL, deleted on invalidation. All methods are
// nil-receiver safe so callers can run without Redis.
type RedisClient struct {
	client *redis.Client
}

// NewRedisClient wraps a connected client.
func NewRedisClient(client *redis.Client) *RedisClient {
	return &RedisClient{client: client}
}

// SetJSON marshals value and stores it under key with a TTL.
func (r *RedisClient) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if r == nil || r.client == nil {
		return nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, data, ttl).Err()
}

// GetJSON fetches key and unmarshals it into dest. Returns redis.Nil
// when the key is absent.
func (r *RedisClient) GetJSON(ctx context.Context, key string, dest interface{}) error {
	if r == nil || r.client == nil {
		return redis.Nil
	}
	data, err := r.client.Get(ctx, key).Result()
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(data), dest)
}

// Delete removes keys; missing keys are not an error.
func (r *RedisClient) Delete(ctx context.Context, keys ...string) error {
	if r == nil || r.client == nil || len(keys) == 0 {
		return nil
	}
	return r.client.Del(ctx, keys...).Err()
}

// IsCacheMiss reports whether err is a plain cache miss.
func IsCacheMiss(err error) bool {
	return err == redis.Nil
}
