// Package cache provides a Redis-backed cache for computed statistics.
// All operations degrade gracefully when no Redis server is available.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/flowtaskhq/flowtask/core"
)

type StatsCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStatsCache connects to Redis using the app config. A nil *StatsCache is
// returned when the server cannot be reached; all methods are nil-safe so
// callers can keep the zero value and skip caching.
func NewStatsCache(conf *core.Config) *StatsCache {
	client := redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Addr,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil
	}
	return &StatsCache{client: client, ttl: conf.Redis.StatsTTL}
}

// Get unmarshals the cached value for key into dest. ok is false on a miss.
func (c *StatsCache) Get(ctx context.Context, key string, dest interface{}) (ok bool) {
	if c == nil {
		return false
	}
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(data, dest) == nil
}

func (c *StatsCache) Set(ctx context.Context, key string, value interface{}) {
	if c == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	c.client.Set(ctx, key, data, c.ttl)
}

func (c *StatsCache) Delete(ctx context.Context, keys ...string) {
	if c == nil || len(keys) == 0 {
		return
	}
	c.client.Del(ctx, keys...)
}

func (c *StatsCache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}
