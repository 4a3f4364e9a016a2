// Package rediscache caches dashboard summaries in Redis.
package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/couchcryptid/police-incident-etl/internal/dashboard"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "police-etl:"

// NewClient creates a Redis client and verifies the connection.
func NewClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
		PoolSize: 10,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connect to redis %s: %w", addr, err)
	}
	return rdb, nil
}

// Cache implements dashboard.Cache with JSON values and a fixed TTL.
type Cache struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewCache creates a Cache on client.
func NewCache(client redis.Cmdable, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func (c *Cache) Get(ctx context.Context, key string) (dashboard.Summary, bool, error) {
	val, err := c.client.Get(ctx, keyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return dashboard.Summary{}, false, nil
		}
		return dashboard.Summary{}, false, fmt.Errorf("get %s from cache: %w", key, err)
	}

	var s dashboard.Summary
	if err := json.Unmarshal(val, &s); err != nil {
		return dashboard.Summary{}, false, fmt.Errorf("unmarshal cached %s: %w", key, err)
	}
	return s, true, nil
}

func (c *Cache) Set(ctx context.Context, key string, s dashboard.Summary) error {
	val, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal %s for cache: %w", key, err)
	}
	if err := c.client.Set(ctx, keyPrefix+key, val, c.ttl).Err(); err != nil {
		return fmt.Errorf("set %s in cache: %w", key, err)
	}
	return nil
}
