package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStaffCache keeps JSON snapshots under prefix+staffCode with a TTL.
type RedisStaffCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStaffCache builds the cache on an existing client.
func NewRedisStaffCache(client *redis.Client, prefix string, ttl time.Duration) *RedisStaffCache {
	return &RedisStaffCache{client: client, prefix: prefix, ttl: ttl}
}

func (c *RedisStaffCache) key(staffCode string) string {
	return c.prefix + staffCode
}

func (c *RedisStaffCache) Get(ctx context.Context, staffCode string) (*StaffSnapshot, error) {
	raw, err := c.client.Get(ctx, c.key(staffCode)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var snap StaffSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		// A corrupt entry behaves as a miss and is dropped.
		_ = c.client.Del(ctx, c.key(staffCode)).Err()
		return nil, nil
	}
	return &snap, nil
}

func (c *RedisStaffCache) Set(ctx context.Context, snapshot *StaffSnapshot) error {
	if snapshot == nil {
		return nil
	}
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(snapshot.StaffCode), raw, c.ttl).Err()
}

func (c *RedisStaffCache) Invalidate(ctx context.Context, staffCode string) error {
	return c.client.Del(ctx, c.key(staffCode)).Err()
}
