package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/ranlab/bizdir-backend/internal/app/model"
	"github.com/ranlab/bizdir-backend/pkg/logger"
	redisutil "github.com/ranlab/bizdir-backend/pkg/redis"
	"github.com/redis/go-redis/v9"
)

const defaultIdentityPrefix = "bizdir:identity:"

// RedisIdentityCache shares resolved identities between service instances.
type RedisIdentityCache struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisIdentityCache(client redis.UniversalClient, prefix string) *RedisIdentityCache {
	if prefix == "" {
		prefix = defaultIdentityPrefix
	}
	return &RedisIdentityCache{client: client, prefix: prefix}
}

func (c *RedisIdentityCache) Get(ctx context.Context, key string) (model.Identity, bool, error) {
	raw, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.Identity{}, false, nil
	}
	if err != nil {
		return model.Identity{}, false, err
	}

	var identity model.Identity
	if err := json.Unmarshal(raw, &identity); err != nil {
		// a corrupt entry behaves like a miss
		logger.Warn("Dropping unreadable identity cache entry", logger.Fields{
			"error": err.Error(),
		})
		c.client.Del(ctx, c.prefix+key)
		return model.Identity{}, false, nil
	}
	return identity, true, nil
}

func (c *RedisIdentityCache) Set(ctx context.Context, key string, identity model.Identity, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	raw, err := json.Marshal(identity)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.prefix+key, raw, ttl).Err()
}

func (c *RedisIdentityCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, c.prefix+key).Err()
}

func (c *RedisIdentityCache) Flush(ctx context.Context) error {
	n, err := redisutil.DeletePrefix(ctx, c.client, c.prefix)
	if err != nil {
		return err
	}
	logger.Info("Identity cache flushed", logger.Fields{
		"keys_deleted": n,
	})
	return nil
}
