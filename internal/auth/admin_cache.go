package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"ms-registration/internal/logger"
)

const (
	adminCachePrefix = "admin_allow:"
	defaultAdminTTL  = 5 * time.Minute
)

// RedisAdminCache keeps allow-list answers in Redis so every admin request does not hit the
// database. Redis failures fall through to the directory.
type RedisAdminCache struct {
	Client    *redis.Client
	Directory AdminDirectory
	TTL       time.Duration
	Logger    *logger.Logger
}

func NewRedisAdminCache(client *redis.Client, directory AdminDirectory, ttl time.Duration, log *logger.Logger) *RedisAdminCache {
	if ttl <= 0 {
		ttl = defaultAdminTTL
	}
	return &RedisAdminCache{Client: client, Directory: directory, TTL: ttl, Logger: log}
}

func (c *RedisAdminCache) IsAdmin(ctx context.Context, email string) (bool, error) {
	key := adminCachePrefix + email

	val, err := c.Client.Get(ctx, key).Result()
	switch {
	case err == nil:
		return val == "1", nil
	case err != redis.Nil:
		c.Logger.Warn("AUTH", fmt.Sprintf("admin cache read failed: %v", err))
	}

	ok, err := c.Directory.IsAdmin(ctx, email)
	if err != nil {
		return false, err
	}

	flag := "0"
	if ok {
		flag = "1"
	}
	if err := c.Client.Set(ctx, key, flag, c.TTL).Err(); err != nil {
		c.Logger.Warn("AUTH", fmt.Sprintf("admin cache write failed: %v", err))
	}
	return ok, nil
}

// Forget drops a cached answer, e.g. after the allow-list changes.
func (c *RedisAdminCache) Forget(ctx context.Context, email string) error {
	return c.Client.Del(ctx, adminCachePrefix+email).Err()
}
