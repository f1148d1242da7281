package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/duosnap/backend/internal/config"
)

type RedisCache struct {
	Client *redis.Client
}

// NewRedisCache initializes Redis client from config.
// Only Addr is mandatory, Password/DB are optional.
func NewRedisCache(cfg *config.Config) *RedisCache {
	opts := &redis.Options{
		Addr: cfg.Redis.Addr,
	}
	if cfg.Redis.Password != "" {
		opts.Password = cfg.Redis.Password
	}
	if cfg.Redis.DB != 0 {
		opts.DB = cfg.Redis.DB
	}
	return &RedisCache{Client: redis.NewClient(opts)}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}

func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return c.Client.Set(ctx, key, value, ttl).Err()
}

// Get returns the cached value, or "" on a miss.
func (c *RedisCache) Get(ctx context.Context, key string) (string, error) {
	val, err := c.Client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return val, err
}

func (c *RedisCache) Del(ctx context.Context, key string) error {
	return c.Client.Del(ctx, key).Err()
}

// KeyForCurrentPairing generates the Redis key caching a member's
// pairing id for one day.
func (c *RedisCache) KeyForCurrentPairing(memberID string, day time.Time) string {
	return fmt.Sprintf("pairing:current:%s:%s", memberID, day.Format("2006-01-02"))
}

// KeyForReminder generates the Redis key throttling reminders on a
// pairing.
func (c *RedisCache) KeyForReminder(pairingID string) string {
	return fmt.Sprintf("pairing:reminder:%s", pairingID)
}

// AcquireReminderSlot claims the reminder window for a pairing.
// Returns false when a reminder was already sent inside the window.
// SETNX with TTL, so the claim expires on its own.
func (c *RedisCache) AcquireReminderSlot(ctx context.Context, pairingID string, window time.Duration) (bool, error) {
	return c.Client.SetNX(ctx, c.KeyForReminder(pairingID), 1, window).Result()
}
