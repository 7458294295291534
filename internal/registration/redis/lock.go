package redis

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/go-redis/redis/v8"

	"ms-registration/internal/logger"
)

const (
	dayLockPrefix  = "day_lock:"
	defaultLockTTL = 30 * time.Second
)

// unlockScript deletes the key only while it still holds the owner's value.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis holds per (event, day) admission locks. A lock expires after TTL so a crashed
// instance cannot block a day forever.
type Redis struct {
	Client *redis.Client
	Logger *logger.Logger
	TTL    time.Duration
}

func NewRedis(client *redis.Client, ttl time.Duration, log *logger.Logger) *Redis {
	if ttl <= 0 {
		log.Warn("REDIS", fmt.Sprintf("invalid day lock TTL %s, using %s", ttl, defaultLockTTL))
		ttl = defaultLockTTL
	}
	return &Redis{Client: client, Logger: log, TTL: ttl}
}

func dayLockKey(eventID, day string) string {
	return dayLockPrefix + eventID + ":" + day
}

// LockDay takes a single day for owner.
func (r *Redis) LockDay(ctx context.Context, eventID, day, owner string) (bool, error) {
	return r.Client.SetNX(ctx, dayLockKey(eventID, day), owner, r.TTL).Result()
}

// UnlockDay releases the day if owner still holds it.
func (r *Redis) UnlockDay(ctx context.Context, eventID, day, owner string) error {
	return unlockScript.Run(ctx, r.Client, []string{dayLockKey(eventID, day)}, owner).Err()
}

// LockDays takes every day in ascending order, or none: on the first busy day the days
// already taken are released.
func (r *Redis) LockDays(ctx context.Context, eventID string, days []string, owner string) (bool, error) {
	ordered := append([]string(nil), days...)
	sort.Strings(ordered)

	locked := make([]string, 0, len(ordered))
	rollback := func() {
		for _, d := range locked {
			if err := r.UnlockDay(ctx, eventID, d, owner); err != nil {
				r.Logger.Warn("REDIS", fmt.Sprintf("rollback lock %s: %v", dayLockKey(eventID, d), err))
			}
		}
	}

	for _, day := range ordered {
		ok, err := r.LockDay(ctx, eventID, day, owner)
		if err != nil {
			rollback()
			return false, err
		}
		if !ok {
			rollback()
			return false, nil
		}
		locked = append(locked, day)
	}
	return true, nil
}

// UnlockDays releases every day held by owner and returns the first error.
func (r *Redis) UnlockDays(ctx context.Context, eventID string, days []string, owner string) error {
	var firstErr error
	for _, day := range days {
		if err := r.UnlockDay(ctx, eventID, day, owner); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
