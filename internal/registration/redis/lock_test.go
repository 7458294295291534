package redis

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-registration/internal/logger"
)

func setupTestRedis(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	require.NoError(t, client.Ping(context.Background()).Err())

	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return NewRedis(client, 30*time.Second, logger.NewWithWriter(io.Discard)), mr
}

func TestLockDaysAllOrNothing(t *testing.T) {
	r, mr := setupTestRedis(t)
	ctx := context.Background()

	locked, err := r.LockDays(ctx, "evt-1", []string{"2025-06-11", "2025-06-10"}, "reg-a")
	require.NoError(t, err)
	assert.True(t, locked)
	assert.True(t, mr.Exists("day_lock:evt-1:2025-06-10"))
	assert.True(t, mr.Exists("day_lock:evt-1:2025-06-11"))

	locked, err = r.LockDays(ctx, "evt-1", []string{"2025-06-12", "2025-06-11"}, "reg-b")
	require.NoError(t, err)
	assert.False(t, locked)
	assert.False(t, mr.Exists("day_lock:evt-1:2025-06-12"), "partial lock rolled back")

	locked, err = r.LockDays(ctx, "evt-2", []string{"2025-06-11"}, "reg-b")
	require.NoError(t, err)
	assert.True(t, locked, "locks are scoped per event")
}

func TestUnlockDaysOnlyByOwner(t *testing.T) {
	r, mr := setupTestRedis(t)
	ctx := context.Background()
	days := []string{"2025-06-10", "2025-06-11"}

	locked, err := r.LockDays(ctx, "evt-1", days, "reg-a")
	require.NoError(t, err)
	require.True(t, locked)

	require.NoError(t, r.UnlockDays(ctx, "evt-1", days, "reg-b"))
	owner, err := mr.Get("day_lock:evt-1:2025-06-10")
	require.NoError(t, err)
	assert.Equal(t, "reg-a", owner)

	require.NoError(t, r.UnlockDays(ctx, "evt-1", days, "reg-a"))
	assert.False(t, mr.Exists("day_lock:evt-1:2025-06-10"))
	assert.False(t, mr.Exists("day_lock:evt-1:2025-06-11"))

	assert.NoError(t, r.UnlockDay(ctx, "evt-1", "2025-06-10", "reg-a"), "unlocking a free day is a no-op")
}

func TestLockExpires(t *testing.T) {
	r, mr := setupTestRedis(t)
	ctx := context.Background()

	locked, err := r.LockDay(ctx, "evt-1", "2025-06-10", "reg-a")
	require.NoError(t, err)
	require.True(t, locked)
	assert.Equal(t, 30*time.Second, mr.TTL("day_lock:evt-1:2025-06-10"))

	mr.FastForward(31 * time.Second)

	locked, err = r.LockDay(ctx, "evt-1", "2025-06-10", "reg-b")
	require.NoError(t, err)
	assert.True(t, locked)
}

func TestConcurrentLockDays(t *testing.T) {
	r, _ := setupTestRedis(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ok, err := r.LockDays(ctx, "evt-1", []string{"2025-06-10", "2025-06-11"}, fmt.Sprintf("reg-%d", i))
			if err == nil && ok {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, winners)
}

func TestLockDaysRedisDown(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond, MaxRetries: -1})
	defer client.Close()
	r := NewRedis(client, time.Second, logger.NewWithWriter(io.Discard))

	_, err := r.LockDays(context.Background(), "evt-1", []string{"2025-06-10"}, "reg-a")
	assert.Error(t, err)
}

func TestNewRedisDefaultsTTL(t *testing.T) {
	r := NewRedis(nil, 0, logger.NewWithWriter(io.Discard))
	assert.Equal(t, defaultLockTTL, r.TTL)
}
