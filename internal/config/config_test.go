package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "DB_DRIVER", "REDIS_ENABLED", "KAFKA_ENABLED", "RECEIPT_TTL", "PUBLIC_RATE_LIMIT", "DAY_LOCK_TTL"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	assert.Equal(t, ":8080", cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, 30*time.Second, cfg.Redis.LockTTL)
	assert.False(t, cfg.Kafka.Enabled)
	assert.Equal(t, 30*24*time.Hour, cfg.Receipt.TTL)
	assert.Equal(t, "60-M", cfg.RateLimit.PublicRate)
	assert.Equal(t, "registration.created", cfg.Kafka.Topics.RegistrationCreated)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", ":9090")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("REDIS_ENABLED", "false")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092 ,")
	t.Setenv("DAY_LOCK_TTL", "45s")
	t.Setenv("RECEIPT_TTL", "not-a-duration")
	t.Setenv("DB_MAX_OPEN_CONNS", "7")

	cfg := Load()

	assert.Equal(t, ":9090", cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.False(t, cfg.Redis.Enabled)
	assert.True(t, cfg.Kafka.Enabled)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 45*time.Second, cfg.Redis.LockTTL)
	assert.Equal(t, 30*24*time.Hour, cfg.Receipt.TTL, "invalid durations fall back to the default")
	assert.Equal(t, 7, cfg.Database.MaxOpenConns)
}
