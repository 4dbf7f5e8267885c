package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every roomkeeper variable for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"APP_ENV", "LOG_LEVEL", "LOG_FORMAT",
		"DATABASE_URL", "SQLITE_PATH", "REDIS_URL", "RABBITMQ_URL",
		"API_ADDR", "HEALTH_ADDR", "GRPC_HEALTH_ADDR",
		"SCHEDULER_ENABLED", "STATUS_SWEEP_SCHEDULE", "LIFECYCLE_SWEEP_SCHEDULE",
		"SWEEP_TIMEZONE", "SWEEP_CONCURRENCY", "SWEEP_ROOM_TIMEOUT",
		"BOOKING_LOCK_TTL", "BOOKING_LOCK_WAIT",
		"STORE_BREAKER_FAILURES", "STORE_BREAKER_TIMEOUT",
		"OUTBOX_POLL_INTERVAL", "OUTBOX_BATCH_SIZE", "OUTBOX_MAX_RETRIES",
		"OUTBOX_RETENTION_DAYS", "OUTBOX_CLEANUP_INTERVAL", "OUTBOX_PROCESSOR_ENABLED",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_DefaultValues(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)

	// No DATABASE_URL means a local SQLite file.
	assert.True(t, cfg.LocalMode)
	assert.Equal(t, "sqlite", cfg.DatabaseDriver)
	assert.Empty(t, cfg.RedisURL)
	assert.Empty(t, cfg.RabbitMQURL)

	assert.Equal(t, "0.0.0.0:8080", cfg.APIAddr)
	assert.Equal(t, "0.0.0.0:9090", cfg.GRPCHealthAddr)

	assert.True(t, cfg.SchedulerEnabled)
	assert.Equal(t, "*/5 * * * *", cfg.StatusSweepSchedule)
	assert.Equal(t, "0 * * * *", cfg.LifecycleSweepSchedule)
	assert.Equal(t, time.UTC, cfg.SweepLocation())
	assert.Equal(t, 4, cfg.SweepConcurrency)
	assert.Equal(t, 10*time.Second, cfg.SweepRoomTimeout)

	assert.Equal(t, 10*time.Second, cfg.BookingLockTTL)
	assert.Equal(t, 5*time.Second, cfg.BookingLockWait)
	assert.Equal(t, 5, cfg.StoreBreakerFailures)
	assert.Equal(t, 30*time.Second, cfg.StoreBreakerTimeout)

	assert.Equal(t, 500*time.Millisecond, cfg.OutboxPollInterval)
	assert.Equal(t, 100, cfg.OutboxBatchSize)
	assert.Equal(t, 5, cfg.OutboxMaxRetries)
	assert.Equal(t, 14, cfg.OutboxRetentionDays)
	assert.True(t, cfg.OutboxProcessorEnabled)
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", "production")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("DATABASE_URL", "postgres://rooms:secret@db:5432/rooms?sslmode=disable")
	t.Setenv("REDIS_URL", "redis://cache:6379/1")
	t.Setenv("STATUS_SWEEP_SCHEDULE", "*/1 * * * *")
	t.Setenv("SWEEP_TIMEZONE", "Africa/Lagos")
	t.Setenv("SWEEP_CONCURRENCY", "16")
	t.Setenv("SWEEP_ROOM_TIMEOUT", "3s")
	t.Setenv("SCHEDULER_ENABLED", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.False(t, cfg.IsDevelopment())
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "postgres", cfg.DatabaseDriver)
	assert.False(t, cfg.LocalMode)
	assert.Equal(t, "redis://cache:6379/1", cfg.RedisURL)
	assert.Equal(t, "*/1 * * * *", cfg.StatusSweepSchedule)
	assert.Equal(t, "Africa/Lagos", cfg.SweepLocation().String())
	assert.Equal(t, 16, cfg.SweepConcurrency)
	assert.Equal(t, 3*time.Second, cfg.SweepRoomTimeout)
	assert.False(t, cfg.SchedulerEnabled)
}

func TestLoad_InvalidNumbersFallBackToDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("SWEEP_CONCURRENCY", "lots")
	t.Setenv("SWEEP_ROOM_TIMEOUT", "soon")
	t.Setenv("OUTBOX_PROCESSOR_ENABLED", "maybe")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.SweepConcurrency)
	assert.Equal(t, 10*time.Second, cfg.SweepRoomTimeout)
	assert.True(t, cfg.OutboxProcessorEnabled)
}

func TestValidate(t *testing.T) {
	clearEnv(t)
	t.Setenv("SWEEP_CONCURRENCY", "0")
	t.Setenv("LOG_FORMAT", "xml")
	t.Setenv("SWEEP_TIMEZONE", "Mars/Olympus")

	_, err := Load()
	require.Error(t, err)
	assert.ErrorContains(t, err, "SWEEP_CONCURRENCY")
	assert.ErrorContains(t, err, "LOG_FORMAT")
	assert.ErrorContains(t, err, "SWEEP_TIMEZONE")
}
