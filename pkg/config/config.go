package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	// Application
	AppEnv    string
	LogLevel  string
	LogFormat string

	// Database
	DatabaseURL    string
	DatabaseDriver string
	SQLitePath     string
	LocalMode      bool
	DBMaxConns     int

	// Redis. Empty selects the in-process room locker.
	RedisURL string

	// RabbitMQ. Empty relays outbox events in process.
	RabbitMQURL string

	// HTTP
	APIAddr        string
	GRPCHealthAddr string
	// CronSecret, when set, must be sent as a bearer token on cron trigger routes.
	CronSecret string

	// Sweeps
	SchedulerEnabled       bool
	StatusSweepSchedule    string
	LifecycleSweepSchedule string
	SweepTimezone          string
	SweepConcurrency       int
	SweepRoomTimeout       time.Duration

	// Booking
	BookingLockTTL  time.Duration
	BookingLockWait time.Duration

	// Store circuit breaker
	StoreBreakerFailures int
	StoreBreakerTimeout  time.Duration

	// Outbox
	OutboxPollInterval     time.Duration
	OutboxBatchSize        int
	OutboxMaxRetries       int
	OutboxRetentionDays    int
	OutboxCleanupInterval  time.Duration
	OutboxProcessorEnabled bool
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:    getEnv("APP_ENV", "development"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		DatabaseURL: getEnv("DATABASE_URL", ""),
		SQLitePath:  getEnv("SQLITE_PATH", ""),
		DBMaxConns:  getIntEnv("DB_MAX_CONNS", 10),
		RedisURL:    getEnv("REDIS_URL", ""),
		RabbitMQURL: getEnv("RABBITMQ_URL", ""),

		APIAddr:        getEnv("API_ADDR", "0.0.0.0:8080"),
		GRPCHealthAddr: getEnv("GRPC_HEALTH_ADDR", "0.0.0.0:9090"),
		CronSecret:     getEnv("CRON_SECRET", ""),

		SchedulerEnabled:       getBoolEnv("SCHEDULER_ENABLED", true),
		StatusSweepSchedule:    getEnv("STATUS_SWEEP_SCHEDULE", "*/5 * * * *"),
		LifecycleSweepSchedule: getEnv("LIFECYCLE_SWEEP_SCHEDULE", "0 * * * *"),
		SweepTimezone:          getEnv("SWEEP_TIMEZONE", "UTC"),
		SweepConcurrency:       getIntEnv("SWEEP_CONCURRENCY", 4),
		SweepRoomTimeout:       getDurationEnv("SWEEP_ROOM_TIMEOUT", 10*time.Second),

		BookingLockTTL:  getDurationEnv("BOOKING_LOCK_TTL", 10*time.Second),
		BookingLockWait: getDurationEnv("BOOKING_LOCK_WAIT", 5*time.Second),

		StoreBreakerFailures: getIntEnv("STORE_BREAKER_FAILURES", 5),
		StoreBreakerTimeout:  getDurationEnv("STORE_BREAKER_TIMEOUT", 30*time.Second),

		OutboxPollInterval:     getDurationEnv("OUTBOX_POLL_INTERVAL", 500*time.Millisecond),
		OutboxBatchSize:        getIntEnv("OUTBOX_BATCH_SIZE", 100),
		OutboxMaxRetries:       getIntEnv("OUTBOX_MAX_RETRIES", 5),
		OutboxRetentionDays:    getIntEnv("OUTBOX_RETENTION_DAYS", 14),
		OutboxCleanupInterval:  getDurationEnv("OUTBOX_CLEANUP_INTERVAL", 24*time.Hour),
		OutboxProcessorEnabled: getBoolEnv("OUTBOX_PROCESSOR_ENABLED", true),
	}

	cfg.DatabaseDriver = detectDriver(cfg.DatabaseURL)
	cfg.LocalMode = cfg.DatabaseDriver == "sqlite"

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.SweepConcurrency < 1 {
		errs = append(errs, fmt.Errorf("SWEEP_CONCURRENCY must be at least 1, got %d", c.SweepConcurrency))
	}
	if c.SweepRoomTimeout <= 0 {
		errs = append(errs, fmt.Errorf("SWEEP_ROOM_TIMEOUT must be positive, got %s", c.SweepRoomTimeout))
	}
	if c.BookingLockTTL <= 0 || c.BookingLockWait <= 0 {
		errs = append(errs, errors.New("BOOKING_LOCK_TTL and BOOKING_LOCK_WAIT must be positive"))
	}
	if c.StoreBreakerFailures < 1 {
		errs = append(errs, fmt.Errorf("STORE_BREAKER_FAILURES must be at least 1, got %d", c.StoreBreakerFailures))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.LogFormat))
	}
	if _, err := time.LoadLocation(c.SweepTimezone); err != nil {
		errs = append(errs, fmt.Errorf("SWEEP_TIMEZONE: %w", err))
	}
	return errors.Join(errs...)
}

// SweepLocation returns the timezone sweep schedules are evaluated in.
func (c *Config) SweepLocation() *time.Location {
	loc, err := time.LoadLocation(c.SweepTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func detectDriver(url string) string {
	if strings.HasPrefix(url, "postgres://") || strings.HasPrefix(url, "postgresql://") {
		return "postgres"
	}
	return "sqlite"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
