package locking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only while it still holds our token, so an
// expired lock re-acquired by another writer is never released by us.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLockConfig tunes the distributed room lock.
type RedisLockConfig struct {
	// TTL bounds how long a crashed holder can block a room.
	TTL time.Duration
	// RetryInterval is the pause between acquisition attempts.
	RetryInterval time.Duration
	// KeyPrefix namespaces lock keys.
	KeyPrefix string
}

// DefaultRedisLockConfig returns the defaults used by roomkeeper.
func DefaultRedisLockConfig() RedisLockConfig {
	return RedisLockConfig{
		TTL:           10 * time.Second,
		RetryInterval: 25 * time.Millisecond,
		KeyPrefix:     "roomkeeper:lock:room:",
	}
}

// RedisRoomLocker serializes writers across processes with SET NX PX.
type RedisRoomLocker struct {
	client redis.UniversalClient
	config RedisLockConfig
	logger *slog.Logger
}

// NewRedisRoomLocker creates a distributed locker.
func NewRedisRoomLocker(client redis.UniversalClient, config RedisLockConfig, logger *slog.Logger) *RedisRoomLocker {
	if logger == nil {
		logger = slog.Default()
	}
	defaults := DefaultRedisLockConfig()
	if config.TTL <= 0 {
		config.TTL = defaults.TTL
	}
	if config.RetryInterval <= 0 {
		config.RetryInterval = defaults.RetryInterval
	}
	if config.KeyPrefix == "" {
		config.KeyPrefix = defaults.KeyPrefix
	}
	return &RedisRoomLocker{client: client, config: config, logger: logger}
}

// Lock polls until the key is acquired or ctx ends.
func (l *RedisRoomLocker) Lock(ctx context.Context, roomID int64) (func() error, error) {
	key := l.config.KeyPrefix + strconv.FormatInt(roomID, 10)
	token := uuid.NewString()

	ticker := time.NewTicker(l.config.RetryInterval)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.config.TTL).Result()
		if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("acquire %s: %w", key, err)
		}
		if ok {
			return l.releaser(key, token), nil
		}

		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrLockTimeout, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (l *RedisRoomLocker) releaser(key, token string) func() error {
	return func() error {
		// The caller's context may already be done; release on a fresh one.
		ctx, cancel := context.WithTimeout(context.Background(), l.config.TTL)
		defer cancel()

		released, err := releaseScript.Run(ctx, l.client, []string{key}, token).Int()
		if err != nil {
			return fmt.Errorf("release %s: %w", key, err)
		}
		if released == 0 {
			l.logger.Warn("room lock expired before release", "key", key)
		}
		return nil
	}
}
