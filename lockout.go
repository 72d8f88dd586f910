package medguard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const lockoutKeyPrefix = "mlo"

var errLockoutRedisUnavailable = errors.New("lockout redis unavailable")

// lockoutCounter tracks consecutive failed logins per account in Redis. The
// counter expires on its own after the lockout duration, so an abandoned
// attack window resets without any cleanup job. Concurrent failures race
// through INCR, which keeps the count exact under load.
type lockoutCounter struct {
	redis  *redis.Client
	config LockoutConfig
}

func newLockoutCounter(redisClient *redis.Client, cfg LockoutConfig) *lockoutCounter {
	return &lockoutCounter{
		redis:  redisClient,
		config: cfg,
	}
}

func (l *lockoutCounter) key(accountID string) string {
	return lockoutKeyPrefix + ":" + accountID
}

// RecordFailure bumps the failure counter and reports the new attempt count
// and whether this failure crossed the lockout threshold.
func (l *lockoutCounter) RecordFailure(ctx context.Context, accountID string) (int, bool, error) {
	key := l.key(accountID)

	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, false, fmt.Errorf("%w: %v", errLockoutRedisUnavailable, err)
	}
	if count == 1 {
		if err := l.redis.Expire(ctx, key, l.config.Duration).Err(); err != nil {
			return 0, false, fmt.Errorf("%w: %v", errLockoutRedisUnavailable, err)
		}
	}

	return int(count), int(count) >= l.config.MaxAttempts, nil
}

// Attempts returns the current failure count without modifying it.
func (l *lockoutCounter) Attempts(ctx context.Context, accountID string) (int, error) {
	count, err := l.redis.Get(ctx, l.key(accountID)).Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", errLockoutRedisUnavailable, err)
	}
	return count, nil
}

// Reset clears the failure counter after a successful login.
func (l *lockoutCounter) Reset(ctx context.Context, accountID string) error {
	if err := l.redis.Del(ctx, l.key(accountID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", errLockoutRedisUnavailable, err)
	}
	return nil
}

func (l *lockoutCounter) lockUntil(now time.Time) time.Time {
	return now.Add(l.config.Duration)
}
