package rate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds rate limiter tuning parameters. A zero maximum disables that
// counter.
type Config struct {
	MaxLoginFailures   int
	LoginCooldown      time.Duration
	MaxResetRequests   int
	ResetRequestWindow time.Duration
}

// DefaultConfig returns the limits the fake service runs with.
func DefaultConfig() Config {
	return Config{
		MaxLoginFailures:   5,
		LoginCooldown:      15 * time.Minute,
		MaxResetRequests:   3,
		ResetRequestWindow: time.Hour,
	}
}

// Limiter enforces per-email budgets with Redis counters.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

// New creates a [Limiter] backed by the given Redis client.
func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	return &Limiter{
		redis:  redisClient,
		config: cfg,
	}
}

// CheckLogin reports ErrRateLimited when email has used its failed-login budget.
func (l *Limiter) CheckLogin(ctx context.Context, email string) error {
	if l.config.MaxLoginFailures <= 0 {
		return nil
	}
	return l.checkCounter(ctx, loginKey(email), l.config.MaxLoginFailures)
}

// IncrementLogin records a failed login for email.
func (l *Limiter) IncrementLogin(ctx context.Context, email string) error {
	if l.config.MaxLoginFailures <= 0 {
		return nil
	}
	_, err := l.incrementWithTTL(ctx, loginKey(email), l.config.LoginCooldown)
	return err
}

// ResetLogin clears the failed-login counter after a successful login or
// password change.
func (l *Limiter) ResetLogin(ctx context.Context, email string) error {
	if err := l.redis.Del(ctx, loginKey(email)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// AllowReset counts one password-reset request for email and reports
// ErrRateLimited once the window budget is exceeded.
func (l *Limiter) AllowReset(ctx context.Context, email string) error {
	if l.config.MaxResetRequests <= 0 {
		return nil
	}
	count, err := l.incrementWithTTL(ctx, resetKey(email), l.config.ResetRequestWindow)
	if err != nil {
		return err
	}
	if count > int64(l.config.MaxResetRequests) {
		return ErrRateLimited
	}
	return nil
}

// LoginFailures returns the current failed-login count for email.
func (l *Limiter) LoginFailures(ctx context.Context, email string) (int, error) {
	count, err := l.redis.Get(ctx, loginKey(email)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count < 0 {
		return 0, nil
	}
	return int(count), nil
}

func (l *Limiter) checkCounter(ctx context.Context, key string, maxAttempts int) error {
	count, err := l.redis.Get(ctx, key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count >= int64(maxAttempts) {
		return ErrRateLimited
	}
	return nil
}

func (l *Limiter) incrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// Fixed window: the TTL is set only on the first hit.
	if count == 1 && ttl > 0 {
		if err := l.redis.Expire(ctx, key, ttl).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}
	return count, nil
}

func loginKey(email string) string {
	return "rl:login:" + strings.ToLower(strings.TrimSpace(email))
}

func resetKey(email string) string {
	return "rl:reset:" + strings.ToLower(strings.TrimSpace(email))
}
