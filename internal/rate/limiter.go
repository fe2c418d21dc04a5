package rate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds login throttle tuning parameters.
type Config struct {
	// MaxLoginAttempts is the number of failed attempts allowed per window.
	// Zero disables the limiter.
	MaxLoginAttempts int
	// LoginCooldown is the window length, set on the first failed attempt.
	LoginCooldown time.Duration
	// EnableIPThrottle also counts failures per client IP when one is known.
	EnableIPThrottle bool
	Prefix           string
}

// DefaultPrefix namespaces limiter keys.
const DefaultPrefix = "gk:rl"

// Limiter counts failed logins per email and optionally per IP using
// fixed-window Redis counters.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

// New creates a [Limiter] backed by the given Redis client.
func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	if cfg.Prefix == "" {
		cfg.Prefix = DefaultPrefix
	}
	return &Limiter{
		redis:  redisClient,
		config: cfg,
	}
}

// Enabled reports whether the limiter enforces anything.
func (l *Limiter) Enabled() bool {
	return l != nil && l.config.MaxLoginAttempts > 0
}

// CheckLogin returns ErrRateLimited when the email or IP has exhausted its budget.
func (l *Limiter) CheckLogin(ctx context.Context, email, ip string) error {
	if !l.Enabled() {
		return nil
	}
	if err := l.checkCounter(ctx, l.emailKey(email)); err != nil {
		return err
	}
	if l.config.EnableIPThrottle && ip != "" {
		return l.checkCounter(ctx, l.ipKey(ip))
	}
	return nil
}

// IncrementLogin records a failed attempt. It returns ErrRateLimited when
// this attempt exhausts the budget.
func (l *Limiter) IncrementLogin(ctx context.Context, email, ip string) error {
	if !l.Enabled() {
		return nil
	}
	count, err := l.incrementWithTTL(ctx, l.emailKey(email))
	if err != nil {
		return err
	}
	if count > int64(l.config.MaxLoginAttempts) {
		return ErrRateLimited
	}

	if l.config.EnableIPThrottle && ip != "" {
		count, err = l.incrementWithTTL(ctx, l.ipKey(ip))
		if err != nil {
			return err
		}
		if count > int64(l.config.MaxLoginAttempts) {
			return ErrRateLimited
		}
	}

	return nil
}

// ResetLogin clears the counters after a successful password login.
func (l *Limiter) ResetLogin(ctx context.Context, email, ip string) error {
	if !l.Enabled() {
		return nil
	}
	keys := []string{l.emailKey(email)}
	if l.config.EnableIPThrottle && ip != "" {
		keys = append(keys, l.ipKey(ip))
	}

	if err := l.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Attempts returns the current failed-attempt count for email.
func (l *Limiter) Attempts(ctx context.Context, email string) (int, error) {
	count, err := l.redis.Get(ctx, l.emailKey(email)).Int64()
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

func (l *Limiter) emailKey(email string) string {
	return l.config.Prefix + ":e:" + strings.ToLower(strings.TrimSpace(email))
}

func (l *Limiter) ipKey(ip string) string {
	return l.config.Prefix + ":ip:" + ip
}

func (l *Limiter) checkCounter(ctx context.Context, key string) error {
	count, err := l.redis.Get(ctx, key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count >= int64(l.config.MaxLoginAttempts) {
		return ErrRateLimited
	}
	return nil
}

func (l *Limiter) incrementWithTTL(ctx context.Context, key string) (int64, error) {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// Fixed window: TTL is set only on the first hit.
	if count == 1 {
		if err := l.redis.Expire(ctx, key, l.config.LoginCooldown).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	return count, nil
}
