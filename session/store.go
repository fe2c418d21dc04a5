package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps any transport or server error from Redis.
var ErrRedisUnavailable = errors.New("redis unavailable")

// ErrSessionNotFound is returned by [Store.Get] when no token is stored for the email.
var ErrSessionNotFound = errors.New("session not found")

// DefaultPrefix is the key namespace used when NewStore receives an empty prefix.
const DefaultPrefix = "gk:sess"

// Store is a Redis-backed map of account email to current session token.
type Store struct {
	redis  redis.UniversalClient
	prefix string
}

// NewStore creates a session [Store] backed by the given Redis client.
func NewStore(redis redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Store{
		redis:  redis,
		prefix: prefix,
	}
}

func (s *Store) key(email string) string {
	return s.prefix + ":" + strings.ToLower(strings.TrimSpace(email))
}

// Get returns the token currently stored for email.
//
//	Performance: 1 Redis GET.
func (s *Store) Get(ctx context.Context, email string) (string, error) {
	token, err := s.redis.Get(ctx, s.key(email)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrSessionNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return token, nil
}

// Set stores token as the current session for email, replacing any previous
// value. A non-positive ttl stores the entry without expiry.
//
//	Performance: 1 Redis SET.
func (s *Store) Set(ctx context.Context, email, token string, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if err := s.redis.Set(ctx, s.key(email), token, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Delete removes the stored session for email. Deleting a missing entry is not an error.
func (s *Store) Delete(ctx context.Context, email string) error {
	if err := s.redis.Del(ctx, s.key(email)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Ping returns a point-in-time Redis availability check and latency.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return time.Since(start), nil
}
