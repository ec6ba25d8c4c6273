package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps the token under a single Redis key.
//
//	Performance: 1 Redis command per call.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
	name   string
	ttl    time.Duration
}

// NewRedisStore creates a [RedisStore]. The token lives at "<prefix>:<key>";
// an empty key selects [DefaultKey]. A positive ttl makes the stored token
// expire on the Redis side, after which Get reports it absent.
func NewRedisStore(client redis.UniversalClient, prefix, key string, ttl time.Duration) *RedisStore {
	if key == "" {
		key = DefaultKey
	}
	if ttl < 0 {
		ttl = 0
	}
	return &RedisStore{
		redis:  client,
		prefix: prefix,
		name:   key,
		ttl:    ttl,
	}
}

func (s *RedisStore) key() string {
	if s.prefix == "" {
		return s.name
	}
	return s.prefix + ":" + s.name
}

// Get reads the stored token. A missing key is not an error.
func (s *RedisStore) Get(ctx context.Context) (string, bool, error) {
	token, err := s.redis.Get(ctx, s.key()).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if token == "" {
		return "", false, nil
	}
	return token, true, nil
}

// Set overwrites the stored token.
func (s *RedisStore) Set(ctx context.Context, token string) error {
	if token == "" {
		return ErrEmptyToken
	}
	if err := s.redis.Set(ctx, s.key(), token, s.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Clear deletes the stored token. Deleting a missing key succeeds.
func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.redis.Del(ctx, s.key()).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}
