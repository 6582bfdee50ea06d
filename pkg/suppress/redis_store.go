package suppress

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore backs suppression windows with short-TTL Redis markers.
// SET NX PX gives the check-and-record in a single atomic command, so
// concurrent trigger instances never both pass the window check.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a Redis-backed suppression store. The prefix
// namespaces marker keys and may be empty.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) key(key string) string {
	if s.prefix == "" {
		return key
	}
	return s.prefix + ":" + key
}

func (s *RedisStore) SetIfAbsent(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, s.key(key), 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to set suppression marker %q: %w", key, err)
	}
	return ok, nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("failed to delete suppression marker %q: %w", key, err)
	}
	return nil
}
