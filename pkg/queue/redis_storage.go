package queue

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ecosense/alertkit/pkg/delivery"
)

// DefaultKeyPrefix namespaces the queue keys in Redis.
const DefaultKeyPrefix = "alerts"

// RedisStorage implements Storage on Redis: a list for the main FIFO, a set
// for in-flight tasks, and a sorted set scored by next-attempt time for
// retries. Each operation is a single Redis command, which gives the
// single-key atomicity the queue invariant relies on.
type RedisStorage struct {
	client *redis.Client
	prefix string
}

// NewRedisStorage creates a Redis-backed queue storage. An empty prefix
// falls back to DefaultKeyPrefix.
func NewRedisStorage(client *redis.Client, prefix string) (*RedisStorage, error) {
	if client == nil {
		return nil, ErrStorageNil
	}
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &RedisStorage{client: client, prefix: prefix}, nil
}

func (s *RedisStorage) queueKey() string      { return s.prefix + ":queue" }
func (s *RedisStorage) processingKey() string { return s.prefix + ":processing" }
func (s *RedisStorage) retryKey() string      { return s.prefix + ":retry" }

func (s *RedisStorage) Enqueue(ctx context.Context, payload []byte) error {
	if err := s.client.LPush(ctx, s.queueKey(), payload).Err(); err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}
	return nil
}

func (s *RedisStorage) Dequeue(ctx context.Context, timeout time.Duration) ([]byte, error) {
	if timeout <= 0 {
		val, err := s.client.RPop(ctx, s.queueKey()).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil, ErrNoTask
		}
		if err != nil {
			return nil, errors.Join(ErrStoreUnavailable, err)
		}
		return val, nil
	}

	res, err := s.client.BRPop(ctx, timeout, s.queueKey()).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoTask
	}
	if err != nil {
		return nil, errors.Join(ErrStoreUnavailable, err)
	}
	// BRPop returns [key, value].
	return []byte(res[1]), nil
}

func (s *RedisStorage) AddProcessing(ctx context.Context, taskID string) error {
	if err := s.client.SAdd(ctx, s.processingKey(), taskID).Err(); err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}
	return nil
}

func (s *RedisStorage) RemoveProcessing(ctx context.Context, taskID string) error {
	if err := s.client.SRem(ctx, s.processingKey(), taskID).Err(); err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}
	return nil
}

func (s *RedisStorage) ScheduleRetry(ctx context.Context, payload []byte, at time.Time) error {
	err := s.client.ZAdd(ctx, s.retryKey(), redis.Z{
		Score:  float64(at.Unix()),
		Member: payload,
	}).Err()
	if err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}
	return nil
}

func (s *RedisStorage) DueRetries(ctx context.Context, now time.Time) ([][]byte, error) {
	members, err := s.client.ZRangeByScore(ctx, s.retryKey(), &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now.Unix(), 10),
	}).Result()
	if err != nil {
		return nil, errors.Join(ErrStoreUnavailable, err)
	}

	// ZRem returning zero means a competing scanner claimed the entry
	// first; skipping it keeps each retry re-queued exactly once.
	var due [][]byte
	for _, m := range members {
		removed, err := s.client.ZRem(ctx, s.retryKey(), m).Result()
		if err != nil {
			return due, errors.Join(ErrStoreUnavailable, err)
		}
		if removed > 0 {
			due = append(due, []byte(m))
		}
	}
	return due, nil
}

func (s *RedisStorage) Status(ctx context.Context) (Status, error) {
	pending, err := s.client.LLen(ctx, s.queueKey()).Result()
	if err != nil {
		return Status{}, errors.Join(ErrStoreUnavailable, err)
	}
	processing, err := s.client.SCard(ctx, s.processingKey()).Result()
	if err != nil {
		return Status{}, errors.Join(ErrStoreUnavailable, err)
	}
	retry, err := s.client.ZCard(ctx, s.retryKey()).Result()
	if err != nil {
		return Status{}, errors.Join(ErrStoreUnavailable, err)
	}
	return Status{Pending: pending, Processing: processing, Retry: retry}, nil
}

func (s *RedisStorage) PurgeExpired(ctx context.Context, now time.Time) (int, error) {
	purged := 0

	queued, err := s.client.LRange(ctx, s.queueKey(), 0, -1).Result()
	if err != nil {
		return 0, errors.Join(ErrStoreUnavailable, err)
	}
	for _, payload := range queued {
		if !payloadExpired([]byte(payload), now) {
			continue
		}
		removed, err := s.client.LRem(ctx, s.queueKey(), 1, payload).Result()
		if err != nil {
			return purged, errors.Join(ErrStoreUnavailable, err)
		}
		purged += int(removed)
	}

	retries, err := s.client.ZRange(ctx, s.retryKey(), 0, -1).Result()
	if err != nil {
		return purged, errors.Join(ErrStoreUnavailable, err)
	}
	for _, payload := range retries {
		if !payloadExpired([]byte(payload), now) {
			continue
		}
		removed, err := s.client.ZRem(ctx, s.retryKey(), payload).Result()
		if err != nil {
			return purged, errors.Join(ErrStoreUnavailable, err)
		}
		purged += int(removed)
	}

	return purged, nil
}

// payloadExpired decodes just enough of a task payload to check expiry.
// Undecodable payloads are left in place for the worker's malformed-task
// accounting rather than silently vanishing during cleanup.
func payloadExpired(payload []byte, now time.Time) bool {
	var task delivery.Task
	if err := json.Unmarshal(payload, &task); err != nil {
		return false
	}
	return task.Alert.Expired(now)
}
