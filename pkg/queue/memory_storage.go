package queue

import (
	"context"
	"slices"
	"sync"
	"time"
)

// MemoryStorage implements Storage in memory for tests and local
// development. It mirrors the Redis layout: a FIFO slice, a processing set,
// and a score-ordered retry list.
type MemoryStorage struct {
	mu         sync.Mutex
	fifo       [][]byte
	processing map[string]struct{}
	retries    []retryEntry
}

type retryEntry struct {
	payload []byte
	at      time.Time
}

// NewMemoryStorage creates an empty in-memory queue storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{processing: make(map[string]struct{})}
}

func (s *MemoryStorage) Enqueue(ctx context.Context, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.fifo = append(s.fifo, slices.Clone(payload))
	return nil
}

// Dequeue pops the oldest payload. The blocking timeout of the Redis
// implementation is not simulated; an empty queue returns ErrNoTask
// immediately so tests stay fast.
func (s *MemoryStorage) Dequeue(ctx context.Context, timeout time.Duration) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.fifo) == 0 {
		return nil, ErrNoTask
	}
	payload := s.fifo[0]
	s.fifo = s.fifo[1:]
	return payload, nil
}

func (s *MemoryStorage) AddProcessing(ctx context.Context, taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.processing[taskID] = struct{}{}
	return nil
}

func (s *MemoryStorage) RemoveProcessing(ctx context.Context, taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.processing, taskID)
	return nil
}

func (s *MemoryStorage) ScheduleRetry(ctx context.Context, payload []byte, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.retries = append(s.retries, retryEntry{payload: slices.Clone(payload), at: at})
	slices.SortStableFunc(s.retries, func(a, b retryEntry) int {
		return a.at.Compare(b.at)
	})
	return nil
}

func (s *MemoryStorage) DueRetries(ctx context.Context, now time.Time) ([][]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due [][]byte
	var remaining []retryEntry
	for _, e := range s.retries {
		if !e.at.After(now) {
			due = append(due, e.payload)
		} else {
			remaining = append(remaining, e)
		}
	}
	s.retries = remaining
	return due, nil
}

func (s *MemoryStorage) Status(ctx context.Context) (Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Status{
		Pending:    int64(len(s.fifo)),
		Processing: int64(len(s.processing)),
		Retry:      int64(len(s.retries)),
	}, nil
}

func (s *MemoryStorage) PurgeExpired(ctx context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	purged := 0
	s.fifo = slices.DeleteFunc(s.fifo, func(p []byte) bool {
		if payloadExpired(p, now) {
			purged++
			return true
		}
		return false
	})
	s.retries = slices.DeleteFunc(s.retries, func(e retryEntry) bool {
		if payloadExpired(e.payload, now) {
			purged++
			return true
		}
		return false
	})
	return purged, nil
}
