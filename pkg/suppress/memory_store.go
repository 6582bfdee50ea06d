package suppress

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store for tests and local development.
// Expired markers are pruned lazily on access.
type MemoryStore struct {
	mu      sync.Mutex
	markers map[string]time.Time
	now     func() time.Time
}

// NewMemoryStore creates an empty in-memory suppression store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		markers: make(map[string]time.Time),
		now:     time.Now,
	}
}

// NewMemoryStoreWithClock creates a store with an injected time source so
// tests can advance virtual time instead of sleeping.
func NewMemoryStoreWithClock(now func() time.Time) *MemoryStore {
	return &MemoryStore{
		markers: make(map[string]time.Time),
		now:     now,
	}
}

func (s *MemoryStore) SetIfAbsent(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if expiry, exists := s.markers[key]; exists && expiry.After(now) {
		return false, nil
	}
	s.markers[key] = now.Add(ttl)
	return true, nil
}

func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.markers, key)
	return nil
}
