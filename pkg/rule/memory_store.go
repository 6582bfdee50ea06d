package rule

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/ecosense/alertkit/pkg/alert"
)

// MemoryStore is a mutex-guarded in-memory Store implementation.
type MemoryStore struct {
	mu    sync.RWMutex
	rules map[uuid.UUID]Rule
}

// NewMemoryStore creates an empty in-memory rule store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rules: make(map[uuid.UUID]Rule)}
}

func (s *MemoryStore) Create(ctx context.Context, r Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.rules[r.ID]; exists {
		return fmt.Errorf("rule %s already exists", r.ID)
	}
	s.rules[r.ID] = r
	return nil
}

func (s *MemoryStore) Update(ctx context.Context, r Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.rules[r.ID]; !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, r.ID)
	}
	s.rules[r.ID] = r
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.rules[id]; !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(s.rules, id)
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id uuid.UUID) (*Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.rules[id]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	// Copy to keep stored rules immutable from the caller's perspective.
	return &r, nil
}

func (s *MemoryStore) FindActiveNear(ctx context.Context, loc alert.Location, radiusKm float64) ([]Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Rule
	for _, r := range s.rules {
		if !r.Active {
			continue
		}
		if r.Location.Intersects(loc, radiusKm) {
			out = append(out, r)
		}
	}
	return out, nil
}
