package trigger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ecosense/alertkit/pkg/alert"
	"github.com/ecosense/alertkit/pkg/rule"
)

// AlertQuery filters alert-history lookups.
type AlertQuery struct {
	Location   *alert.Location
	RadiusKm   float64
	Severity   alert.Severity
	Type       alert.Type
	ActiveOnly bool
}

// AlertStore persists accepted alerts for delivery fan-out and history
// queries. Production deployments back this with the platform database.
type AlertStore interface {
	Create(ctx context.Context, a alert.Alert) error
	Get(ctx context.Context, id uuid.UUID) (*alert.Alert, error)
	Find(ctx context.Context, q AlertQuery) ([]alert.Alert, error)

	// DeleteExpired removes alerts past their expiry, returning the count.
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

// MemoryAlertStore is an in-memory AlertStore for tests and local runs.
type MemoryAlertStore struct {
	mu     sync.RWMutex
	alerts map[uuid.UUID]alert.Alert
	now    func() time.Time
}

// NewMemoryAlertStore creates an empty in-memory alert store.
func NewMemoryAlertStore() *MemoryAlertStore {
	return &MemoryAlertStore{
		alerts: make(map[uuid.UUID]alert.Alert),
		now:    time.Now,
	}
}

func (s *MemoryAlertStore) Create(ctx context.Context, a alert.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.alerts[a.ID]; exists {
		return fmt.Errorf("alert %s already exists", a.ID)
	}
	s.alerts[a.ID] = a
	return nil
}

func (s *MemoryAlertStore) Get(ctx context.Context, id uuid.UUID) (*alert.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, exists := s.alerts[id]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrAlertNotFound, id)
	}
	return &a, nil
}

func (s *MemoryAlertStore) Find(ctx context.Context, q AlertQuery) ([]alert.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	var out []alert.Alert
	for _, a := range s.alerts {
		if q.Severity != "" && a.Severity != q.Severity {
			continue
		}
		if q.Type != "" && a.Type != q.Type {
			continue
		}
		if q.ActiveOnly && a.Expired(now) {
			continue
		}
		if q.Location != nil {
			radius := q.RadiusKm
			if radius == 0 {
				radius = a.AffectedRadiusKm
			}
			if rule.DistanceKm(*q.Location, a.Location) > radius+a.AffectedRadiusKm {
				continue
			}
		}
		out = append(out, a)
	}
	return out, nil
}

func (s *MemoryAlertStore) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	for id, a := range s.alerts {
		if a.Expired(now) {
			delete(s.alerts, id)
			deleted++
		}
	}
	return deleted, nil
}
