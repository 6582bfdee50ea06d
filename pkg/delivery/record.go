package delivery

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// RecordStatus is the terminal outcome of one delivery attempt.
type RecordStatus string

const (
	StatusSent   RecordStatus = "sent"
	StatusFailed RecordStatus = "failed"
)

// Record is one entry in the append-only delivery audit trail: one record
// per (task, user, method, attempt outcome).
type Record struct {
	TaskID    uuid.UUID    `json:"task_id"`
	UserID    uuid.UUID    `json:"user_id"`
	Method    Method       `json:"method"`
	Status    RecordStatus `json:"status"`
	Error     string       `json:"error,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}

// RecordStore persists the delivery audit trail.
type RecordStore interface {
	// Append stores a new delivery record. Records are never updated.
	Append(ctx context.Context, rec Record) error

	// ListByTask returns all records written for a task, oldest first.
	ListByTask(ctx context.Context, taskID uuid.UUID) ([]Record, error)
}

// MemoryRecordStore is an in-memory RecordStore for tests and local
// development.
type MemoryRecordStore struct {
	mu      sync.RWMutex
	records []Record
}

// NewMemoryRecordStore creates an empty in-memory record store.
func NewMemoryRecordStore() *MemoryRecordStore {
	return &MemoryRecordStore{}
}

func (s *MemoryRecordStore) Append(ctx context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append(s.records, rec)
	return nil
}

func (s *MemoryRecordStore) ListByTask(ctx context.Context, taskID uuid.UUID) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Record
	for _, r := range s.records {
		if r.TaskID == taskID {
			out = append(out, r)
		}
	}
	return out, nil
}

// All returns every record written so far, oldest first.
func (s *MemoryRecordStore) All() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return slices.Clone(s.records)
}
