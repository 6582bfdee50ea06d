package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ecosense/alertkit/pkg/delivery"
)

// DefaultMaxRetries is the retry budget assigned to tasks that do not
// specify their own.
const DefaultMaxRetries = 3

// Enqueuer adds delivery tasks to the queue.
type Enqueuer struct {
	storage Storage
	now     func() time.Time
}

// EnqueuerOption configures an Enqueuer.
type EnqueuerOption func(*Enqueuer)

// WithEnqueuerClock overrides the time source.
func WithEnqueuerClock(now func() time.Time) EnqueuerOption {
	return func(e *Enqueuer) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEnqueuer creates a task enqueuer.
func NewEnqueuer(storage Storage, opts ...EnqueuerOption) (*Enqueuer, error) {
	if storage == nil {
		return nil, ErrStorageNil
	}

	e := &Enqueuer{storage: storage, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// EnqueueTask fills in identity and scheduling defaults, serializes the
// task, and pushes it onto the main FIFO.
func (e *Enqueuer) EnqueueTask(ctx context.Context, task delivery.Task) error {
	if len(task.TargetUserIDs) == 0 || len(task.Methods) == 0 {
		return ErrTaskInvalid
	}

	now := e.now()
	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	if task.MaxRetries == 0 {
		task.MaxRetries = DefaultMaxRetries
	}
	if task.ScheduledAt.IsZero() {
		task.ScheduledAt = now
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}

	payload, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task %s: %w", task.ID, err)
	}

	if err := e.storage.Enqueue(ctx, payload); err != nil {
		return fmt.Errorf("failed to enqueue task %s: %w", task.ID, err)
	}
	return nil
}
