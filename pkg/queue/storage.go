package queue

import (
	"context"
	"time"
)

// Status reports the sizes of the three task holding areas. Operational
// visibility only; correctness never depends on these numbers.
type Status struct {
	Pending    int64 `json:"pending"`
	Processing int64 `json:"processing"`
	Retry      int64 `json:"retry"`
}

// Storage is the durable backing for the notification queue: a FIFO of
// serialized tasks, a processing set for crash visibility, and a
// time-scored retry set.
//
// Every method is a single-key atomic operation on the external store. A
// task's lifecycle only ever touches one of the three areas at a time, so
// no multi-key transactions or client-side locks are needed.
type Storage interface {
	// Enqueue pushes a task payload onto the tail of the main FIFO.
	Enqueue(ctx context.Context, payload []byte) error

	// Dequeue pops the next payload from the head of the main FIFO,
	// blocking up to timeout. Returns ErrNoTask when nothing arrived.
	Dequeue(ctx context.Context, timeout time.Duration) ([]byte, error)

	// AddProcessing marks a task id as in-flight.
	AddProcessing(ctx context.Context, taskID string) error

	// RemoveProcessing clears the in-flight marker.
	RemoveProcessing(ctx context.Context, taskID string) error

	// ScheduleRetry stores a payload in the retry set, scored by the
	// time of its next attempt.
	ScheduleRetry(ctx context.Context, payload []byte, at time.Time) error

	// DueRetries removes and returns all retry payloads whose scheduled
	// time is at or before now.
	DueRetries(ctx context.Context, now time.Time) ([][]byte, error)

	// Status returns the sizes of the queue, processing set, and retry set.
	Status(ctx context.Context) (Status, error)

	// PurgeExpired drops queued and retry-scheduled payloads whose alert
	// expired before now, returning how many were removed.
	PurgeExpired(ctx context.Context, now time.Time) (int, error)
}
