package queue

import "errors"

// Common errors
var (
	// ErrStorageNil is returned when a component is constructed without storage
	ErrStorageNil = errors.New("queue storage cannot be nil")

	// ErrAdapterNil is returned when a worker is constructed without a delivery adapter
	ErrAdapterNil = errors.New("delivery adapter cannot be nil")

	// ErrRecordStoreNil is returned when a worker is constructed without a record store
	ErrRecordStoreNil = errors.New("delivery record store cannot be nil")

	// ErrNoTask signals an empty queue; it is the normal idle condition, not a failure
	ErrNoTask = errors.New("no task available")

	// ErrMalformedTask is returned when a queue payload cannot be decoded.
	// Malformed tasks are dropped and counted, never retried.
	ErrMalformedTask = errors.New("malformed task payload")

	// ErrRetriesExhausted marks a task that failed on every allowed attempt.
	// It is recorded in the audit trail, not propagated as a process failure.
	ErrRetriesExhausted = errors.New("delivery retries exhausted")

	// ErrStoreUnavailable is returned when the shared external store is
	// unreachable. The worker loop logs, backs off, and keeps running.
	ErrStoreUnavailable = errors.New("queue store unavailable")

	// ErrTaskInvalid is returned when an enqueued task has no targets or methods
	ErrTaskInvalid = errors.New("task must have at least one target user and delivery method")
)
