package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Janitor removes queue artifacts whose alerts expired before they could be
// delivered. It complements the worker's own expiry check: the worker skips
// expired tasks it happens to pop, while the janitor keeps long-idle queues
// from accumulating dead payloads.
type Janitor struct {
	storage Storage
	now     func() time.Time
	logger  *slog.Logger
}

// JanitorOption configures a Janitor.
type JanitorOption func(*Janitor)

// WithJanitorClock overrides the time source.
func WithJanitorClock(now func() time.Time) JanitorOption {
	return func(j *Janitor) {
		if now != nil {
			j.now = now
		}
	}
}

// WithJanitorLogger sets the logger for the janitor.
func WithJanitorLogger(logger *slog.Logger) JanitorOption {
	return func(j *Janitor) {
		if logger != nil {
			j.logger = logger
		}
	}
}

// NewJanitor creates a queue janitor.
func NewJanitor(storage Storage, opts ...JanitorOption) (*Janitor, error) {
	if storage == nil {
		return nil, ErrStorageNil
	}

	j := &Janitor{
		storage: storage,
		now:     time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(j)
	}
	return j, nil
}

// Sweep performs one cleanup pass and returns how many payloads were
// purged. Intended to run hourly.
func (j *Janitor) Sweep(ctx context.Context) (int, error) {
	purged, err := j.storage.PurgeExpired(ctx, j.now())
	if err != nil {
		return purged, fmt.Errorf("failed to purge expired queue payloads: %w", err)
	}

	if purged > 0 {
		j.logger.Info("purged expired queue payloads", slog.Int("count", purged))
	}
	return purged, nil
}
