package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// RetryScanner periodically moves due entries from the retry set back onto
// the main FIFO. Requeued tasks reenter at the tail, so global delivery
// order across tasks is best effort; per-task retry ordering stays
// chronological via the scored set.
type RetryScanner struct {
	storage  Storage
	interval time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

// ScannerOption configures a RetryScanner.
type ScannerOption func(*RetryScanner)

// WithScanInterval sets how often the scanner checks for due retries.
func WithScanInterval(d time.Duration) ScannerOption {
	return func(s *RetryScanner) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithScannerClock overrides the time source.
func WithScannerClock(now func() time.Time) ScannerOption {
	return func(s *RetryScanner) {
		if now != nil {
			s.now = now
		}
	}
}

// WithScannerLogger sets the logger for the scanner.
func WithScannerLogger(logger *slog.Logger) ScannerOption {
	return func(s *RetryScanner) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewRetryScanner creates a retry scanner with a one-minute default
// interval.
func NewRetryScanner(storage Storage, opts ...ScannerOption) (*RetryScanner, error) {
	if storage == nil {
		return nil, ErrStorageNil
	}

	s := &RetryScanner{
		storage:  storage,
		interval: time.Minute,
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Scan performs a single pass: every retry entry whose scheduled time has
// arrived is pushed back onto the main FIFO. Returns how many were moved.
func (s *RetryScanner) Scan(ctx context.Context) (int, error) {
	due, err := s.storage.DueRetries(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("failed to collect due retries: %w", err)
	}

	moved := 0
	for _, payload := range due {
		if err := s.storage.Enqueue(ctx, payload); err != nil {
			// DueRetries already claimed the entry, so this scanner holds
			// the only copy. Put it back in the retry set and stop the
			// pass; a later pass picks it up once the store recovers.
			if reErr := s.reschedule(ctx, payload); reErr != nil {
				return moved, errors.Join(err, reErr)
			}
			return moved, fmt.Errorf("failed to requeue retry: %w", err)
		}
		moved++
	}

	if moved > 0 {
		s.logger.Debug("requeued due retries", slog.Int("count", moved))
	}
	return moved, nil
}

// reschedule puts a claimed payload back into the retry set, due
// immediately. The payload is held through bounded in-process retries so an
// outage delays the task instead of dropping it.
func (s *RetryScanner) reschedule(ctx context.Context, payload []byte) error {
	var errs []error
	for attempt := 0; attempt < persistAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return errors.Join(append(errs, ctx.Err())...)
			case <-time.After(persistRetryDelay):
			}
		}

		if err := s.storage.ScheduleRetry(ctx, payload, s.now()); err != nil {
			errs = append(errs, err)
			continue
		}
		return nil
	}
	return errors.Join(errs...)
}

// Start runs the scanner loop until the context is cancelled.
func (s *RetryScanner) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("retry scanner shutting down")
			return ctx.Err()
		case <-ticker.C:
			if _, err := s.Scan(ctx); err != nil {
				s.logger.Warn("retry scan failed",
					slog.String("error", err.Error()))
			}
		}
	}
}

// Run returns a function suitable for errgroup.
func (s *RetryScanner) Run(ctx context.Context) func() error {
	return func() error {
		err := s.Start(ctx)
		if err == context.Canceled {
			return nil
		}
		return err
	}
}
