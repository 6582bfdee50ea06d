package queue

import (
	"log/slog"
	"time"
)

// WorkerOption is a functional option for configuring a worker
type WorkerOption func(*workerOptions)

type workerOptions struct {
	pollInterval   time.Duration
	dequeueTimeout time.Duration
	sendTimeout    time.Duration
	maxConcurrent  int
	backoff        BackoffStrategy
	now            func() time.Time
	logger         *slog.Logger
}

// WithPollInterval sets how often the background loop checks for new tasks
func WithPollInterval(d time.Duration) WorkerOption {
	return func(o *workerOptions) {
		if d > 0 {
			o.pollInterval = d
		}
	}
}

// WithDequeueTimeout sets the blocking-pop timeout for each queue check
func WithDequeueTimeout(d time.Duration) WorkerOption {
	return func(o *workerOptions) {
		if d >= 0 {
			o.dequeueTimeout = d
		}
	}
}

// WithSendTimeout bounds each delivery adapter call; a slow channel is
// treated as a failed one
func WithSendTimeout(d time.Duration) WorkerOption {
	return func(o *workerOptions) {
		if d > 0 {
			o.sendTimeout = d
		}
	}
}

// WithMaxConcurrent sets the maximum number of tasks in flight at once
func WithMaxConcurrent(n int) WorkerOption {
	return func(o *workerOptions) {
		if n > 0 {
			o.maxConcurrent = n
		}
	}
}

// WithBackoff sets the retry backoff strategy
func WithBackoff(b BackoffStrategy) WorkerOption {
	return func(o *workerOptions) {
		if b != nil {
			o.backoff = b
		}
	}
}

// WithWorkerClock overrides the time source, letting tests advance virtual
// time instead of waiting on real clocks
func WithWorkerClock(now func() time.Time) WorkerOption {
	return func(o *workerOptions) {
		if now != nil {
			o.now = now
		}
	}
}

// WithWorkerLogger sets the logger for the worker
func WithWorkerLogger(logger *slog.Logger) WorkerOption {
	return func(o *workerOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}
