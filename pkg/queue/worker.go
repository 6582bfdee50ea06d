package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/ecosense/alertkit/pkg/alert"
	"github.com/ecosense/alertkit/pkg/delivery"
)

// Worker is a competing consumer of the notification queue. Any number of
// workers may run against the same storage; the atomic FIFO pop guarantees
// each task is in flight with at most one of them.
type Worker struct {
	storage  Storage
	adapter  delivery.Adapter
	records  delivery.RecordStore
	backoff  BackoffStrategy
	workerID uuid.UUID

	sem    chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
	stopMu sync.Mutex // Protects stopping state and WaitGroup operations

	pollInterval   time.Duration
	dequeueTimeout time.Duration
	sendTimeout    time.Duration
	now            func() time.Time
	logger         *slog.Logger

	ctx       context.Context
	cancel    context.CancelFunc
	stopping  atomic.Bool
	malformed atomic.Int64
}

// NewWorker creates a notification worker.
func NewWorker(storage Storage, adapter delivery.Adapter, records delivery.RecordStore, opts ...WorkerOption) (*Worker, error) {
	if storage == nil {
		return nil, ErrStorageNil
	}
	if adapter == nil {
		return nil, ErrAdapterNil
	}
	if records == nil {
		return nil, ErrRecordStoreNil
	}

	options := &workerOptions{
		pollInterval:   5 * time.Second,
		dequeueTimeout: 5 * time.Second,
		sendTimeout:    30 * time.Second,
		maxConcurrent:  1,
		backoff:        DefaultBackoffStrategy(),
		now:            time.Now,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}

	return &Worker{
		storage:        storage,
		adapter:        adapter,
		records:        records,
		backoff:        options.backoff,
		workerID:       uuid.New(),
		sem:            make(chan struct{}, options.maxConcurrent),
		pollInterval:   options.pollInterval,
		dequeueTimeout: options.dequeueTimeout,
		sendTimeout:    options.sendTimeout,
		now:            options.now,
		logger:         options.logger,
	}, nil
}

// Start begins processing tasks in the background.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.cancel != nil {
		w.mu.Unlock()
		return fmt.Errorf("worker already started")
	}
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.mu.Unlock()

	w.stopping.Store(false)

	go w.run()

	w.logger.Info("notification worker started",
		slog.String("worker_id", w.workerID.String()),
		slog.Int("max_concurrent", cap(w.sem)))

	return nil
}

// Stop gracefully shuts down the worker, waiting for in-flight tasks.
func (w *Worker) Stop() error {
	w.mu.Lock()
	if w.cancel == nil {
		w.mu.Unlock()
		return fmt.Errorf("worker not started")
	}

	w.stopMu.Lock()
	w.stopping.Store(true)
	w.stopMu.Unlock()

	cancel := w.cancel
	w.cancel = nil
	w.mu.Unlock()

	cancel()

	w.logger.Info("worker stopping, waiting for active tasks to complete",
		slog.String("worker_id", w.workerID.String()))

	w.wg.Wait()

	w.logger.Info("worker stopped",
		slog.String("worker_id", w.workerID.String()))

	return nil
}

// Run starts the worker and returns a function suitable for errgroup.
func (w *Worker) Run(ctx context.Context) func() error {
	return func() error {
		if err := w.Start(ctx); err != nil {
			return err
		}

		<-ctx.Done()

		return w.Stop()
	}
}

// run is the main processing loop.
func (w *Worker) run() {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			select {
			case w.sem <- struct{}{}:
				// Don't add to the WaitGroup once Stop() has begun.
				w.stopMu.Lock()
				if w.stopping.Load() {
					w.stopMu.Unlock()
					<-w.sem
					return
				}
				w.wg.Add(1)
				w.stopMu.Unlock()

				go func() {
					defer w.wg.Done()
					defer func() { <-w.sem }()

					if err := w.ProcessOne(w.ctx); err != nil {
						switch {
						case errors.Is(err, ErrNoTask), errors.Is(err, ErrMalformedTask):
							// Idle ticks and dropped payloads are already
							// accounted for; nothing more to do here.
						case errors.Is(err, ErrStoreUnavailable):
							w.logger.Warn("queue store unavailable, backing off",
								slog.String("worker_id", w.workerID.String()),
								slog.String("error", err.Error()))
						default:
							w.logger.Error("failed to process task",
								slog.String("worker_id", w.workerID.String()),
								slog.String("error", err.Error()))
						}
					}
				}()
			default:
				w.logger.Debug("all worker slots busy, skipping tick",
					slog.String("worker_id", w.workerID.String()))
			}
		}
	}
}

// ProcessOne runs a single worker pass: pop, deliver, resolve. It is the
// unit used by the background loop and is also exposed for manual and test
// triggers. Returns ErrNoTask when the queue is empty.
func (w *Worker) ProcessOne(ctx context.Context) error {
	payload, err := w.storage.Dequeue(ctx, w.dequeueTimeout)
	if err != nil {
		if errors.Is(err, ErrNoTask) {
			return ErrNoTask
		}
		return fmt.Errorf("failed to dequeue: %w", err)
	}

	var task delivery.Task
	if err := json.Unmarshal(payload, &task); err != nil {
		// Corrupt payloads are dropped, never retried. The counter is the
		// data-integrity signal operators watch.
		w.malformed.Add(1)
		w.logger.Error("dropping malformed task payload",
			slog.String("worker_id", w.workerID.String()),
			slog.Int("payload_bytes", len(payload)),
			slog.String("error", err.Error()))
		return ErrMalformedTask
	}

	if err := w.storage.AddProcessing(ctx, task.ID.String()); err != nil {
		// The task was already popped; put it back rather than lose it.
		if reErr := w.storage.Enqueue(ctx, payload); reErr != nil {
			return errors.Join(err, reErr)
		}
		return fmt.Errorf("failed to mark task %s processing: %w", task.ID, err)
	}

	return w.processTask(ctx, &task)
}

// processTask attempts every pending (user, method) pair and resolves the
// task into delivered, retry-scheduled, or failed.
func (w *Worker) processTask(ctx context.Context, task *delivery.Task) (retErr error) {
	start := w.now()

	defer func() {
		if r := recover(); r != nil {
			retErr = fmt.Errorf("panic in delivery adapter: %v", r)
			w.logger.Error("delivery adapter panicked",
				slog.String("worker_id", w.workerID.String()),
				slog.String("task_id", task.ID.String()),
				slog.Any("panic", r))
			_ = w.resolveFailure(ctx, task, retErr)
		}
	}()

	// An expired alert is treated as already cancelled: no adapter calls,
	// just the audit trail.
	if task.Alert.Expired(start) {
		for _, p := range task.PendingPairs() {
			w.appendRecord(ctx, delivery.Record{
				TaskID:    task.ID,
				UserID:    p.UserID,
				Method:    p.Method,
				Status:    delivery.StatusFailed,
				Error:     "alert expired before delivery",
				Timestamp: w.now(),
			})
		}
		w.logger.Info("skipped expired alert",
			slog.String("task_id", task.ID.String()),
			slog.String("alert_id", task.Alert.ID.String()))
		return w.finishTask(ctx, task)
	}

	var sendErr error
	for _, p := range task.PendingPairs() {
		if err := w.send(ctx, p, task.Alert); err != nil {
			sendErr = err
			w.logger.Warn("delivery attempt failed",
				slog.String("task_id", task.ID.String()),
				slog.String("user_id", p.UserID.String()),
				slog.String("method", string(p.Method)),
				slog.Int("retry_count", task.RetryCount),
				slog.String("error", err.Error()))
			continue
		}

		// Success is recorded immediately so a later retry of the same
		// task never duplicates this pair.
		task.MarkDelivered(p.UserID, p.Method)
		w.appendRecord(ctx, delivery.Record{
			TaskID:    task.ID,
			UserID:    p.UserID,
			Method:    p.Method,
			Status:    delivery.StatusSent,
			Timestamp: w.now(),
		})
	}

	if sendErr == nil {
		w.logger.Info("task delivered",
			slog.String("worker_id", w.workerID.String()),
			slog.String("task_id", task.ID.String()),
			slog.Int("retry_count", task.RetryCount),
			slog.Duration("duration", w.now().Sub(start)))
		return w.finishTask(ctx, task)
	}

	return w.resolveFailure(ctx, task, sendErr)
}

// send calls the delivery adapter with a bounded timeout. A slow or
// unavailable channel is indistinguishable from a failed one and feeds the
// same retry path.
func (w *Worker) send(ctx context.Context, p delivery.Pair, a alert.Alert) error {
	sendCtx, cancel := context.WithTimeout(ctx, w.sendTimeout)
	defer cancel()

	return w.adapter.Send(sendCtx, p.UserID, p.Method, a)
}

// resolveFailure increments the retry count and either schedules the next
// attempt or, with the budget exhausted, records terminal failures.
func (w *Worker) resolveFailure(ctx context.Context, task *delivery.Task, cause error) error {
	task.RetryCount++

	if !task.RetriesExhausted() {
		delay := w.backoff.NextInterval(task.RetryCount)

		payload, err := json.Marshal(task)
		if err != nil {
			return fmt.Errorf("failed to marshal task %s for retry: %w", task.ID, err)
		}
		if err := w.persistRetry(ctx, payload, w.now().Add(delay)); err != nil {
			return fmt.Errorf("failed to persist retry for task %s: %w", task.ID, err)
		}

		w.logger.Info("task scheduled for retry",
			slog.String("task_id", task.ID.String()),
			slog.Int("retry_count", task.RetryCount),
			slog.Int("max_retries", task.MaxRetries),
			slog.Duration("delay", delay))

		return w.finishTask(ctx, task)
	}

	terminal := errors.Join(ErrRetriesExhausted, cause)
	for _, p := range task.PendingPairs() {
		w.appendRecord(ctx, delivery.Record{
			TaskID:    task.ID,
			UserID:    p.UserID,
			Method:    p.Method,
			Status:    delivery.StatusFailed,
			Error:     terminal.Error(),
			Timestamp: w.now(),
		})
	}

	w.logger.Warn("task failed permanently",
		slog.String("worker_id", w.workerID.String()),
		slog.String("task_id", task.ID.String()),
		slog.Int("retry_count", task.RetryCount),
		slog.String("error", terminal.Error()))

	// Exhaustion is an audit-trail outcome, not a process failure.
	return w.finishTask(ctx, task)
}

// Bounded in-process retries for writes that hold the only copy of a task
// payload.
const (
	persistAttempts   = 3
	persistRetryDelay = time.Second
)

// persistRetry writes a retry payload back to durable storage, falling back
// to the main FIFO when the retry set is unreachable. The worker holds the
// only copy of the payload at this point, so it is not released until one
// write has landed; an immediate retry from the FIFO beats a lost task.
func (w *Worker) persistRetry(ctx context.Context, payload []byte, at time.Time) error {
	var errs []error
	for attempt := 0; attempt < persistAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return errors.Join(append(errs, ctx.Err())...)
			case <-time.After(persistRetryDelay):
			}
		}

		err := w.storage.ScheduleRetry(ctx, payload, at)
		if err == nil {
			return nil
		}
		errs = append(errs, err)

		if err := w.storage.Enqueue(ctx, payload); err != nil {
			errs = append(errs, err)
			continue
		}
		return nil
	}
	return errors.Join(errs...)
}

// finishTask clears the in-flight marker; every resolution path ends here.
func (w *Worker) finishTask(ctx context.Context, task *delivery.Task) error {
	if err := w.storage.RemoveProcessing(ctx, task.ID.String()); err != nil {
		return fmt.Errorf("failed to clear processing marker for task %s: %w", task.ID, err)
	}
	return nil
}

func (w *Worker) appendRecord(ctx context.Context, rec delivery.Record) {
	if err := w.records.Append(ctx, rec); err != nil {
		// The audit trail is best effort; a store hiccup must not take
		// down the delivery path.
		w.logger.Error("failed to append delivery record",
			slog.String("task_id", rec.TaskID.String()),
			slog.String("error", err.Error()))
	}
}

// QueueStatus reports the sizes of the pending queue, processing set, and
// retry set.
func (w *Worker) QueueStatus(ctx context.Context) (Status, error) {
	return w.storage.Status(ctx)
}

// MalformedCount returns how many corrupt payloads this worker has dropped.
func (w *Worker) MalformedCount() int64 {
	return w.malformed.Load()
}
