package queue_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecosense/alertkit/pkg/alert"
	"github.com/ecosense/alertkit/pkg/delivery"
	"github.com/ecosense/alertkit/pkg/queue"
)

// scriptedAdapter fails a configurable number of times per (user, method)
// pair before succeeding, recording every attempt.
type scriptedAdapter struct {
	mu       sync.Mutex
	failures map[string]int // pair key -> remaining failures
	attempts map[string]int
}

func newScriptedAdapter() *scriptedAdapter {
	return &scriptedAdapter{
		failures: make(map[string]int),
		attempts: make(map[string]int),
	}
}

func (a *scriptedAdapter) failTimes(userID uuid.UUID, method delivery.Method, n int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failures[userID.String()+"|"+string(method)] = n
}

func (a *scriptedAdapter) attemptCount(userID uuid.UUID, method delivery.Method) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.attempts[userID.String()+"|"+string(method)]
}

func (a *scriptedAdapter) Send(ctx context.Context, userID uuid.UUID, method delivery.Method, _ alert.Alert) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	key := userID.String() + "|" + string(method)
	a.attempts[key]++
	if a.failures[key] > 0 {
		a.failures[key]--
		return errors.Join(delivery.ErrDeliveryFailed, errors.New("channel unavailable"))
	}
	return nil
}

// flakyStorage wraps MemoryStorage and fails a configurable number of
// writes per operation, simulating a store outage.
type flakyStorage struct {
	*queue.MemoryStorage
	mu            sync.Mutex
	failSchedules int
	failEnqueues  int
}

func newFlakyStorage() *flakyStorage {
	return &flakyStorage{MemoryStorage: queue.NewMemoryStorage()}
}

func (s *flakyStorage) failNext(schedules, enqueues int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failSchedules = schedules
	s.failEnqueues = enqueues
}

func (s *flakyStorage) ScheduleRetry(ctx context.Context, payload []byte, at time.Time) error {
	s.mu.Lock()
	if s.failSchedules > 0 {
		s.failSchedules--
		s.mu.Unlock()
		return errors.Join(queue.ErrStoreUnavailable, errors.New("connection refused"))
	}
	s.mu.Unlock()
	return s.MemoryStorage.ScheduleRetry(ctx, payload, at)
}

func (s *flakyStorage) Enqueue(ctx context.Context, payload []byte) error {
	s.mu.Lock()
	if s.failEnqueues > 0 {
		s.failEnqueues--
		s.mu.Unlock()
		return errors.Join(queue.ErrStoreUnavailable, errors.New("connection refused"))
	}
	s.mu.Unlock()
	return s.MemoryStorage.Enqueue(ctx, payload)
}

type workerFixture struct {
	storage *queue.MemoryStorage
	records *delivery.MemoryRecordStore
	adapter *scriptedAdapter
	worker  *queue.Worker
	scanner *queue.RetryScanner
	now     time.Time
}

func newWorkerFixture(t *testing.T) *workerFixture {
	t.Helper()

	f := &workerFixture{
		storage: queue.NewMemoryStorage(),
		records: delivery.NewMemoryRecordStore(),
		adapter: newScriptedAdapter(),
		now:     time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return f.now }

	var err error
	f.worker, err = queue.NewWorker(f.storage, f.adapter, f.records,
		queue.WithWorkerClock(clock),
		queue.WithDequeueTimeout(0),
	)
	require.NoError(t, err)

	f.scanner, err = queue.NewRetryScanner(f.storage, queue.WithScannerClock(clock))
	require.NoError(t, err)

	return f
}

func (f *workerFixture) enqueue(t *testing.T, task delivery.Task) {
	t.Helper()

	enq, err := queue.NewEnqueuer(f.storage, queue.WithEnqueuerClock(func() time.Time { return f.now }))
	require.NoError(t, err)
	require.NoError(t, enq.EnqueueTask(context.Background(), task))
}

func (f *workerFixture) newTask(users []uuid.UUID, methods []delivery.Method) delivery.Task {
	return delivery.Task{
		ID: uuid.New(),
		Alert: alert.Alert{
			ID:        uuid.New(),
			Type:      alert.TypeThresholdBreach,
			Severity:  alert.SeverityCritical,
			Title:     "PM2.5 levels elevated",
			Pollutant: "PM2.5",
			CreatedAt: f.now,
			ExpiresAt: f.now.Add(6 * time.Hour),
		},
		TargetUserIDs: users,
		Methods:       methods,
		MaxRetries:    3,
	}
}

func TestNewWorker(t *testing.T) {
	t.Parallel()

	storage := queue.NewMemoryStorage()
	records := delivery.NewMemoryRecordStore()
	adapter := newScriptedAdapter()

	t.Run("successful creation", func(t *testing.T) {
		t.Parallel()

		w, err := queue.NewWorker(storage, adapter, records)
		require.NoError(t, err)
		require.NotNil(t, w)
	})

	t.Run("nil dependencies rejected", func(t *testing.T) {
		t.Parallel()

		_, err := queue.NewWorker(nil, adapter, records)
		assert.ErrorIs(t, err, queue.ErrStorageNil)

		_, err = queue.NewWorker(storage, nil, records)
		assert.ErrorIs(t, err, queue.ErrAdapterNil)

		_, err = queue.NewWorker(storage, adapter, nil)
		assert.ErrorIs(t, err, queue.ErrRecordStoreNil)
	})
}

func TestWorker_ProcessOne_Success(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newWorkerFixture(t)

	user := uuid.New()
	task := f.newTask([]uuid.UUID{user}, []delivery.Method{delivery.MethodPush, delivery.MethodEmail})
	f.enqueue(t, task)

	status, err := f.worker.QueueStatus(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, status.Pending)

	require.NoError(t, f.worker.ProcessOne(ctx))

	status, err = f.worker.QueueStatus(ctx)
	require.NoError(t, err)
	assert.Zero(t, status.Pending)
	assert.Zero(t, status.Processing)
	assert.Zero(t, status.Retry)

	recs, err := f.records.ListByTask(ctx, task.ID)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	for _, r := range recs {
		assert.Equal(t, delivery.StatusSent, r.Status)
	}
}

func TestWorker_ProcessOne_EmptyQueue(t *testing.T) {
	t.Parallel()

	f := newWorkerFixture(t)
	assert.ErrorIs(t, f.worker.ProcessOne(context.Background()), queue.ErrNoTask)
}

func TestWorker_RetryIdempotence(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newWorkerFixture(t)

	user := uuid.New()
	task := f.newTask([]uuid.UUID{user}, []delivery.Method{delivery.MethodPush, delivery.MethodEmail})

	// Push succeeds immediately; email fails twice before succeeding.
	f.adapter.failTimes(user, delivery.MethodEmail, 2)
	f.enqueue(t, task)

	// Attempt 1: push delivered, email fails, task scheduled for retry.
	require.NoError(t, f.worker.ProcessOne(ctx))

	status, err := f.worker.QueueStatus(ctx)
	require.NoError(t, err)
	assert.Zero(t, status.Pending)
	assert.Zero(t, status.Processing)
	assert.EqualValues(t, 1, status.Retry)

	// Attempt 2 after the 2-minute backoff: email fails again.
	f.now = f.now.Add(3 * time.Minute)
	moved, err := f.scanner.Scan(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, moved)
	require.NoError(t, f.worker.ProcessOne(ctx))

	// Attempt 3 after the 4-minute backoff: retry count must be 2 on the
	// payload entering the final attempt.
	f.now = f.now.Add(5 * time.Minute)
	moved, err = f.scanner.Scan(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, moved)

	payload, err := f.storage.Dequeue(ctx, 0)
	require.NoError(t, err)
	var pending delivery.Task
	require.NoError(t, json.Unmarshal(payload, &pending))
	assert.Equal(t, 2, pending.RetryCount)
	require.NoError(t, f.storage.Enqueue(ctx, payload))

	// Memory FIFO has a single entry, so the requeued payload is next.
	require.NoError(t, f.worker.ProcessOne(ctx))

	// Exactly one sent record per pair, never duplicates.
	recs, err := f.records.ListByTask(ctx, task.ID)
	require.NoError(t, err)
	sent := map[string]int{}
	for _, r := range recs {
		require.Equal(t, delivery.StatusSent, r.Status)
		sent[r.UserID.String()+"|"+string(r.Method)]++
	}
	assert.Len(t, sent, 2)
	for pair, count := range sent {
		assert.Equal(t, 1, count, "pair %s recorded more than once", pair)
	}

	// Push was sent exactly once despite three task attempts.
	assert.Equal(t, 1, f.adapter.attemptCount(user, delivery.MethodPush))
	assert.Equal(t, 3, f.adapter.attemptCount(user, delivery.MethodEmail))

	status, err = f.worker.QueueStatus(ctx)
	require.NoError(t, err)
	assert.Zero(t, status.Pending)
	assert.Zero(t, status.Processing)
	assert.Zero(t, status.Retry)
}

func TestWorker_RetriesExhausted(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newWorkerFixture(t)

	user := uuid.New()
	task := f.newTask([]uuid.UUID{user}, []delivery.Method{delivery.MethodSMS})
	f.adapter.failTimes(user, delivery.MethodSMS, 100)
	f.enqueue(t, task)

	// First attempt plus MaxRetries retries.
	require.NoError(t, f.worker.ProcessOne(ctx))
	for i := 0; i < task.MaxRetries; i++ {
		f.now = f.now.Add(30 * time.Minute)
		moved, err := f.scanner.Scan(ctx)
		require.NoError(t, err)
		require.Equal(t, 1, moved)
		require.NoError(t, f.worker.ProcessOne(ctx))
	}

	assert.Equal(t, task.MaxRetries+1, f.adapter.attemptCount(user, delivery.MethodSMS))

	// Terminal: failed record for the pair, nothing left anywhere.
	recs, err := f.records.ListByTask(ctx, task.ID)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, delivery.StatusFailed, recs[0].Status)
	assert.Contains(t, recs[0].Error, queue.ErrRetriesExhausted.Error())
	assert.Contains(t, recs[0].Error, "channel unavailable")

	status, err := f.worker.QueueStatus(ctx)
	require.NoError(t, err)
	assert.Zero(t, status.Pending)
	assert.Zero(t, status.Processing)
	assert.Zero(t, status.Retry)
}

func TestWorker_ExpiredAlertSkipped(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newWorkerFixture(t)

	user := uuid.New()
	task := f.newTask([]uuid.UUID{user}, []delivery.Method{delivery.MethodPush})
	task.Alert.ExpiresAt = f.now.Add(-time.Minute)
	f.enqueue(t, task)

	require.NoError(t, f.worker.ProcessOne(ctx))

	// The adapter must never be contacted for a cancelled task.
	assert.Zero(t, f.adapter.attemptCount(user, delivery.MethodPush))

	recs, err := f.records.ListByTask(ctx, task.ID)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, delivery.StatusFailed, recs[0].Status)
	assert.Contains(t, recs[0].Error, "expired")

	status, err := f.worker.QueueStatus(ctx)
	require.NoError(t, err)
	assert.Zero(t, status.Processing)
}

func TestWorker_MalformedPayloadDropped(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newWorkerFixture(t)

	require.NoError(t, f.storage.Enqueue(ctx, []byte("{not json")))

	err := f.worker.ProcessOne(ctx)
	assert.ErrorIs(t, err, queue.ErrMalformedTask)
	assert.EqualValues(t, 1, f.worker.MalformedCount())

	// Dropped, not retried.
	status, err := f.worker.QueueStatus(ctx)
	require.NoError(t, err)
	assert.Zero(t, status.Pending)
	assert.Zero(t, status.Processing)
	assert.Zero(t, status.Retry)
}

func TestWorker_RetrySurvivesStoreOutage(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	storage := newFlakyStorage()
	records := delivery.NewMemoryRecordStore()
	adapter := newScriptedAdapter()

	worker, err := queue.NewWorker(storage, adapter, records,
		queue.WithWorkerClock(clock),
		queue.WithDequeueTimeout(0),
	)
	require.NoError(t, err)

	user := uuid.New()
	task := delivery.Task{
		ID: uuid.New(),
		Alert: alert.Alert{
			ID:        uuid.New(),
			Type:      alert.TypeThresholdBreach,
			Severity:  alert.SeverityCritical,
			CreatedAt: now,
			ExpiresAt: now.Add(6 * time.Hour),
		},
		TargetUserIDs: []uuid.UUID{user},
		Methods:       []delivery.Method{delivery.MethodPush},
		MaxRetries:    3,
	}
	adapter.failTimes(user, delivery.MethodPush, 100)

	enq, err := queue.NewEnqueuer(storage, queue.WithEnqueuerClock(clock))
	require.NoError(t, err)
	require.NoError(t, enq.EnqueueTask(ctx, task))

	// The retry set rejects the write; the payload must land on the main
	// FIFO instead of vanishing.
	storage.failNext(1, 0)
	require.NoError(t, worker.ProcessOne(ctx))

	status, err := worker.QueueStatus(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, status.Pending)
	assert.Zero(t, status.Processing)
	assert.Zero(t, status.Retry)

	payload, err := storage.Dequeue(ctx, 0)
	require.NoError(t, err)
	var held delivery.Task
	require.NoError(t, json.Unmarshal(payload, &held))
	assert.Equal(t, task.ID, held.ID)
	assert.Equal(t, 1, held.RetryCount)
}

func TestWorker_RetryOutageIsLoud(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	storage := newFlakyStorage()
	adapter := newScriptedAdapter()

	worker, err := queue.NewWorker(storage, adapter, delivery.NewMemoryRecordStore(),
		queue.WithWorkerClock(clock),
		queue.WithDequeueTimeout(0),
	)
	require.NoError(t, err)

	user := uuid.New()
	adapter.failTimes(user, delivery.MethodPush, 100)

	enq, err := queue.NewEnqueuer(storage, queue.WithEnqueuerClock(clock))
	require.NoError(t, err)
	require.NoError(t, enq.EnqueueTask(ctx, delivery.Task{
		Alert: alert.Alert{
			ID:        uuid.New(),
			Type:      alert.TypeThresholdBreach,
			CreatedAt: now,
			ExpiresAt: now.Add(6 * time.Hour),
		},
		TargetUserIDs: []uuid.UUID{user},
		Methods:       []delivery.Method{delivery.MethodPush},
	}))

	// Every write path down: the pass must report the failure, never
	// swallow it.
	storage.failNext(100, 100)
	err = worker.ProcessOne(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, queue.ErrStoreUnavailable)
}

func TestRetryScanner_HoldsPayloadThroughOutage(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	storage := newFlakyStorage()
	scanner, err := queue.NewRetryScanner(storage, queue.WithScannerClock(clock))
	require.NoError(t, err)

	require.NoError(t, storage.ScheduleRetry(ctx, []byte(`{"id":"due-now"}`), now.Add(-time.Second)))

	// The FIFO rejects the claimed payload; it must go back to the retry
	// set rather than being dropped.
	storage.failNext(0, 1)
	moved, err := scanner.Scan(ctx)
	require.Error(t, err)
	assert.Zero(t, moved)

	status, err := storage.Status(ctx)
	require.NoError(t, err)
	assert.Zero(t, status.Pending)
	assert.EqualValues(t, 1, status.Retry)

	// Next pass with a healthy store completes the move.
	moved, err = scanner.Scan(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, moved)

	status, err = storage.Status(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, status.Pending)
	assert.Zero(t, status.Retry)
}

func TestWorker_StartStop(t *testing.T) {
	t.Parallel()

	f := newWorkerFixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, f.worker.Start(ctx))
	assert.Error(t, f.worker.Start(ctx), "double start must fail")
	require.NoError(t, f.worker.Stop())
	assert.Error(t, f.worker.Stop(), "double stop must fail")
}

func TestEnqueuer_Validation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	storage := queue.NewMemoryStorage()

	enq, err := queue.NewEnqueuer(storage)
	require.NoError(t, err)

	t.Run("task without targets rejected", func(t *testing.T) {
		t.Parallel()

		err := enq.EnqueueTask(ctx, delivery.Task{Methods: []delivery.Method{delivery.MethodPush}})
		assert.ErrorIs(t, err, queue.ErrTaskInvalid)
	})

	t.Run("defaults applied", func(t *testing.T) {
		t.Parallel()

		task := delivery.Task{
			TargetUserIDs: []uuid.UUID{uuid.New()},
			Methods:       []delivery.Method{delivery.MethodPush},
		}
		require.NoError(t, enq.EnqueueTask(ctx, task))

		payload, err := storage.Dequeue(ctx, 0)
		require.NoError(t, err)

		var stored delivery.Task
		require.NoError(t, json.Unmarshal(payload, &stored))
		assert.NotEqual(t, uuid.Nil, stored.ID)
		assert.Equal(t, queue.DefaultMaxRetries, stored.MaxRetries)
		assert.False(t, stored.CreatedAt.IsZero())
	})

	t.Run("nil storage rejected", func(t *testing.T) {
		t.Parallel()

		_, err := queue.NewEnqueuer(nil)
		assert.ErrorIs(t, err, queue.ErrStorageNil)
	})
}

func TestJanitor_Sweep(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newWorkerFixture(t)

	expired := f.newTask([]uuid.UUID{uuid.New()}, []delivery.Method{delivery.MethodPush})
	expired.Alert.ExpiresAt = f.now.Add(-time.Hour)
	f.enqueue(t, expired)

	live := f.newTask([]uuid.UUID{uuid.New()}, []delivery.Method{delivery.MethodPush})
	f.enqueue(t, live)

	janitor, err := queue.NewJanitor(f.storage, queue.WithJanitorClock(func() time.Time { return f.now }))
	require.NoError(t, err)

	purged, err := janitor.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, purged)

	status, err := f.storage.Status(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, status.Pending)
}
