// Package distributed implements the three long-running routines of the
// task ledger: the worker loop, the stalled-task recoverer, and the
// ingester pull loop.
package distributed

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Mizzle-Technology/task-manager/domain/config"
	"github.com/Mizzle-Technology/task-manager/domain/ledger"
	"github.com/Mizzle-Technology/task-manager/domain/task"
	"github.com/Mizzle-Technology/task-manager/infrastructure/classify"
	"github.com/Mizzle-Technology/task-manager/infrastructure/logging"
	"github.com/Mizzle-Technology/task-manager/infrastructure/telemetry"
)

// TaskHandler executes the user-supplied business logic for one task.
// Implementations should return classify.NewTerminalError(err) to force
// an unrecoverable failure straight to Failed instead of consuming the
// retry budget.
type TaskHandler func(ctx context.Context, t *task.Task) error

// Worker runs the per-process loop that acquires tasks, heartbeats
// while processing, and transitions them through the worker lifecycle.
type Worker struct {
	id         string
	repository ledger.Repository
	handler    TaskHandler
	metrics    *telemetry.Metrics
	cfg        config.WorkerConfig

	recoverer *Recoverer

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// WorkerOption configures a Worker.
type WorkerOption func(*Worker)

// WithMetrics attaches a telemetry.Metrics instance.
func WithMetrics(m *telemetry.Metrics) WorkerOption {
	return func(w *Worker) { w.metrics = m }
}

// NewWorker constructs a Worker bound to repository and handler, with
// identity resolved by the caller (see infrastructure/config.WorkerIdentity).
func NewWorker(id string, repository ledger.Repository, handler TaskHandler, cfg config.WorkerConfig, opts ...WorkerOption) *Worker {
	w := &Worker{
		id:         id,
		repository: repository,
		handler:    handler,
		cfg:        cfg,
		recoverer:  NewRecoverer(repository, cfg.StalledThreshold, id),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.metrics != nil {
		w.recoverer.metrics = w.metrics
	}
	return w
}

// ID returns the worker's identity string.
func (w *Worker) ID() string { return w.id }

// Start begins the worker loop in a background goroutine.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return errors.New("distributed: worker already running")
	}
	w.running = true
	ctx, w.cancel = context.WithCancel(ctx)
	w.mu.Unlock()

	w.wg.Add(1)
	go w.loop(ctx)
	return nil
}

// Stop signals the loop to exit and waits for it to drain.
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	cancel := w.cancel
	w.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	w.wg.Wait()
}

func (w *Worker) loop(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		w.recoverer.RecoverOnce(ctx)

		acquired := w.acquireBatch(ctx)

		var batchWg sync.WaitGroup
		for _, t := range acquired {
			batchWg.Add(1)
			go func(t *task.Task) {
				defer batchWg.Done()
				w.processTask(ctx, t)
			}(t)
		}
		batchWg.Wait()

		select {
		case <-ctx.Done():
			return
		case <-time.After(w.cfg.PollingInterval):
		}
	}
}

// acquireBatch fills up to BatchSize slots. Each slot first tries the
// ingester-handoff promotion (Completed→Queued); only when nothing is
// waiting for promotion does it claim a task for execution
// (Queued→Assigned). A promoted task stays in the Queued lane until a
// later slot or iteration claims it, so the ordering guard
// Queued→Assigned→Running is never skipped. The batch stops as soon as
// a slot comes up empty on both lanes; no aggressive draining.
func (w *Worker) acquireBatch(ctx context.Context) []*task.Task {
	var batch []*task.Task
	now := time.Now().UTC()

	for i := 0; i < w.cfg.BatchSize; i++ {
		promoted, err := w.repository.TryAcquireTask(ctx, task.StatusCompleted, task.StatusQueued, w.id, now, w.cfg.StaleTaskTimeout)
		if err != nil && !errors.Is(err, ledger.ErrTaskNotFound) {
			logging.Error().Add(logging.ErrorField(err)).Msg("promotion acquisition failed")
			break
		}
		if promoted != nil {
			if w.metrics != nil {
				w.metrics.RecordAcquired(ctx, task.StatusQueued.String())
			}
			continue
		}

		t, err := w.repository.TryAcquireTask(ctx, task.StatusQueued, task.StatusAssigned, w.id, now, w.cfg.StaleTaskTimeout)
		if err != nil {
			if !errors.Is(err, ledger.ErrTaskNotFound) {
				logging.Error().Add(logging.ErrorField(err)).Msg("claim acquisition failed")
			}
			break
		}
		if w.metrics != nil {
			w.metrics.RecordAcquired(ctx, task.StatusAssigned.String())
		}
		batch = append(batch, t)
	}

	return batch
}

// processTask runs one task to completion, with a concurrent heartbeat
// ticker and a cancellation scope bounded by staleTaskTimeout.
func (w *Worker) processTask(ctx context.Context, t *task.Task) {
	start := time.Now()

	deadline, cancel := context.WithTimeout(ctx, w.cfg.StaleTaskTimeout)
	defer cancel()

	version := t.Version
	var versionMu sync.Mutex

	heartbeatCtx, stopHeartbeat := context.WithCancel(deadline)
	defer stopHeartbeat()

	var hbWg sync.WaitGroup
	hbWg.Add(1)
	go func() {
		defer hbWg.Done()
		w.heartbeatLoop(heartbeatCtx, t.TaskID, &versionMu, &version)
	}()

	ok, err := w.transitionToRunning(deadline, t.TaskID, &versionMu, &version)
	if err != nil || !ok {
		if err != nil {
			logging.Error().Add(logging.TaskID(t.TaskID)).Add(logging.ErrorField(err)).Msg("failed to transition task to running")
		}
		stopHeartbeat()
		hbWg.Wait()
		return
	}

	handlerErr := w.handler(deadline, t)

	stopHeartbeat()
	hbWg.Wait()

	if ctx.Err() != nil {
		// Shutdown cancellation: leave the task owned and let stall
		// recovery reclaim it. A deadline on the per-task scope is not
		// shutdown; it falls through to the failure path below.
		return
	}

	versionMu.Lock()
	currentVersion := version
	versionMu.Unlock()

	if handlerErr == nil {
		w.finishSuccess(ctx, t.TaskID, currentVersion, start)
		return
	}
	w.finishFailure(ctx, t.TaskID, currentVersion, handlerErr, start)
}

func (w *Worker) transitionToRunning(ctx context.Context, taskID string, versionMu *sync.Mutex, version *int64) (bool, error) {
	versionMu.Lock()
	v := *version
	versionMu.Unlock()

	ok, err := w.repository.UpdateStatusIfVersionMatches(ctx, taskID, v, task.StatusRunning)
	if err != nil {
		return false, err
	}
	if ok {
		versionMu.Lock()
		*version++
		versionMu.Unlock()
	}
	return ok, nil
}

func (w *Worker) heartbeatLoop(ctx context.Context, taskID string, versionMu *sync.Mutex, version *int64) {
	ticker := time.NewTicker(w.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			current, err := w.repository.GetByTaskID(ctx, taskID)
			if err != nil {
				logging.Warn().Add(logging.TaskID(taskID)).Add(logging.ErrorField(err)).Msg("heartbeat read failed")
				continue
			}

			ok, err := w.repository.UpdateHeartbeatIfVersionMatches(ctx, taskID, current.Version, w.id, time.Now().UTC())
			if err != nil {
				logging.Warn().Add(logging.TaskID(taskID)).Add(logging.ErrorField(err)).Msg("heartbeat update failed")
				continue
			}
			if !ok {
				logging.Warn().Add(logging.TaskID(taskID)).Msg("heartbeat version mismatch; dropping ownership")
				continue
			}

			versionMu.Lock()
			*version = current.Version + 1
			versionMu.Unlock()
		}
	}
}

func (w *Worker) finishSuccess(ctx context.Context, taskID string, version int64, start time.Time) {
	if _, err := w.repository.UpdateStatusIfVersionMatches(ctx, taskID, version, task.StatusSucceeded); err != nil {
		logging.Error().Add(logging.TaskID(taskID)).Add(logging.ErrorField(err)).Msg("failed to mark task succeeded")
	}
	if w.metrics != nil {
		w.metrics.RecordOutcome(ctx, true, time.Since(start))
	}
}

// finishFailure transitions the task to Error, then either back to
// Queued (with the retryCount bump) or to Failed depending on the retry
// budget and the failure classification.
func (w *Worker) finishFailure(ctx context.Context, taskID string, version int64, cause error, start time.Time) {
	kind := classify.Classify(cause)

	ok, err := w.repository.UpdateStatusAndErrorIfVersionMatches(ctx, taskID, version, task.StatusError, cause.Error(), false)
	if err != nil || !ok {
		logging.Warn().Add(logging.TaskID(taskID)).Add(logging.ErrorField(err)).Msg("failed to mark task errored; abandoning (version no longer ours)")
		if w.metrics != nil {
			w.metrics.RecordOutcome(ctx, false, time.Since(start))
		}
		return
	}
	version++

	current, err := w.repository.GetByTaskID(ctx, taskID)
	if err != nil {
		logging.Error().Add(logging.TaskID(taskID)).Add(logging.ErrorField(err)).Msg("failed to re-read task after error transition")
		return
	}

	if kind == classify.Terminal || current.ExceedsRetryBudget(w.cfg.MaxRetries) {
		msg := fmt.Sprintf("Failed permanently after %d retries: %s", current.RetryCount, cause.Error())
		if _, err := w.repository.UpdateStatusAndErrorIfVersionMatches(ctx, taskID, current.Version, task.StatusFailed, msg, false); err != nil {
			logging.Error().Add(logging.TaskID(taskID)).Add(logging.ErrorField(err)).Msg("failed to mark task failed")
		}
		if w.metrics != nil {
			w.metrics.RecordOutcome(ctx, false, time.Since(start))
		}
		return
	}

	msg := fmt.Sprintf("Retry attempt %d/%d", current.RetryCount+1, w.cfg.MaxRetries)
	if _, err := w.repository.UpdateStatusAndErrorIfVersionMatches(ctx, taskID, current.Version, task.StatusQueued, msg, true); err != nil {
		logging.Error().Add(logging.TaskID(taskID)).Add(logging.ErrorField(err)).Msg("failed to requeue task for retry")
	}
	if w.metrics != nil {
		w.metrics.RecordOutcome(ctx, false, time.Since(start))
	}
}
