// Package ledger defines the coordination fabric the rest of the core
// depends on: the atomic, version-guarded operations a task ledger must
// expose, independent of the backing store. infrastructure/storage/mongodb
// and infrastructure/storage/memory each implement Repository in full.
package ledger

import (
	"context"
	"time"

	"github.com/Mizzle-Technology/task-manager/domain/task"
)

// Repository is the task ledger's coordination fabric. Every mutating
// method except UpsertTask increments Version by exactly 1; every
// mutating method sets UpdatedAt to the
// current time; every operation is idempotent when retried with the
// same (taskId, expectedVersion) pair. No method here applies its own
// retries on driver failure; see infrastructure/retry for that layer.
type Repository interface {
	// Initialize binds the repository to its backing collection/table
	// and ensures the unique index on taskId exists. Fails with
	// ErrInitialization if the index cannot be built or the store is
	// unreachable within the configured connect timeout.
	Initialize(ctx context.Context) error

	// UpsertTask inserts the task if no document with its TaskID exists,
	// otherwise replaces the document wholesale. This operation sits
	// outside the optimistic-concurrency scheme: a replace does not
	// increment Version. Reserved for the ingester's outbox-style
	// persist and for test fixtures.
	UpsertTask(ctx context.Context, t *task.Task) error

	// GetByTaskID returns the task with the given business key, or
	// ErrTaskNotFound.
	GetByTaskID(ctx context.Context, taskID string) (*task.Task, error)

	// TryAcquireTask atomically finds the oldest (CreatedAt ascending)
	// task with status fromStatus whose WorkerPodID is empty or whose
	// LastHeartbeat is older than staleTaskTimeout, and transitions it
	// to toStatus under the given worker's ownership. Returns
	// ErrTaskNotFound if nothing matched. Two concurrent callers with
	// the same arguments are guaranteed to see at most one success.
	TryAcquireTask(ctx context.Context, fromStatus, toStatus task.Status, workerID string, heartbeatNow time.Time, staleTaskTimeout time.Duration) (*task.Task, error)

	// UpdateStatusIfVersionMatches compare-and-sets status on
	// (taskID, expectedVersion). Returns true iff exactly one document
	// was modified; false is not an error, it signals a version
	// mismatch the caller should simply log and move on.
	UpdateStatusIfVersionMatches(ctx context.Context, taskID string, expectedVersion int64, newStatus task.Status) (bool, error)

	// UpdateStatusAndErrorIfVersionMatches is UpdateStatusIfVersionMatches
	// plus an atomic ErrorMessage set. If bumpRetryCount is true,
	// RetryCount is incremented by 1 as part of the same write.
	UpdateStatusAndErrorIfVersionMatches(ctx context.Context, taskID string, expectedVersion int64, newStatus task.Status, errorMessage string, bumpRetryCount bool) (bool, error)

	// UpdateHeartbeatIfVersionMatches refreshes LastHeartbeat, requiring
	// both a version match and that the caller is the current owner
	// (WorkerPodID == workerID): a worker may not refresh another
	// worker's lock.
	UpdateHeartbeatIfVersionMatches(ctx context.Context, taskID string, expectedVersion int64, workerID string, heartbeat time.Time) (bool, error)

	// TryUpdateTaskStatus is a convenience that reads the current
	// version then calls UpdateStatusIfVersionMatches. It is not
	// atomic across the read and the write; callers requiring strict
	// linearizability must use UpdateStatusIfVersionMatches directly.
	TryUpdateTaskStatus(ctx context.Context, taskID string, newStatus task.Status) (bool, error)

	// GetStalledTasks returns all Running tasks considered stalled:
	// owned by selfWorkerID with LastHeartbeat older than threshold, or
	// owned by someone else with LastHeartbeat older than
	// 2*threshold. Results are sorted by LastHeartbeat ascending.
	GetStalledTasks(ctx context.Context, threshold time.Duration, selfWorkerID string) ([]*task.Task, error)

	// RequeueTask finds the Running task with taskID and transitions it
	// to newStatus, clearing WorkerPodID, WorkerNodeID, LastHeartbeat
	// and LockedAt and recording reason as ErrorMessage. Returns false
	// (not an error) if the task was no longer Running, meaning another
	// worker already recovered it.
	RequeueTask(ctx context.Context, taskID string, newStatus task.Status, reason string) (bool, error)

	// Ping is a liveness probe. Fails with ErrDatabaseUnavailable if the
	// backing store is unreachable.
	Ping(ctx context.Context) error
}
