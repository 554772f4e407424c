// Package memory provides a mutex-guarded in-memory implementation of
// ledger.Repository, suitable for unit tests and single-node/dev
// deployments. Every method implements the same atomicity and CAS
// semantics as the MongoDB backend, just against a Go map instead of a
// collection.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Mizzle-Technology/task-manager/domain/ledger"
	"github.com/Mizzle-Technology/task-manager/domain/task"
)

// Repository implements ledger.Repository over an in-process map.
type Repository struct {
	mu    sync.Mutex
	tasks map[string]*task.Task // keyed by TaskID
}

// New creates an empty in-memory repository.
func New() *Repository {
	return &Repository{tasks: make(map[string]*task.Task)}
}

// Initialize is a no-op: there is no index to build or connection to
// establish for the in-memory backend.
func (r *Repository) Initialize(ctx context.Context) error {
	return nil
}

// UpsertTask inserts or wholesale-replaces a task by TaskID. Replace does
// not increment Version, matching the Mongo implementation.
func (r *Repository) UpsertTask(ctx context.Context, t *task.Task) error {
	if t.TaskID == "" {
		return task.ErrEmptyTaskID
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	existing, ok := r.tasks[t.TaskID]

	clone := cloneTask(t)
	if clone.Version == 0 {
		clone.Version = 1
	}
	if !ok {
		if clone.ID == "" {
			clone.ID = uuid.NewString()
		}
		if clone.CreatedAt.IsZero() {
			clone.CreatedAt = now
		}
		clone.UpdatedAt = now
	} else {
		clone.ID = existing.ID
		if clone.CreatedAt.IsZero() {
			clone.CreatedAt = existing.CreatedAt
		}
		clone.UpdatedAt = now
	}

	r.tasks[t.TaskID] = clone
	return nil
}

// GetByTaskID returns a defensive copy of the stored task.
func (r *Repository) GetByTaskID(ctx context.Context, taskID string) (*task.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[taskID]
	if !ok {
		return nil, ledger.ErrTaskNotFound
	}
	return cloneTask(t), nil
}

// TryAcquireTask finds the oldest eligible task in fromStatus and swaps
// it to toStatus under workerID's ownership. This whole method runs
// under the repository mutex, which is what makes it atomic: two
// concurrent callers can never both observe the same candidate as
// eligible.
func (r *Repository) TryAcquireTask(ctx context.Context, fromStatus, toStatus task.Status, workerID string, heartbeatNow time.Time, staleTaskTimeout time.Duration) (*task.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	var candidate *task.Task

	for _, t := range r.tasks {
		if t.Status != fromStatus {
			continue
		}
		eligible := t.WorkerPodID == "" || t.LastHeartbeat.Before(now.Add(-staleTaskTimeout))
		if !eligible {
			continue
		}
		if candidate == nil || t.CreatedAt.Before(candidate.CreatedAt) {
			candidate = t
		}
	}

	if candidate == nil {
		return nil, ledger.ErrTaskNotFound
	}

	candidate.Status = toStatus
	candidate.WorkerPodID = workerID
	candidate.LastHeartbeat = heartbeatNow
	candidate.LockedAt = now
	candidate.UpdatedAt = now
	candidate.Version++

	return cloneTask(candidate), nil
}

// UpdateStatusIfVersionMatches is the repository's base CAS operation.
func (r *Repository) UpdateStatusIfVersionMatches(ctx context.Context, taskID string, expectedVersion int64, newStatus task.Status) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[taskID]
	if !ok || t.Version != expectedVersion {
		return false, nil
	}

	now := time.Now().UTC()
	t.Status = newStatus
	t.Version++
	t.UpdatedAt = now
	applyStatusTimestamp(t, newStatus, now)

	return true, nil
}

// UpdateStatusAndErrorIfVersionMatches CASes status and error message
// together, optionally bumping RetryCount in the same write.
func (r *Repository) UpdateStatusAndErrorIfVersionMatches(ctx context.Context, taskID string, expectedVersion int64, newStatus task.Status, errorMessage string, bumpRetryCount bool) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[taskID]
	if !ok || t.Version != expectedVersion {
		return false, nil
	}

	now := time.Now().UTC()
	t.Status = newStatus
	t.ErrorMessage = errorMessage
	t.Version++
	t.UpdatedAt = now
	if bumpRetryCount {
		t.RetryCount++
	}
	applyStatusTimestamp(t, newStatus, now)

	return true, nil
}

// UpdateHeartbeatIfVersionMatches refreshes LastHeartbeat, requiring both
// a version match and current ownership.
func (r *Repository) UpdateHeartbeatIfVersionMatches(ctx context.Context, taskID string, expectedVersion int64, workerID string, heartbeat time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[taskID]
	if !ok || t.Version != expectedVersion || t.WorkerPodID != workerID {
		return false, nil
	}

	t.LastHeartbeat = heartbeat
	t.Version++
	t.UpdatedAt = time.Now().UTC()

	return true, nil
}

// TryUpdateTaskStatus reads the current version then CASes on it. Not
// atomic across the read and write, matching the interface contract.
func (r *Repository) TryUpdateTaskStatus(ctx context.Context, taskID string, newStatus task.Status) (bool, error) {
	current, err := r.GetByTaskID(ctx, taskID)
	if err != nil {
		return false, err
	}
	return r.UpdateStatusIfVersionMatches(ctx, taskID, current.Version, newStatus)
}

// GetStalledTasks returns Running tasks past their heartbeat threshold,
// applying the 2x amplification for foreign-worker ownership.
func (r *Repository) GetStalledTasks(ctx context.Context, threshold time.Duration, selfWorkerID string) ([]*task.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	var stalled []*task.Task

	for _, t := range r.tasks {
		if t.Status != task.StatusRunning {
			continue
		}
		limit := threshold
		if t.WorkerPodID != selfWorkerID {
			limit = 2 * threshold
		}
		if t.LastHeartbeat.Before(now.Add(-limit)) {
			stalled = append(stalled, cloneTask(t))
		}
	}

	sort.Slice(stalled, func(i, j int) bool {
		return stalled[i].LastHeartbeat.Before(stalled[j].LastHeartbeat)
	})

	return stalled, nil
}

// RequeueTask releases ownership of a Running task back to newStatus.
func (r *Repository) RequeueTask(ctx context.Context, taskID string, newStatus task.Status, reason string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[taskID]
	if !ok || t.Status != task.StatusRunning {
		return false, nil
	}

	t.Status = newStatus
	t.WorkerPodID = ""
	t.WorkerNodeID = ""
	t.LastHeartbeat = time.Time{}
	t.LockedAt = time.Time{}
	t.ErrorMessage = reason
	t.Version++
	t.UpdatedAt = time.Now().UTC()

	return true, nil
}

// Ping always succeeds: there is no connection to probe.
func (r *Repository) Ping(ctx context.Context) error {
	return nil
}

func applyStatusTimestamp(t *task.Task, s task.Status, now time.Time) {
	switch s {
	case task.StatusProcessing:
		t.ProcessedAt = now
	case task.StatusCompleted, task.StatusSucceeded:
		t.CompletedAt = now
	case task.StatusFailed:
		t.FailedAt = now
	}
}

func cloneTask(t *task.Task) *task.Task {
	clone := *t
	if t.Metadata != nil {
		clone.Metadata = make(map[string]string, len(t.Metadata))
		for k, v := range t.Metadata {
			clone.Metadata[k] = v
		}
	}
	return &clone
}

var _ ledger.Repository = (*Repository)(nil)
