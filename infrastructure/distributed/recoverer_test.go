package distributed

import (
	"context"
	"testing"
	"time"

	"github.com/Mizzle-Technology/task-manager/domain/task"
	"github.com/Mizzle-Technology/task-manager/infrastructure/storage/memory"
)

func insertRunning(t *testing.T, repo *memory.Repository, taskID, workerID string, heartbeat time.Time) {
	t.Helper()
	tk, err := task.New(taskID, "body")
	if err != nil {
		t.Fatalf("task.New: %v", err)
	}
	tk.Status = task.StatusRunning
	tk.WorkerPodID = workerID
	tk.LastHeartbeat = heartbeat
	if err := repo.UpsertTask(context.Background(), tk); err != nil {
		t.Fatalf("UpsertTask: %v", err)
	}
}

func TestRecoverOnceRequeuesStalledTasks(t *testing.T) {
	t.Parallel()
	repo := memory.New()
	now := time.Now().UTC()

	insertRunning(t, repo, "dead-1", "dead-worker", now.Add(-2*time.Hour))
	insertRunning(t, repo, "dead-2", "dead-worker", now.Add(-2*time.Hour))
	insertRunning(t, repo, "alive-1", "self", now)

	r := NewRecoverer(repo, 5*time.Minute, "self")
	r.RecoverOnce(context.Background())

	for _, id := range []string{"dead-1", "dead-2"} {
		got, err := repo.GetByTaskID(context.Background(), id)
		if err != nil {
			t.Fatalf("GetByTaskID(%s): %v", id, err)
		}
		if got.Status != task.StatusQueued {
			t.Errorf("%s status = %v, want Queued", id, got.Status)
		}
		if got.WorkerPodID != "" {
			t.Errorf("%s workerPodId not cleared: %q", id, got.WorkerPodID)
		}
	}

	alive, err := repo.GetByTaskID(context.Background(), "alive-1")
	if err != nil {
		t.Fatalf("GetByTaskID(alive-1): %v", err)
	}
	if alive.Status != task.StatusRunning {
		t.Errorf("alive-1 status = %v, want Running (untouched)", alive.Status)
	}
}

func TestRecoverOnceNoStalledTasksIsNoOp(t *testing.T) {
	t.Parallel()
	repo := memory.New()
	r := NewRecoverer(repo, time.Minute, "self")
	r.RecoverOnce(context.Background())
}
