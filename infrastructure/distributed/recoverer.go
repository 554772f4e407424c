package distributed

import (
	"context"
	"fmt"
	"time"

	"github.com/Mizzle-Technology/task-manager/domain/ledger"
	"github.com/Mizzle-Technology/task-manager/domain/task"
	"github.com/Mizzle-Technology/task-manager/infrastructure/logging"
	"github.com/Mizzle-Technology/task-manager/infrastructure/telemetry"
)

// Recoverer detects Running tasks whose owning worker has gone silent
// and requeues them.
type Recoverer struct {
	repository   ledger.Repository
	threshold    time.Duration
	selfWorkerID string
	metrics      *telemetry.Metrics
}

// NewRecoverer builds a Recoverer scanning for tasks stalled past
// threshold, from the perspective of selfWorkerID.
func NewRecoverer(repository ledger.Repository, threshold time.Duration, selfWorkerID string) *Recoverer {
	return &Recoverer{
		repository:   repository,
		threshold:    threshold,
		selfWorkerID: selfWorkerID,
	}
}

// RecoverOnce runs a single sweep. It is invoked at the top of every
// Worker Loop iteration; a false return from RequeueTask is expected and
// benign: another worker won the race to recover the same task.
func (r *Recoverer) RecoverOnce(ctx context.Context) {
	stalled, err := r.repository.GetStalledTasks(ctx, r.threshold, r.selfWorkerID)
	if err != nil {
		logging.Error().Add(logging.ErrorField(err)).Msg("stalled-task scan failed")
		return
	}

	requeued := 0
	for _, t := range stalled {
		reason := fmt.Sprintf("Task stalled in worker %s", t.WorkerPodID)
		if t.WorkerPodID == r.selfWorkerID {
			reason = "Task stalled in current worker"
		}

		ok, err := r.repository.RequeueTask(ctx, t.TaskID, task.StatusQueued, reason)
		if err != nil {
			logging.Error().Add(logging.TaskID(t.TaskID)).Add(logging.ErrorField(err)).Msg("requeue failed")
			continue
		}
		if ok {
			requeued++
			logging.Info().Add(logging.TaskID(t.TaskID)).Add(logging.WorkerID(t.WorkerPodID)).Msg(reason)
		}
	}

	if r.metrics != nil {
		r.metrics.RecordRequeued(ctx, requeued)
	}
}
