package mongodb

import (
	"time"

	"github.com/Mizzle-Technology/task-manager/domain/task"
)

// taskDocument is the BSON representation of a task.Task. Field names
// are camelCase on the wire; status is stored under its string name so
// documents stay readable in shell queries and compatible with other
// consumers of the collection.
type taskDocument struct {
	ID            string            `bson:"_id"`
	TaskID        string            `bson:"taskId"`
	Body          string            `bson:"body"`
	Status        string            `bson:"status"`
	Version       int64             `bson:"version"`
	RetryCount    int               `bson:"retryCount"`
	WorkerPodID   string            `bson:"workerPodId,omitempty"`
	WorkerNodeID  string            `bson:"workerNodeId,omitempty"`
	LastHeartbeat time.Time         `bson:"lastHeartbeat,omitempty"`
	LockedAt      time.Time         `bson:"lockedAt,omitempty"`
	CreatedAt     time.Time         `bson:"createdAt"`
	UpdatedAt     time.Time         `bson:"updatedAt"`
	ProcessedAt   time.Time         `bson:"processedAt,omitempty"`
	CompletedAt   time.Time         `bson:"completedAt,omitempty"`
	FailedAt      time.Time         `bson:"failedAt,omitempty"`
	ErrorMessage  string            `bson:"errorMessage,omitempty"`
	Metadata      map[string]string `bson:"metadata,omitempty"`
}

func toDocument(t *task.Task) *taskDocument {
	return &taskDocument{
		ID:            t.ID,
		TaskID:        t.TaskID,
		Body:          t.Body,
		Status:        t.Status.String(),
		Version:       t.Version,
		RetryCount:    t.RetryCount,
		WorkerPodID:   t.WorkerPodID,
		WorkerNodeID:  t.WorkerNodeID,
		LastHeartbeat: t.LastHeartbeat,
		LockedAt:      t.LockedAt,
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
		ProcessedAt:   t.ProcessedAt,
		CompletedAt:   t.CompletedAt,
		FailedAt:      t.FailedAt,
		ErrorMessage:  t.ErrorMessage,
		Metadata:      t.Metadata,
	}
}

func fromDocument(doc *taskDocument) *task.Task {
	status, _ := task.ParseStatus(doc.Status)
	return &task.Task{
		ID:            doc.ID,
		TaskID:        doc.TaskID,
		Body:          doc.Body,
		Status:        status,
		Version:       doc.Version,
		RetryCount:    doc.RetryCount,
		WorkerPodID:   doc.WorkerPodID,
		WorkerNodeID:  doc.WorkerNodeID,
		LastHeartbeat: doc.LastHeartbeat,
		LockedAt:      doc.LockedAt,
		CreatedAt:     doc.CreatedAt,
		UpdatedAt:     doc.UpdatedAt,
		ProcessedAt:   doc.ProcessedAt,
		CompletedAt:   doc.CompletedAt,
		FailedAt:      doc.FailedAt,
		ErrorMessage:  doc.ErrorMessage,
		Metadata:      doc.Metadata,
	}
}
