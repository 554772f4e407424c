package mongodb

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Mizzle-Technology/task-manager/domain/ledger"
	"github.com/Mizzle-Technology/task-manager/domain/task"
)

// Repository is the MongoDB-backed implementation of ledger.Repository.
type Repository struct {
	client         *mongo.Client
	collection     *mongo.Collection
	queryTimeout   time.Duration
	connectTimeout time.Duration
}

// NewRepository wraps an already-connected Client.
func NewRepository(c *Client) *Repository {
	return &Repository{
		client:         c.client,
		collection:     c.collection,
		queryTimeout:   c.config.QueryTimeout,
		connectTimeout: c.config.ConnectTimeout,
	}
}

// Initialize ensures the required indexes exist.
func (r *Repository) Initialize(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.connectTimeout)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "taskId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{
				{Key: "status", Value: 1},
				{Key: "createdAt", Value: 1},
			},
		},
		{
			Keys: bson.D{
				{Key: "status", Value: 1},
				{Key: "lastHeartbeat", Value: 1},
			},
		},
	}

	if _, err := r.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return errors.Join(ledger.ErrInitialization, err)
	}
	return nil
}

// UpsertTask inserts or wholesale-replaces a document by taskId. _id is
// only written on insert. createdAt is set to now on insert when the task
// carries none, so a replace without a CreatedAt keeps the original
// creation time and acquisition ordering; a non-zero CreatedAt is written
// as given on insert and replace alike.
func (r *Repository) UpsertTask(ctx context.Context, t *task.Task) error {
	if t.TaskID == "" {
		return task.ErrEmptyTaskID
	}

	ctx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	now := time.Now().UTC()
	clone := *t
	if clone.Version == 0 {
		clone.Version = 1
	}

	set := bson.M{
		"taskId":        clone.TaskID,
		"body":          clone.Body,
		"status":        clone.Status.String(),
		"version":       clone.Version,
		"retryCount":    clone.RetryCount,
		"workerPodId":   clone.WorkerPodID,
		"workerNodeId":  clone.WorkerNodeID,
		"lastHeartbeat": clone.LastHeartbeat,
		"lockedAt":      clone.LockedAt,
		"processedAt":   clone.ProcessedAt,
		"completedAt":   clone.CompletedAt,
		"failedAt":      clone.FailedAt,
		"errorMessage":  clone.ErrorMessage,
		"metadata":      clone.Metadata,
		"updatedAt":     now,
	}
	setOnInsert := bson.M{}
	if clone.ID == "" {
		setOnInsert["_id"] = primitive.NewObjectID().Hex()
	} else {
		setOnInsert["_id"] = clone.ID
	}
	if clone.CreatedAt.IsZero() {
		setOnInsert["createdAt"] = now
	} else {
		set["createdAt"] = clone.CreatedAt
	}

	_, err := r.collection.UpdateOne(ctx,
		bson.M{"taskId": clone.TaskID},
		bson.M{"$set": set, "$setOnInsert": setOnInsert},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return errors.Join(ledger.ErrDuplicateKey, err)
		}
		return r.wrapError(err)
	}
	return nil
}

// GetByTaskID returns the task with the given business key.
func (r *Repository) GetByTaskID(ctx context.Context, taskID string) (*task.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	var doc taskDocument
	err := r.collection.FindOne(ctx, bson.M{"taskId": taskID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ledger.ErrTaskNotFound
		}
		return nil, r.wrapError(err)
	}
	return fromDocument(&doc), nil
}

// TryAcquireTask atomically claims the oldest eligible task in
// fromStatus, using FindOneAndUpdate with a sort so the contest between
// concurrent callers resolves to exactly one winner per document.
func (r *Repository) TryAcquireTask(ctx context.Context, fromStatus, toStatus task.Status, workerID string, heartbeatNow time.Time, staleTaskTimeout time.Duration) (*task.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	now := time.Now().UTC()
	staleBefore := now.Add(-staleTaskTimeout)

	filter := bson.M{
		"status": fromStatus.String(),
		"$or": bson.A{
			bson.M{"workerPodId": bson.M{"$exists": false}},
			bson.M{"workerPodId": ""},
			bson.M{"lastHeartbeat": bson.M{"$lt": staleBefore}},
		},
	}
	update := bson.M{
		"$set": bson.M{
			"status":        toStatus.String(),
			"workerPodId":   workerID,
			"lastHeartbeat": heartbeatNow,
			"lockedAt":      now,
			"updatedAt":     now,
		},
		"$inc": bson.M{"version": 1},
	}
	opts := options.FindOneAndUpdate().
		SetSort(bson.D{{Key: "createdAt", Value: 1}}).
		SetReturnDocument(options.After)

	var doc taskDocument
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ledger.ErrTaskNotFound
		}
		return nil, r.wrapError(err)
	}
	return fromDocument(&doc), nil
}

// UpdateStatusIfVersionMatches CASes on (taskID, expectedVersion).
func (r *Repository) UpdateStatusIfVersionMatches(ctx context.Context, taskID string, expectedVersion int64, newStatus task.Status) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	now := time.Now().UTC()
	set := bson.M{"status": newStatus.String(), "updatedAt": now}
	addStatusTimestamp(set, newStatus, now)

	result, err := r.collection.UpdateOne(ctx,
		bson.M{"taskId": taskID, "version": expectedVersion},
		bson.M{"$set": set, "$inc": bson.M{"version": 1}},
	)
	if err != nil {
		return false, r.wrapError(err)
	}
	return result.ModifiedCount == 1, nil
}

// UpdateStatusAndErrorIfVersionMatches is UpdateStatusIfVersionMatches
// plus an atomic error message set and optional retryCount bump.
func (r *Repository) UpdateStatusAndErrorIfVersionMatches(ctx context.Context, taskID string, expectedVersion int64, newStatus task.Status, errorMessage string, bumpRetryCount bool) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	now := time.Now().UTC()
	set := bson.M{"status": newStatus.String(), "errorMessage": errorMessage, "updatedAt": now}
	addStatusTimestamp(set, newStatus, now)

	inc := bson.M{"version": 1}
	if bumpRetryCount {
		inc["retryCount"] = 1
	}

	result, err := r.collection.UpdateOne(ctx,
		bson.M{"taskId": taskID, "version": expectedVersion},
		bson.M{"$set": set, "$inc": inc},
	)
	if err != nil {
		return false, r.wrapError(err)
	}
	return result.ModifiedCount == 1, nil
}

// UpdateHeartbeatIfVersionMatches refreshes lastHeartbeat, requiring
// both a version match and current ownership.
func (r *Repository) UpdateHeartbeatIfVersionMatches(ctx context.Context, taskID string, expectedVersion int64, workerID string, heartbeat time.Time) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	result, err := r.collection.UpdateOne(ctx,
		bson.M{"taskId": taskID, "version": expectedVersion, "workerPodId": workerID},
		bson.M{
			"$set": bson.M{"lastHeartbeat": heartbeat, "updatedAt": time.Now().UTC()},
			"$inc": bson.M{"version": 1},
		},
	)
	if err != nil {
		return false, r.wrapError(err)
	}
	return result.ModifiedCount == 1, nil
}

// TryUpdateTaskStatus reads the current version then CASes on it.
func (r *Repository) TryUpdateTaskStatus(ctx context.Context, taskID string, newStatus task.Status) (bool, error) {
	current, err := r.GetByTaskID(ctx, taskID)
	if err != nil {
		return false, err
	}
	return r.UpdateStatusIfVersionMatches(ctx, taskID, current.Version, newStatus)
}

// GetStalledTasks returns Running tasks whose heartbeat is older than
// threshold (self-owned) or 2*threshold (foreign-owned), sorted by
// lastHeartbeat ascending.
func (r *Repository) GetStalledTasks(ctx context.Context, threshold time.Duration, selfWorkerID string) ([]*task.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	now := time.Now().UTC()
	filter := bson.M{
		"status": task.StatusRunning.String(),
		"$or": bson.A{
			bson.M{"workerPodId": selfWorkerID, "lastHeartbeat": bson.M{"$lt": now.Add(-threshold)}},
			bson.M{"workerPodId": bson.M{"$ne": selfWorkerID}, "lastHeartbeat": bson.M{"$lt": now.Add(-2 * threshold)}},
		},
	}
	opts := options.Find().SetSort(bson.D{{Key: "lastHeartbeat", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, r.wrapError(err)
	}
	defer func() { _ = cursor.Close(ctx) }()

	var tasks []*task.Task
	for cursor.Next(ctx) {
		var doc taskDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, r.wrapError(err)
		}
		tasks = append(tasks, fromDocument(&doc))
	}
	if err := cursor.Err(); err != nil {
		return nil, r.wrapError(err)
	}
	return tasks, nil
}

// RequeueTask transitions a Running task back to newStatus, releasing
// ownership.
func (r *Repository) RequeueTask(ctx context.Context, taskID string, newStatus task.Status, reason string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	result, err := r.collection.UpdateOne(ctx,
		bson.M{"taskId": taskID, "status": task.StatusRunning.String()},
		bson.M{
			"$set": bson.M{
				"status":        newStatus.String(),
				"workerPodId":   "",
				"workerNodeId":  "",
				"lastHeartbeat": time.Time{},
				"lockedAt":      time.Time{},
				"errorMessage":  reason,
				"updatedAt":     time.Now().UTC(),
			},
			"$inc": bson.M{"version": 1},
		},
	)
	if err != nil {
		return false, r.wrapError(err)
	}
	return result.ModifiedCount == 1, nil
}

// Ping probes the backing MongoDB deployment.
func (r *Repository) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	if err := r.client.Ping(ctx, nil); err != nil {
		return errors.Join(ledger.ErrDatabaseUnavailable, err)
	}
	return nil
}

func addStatusTimestamp(set bson.M, s task.Status, now time.Time) {
	switch s {
	case task.StatusProcessing:
		set["processedAt"] = now
	case task.StatusCompleted, task.StatusSucceeded:
		set["completedAt"] = now
	case task.StatusFailed:
		set["failedAt"] = now
	}
}

// wrapError translates driver-level connection and timeout errors into
// the single domain error kind callers are expected to match on.
func (r *Repository) wrapError(err error) error {
	if err == nil {
		return nil
	}
	return errors.Join(ledger.ErrDatabaseOperation, err)
}

var _ ledger.Repository = (*Repository)(nil)
