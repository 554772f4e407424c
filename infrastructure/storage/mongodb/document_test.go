package mongodb

import (
	"testing"
	"time"

	domainconfig "github.com/Mizzle-Technology/task-manager/domain/config"
	"github.com/Mizzle-Technology/task-manager/domain/task"
)

func TestToFromDocumentRoundTrip(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	original := &task.Task{
		ID:            "id-1",
		TaskID:        "task-1",
		Body:          `{"k":"v"}`,
		Status:        task.StatusRunning,
		Version:       3,
		RetryCount:    1,
		WorkerPodID:   "pod-a",
		WorkerNodeID:  "node-a",
		LastHeartbeat: now,
		LockedAt:      now,
		CreatedAt:     now,
		UpdatedAt:     now,
		ErrorMessage:  "",
		Metadata:      map[string]string{"source": "orders"},
	}

	doc := toDocument(original)
	if doc.TaskID != original.TaskID {
		t.Errorf("taskId = %q, want %q", doc.TaskID, original.TaskID)
	}
	if doc.Status != "Running" {
		t.Errorf("status = %q, want Running", doc.Status)
	}

	back := fromDocument(doc)
	if back.TaskID != original.TaskID || back.Status != original.Status || back.Version != original.Version {
		t.Errorf("round trip mismatch: got %+v, want fields from %+v", back, original)
	}
	if back.Metadata["source"] != "orders" {
		t.Errorf("metadata not preserved: %+v", back.Metadata)
	}
}

func TestAddStatusTimestamp(t *testing.T) {
	t.Parallel()
	now := time.Now().UTC()

	cases := []struct {
		status task.Status
		field  string
	}{
		{task.StatusProcessing, "processedAt"},
		{task.StatusCompleted, "completedAt"},
		{task.StatusSucceeded, "completedAt"},
		{task.StatusFailed, "failedAt"},
	}

	for _, tc := range cases {
		set := map[string]interface{}{}
		addStatusTimestamp(set, tc.status, now)
		if _, ok := set[tc.field]; !ok {
			t.Errorf("status %v: expected field %q to be set, got %+v", tc.status, tc.field, set)
		}
	}

	set := map[string]interface{}{}
	addStatusTimestamp(set, task.StatusQueued, now)
	if len(set) != 0 {
		t.Errorf("non-witness status should not set any timestamp field, got %+v", set)
	}
}

func TestConfigFromLedgerConfigDefaults(t *testing.T) {
	t.Parallel()
	cfg := ConfigFromLedgerConfig(domainconfig.LedgerConfig{})
	if cfg.Collection != "tasks" {
		t.Errorf("collection = %q, want tasks", cfg.Collection)
	}
	if cfg.MaxPoolSize != 100 {
		t.Errorf("maxPoolSize = %d, want 100", cfg.MaxPoolSize)
	}
}

func TestConfigFromLedgerConfigOverridesDefaults(t *testing.T) {
	t.Parallel()

	lc := domainconfig.LedgerConfig{
		ConnectionString: "mongodb://db.internal:27017",
		DatabaseName:     "orchestrator",
	}
	cfg := ConfigFromLedgerConfig(lc)

	if cfg.URI != lc.ConnectionString {
		t.Errorf("uri = %q, want %q", cfg.URI, lc.ConnectionString)
	}
	if cfg.Database != lc.DatabaseName {
		t.Errorf("database = %q, want %q", cfg.Database, lc.DatabaseName)
	}
	if cfg.ConnectTimeout != DefaultConfig().ConnectTimeout {
		t.Errorf("connectTimeout = %v, want default carried over", cfg.ConnectTimeout)
	}
}
