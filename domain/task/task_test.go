package task

import "testing"

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("rejects empty taskId", func(t *testing.T) {
		t.Parallel()
		if _, err := New("", "body"); err != ErrEmptyTaskID {
			t.Errorf("err = %v, want ErrEmptyTaskID", err)
		}
	})

	t.Run("starts at version 1 and Pending", func(t *testing.T) {
		t.Parallel()
		tk, err := New("t1", "hello")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if tk.Version != 1 {
			t.Errorf("version = %d, want 1", tk.Version)
		}
		if tk.Status != StatusPending {
			t.Errorf("status = %v, want Pending", tk.Status)
		}
		if tk.Metadata == nil {
			t.Error("expected non-nil metadata map")
		}
	})
}

func TestIsTerminal(t *testing.T) {
	t.Parallel()

	cases := []struct {
		status Status
		want   bool
	}{
		{StatusPending, false},
		{StatusQueued, false},
		{StatusAssigned, false},
		{StatusRunning, false},
		{StatusRetrying, false},
		{StatusSucceeded, true},
		{StatusFailed, true},
		{StatusCancelled, true},
		{StatusArchived, true},
		{StatusDeleted, true},
	}

	for _, c := range cases {
		if got := IsTerminal(c.status); got != c.want {
			t.Errorf("IsTerminal(%v) = %v, want %v", c.status, got, c.want)
		}
	}
}

func TestIsOwned(t *testing.T) {
	t.Parallel()

	tk := &Task{Status: StatusRunning, WorkerPodID: "w1"}
	if !tk.IsOwned() {
		t.Error("expected task to be owned")
	}

	tk2 := &Task{Status: StatusRunning}
	if tk2.IsOwned() {
		t.Error("expected task without a worker pod id to be unowned")
	}

	tk3 := &Task{Status: StatusQueued, WorkerPodID: "w1"}
	if tk3.IsOwned() {
		t.Error("Queued status must not be considered owned")
	}
}

func TestExceedsRetryBudget(t *testing.T) {
	t.Parallel()

	tk := &Task{RetryCount: 2}
	if tk.ExceedsRetryBudget(3) {
		t.Error("retryCount < maxRetries should not exceed the budget")
	}
	tk.RetryCount = 3
	if !tk.ExceedsRetryBudget(3) {
		t.Error("retryCount == maxRetries should exceed the budget")
	}
}

func TestStatusStringRoundTrip(t *testing.T) {
	t.Parallel()

	for s, name := range statusNames {
		got, ok := ParseStatus(name)
		if !ok {
			t.Fatalf("ParseStatus(%q) not found", name)
		}
		if got != s {
			t.Errorf("ParseStatus(%q) = %v, want %v", name, got, s)
		}
		if s.String() != name {
			t.Errorf("Status(%d).String() = %q, want %q", s, s.String(), name)
		}
	}

	if _, ok := ParseStatus("NotAStatus"); ok {
		t.Error("expected unknown status name to fail to parse")
	}
}
