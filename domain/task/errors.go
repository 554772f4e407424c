package task

import "errors"

// Domain errors for the task entity. Repository-level failure kinds live in
// domain/ledger; these cover invariant violations callers can hit before a
// task ever reaches the repository.
var (
	// ErrEmptyTaskID is returned when a task is constructed without a
	// business key.
	ErrEmptyTaskID = errors.New("task: taskId must not be empty")

	// ErrRetryBudgetExceeded names the condition of a task whose retry
	// budget (maxRetries) is spent. No function in this module returns
	// it: the worker moves such a task to Failed instead.
	ErrRetryBudgetExceeded = errors.New("task: retry budget exceeded")
)
