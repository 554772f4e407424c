// Package classify sorts handler and infrastructure failures into
// transient ones (worth retrying) and terminal ones (skip straight to
// Failed).
package classify

import (
	"context"
	"errors"

	"github.com/Mizzle-Technology/task-manager/domain/bus"
	"github.com/Mizzle-Technology/task-manager/domain/ledger"
)

// Kind is the classification of a failure.
type Kind int

const (
	// Transient failures count toward retries: database unavailability,
	// lock-lost, timeout within the processing budget.
	Transient Kind = iota

	// Terminal failures skip retry entirely and go straight to Failed.
	Terminal
)

// String renders the Kind for logging.
func (k Kind) String() string {
	if k == Terminal {
		return "terminal"
	}
	return "transient"
}

// terminalError marks a handler failure as unrecoverable, bypassing the
// worker's retry budget regardless of how many attempts remain.
type terminalError struct {
	cause error
}

// NewTerminalError wraps err so Classify always returns Terminal for it,
// regardless of its underlying type. User TaskHandlers return this to
// signal a domain-specific unrecoverable condition.
func NewTerminalError(err error) error {
	return &terminalError{cause: err}
}

func (e *terminalError) Error() string { return e.cause.Error() }
func (e *terminalError) Unwrap() error { return e.cause }

// Classify determines whether err should count against a task's retry
// budget or send it straight to Failed.
func Classify(err error) Kind {
	if err == nil {
		return Transient
	}

	var te *terminalError
	if errors.As(err, &te) {
		return Terminal
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return Transient
	case errors.Is(err, bus.ErrLockLost):
		return Transient
	case errors.Is(err, ledger.ErrDatabaseOperation), errors.Is(err, ledger.ErrDatabaseUnavailable):
		return Transient
	default:
		return Transient
	}
}
