package ledger

import "errors"

// Error kinds surfaced by every Repository implementation. Callers above
// the repository never pattern-match on driver-level error types:
// connection and timeout failures of ordinary operations are translated
// to ErrDatabaseOperation with the original cause joined in (Initialize
// and Ping use ErrInitialization and ErrDatabaseUnavailable instead).
var (
	// ErrInitialization is returned by Initialize when the backing store
	// cannot be reached or the required index cannot be built. It is
	// fatal: the host must terminate.
	ErrInitialization = errors.New("ledger: initialization failed")

	// ErrDatabaseOperation wraps any connection or timeout failure from
	// the backing store.
	ErrDatabaseOperation = errors.New("ledger: database operation failed")

	// ErrDatabaseUnavailable is returned by Ping when the backing store
	// is unreachable.
	ErrDatabaseUnavailable = errors.New("ledger: database unavailable")

	// ErrTaskNotFound is returned by lookups that find no matching
	// document.
	ErrTaskNotFound = errors.New("ledger: task not found")

	// ErrDuplicateKey is returned by UpsertTask when a racing insert won
	// with the same taskId. Callers treat it as success-equivalent: the
	// task is durably persisted either way.
	ErrDuplicateKey = errors.New("ledger: duplicate key")
)
