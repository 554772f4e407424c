package classify

import (
	"context"
	"errors"
	"testing"

	"github.com/Mizzle-Technology/task-manager/domain/bus"
	"github.com/Mizzle-Technology/task-manager/domain/ledger"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, Transient},
		{"deadline exceeded", context.DeadlineExceeded, Transient},
		{"lock lost", bus.ErrLockLost, Transient},
		{"database operation error", ledger.ErrDatabaseOperation, Transient},
		{"database unavailable", ledger.ErrDatabaseUnavailable, Transient},
		{"generic handler error", errors.New("boom"), Transient},
		{"wrapped terminal", NewTerminalError(errors.New("domain violation")), Terminal},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()
			if got := Classify(c.err); got != c.want {
				t.Errorf("Classify(%v) = %v, want %v", c.err, got, c.want)
			}
		})
	}
}

func TestTerminalErrorUnwraps(t *testing.T) {
	t.Parallel()

	cause := errors.New("underlying")
	err := NewTerminalError(cause)

	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to find the wrapped cause")
	}
	if err.Error() != cause.Error() {
		t.Errorf("Error() = %q, want %q", err.Error(), cause.Error())
	}
}

func TestKindString(t *testing.T) {
	t.Parallel()

	if Transient.String() != "transient" {
		t.Errorf("Transient.String() = %q", Transient.String())
	}
	if Terminal.String() != "terminal" {
		t.Errorf("Terminal.String() = %q", Terminal.String())
	}
}
