package logging

import (
	"time"

	"github.com/felixgeelhaar/bolt/v3"

	"github.com/Mizzle-Technology/task-manager/domain/task"
)

// Field applies structured data to a log event.
type Field func(*bolt.Event) *bolt.Event

// TaskID adds a taskId field.
func TaskID(id string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("task_id", id)
	}
}

// Status adds a status field.
func Status(s task.Status) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("status", s.String())
	}
}

// FromStatus adds a from_status field for transitions.
func FromStatus(s task.Status) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("from_status", s.String())
	}
}

// ToStatus adds a to_status field for transitions.
func ToStatus(s task.Status) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("to_status", s.String())
	}
}

// WorkerID adds a worker_id field.
func WorkerID(id string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("worker_id", id)
	}
}

// Version adds a version field.
func Version(v int64) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int64("version", v)
	}
}

// Attempt adds a retry attempt field.
func Attempt(n int) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int("attempt", n)
	}
}

// Duration adds a duration field in milliseconds.
func Duration(d time.Duration) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int64("duration_ms", d.Milliseconds())
	}
}

// ErrorField adds an error field.
func ErrorField(err error) Field {
	return func(e *bolt.Event) *bolt.Event {
		if err == nil {
			return e
		}
		return e.Err(err)
	}
}

// Count adds a named integer count field.
func Count(name string, n int) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int(name, n)
	}
}
