// Package logging provides structured logging for the worker, ingester,
// and recoverer loops on top of bolt.
package logging

import (
	"os"
	"sync"

	"github.com/felixgeelhaar/bolt/v3"
)

var (
	defaultLogger *bolt.Logger
	once          sync.Once
)

// Config configures the logger.
type Config struct {
	// Level is the minimum log level (trace, debug, info, warn, error).
	Level string

	// Format is the output format (json or console).
	Format string

	// Output is the output destination.
	Output *os.File
}

// DefaultConfig returns a console-formatted configuration suitable for
// local runs.
func DefaultConfig() Config {
	return Config{
		Level:  "info",
		Format: "console",
		Output: os.Stdout,
	}
}

// ProductionConfig returns a JSON-formatted configuration suitable for
// worker/ingester pods.
func ProductionConfig() Config {
	return Config{
		Level:  "info",
		Format: "json",
		Output: os.Stdout,
	}
}

func parseLevel(s string) bolt.Level {
	switch s {
	case "trace":
		return bolt.TRACE
	case "debug":
		return bolt.DEBUG
	case "warn":
		return bolt.WARN
	case "error":
		return bolt.ERROR
	default:
		return bolt.INFO
	}
}

// Init initializes the default logger. Subsequent calls are no-ops; use
// SetLevel to adjust verbosity afterward.
func Init(config Config) {
	once.Do(func() {
		output := config.Output
		if output == nil {
			output = os.Stdout
		}

		var handler bolt.Handler
		if config.Format == "json" {
			handler = bolt.NewJSONHandler(output)
		} else {
			handler = bolt.NewConsoleHandler(output)
		}

		defaultLogger = bolt.New(handler).SetLevel(parseLevel(config.Level))
	})
}

// Get returns the default logger, initializing it with DefaultConfig if
// necessary.
func Get() *bolt.Logger {
	if defaultLogger == nil {
		Init(DefaultConfig())
	}
	return defaultLogger
}

// SetLevel changes the log level of the default logger.
func SetLevel(level string) {
	Get().SetLevel(parseLevel(level))
}

// Event wraps a bolt.Event so call sites can chain Field values instead
// of bolt's raw method set.
type Event struct {
	event *bolt.Event
}

// NewEvent wraps a bolt.Event for field application.
func NewEvent(e *bolt.Event) *Event {
	return &Event{event: e}
}

// Add applies a field to the event.
func (e *Event) Add(f Field) *Event {
	e.event = f(e.event)
	return e
}

// Msg sends the log event with a message.
func (e *Event) Msg(msg string) {
	e.event.Msg(msg)
}

// Trace starts a trace-level event.
func Trace() *Event { return &Event{event: Get().Trace()} }

// Debug starts a debug-level event.
func Debug() *Event { return &Event{event: Get().Debug()} }

// Info starts an info-level event.
func Info() *Event { return &Event{event: Get().Info()} }

// Warn starts a warn-level event.
func Warn() *Event { return &Event{event: Get().Warn()} }

// Error starts an error-level event.
func Error() *Event { return &Event{event: Get().Error()} }
