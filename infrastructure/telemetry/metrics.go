// Package telemetry provides OpenTelemetry instrumentation for the
// ingester and worker loops: per-tick message counts, task outcomes,
// stall-recovery requeues, and processing latencies.
package telemetry

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsConfig configures the meter used by Metrics.
type MetricsConfig struct {
	// MeterName is the instrumentation scope name.
	MeterName string
	// MeterVersion is the instrumentation scope version.
	MeterVersion string
}

// DefaultMetricsConfig returns the default meter name/version.
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		MeterName:    "github.com/Mizzle-Technology/task-manager",
		MeterVersion: "1.0.0",
	}
}

// Metrics wraps the OTel instruments shared by the Ingester and Worker
// loops.
type Metrics struct {
	meter metric.Meter

	messagesReceived  metric.Int64Counter
	messagesSucceeded metric.Int64Counter
	messagesFailed    metric.Int64Counter
	messageDuration   metric.Float64Histogram

	tasksAcquired  metric.Int64Counter
	tasksSucceeded metric.Int64Counter
	tasksFailed    metric.Int64Counter
	tasksRequeued  metric.Int64Counter
	taskDuration   metric.Float64Histogram

	initOnce sync.Once
	initErr  error
}

// NewMetrics builds a Metrics instance bound to the global OTel meter
// provider.
func NewMetrics(config MetricsConfig) *Metrics {
	if config.MeterName == "" {
		config = DefaultMetricsConfig()
	}

	meter := otel.GetMeterProvider().Meter(
		config.MeterName,
		metric.WithInstrumentationVersion(config.MeterVersion),
	)

	m := &Metrics{meter: meter}
	m.initOnce.Do(func() {
		m.initErr = m.initInstruments()
	})
	return m
}

func (m *Metrics) initInstruments() error {
	var err error

	if m.messagesReceived, err = m.meter.Int64Counter(
		"ledger.ingester.messages_received",
		metric.WithDescription("Messages received from the bus per tick"),
		metric.WithUnit("{message}"),
	); err != nil {
		return err
	}

	if m.messagesSucceeded, err = m.meter.Int64Counter(
		"ledger.ingester.messages_succeeded",
		metric.WithDescription("Messages processed and completed successfully"),
		metric.WithUnit("{message}"),
	); err != nil {
		return err
	}

	if m.messagesFailed, err = m.meter.Int64Counter(
		"ledger.ingester.messages_failed",
		metric.WithDescription("Messages that failed processing"),
		metric.WithUnit("{message}"),
	); err != nil {
		return err
	}

	if m.messageDuration, err = m.meter.Float64Histogram(
		"ledger.ingester.message_duration",
		metric.WithDescription("Per-message processing duration"),
		metric.WithUnit("ms"),
	); err != nil {
		return err
	}

	if m.tasksAcquired, err = m.meter.Int64Counter(
		"ledger.worker.tasks_acquired",
		metric.WithDescription("Tasks acquired by the worker loop"),
		metric.WithUnit("{task}"),
	); err != nil {
		return err
	}

	if m.tasksSucceeded, err = m.meter.Int64Counter(
		"ledger.worker.tasks_succeeded",
		metric.WithDescription("Tasks that completed successfully"),
		metric.WithUnit("{task}"),
	); err != nil {
		return err
	}

	if m.tasksFailed, err = m.meter.Int64Counter(
		"ledger.worker.tasks_failed",
		metric.WithDescription("Task executions that ended in a handler failure, retried or not"),
		metric.WithUnit("{task}"),
	); err != nil {
		return err
	}

	if m.tasksRequeued, err = m.meter.Int64Counter(
		"ledger.worker.tasks_requeued",
		metric.WithDescription("Tasks reclaimed by stall recovery"),
		metric.WithUnit("{task}"),
	); err != nil {
		return err
	}

	if m.taskDuration, err = m.meter.Float64Histogram(
		"ledger.worker.task_duration",
		metric.WithDescription("Per-task handler execution duration"),
		metric.WithUnit("ms"),
	); err != nil {
		return err
	}

	return nil
}

// RecordTick records the aggregate outcome of one ingester tick.
func (m *Metrics) RecordTick(ctx context.Context, total, succeeded, failed int, elapsed time.Duration) {
	if m == nil || m.initErr != nil {
		return
	}
	m.messagesReceived.Add(ctx, int64(total))
	m.messagesSucceeded.Add(ctx, int64(succeeded))
	m.messagesFailed.Add(ctx, int64(failed))
	if total > 0 {
		m.messageDuration.Record(ctx, float64(elapsed.Milliseconds())/float64(total))
	}
}

// RecordAcquired increments the tasks-acquired counter.
func (m *Metrics) RecordAcquired(ctx context.Context, status string) {
	if m == nil || m.initErr != nil {
		return
	}
	m.tasksAcquired.Add(ctx, 1, metric.WithAttributes(attribute.String("to_status", status)))
}

// RecordOutcome records the terminal outcome of one task execution.
func (m *Metrics) RecordOutcome(ctx context.Context, succeeded bool, elapsed time.Duration) {
	if m == nil || m.initErr != nil {
		return
	}
	if succeeded {
		m.tasksSucceeded.Add(ctx, 1)
	} else {
		m.tasksFailed.Add(ctx, 1)
	}
	m.taskDuration.Record(ctx, float64(elapsed.Milliseconds()))
}

// RecordRequeued increments the stall-recovery requeue counter.
func (m *Metrics) RecordRequeued(ctx context.Context, n int) {
	if m == nil || m.initErr != nil || n == 0 {
		return
	}
	m.tasksRequeued.Add(ctx, int64(n))
}
