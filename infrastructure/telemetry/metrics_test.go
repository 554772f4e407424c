package telemetry

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func setupTestMetrics(t *testing.T) (*sdkmetric.ManualReader, *Metrics) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	m := NewMetrics(DefaultMetricsConfig())
	if m.initErr != nil {
		t.Fatalf("failed to init instruments: %v", m.initErr)
	}
	return reader, m
}

func collectNames(t *testing.T, reader *sdkmetric.ManualReader) map[string]bool {
	t.Helper()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("failed to collect metrics: %v", err)
	}

	names := make(map[string]bool)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			names[m.Name] = true
		}
	}
	return names
}

func TestRecordTick(t *testing.T) {
	reader, m := setupTestMetrics(t)
	defer func() { _ = reader.Shutdown(context.Background()) }()

	m.RecordTick(context.Background(), 10, 8, 2, 500*time.Millisecond)

	names := collectNames(t, reader)
	for _, want := range []string{
		"ledger.ingester.messages_received",
		"ledger.ingester.messages_succeeded",
		"ledger.ingester.messages_failed",
		"ledger.ingester.message_duration",
	} {
		if !names[want] {
			t.Errorf("expected instrument %q to have data, got %v", want, names)
		}
	}
}

func TestRecordWorkerOutcomes(t *testing.T) {
	reader, m := setupTestMetrics(t)
	defer func() { _ = reader.Shutdown(context.Background()) }()

	ctx := context.Background()
	m.RecordAcquired(ctx, "Assigned")
	m.RecordOutcome(ctx, true, 100*time.Millisecond)
	m.RecordOutcome(ctx, false, 50*time.Millisecond)
	m.RecordRequeued(ctx, 3)

	names := collectNames(t, reader)
	for _, want := range []string{
		"ledger.worker.tasks_acquired",
		"ledger.worker.tasks_succeeded",
		"ledger.worker.tasks_failed",
		"ledger.worker.tasks_requeued",
		"ledger.worker.task_duration",
	} {
		if !names[want] {
			t.Errorf("expected instrument %q to have data, got %v", want, names)
		}
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	ctx := context.Background()

	m.RecordTick(ctx, 1, 1, 0, time.Second)
	m.RecordAcquired(ctx, "Queued")
	m.RecordOutcome(ctx, true, time.Second)
	m.RecordRequeued(ctx, 1)
}
