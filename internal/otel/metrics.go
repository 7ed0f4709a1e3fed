package otel

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "config-puller"

// Metrics holds all OTEL metric instruments for config-puller.
// All counters are cumulative (monotonic) and safe for concurrent use.
type Metrics struct {
	// Sessions partitioned by outcome: completed, connection_error,
	// readiness_timeout, error.
	Sessions metric.Int64Counter

	// Commands run, partitioned by outcome: ok, prompt_timeout, error.
	Commands metric.Int64Counter

	// Readiness negotiation time, partitioned by final state.
	ReadinessDuration metric.Float64Histogram
}

// NewMetrics creates all metric instruments. Returns no-op instruments
// when no MeterProvider is registered (safe to call unconditionally).
func NewMetrics() (*Metrics, error) {
	return NewMetricsFor(otel.GetMeterProvider())
}

// NewMetricsFor creates the instruments on a specific MeterProvider.
func NewMetricsFor(mp metric.MeterProvider) (*Metrics, error) {
	meter := mp.Meter(meterName)
	m := &Metrics{}
	var err error

	m.Sessions, err = meter.Int64Counter("extraction.sessions",
		metric.WithDescription("Extraction sessions partitioned by outcome"))
	if err != nil {
		return nil, err
	}

	m.Commands, err = meter.Int64Counter("extraction.commands",
		metric.WithDescription("Console commands run, partitioned by outcome (ok, prompt_timeout, error)"),
		metric.WithUnit("{command}"))
	if err != nil {
		return nil, err
	}

	m.ReadinessDuration, err = meter.Float64Histogram("readiness.duration",
		metric.WithDescription("Time spent bringing the console to a command prompt"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

// RecordSession records the end of an extraction session.
func (m *Metrics) RecordSession(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.Sessions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("session.outcome", outcome),
	))
}

// RecordCommand records one console command.
func (m *Metrics) RecordCommand(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.Commands.Add(ctx, 1, metric.WithAttributes(
		attribute.String("command.outcome", outcome),
	))
}

// RecordReadiness records how long negotiation took and where it ended.
func (m *Metrics) RecordReadiness(ctx context.Context, d time.Duration, state string) {
	if m == nil {
		return
	}
	m.ReadinessDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("readiness.state", state),
	))
}
