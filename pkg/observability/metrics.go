package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds all metric instruments for the message bus.
type Metrics struct {
	// Command metrics
	CommandDuration metric.Float64Histogram
	CommandTotal    metric.Int64Counter
	CommandErrors   metric.Int64Counter
	CommandTimeouts metric.Int64Counter

	// Event metrics
	EventsDispatched     metric.Int64Counter
	EventHandlerFailures metric.Int64Counter

	// Drain-loop metrics
	DrainPasses     metric.Int64Histogram
	DrainGuardTrips metric.Int64Counter
}

// NewMetrics creates all metric instruments.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	m.CommandDuration, err = meter.Float64Histogram(
		"messagebus.command.duration",
		metric.WithDescription("Command execution duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating command.duration: %w", err)
	}

	m.CommandTotal, err = meter.Int64Counter(
		"messagebus.command.total",
		metric.WithDescription("Total commands dispatched"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating command.total: %w", err)
	}

	m.CommandErrors, err = meter.Int64Counter(
		"messagebus.command.errors",
		metric.WithDescription("Total command handler errors"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating command.errors: %w", err)
	}

	m.CommandTimeouts, err = meter.Int64Counter(
		"messagebus.command.timeouts",
		metric.WithDescription("Total commands that exceeded their deadline"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating command.timeouts: %w", err)
	}

	m.EventsDispatched, err = meter.Int64Counter(
		"messagebus.events.dispatched",
		metric.WithDescription("Total events fanned out to handlers"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating events.dispatched: %w", err)
	}

	m.EventHandlerFailures, err = meter.Int64Counter(
		"messagebus.events.handler_failures",
		metric.WithDescription("Total event handler failures, isolated per handler"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating events.handler_failures: %w", err)
	}

	m.DrainPasses, err = meter.Int64Histogram(
		"messagebus.drain.passes",
		metric.WithDescription("Drain passes needed per command dispatch"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating drain.passes: %w", err)
	}

	m.DrainGuardTrips, err = meter.Int64Counter(
		"messagebus.drain.guard_trips",
		metric.WithDescription("Times the bounded drain loop gave up"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating drain.guard_trips: %w", err)
	}

	return m, nil
}

// RecordCommand records the outcome of one command dispatch.
func (m *Metrics) RecordCommand(ctx context.Context, name, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("command", name),
		attribute.String("outcome", outcome),
	)
	m.CommandTotal.Add(ctx, 1, attrs)
	m.CommandDuration.Record(ctx, elapsed.Seconds(), attrs)
	switch outcome {
	case "error":
		m.CommandErrors.Add(ctx, 1, attrs)
	case "timeout":
		m.CommandTimeouts.Add(ctx, 1, attrs)
	}
}

// RecordEventDispatch records one event fan-out.
func (m *Metrics) RecordEventDispatch(ctx context.Context, name string, handlers, failures int) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("event", name))
	m.EventsDispatched.Add(ctx, 1, attrs)
	if failures > 0 {
		m.EventHandlerFailures.Add(ctx, int64(failures), attrs)
	}
}

// RecordDrain records the drain-loop shape of one command dispatch.
func (m *Metrics) RecordDrain(ctx context.Context, command string, passes int, guardTripped bool) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("command", command))
	m.DrainPasses.Record(ctx, int64(passes), attrs)
	if guardTripped {
		m.DrainGuardTrips.Add(ctx, 1, attrs)
	}
}
