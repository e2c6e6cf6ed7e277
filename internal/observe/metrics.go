// Package observe provides application-wide observability primitives:
// OpenTelemetry metrics, structured logging helpers, and HTTP middleware
// that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still
// be scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all metrics.
const meterName = "github.com/lastminutejob75/standardiste"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// HandleDuration tracks end-to-end HandleMessage latency. Use with
	// attributes: attribute.String("tenant", ...), attribute.String("channel", ...)
	HandleDuration metric.Float64Histogram

	// Messages counts processed inbound messages by tenant and channel.
	Messages metric.Int64Counter

	// Transitions counts FSM transitions. Use with attributes:
	//   attribute.String("from", ...), attribute.String("to", ...)
	Transitions metric.Int64Counter

	// SafeReplies counts safe-reply barrier activations. Every activation
	// is a handler bug signal; alert on this.
	SafeReplies metric.Int64Counter

	// RouterEntries counts intent-router activations by reason.
	RouterEntries metric.Int64Counter

	// Transfers counts escalations to a human by reason.
	Transfers metric.Int64Counter

	// BookingOutcomes counts booking attempts by status
	// (confirmed, slot_taken, fallback, unavailable).
	BookingOutcomes metric.Int64Counter

	// ActiveSessions tracks the number of live conversations.
	ActiveSessions metric.Int64UpDownCounter

	// HTTPRequestDuration tracks HTTP request processing time. Use with
	// attributes: attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// the engine's 3-second first-response budget.
var latencyBuckets = []float64{
	0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.HandleDuration, err = m.Float64Histogram("standardiste.handle.duration",
		metric.WithDescription("End-to-end HandleMessage latency."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.Messages, err = m.Int64Counter("standardiste.messages",
		metric.WithDescription("Processed inbound messages by tenant and channel."),
	); err != nil {
		return nil, err
	}
	if met.Transitions, err = m.Int64Counter("standardiste.fsm.transitions",
		metric.WithDescription("FSM transitions by from and to state."),
	); err != nil {
		return nil, err
	}
	if met.SafeReplies, err = m.Int64Counter("standardiste.safe_replies",
		metric.WithDescription("Safe-reply barrier activations."),
	); err != nil {
		return nil, err
	}
	if met.RouterEntries, err = m.Int64Counter("standardiste.router.entries",
		metric.WithDescription("Intent-router activations by reason."),
	); err != nil {
		return nil, err
	}
	if met.Transfers, err = m.Int64Counter("standardiste.transfers",
		metric.WithDescription("Escalations to a human by reason."),
	); err != nil {
		return nil, err
	}
	if met.BookingOutcomes, err = m.Int64Counter("standardiste.booking.outcomes",
		metric.WithDescription("Booking attempts by outcome status."),
	); err != nil {
		return nil, err
	}
	if met.ActiveSessions, err = m.Int64UpDownCounter("standardiste.active_sessions",
		metric.WithDescription("Number of live conversations."),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("standardiste.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it
// on first call using [otel.GetMeterProvider]. Subsequent calls return the
// same pointer. Panics if instrument creation fails (should not happen with
// the global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordMessage records one processed inbound message.
func (m *Metrics) RecordMessage(ctx context.Context, tenant, channel string) {
	m.Messages.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("tenant", tenant),
			attribute.String("channel", channel),
		),
	)
}

// RecordTransition records one FSM transition.
func (m *Metrics) RecordTransition(ctx context.Context, from, to string) {
	m.Transitions.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("from", from),
			attribute.String("to", to),
		),
	)
}

// RecordRouterEntry records one intent-router activation.
func (m *Metrics) RecordRouterEntry(ctx context.Context, reason string) {
	m.RouterEntries.Add(ctx, 1,
		metric.WithAttributes(attribute.String("reason", reason)),
	)
}

// RecordTransfer records one escalation to a human.
func (m *Metrics) RecordTransfer(ctx context.Context, reason string) {
	m.Transfers.Add(ctx, 1,
		metric.WithAttributes(attribute.String("reason", reason)),
	)
}

// RecordBookingOutcome records one booking attempt outcome.
func (m *Metrics) RecordBookingOutcome(ctx context.Context, status string) {
	m.BookingOutcomes.Add(ctx, 1,
		metric.WithAttributes(attribute.String("status", status)),
	)
}
