package shipper

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/metric"
	noopmetric "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"
)

const (
	instrumentationName    = "github.com/obsidianstack/logship/agent/internal/shipper"
	instrumentationVersion = "0.1.0"
	metricKeyPrefix        = "logship."
)

// telemetry holds the OpenTelemetry instruments used by the shipper. With no
// providers configured every instrument is a no-op.
type telemetry struct {
	tracer          trace.Tracer
	enqueued        metric.Int64Counter
	delivered       metric.Int64Counter
	requests        metric.Int64Counter
	requestDuration metric.Float64Histogram
	cycleDuration   metric.Float64Histogram
	pending         metric.Int64ObservableGauge
}

func newTelemetry(mp metric.MeterProvider, tp trace.TracerProvider, pending func() int) (*telemetry, error) {
	if mp == nil {
		mp = noopmetric.NewMeterProvider()
	}
	if tp == nil {
		tp = nooptrace.NewTracerProvider()
	}

	meter := mp.Meter(instrumentationName, metric.WithInstrumentationVersion(instrumentationVersion))
	t := &telemetry{
		tracer: tp.Tracer(instrumentationName, trace.WithInstrumentationVersion(instrumentationVersion)),
	}

	var err error
	if t.enqueued, err = meter.Int64Counter(
		metricKeyPrefix+"records.enqueued",
		metric.WithDescription("Records accepted into the pending queue."),
		metric.WithUnit("{records}"),
	); err != nil {
		return nil, fmt.Errorf("create counter records.enqueued: %w", err)
	}

	if t.delivered, err = meter.Int64Counter(
		metricKeyPrefix+"records.delivered",
		metric.WithDescription("Records acknowledged with a 2xx status and removed from the queue."),
		metric.WithUnit("{records}"),
	); err != nil {
		return nil, fmt.Errorf("create counter records.delivered: %w", err)
	}

	if t.requests, err = meter.Int64Counter(
		metricKeyPrefix+"requests",
		metric.WithDescription("Delivery attempts by result."),
		metric.WithUnit("{requests}"),
	); err != nil {
		return nil, fmt.Errorf("create counter requests: %w", err)
	}

	if t.requestDuration, err = meter.Float64Histogram(
		metricKeyPrefix+"request.duration",
		metric.WithDescription("Duration of one delivery attempt."),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, fmt.Errorf("create histogram request.duration: %w", err)
	}

	if t.cycleDuration, err = meter.Float64Histogram(
		metricKeyPrefix+"cycle.duration",
		metric.WithDescription("Duration of one snapshot-build-dispatch-settle cycle."),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, fmt.Errorf("create histogram cycle.duration: %w", err)
	}

	if t.pending, err = meter.Int64ObservableGauge(
		metricKeyPrefix+"queue.pending",
		metric.WithDescription("Records waiting for acknowledgement."),
		metric.WithUnit("{records}"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(int64(pending()))
			return nil
		}),
	); err != nil {
		return nil, fmt.Errorf("create gauge queue.pending: %w", err)
	}

	return t, nil
}
