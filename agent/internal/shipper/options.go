package shipper

import (
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

type options struct {
	doer           Doer
	logger         *slog.Logger
	meterProvider  metric.MeterProvider
	tracerProvider trace.TracerProvider
	onError        ErrorHandler
	now            func() time.Time
}

// Option configures a Shipper.
type Option func(*options)

// WithDoer replaces the HTTP client built from the shipper config.
func WithDoer(d Doer) Option {
	return func(o *options) { o.doer = d }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMeterProvider enables OpenTelemetry metrics.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) { o.meterProvider = mp }
}

// WithTracerProvider enables OpenTelemetry tracing of cycles and requests.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) { o.tracerProvider = tp }
}

// WithErrorHandler installs a hook called for every failed attempt.
// Without it failures are only logged at debug level.
func WithErrorHandler(h ErrorHandler) Option {
	return func(o *options) { o.onError = h }
}

// WithClock overrides the clock used for x-ms-date and delivery state.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}
