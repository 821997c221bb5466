package shipper

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/obsidianstack/logship/pkg/types"
)

// maxErrorBody caps how much of a rejected response body is kept.
const maxErrorBody = 512

// Doer sends one HTTP request. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ErrorHandler observes a failed delivery attempt. err is either the
// transport error or a *StatusError for non-2xx responses. It is called from
// dispatch goroutines and must be safe for concurrent use.
type ErrorHandler func(rec types.Record, err error)

// Outcome is the result of one delivery attempt.
type Outcome struct {
	RecordID   string
	StatusCode int // 0 when no response was received
	Err        error
	Duration   time.Duration
}

// Acknowledged reports whether the endpoint accepted the record.
func (o Outcome) Acknowledged() bool {
	return o.StatusCode >= 200 && o.StatusCode < 300
}

// StatusError is the error recorded for a non-2xx response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("ingestion endpoint returned HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("ingestion endpoint returned HTTP %d: %s", e.StatusCode, e.Body)
}

// Dispatcher sends a batch of requests with bounded concurrency.
type Dispatcher struct {
	doer    Doer
	limit   int
	onError ErrorHandler
	logger  *slog.Logger
	tel     *telemetry
}

func newDispatcher(doer Doer, limit int, onError ErrorHandler, logger *slog.Logger, tel *telemetry) *Dispatcher {
	return &Dispatcher{doer: doer, limit: limit, onError: onError, logger: logger, tel: tel}
}

// Dispatch sends every request, never more than the configured limit at a
// time, and blocks until all of them have completed or failed. The returned
// slice is index-aligned with reqs. Failures are reported in the outcomes,
// never as an error, and one request failing does not cancel the others.
func (d *Dispatcher) Dispatch(ctx context.Context, reqs []Request) []Outcome {
	out := make([]Outcome, len(reqs))

	var g errgroup.Group
	g.SetLimit(d.limit)
	for i := range reqs {
		g.Go(func() error {
			out[i] = d.send(ctx, reqs[i])
			return nil
		})
	}
	_ = g.Wait()

	return out
}

func (d *Dispatcher) send(ctx context.Context, req Request) (o Outcome) {
	o.RecordID = req.Record.ID
	start := time.Now()

	ctx, span := d.tel.tracer.Start(ctx, "POST "+Resource,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("logship.record.id", req.Record.ID)),
	)
	defer func() {
		if r := recover(); r != nil {
			o.StatusCode = 0
			o.Err = fmt.Errorf("dispatch panic: %v", r)
		}
		o.Duration = time.Since(start)
		d.finish(ctx, span, req.Record, o)
	}()

	resp, err := d.doer.Do(req.HTTP.WithContext(ctx))
	if err != nil {
		o.Err = err
		return o
	}
	defer resp.Body.Close()

	o.StatusCode = resp.StatusCode
	if o.Acknowledged() {
		_, _ = io.Copy(io.Discard, resp.Body)
		return o
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	_, _ = io.Copy(io.Discard, resp.Body)
	o.Err = &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	return o
}

// finish records telemetry for one attempt and notifies the error hook.
func (d *Dispatcher) finish(ctx context.Context, span trace.Span, rec types.Record, o Outcome) {
	result := "acknowledged"
	switch {
	case o.StatusCode == 0:
		result = "error"
	case !o.Acknowledged():
		result = "rejected"
	}

	attrs := metric.WithAttributes(
		attribute.String("result", result),
		attribute.Int("http.response.status_code", o.StatusCode),
	)
	d.tel.requests.Add(ctx, 1, attrs)
	d.tel.requestDuration.Record(ctx, float64(o.Duration.Microseconds())/1000, attrs)

	if o.StatusCode != 0 {
		span.SetAttributes(attribute.Int("http.response.status_code", o.StatusCode))
	}
	if o.Err != nil {
		span.RecordError(o.Err)
		span.SetStatus(codes.Error, o.Err.Error())
	}
	span.End()

	if o.Err == nil {
		return
	}
	d.logger.Debug("shipper: delivery attempt failed",
		"record", rec.ID, "status", o.StatusCode, "err", o.Err)
	d.notify(rec, o.Err)
}

// notify runs the error hook. A panicking hook is logged and otherwise ignored.
func (d *Dispatcher) notify(rec types.Record, err error) {
	if d.onError == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			d.logger.Warn("shipper: error handler panicked", "record", rec.ID, "panic", r)
		}
	}()
	d.onError(rec, err)
}
