package shipper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/obsidianstack/logship/agent/internal/config"
	"github.com/obsidianstack/logship/agent/internal/transport"
	"github.com/obsidianstack/logship/pkg/sharedkey"
	"github.com/obsidianstack/logship/pkg/types"
)

// ErrAlreadyRunning is returned by Run when another Run is active.
var ErrAlreadyRunning = errors.New("shipper: already running")

// CycleResult summarizes one delivery cycle.
type CycleResult struct {
	Batch     int // records in the snapshot
	Delivered int // acknowledged and removed
	Failed    int // left in the queue for the next cycle
	Duration  time.Duration
}

// Stats are cumulative counters since the Shipper was created.
type Stats struct {
	Enqueued       uint64
	Delivered      uint64
	FailedAttempts uint64
	Cycles         uint64
	Pending        int
}

// Shipper owns the pending queue and the delivery worker.
// Enqueue is safe to call from any goroutine, including while Run is active.
type Shipper struct {
	frequency  time.Duration
	queue      *Queue
	builder    *Builder
	dispatcher *Dispatcher
	logger     *slog.Logger
	tel        *telemetry
	now        func() time.Time

	running atomic.Bool
	cycleMu sync.Mutex // one cycle at a time between Run and Flush

	enqueued  atomic.Uint64
	delivered atomic.Uint64
	failed    atomic.Uint64
	cycles    atomic.Uint64
}

// New builds a Shipper for the workspace and delivery settings in cfg.
// The worker is not started; call Run.
func New(cfg *config.Config, opts ...Option) (*Shipper, error) {
	o := options{logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	if cfg.Shipper.MaxConcurrentRequests <= 0 {
		return nil, fmt.Errorf("shipper: max concurrent requests must be positive, got %d", cfg.Shipper.MaxConcurrentRequests)
	}
	if cfg.Shipper.SendFrequency <= 0 {
		return nil, fmt.Errorf("shipper: send frequency must be positive, got %v", cfg.Shipper.SendFrequency)
	}

	signer, err := sharedkey.New(cfg.Workspace.CustomerID, cfg.Workspace.Key())
	if err != nil {
		return nil, fmt.Errorf("shipper: %w", err)
	}

	if o.doer == nil {
		o.doer = transport.New(cfg.Shipper)
	}

	s := &Shipper{
		frequency: cfg.Shipper.SendFrequency,
		queue:     NewQueue(),
		logger:    o.logger,
		now:       o.now,
	}

	s.tel, err = newTelemetry(o.meterProvider, o.tracerProvider, s.queue.Len)
	if err != nil {
		return nil, fmt.Errorf("shipper: %w", err)
	}

	s.builder = NewBuilder(signer, cfg.Workspace.BaseURL(), cfg.Workspace.DefaultLogType, o.now)
	s.dispatcher = newDispatcher(o.doer, cfg.Shipper.MaxConcurrentRequests, o.onError, o.logger, s.tel)
	return s, nil
}

// Enqueue accepts one record for delivery and returns its ID. It never
// blocks on I/O and never fails.
func (s *Shipper) Enqueue(f types.Fields) string {
	rec := types.NewRecord(f)
	s.queue.Add(rec)
	s.enqueued.Add(1)
	s.tel.enqueued.Add(context.Background(), 1)
	return rec.ID
}

// Run delivers queued records every send_frequency until ctx is cancelled.
// The first cycle starts immediately; each wait starts after the previous
// cycle's batch has fully resolved. Cancelling ctx aborts in-flight requests,
// whose records stay queued, and Run returns ctx.Err().
func (s *Shipper) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer s.running.Store(false)

	s.logger.Info("shipper: started",
		"endpoint", s.builder.URI(),
		"send_frequency", s.frequency,
		"max_concurrent_requests", s.dispatcher.limit)

	timer := time.NewTimer(s.frequency)
	defer timer.Stop()

	for {
		if ctx.Err() != nil {
			s.logger.Info("shipper: stopped", "pending", s.queue.Len())
			return ctx.Err()
		}

		s.Flush(ctx)

		timer.Reset(s.frequency)
		select {
		case <-ctx.Done():
			s.logger.Info("shipper: stopped", "pending", s.queue.Len())
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Flush runs one delivery cycle immediately and returns its result. It is
// serialized with the cycles of Run.
func (s *Shipper) Flush(ctx context.Context) CycleResult {
	s.cycleMu.Lock()
	defer s.cycleMu.Unlock()
	return s.cycle(ctx)
}

// cycle snapshots the queue, builds and dispatches one request per record,
// then removes the acknowledged ones.
func (s *Shipper) cycle(ctx context.Context) CycleResult {
	start := time.Now()
	s.cycles.Add(1)

	batch := s.queue.Snapshot()
	if len(batch) == 0 {
		return CycleResult{}
	}

	ctx, span := s.tel.tracer.Start(ctx, "logship.cycle",
		trace.WithAttributes(attribute.Int("logship.batch.size", len(batch))))
	defer span.End()

	outcomes := make([]Outcome, 0, len(batch))
	reqs := make([]Request, 0, len(batch))
	for _, rec := range batch {
		req, err := s.builder.Build(ctx, rec)
		if err != nil {
			s.logger.Debug("shipper: build failed", "record", rec.ID, "err", err)
			outcomes = append(outcomes, Outcome{RecordID: rec.ID, Err: err})
			continue
		}
		reqs = append(reqs, req)
	}

	outcomes = append(outcomes, s.dispatcher.Dispatch(ctx, reqs)...)

	res := CycleResult{Batch: len(batch)}
	for _, o := range outcomes {
		if o.Acknowledged() {
			res.Delivered++
		} else {
			res.Failed++
		}
	}

	removed := s.queue.Settle(outcomes, s.now())
	res.Duration = time.Since(start)

	s.delivered.Add(uint64(removed))
	s.failed.Add(uint64(res.Failed))
	s.tel.delivered.Add(ctx, int64(removed))
	s.tel.cycleDuration.Record(ctx, float64(res.Duration.Microseconds())/1000)
	span.SetAttributes(
		attribute.Int("logship.delivered", res.Delivered),
		attribute.Int("logship.failed", res.Failed),
	)

	s.logger.Debug("shipper: cycle complete",
		"batch", res.Batch,
		"delivered", res.Delivered,
		"failed", res.Failed,
		"pending", s.queue.Len(),
		"duration", res.Duration)

	return res
}

// Pending returns the number of records awaiting acknowledgement.
func (s *Shipper) Pending() int { return s.queue.Len() }

// State returns the delivery state of a pending record.
func (s *Shipper) State(id string) (DeliveryState, bool) { return s.queue.State(id) }

// Stats returns cumulative delivery counters.
func (s *Shipper) Stats() Stats {
	return Stats{
		Enqueued:       s.enqueued.Load(),
		Delivered:      s.delivered.Load(),
		FailedAttempts: s.failed.Load(),
		Cycles:         s.cycles.Load(),
		Pending:        s.queue.Len(),
	}
}
