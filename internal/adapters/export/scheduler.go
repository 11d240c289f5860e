package export

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/beacon/internal/domain/event"
	"github.com/okian/beacon/pkg/logger"
	"github.com/okian/beacon/pkg/metrics"
)

// Default scheduler configuration constants.
const (
	defaultInterval      = 10 * time.Second
	defaultShutdownGrace = 15 * time.Second
)

// Drainer is the buffer operation the scheduler depends on.
type Drainer interface {
	Drain(ctx context.Context) event.Batch
}

// Scheduler periodically drains the buffer and fans the drained batch out to
// every configured sink concurrently. At most one drain/export cycle is
// active at a time; ticks landing while a cycle is in flight are skipped and
// counted.
type Scheduler struct {
	drainer  Drainer
	sinks    []Sink
	interval time.Duration
	grace    time.Duration

	inFlight atomic.Bool

	// Shutdown control
	stopOnce sync.Once
	shutdown chan struct{}
	done     chan struct{}

	// Logging
	logger logger.Logger
}

// NewScheduler creates a scheduler flushing drainer into sinks.
// Zero sinks is legal: telemetry is then observed only through metrics.
func NewScheduler(drainer Drainer, sinks []Sink, opts ...Option) *Scheduler {
	s := &Scheduler{
		drainer:  drainer,
		sinks:    sinks,
		interval: defaultInterval,
		grace:    defaultShutdownGrace,
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("scheduler")
	}

	return s
}

// Run drives flush cycles until ctx is canceled or Shutdown is called, then
// performs one final drain+export pass bounded by the shutdown grace period.
func (s *Scheduler) Run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.finalFlush()
			return
		case <-s.shutdown:
			s.finalFlush()
			return
		case <-ticker.C:
			if !s.inFlight.CompareAndSwap(false, true) {
				// Previous cycle still exporting; never overlap.
				metrics.RecordFlushSkipped()
				s.logger.Warn(ctx, "flush cycle still in flight, skipping tick")
				continue
			}
			go func() {
				defer s.inFlight.Store(false)
				s.flush(context.WithoutCancel(ctx))
			}()
		}
	}
}

// Shutdown stops the scheduler and waits for the final flush to finish or
// for ctx to expire. Safe to call from multiple goroutines.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.stopOnce.Do(func() {
		close(s.shutdown)
	})

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		s.logger.Warn(ctx, "scheduler shutdown timed out")
		return ctx.Err()
	}
}

// Running reports whether the scheduler loop is still alive.
func (s *Scheduler) Running() bool {
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}

// finalFlush waits out an in-flight cycle, then drains whatever accumulated
// since the last tick. Events abandoned past the grace period are lost;
// acceptable under best-effort telemetry semantics.
func (s *Scheduler) finalFlush() {
	ctx, cancel := context.WithTimeout(context.Background(), s.grace)
	defer cancel()

	deadline := time.NewTimer(s.grace)
	defer deadline.Stop()
	for s.inFlight.Load() {
		select {
		case <-deadline.C:
			s.logger.Warn(ctx, "abandoning in-flight flush cycle at shutdown")
			return
		case <-time.After(10 * time.Millisecond):
		}
	}

	s.flush(ctx)
}

// flush runs one drain/export cycle: detach the batch, hand it to every
// sink concurrently, record per-sink outcomes.
func (s *Scheduler) flush(ctx context.Context) {
	start := time.Now()
	defer func() {
		metrics.RecordFlushDuration(float64(time.Since(start).Milliseconds()))
	}()

	batch := s.drainer.Drain(ctx)
	if len(batch) == 0 {
		return
	}

	s.logger.Debug(ctx, "flushing batch",
		logger.Int("events", len(batch)),
		logger.Int("sinks", len(s.sinks)),
	)

	var wg sync.WaitGroup
	for _, sink := range s.sinks {
		wg.Add(1)
		go func(sink Sink) {
			defer wg.Done()
			s.export(ctx, sink, batch)
		}(sink)
	}
	wg.Wait()
}

// export writes one batch to one sink and records the outcome. A failure is
// logged and counted, never retried within the cycle and never fatal.
func (s *Scheduler) export(ctx context.Context, sink Sink, batch event.Batch) {
	if err := sink.WriteBatch(ctx, batch); err != nil {
		metrics.RecordExportFailure(sink.Name(), FailureReason(err))
		s.logger.Error(ctx, "batch export failed",
			logger.String("sink", sink.Name()),
			logger.Int("events", len(batch)),
			logger.Error(err),
		)
		return
	}

	for _, e := range batch {
		metrics.RecordEventExported(sink.Name(), string(e.Entity), string(e.Action), e.AppID)
	}
	s.logger.Info(ctx, "batch exported",
		logger.String("sink", sink.Name()),
		logger.Int("events", len(batch)),
	)
}
