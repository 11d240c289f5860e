// Package service provides the core ingestion service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/beacon/internal/adapters/buffer"
	"github.com/okian/beacon/internal/adapters/export"
	"github.com/okian/beacon/internal/adapters/export/parquet"
	"github.com/okian/beacon/internal/adapters/export/sqlite"
	"github.com/okian/beacon/internal/domain/event"
	"github.com/okian/beacon/pkg/logger"
	"github.com/okian/beacon/pkg/metrics"
)

// Service owns the validate -> buffer -> flush -> export pipeline.
type Service struct {
	mu sync.RWMutex

	// Core components
	buffer    *buffer.Buffer
	scheduler *export.Scheduler
	sinks     []export.Sink

	// Configuration
	flushInterval  time.Duration
	shutdownGrace  time.Duration
	bufferCapacity int
	databaseURL    string
	parquetDir     string
	parquetBucket  string

	// State
	started bool

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithFlushInterval sets the period between drain/export cycles.
func WithFlushInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.flushInterval = d
		}
	}
}

// WithShutdownGrace bounds the final flush at shutdown.
func WithShutdownGrace(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.shutdownGrace = d
		}
	}
}

// WithBufferCapacity sets the initial capacity of the event buffer.
func WithBufferCapacity(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.bufferCapacity = n
		}
	}
}

// WithDatabaseURL enables the relational sink. An empty DSN leaves the
// sink disabled.
func WithDatabaseURL(dsn string) Option {
	return func(s *Service) {
		s.databaseURL = dsn
	}
}

// WithParquetDir enables the columnar sink writing batch files to dir.
// An empty dir leaves the sink disabled.
func WithParquetDir(dir string) Option {
	return func(s *Service) {
		s.parquetDir = dir
	}
}

// WithParquetBucket mirrors batch files into a GCS bucket. Only
// meaningful together with WithParquetDir.
func WithParquetBucket(bucket string) Option {
	return func(s *Service) {
		s.parquetBucket = bucket
	}
}

// WithSinks injects pre-built sinks, bypassing DSN-driven construction.
func WithSinks(sinks ...export.Sink) Option {
	return func(s *Service) {
		s.sinks = sinks
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		flushInterval:  10 * time.Second,
		shutdownGrace:  15 * time.Second,
		bufferCapacity: 1024,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start builds the buffer, the configured sinks and the flush scheduler,
// then launches the scheduler loop.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting ingestion service...")

	s.buffer = buffer.New(
		buffer.WithInitialCapacity(s.bufferCapacity),
	)

	if err := s.buildSinks(ctx); err != nil {
		return err
	}

	s.scheduler = export.NewScheduler(s.buffer, s.sinks,
		export.WithInterval(s.flushInterval),
		export.WithShutdownGrace(s.shutdownGrace),
		export.WithLogger(s.logger.Named("scheduler")),
	)
	go s.scheduler.Run(context.WithoutCancel(ctx))

	s.started = true

	sinkNames := make([]string, 0, len(s.sinks))
	for _, sink := range s.sinks {
		sinkNames = append(sinkNames, sink.Name())
	}
	s.logger.Info(ctx, "ingestion service started",
		logger.Duration("flushInterval", s.flushInterval),
		logger.Int("bufferCapacity", s.bufferCapacity),
		logger.Any("sinks", sinkNames),
	)

	return nil
}

// buildSinks assembles the export targets from configuration. Injected
// sinks win; otherwise each sink is enabled by its setting being present.
func (s *Service) buildSinks(ctx context.Context) error {
	if s.sinks != nil {
		return nil
	}

	if s.databaseURL != "" {
		sink, err := sqlite.New(s.databaseURL)
		if err != nil {
			return fmt.Errorf("failed to open relational sink: %w", err)
		}
		s.sinks = append(s.sinks, sink)
	} else {
		s.logger.Info(ctx, "no database URL configured, relational sink disabled")
	}

	if s.parquetDir != "" {
		var opts []parquet.Option
		if s.parquetBucket != "" {
			uploader, err := parquet.NewGCSUploader(ctx, s.parquetBucket)
			if err != nil {
				return fmt.Errorf("failed to open bucket uploader: %w", err)
			}
			opts = append(opts, parquet.WithUploader(uploader))
		}
		sink, err := parquet.New(s.parquetDir, opts...)
		if err != nil {
			return fmt.Errorf("failed to open columnar sink: %w", err)
		}
		s.sinks = append(s.sinks, sink)
	}

	return nil
}

// Stop shuts the scheduler down, which performs one final drain/export
// pass, then closes every sink.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.logger.Info(ctx, "stopping ingestion service...")

	if err := s.scheduler.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "scheduler did not stop cleanly", logger.Error(err))
	}

	for _, sink := range s.sinks {
		if err := sink.Close(); err != nil {
			s.logger.Warn(ctx, "failed to close sink",
				logger.String("sink", sink.Name()),
				logger.Error(err),
			)
		}
	}

	s.started = false
	s.logger.Info(ctx, "ingestion service stopped")
}

// Ingest validates one decoded payload and admits it to the buffer.
// Rejections and admissions are both counted.
func (s *Service) Ingest(ctx context.Context, raw map[string]any) (event.Event, error) {
	e, err := event.Validate(raw)
	if err != nil {
		metrics.RecordEventRejected(event.Reason(err))
		s.logger.Debug(ctx, "event rejected",
			logger.String("reason", event.Reason(err)),
			logger.Error(err),
		)
		return event.Event{}, err
	}

	s.buffer.Push(ctx, e)
	metrics.RecordEventIngested(string(e.Entity), string(e.Action), e.AppID)

	return e, nil
}

// Running reports whether the flush scheduler loop is alive.
func (s *Service) Running() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started && s.scheduler != nil && s.scheduler.Running()
}

// BufferLen returns the number of events currently awaiting flush.
func (s *Service) BufferLen(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.buffer == nil {
		return 0
	}
	return s.buffer.Len(ctx)
}
