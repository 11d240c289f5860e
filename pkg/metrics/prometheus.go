// Package metrics provides Prometheus metrics for the beacon collector.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the collector.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	registry         prometheus.Registerer

	// Pipeline counters, labeled per the ingestion contract.
	eventsIngested *prometheus.CounterVec
	eventsRejected *prometheus.CounterVec
	eventsExported *prometheus.CounterVec
	exportFailures *prometheus.CounterVec

	// Flush cycle health.
	flushCyclesSkipped prometheus.Counter
	flushDuration      prometheus.Histogram
	bufferSize         prometheus.Gauge

	// HTTP surface.
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Process health.
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "beacon",
		subsystem:        "collector",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.eventsIngested = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "events_ingested_total",
		Help:      "Events accepted past validation, by entity/action/app id",
	}, []string{"entity", "action", "app_id"})

	m.eventsRejected = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "events_rejected_total",
		Help:      "Events rejected at validation, by failure kind",
	}, []string{"reason"})

	m.eventsExported = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "events_exported_total",
		Help:      "Events durably written, by sink and entity/action/app id",
	}, []string{"sink", "entity", "action", "app_id"})

	m.exportFailures = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "export_failures_total",
		Help:      "Failed batch exports, by sink and failure kind",
	}, []string{"sink", "reason"})

	m.flushCyclesSkipped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "flush_cycles_skipped_total",
		Help:      "Scheduler ticks skipped because a flush cycle was still in flight",
	})

	m.flushDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "flush_duration_milliseconds",
		Help:      "Histogram of full drain+export cycle duration in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.bufferSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "buffer_size",
		Help:      "Events currently accumulating in the buffer",
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_requests_total",
		Help:      "HTTP requests, by endpoint, method and status code",
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_milliseconds",
		Help:      "Histogram of HTTP request duration in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_memory_usage_bytes",
		Help:      "Current heap allocation in bytes",
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_goroutine_count",
		Help:      "Current number of goroutines",
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_gc_pause_milliseconds",
		Help:      "Histogram of average GC pause time in milliseconds",
		Buckets:   m.histogramBuckets,
	})
}

// GetRegistry returns the custom registry backing the global manager,
// for use with promhttp.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// RecordEventIngested counts one event accepted past validation.
func RecordEventIngested(entity, action, appID string) {
	if globalManager.enabled {
		globalManager.eventsIngested.WithLabelValues(entity, action, appID).Inc()
	}
}

// RecordEventRejected counts one validation rejection by failure kind.
func RecordEventRejected(reason string) {
	if globalManager.enabled {
		globalManager.eventsRejected.WithLabelValues(reason).Inc()
	}
}

// RecordEventExported counts one event written by the named sink.
func RecordEventExported(sink, entity, action, appID string) {
	if globalManager.enabled {
		globalManager.eventsExported.WithLabelValues(sink, entity, action, appID).Inc()
	}
}

// RecordExportFailure counts one failed batch export for the named sink.
func RecordExportFailure(sink, reason string) {
	if globalManager.enabled {
		globalManager.exportFailures.WithLabelValues(sink, reason).Inc()
	}
}

// RecordFlushSkipped counts a scheduler tick that found a cycle in flight.
func RecordFlushSkipped() {
	if globalManager.enabled {
		globalManager.flushCyclesSkipped.Inc()
	}
}

// RecordFlushDuration observes one full drain+export cycle in milliseconds.
func RecordFlushDuration(ms float64) {
	if globalManager.enabled {
		globalManager.flushDuration.Observe(ms)
	}
}

// UpdateBufferSize sets the current accumulating-buffer length.
func UpdateBufferSize(n int) {
	if globalManager.enabled {
		globalManager.bufferSize.Set(float64(n))
	}
}

// RecordHTTPRequest counts one HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if globalManager.enabled {
		globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	}
}

// RecordHTTPRequestDuration observes one HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, ms float64) {
	if globalManager.enabled {
		globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(ms)
	}
}

// UpdateSystemMemoryUsage sets the current heap allocation.
func UpdateSystemMemoryUsage(bytes uint64) {
	if globalManager.enabled {
		globalManager.systemMemoryUsage.Set(float64(bytes))
	}
}

// UpdateSystemGoroutineCount sets the current goroutine count.
func UpdateSystemGoroutineCount(n int) {
	if globalManager.enabled {
		globalManager.systemGoroutineCount.Set(float64(n))
	}
}

// RecordSystemGCPauseTime observes an average GC pause in milliseconds.
func RecordSystemGCPauseTime(ms float64) {
	if globalManager.enabled {
		globalManager.systemGCPauseTime.Observe(ms)
	}
}
