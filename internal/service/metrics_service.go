package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/sma-invigilation-api/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation and provides lightweight snapshots for API consumption.
type MetricsService struct {
	registry         *prometheus.Registry
	handler          http.Handler
	requestDuration  *prometheus.HistogramVec
	requestTotal     *prometheus.CounterVec
	cacheLatency     prometheus.Observer
	cacheWrite       prometheus.Observer
	cacheHitRatio    prometheus.Gauge
	cacheHits        prometheus.Counter
	cacheMisses      prometheus.Counter
	runDuration      *prometheus.HistogramVec
	runsTotal        *prometheus.CounterVec
	assignmentsTotal prometheus.Counter
	shortagesTotal   prometheus.Counter
	droppedRows      *prometheus.CounterVec
	exportJobs       *prometheus.CounterVec
	exportQueue      prometheus.Gauge

	cacheHitCount        uint64
	cacheMissCount       uint64
	requestCount         uint64
	requestDurationTotal uint64
	runCount             uint64
	shortageCount        uint64
	queueDepth           int64
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	runDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "invigilation_run_duration_seconds",
		Help:    "Duration of assignment runs",
		Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
	}, []string{"cache"})

	runsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "invigilation_runs_total",
		Help: "Total number of assignment runs",
	}, []string{"cache"})

	assignmentsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "invigilation_assignments_total",
		Help: "Total supervisor slots filled",
	})

	shortagesTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "invigilation_shortages_total",
		Help: "Total under-staffed sessions",
	})

	droppedRows := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "invigilation_dropped_rows_total",
		Help: "Input rows excluded before a run",
	}, []string{"table"})

	exportJobs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "invigilation_export_jobs_total",
		Help: "Export jobs by outcome",
	}, []string{"kind", "format", "status"})

	exportQueue := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "invigilation_export_queue_depth",
		Help: "Export jobs waiting or running",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(
		requestDuration, requestTotal,
		cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses,
		runDuration, runsTotal, assignmentsTotal, shortagesTotal, droppedRows,
		exportJobs, exportQueue, goroutines,
	)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:         registry,
		handler:          handler,
		requestDuration:  requestDuration,
		requestTotal:     requestTotal,
		cacheLatency:     cacheLatency,
		cacheWrite:       cacheWrite,
		cacheHitRatio:    cacheHitRatio,
		cacheHits:        cacheHits,
		cacheMisses:      cacheMisses,
		runDuration:      runDuration,
		runsTotal:        runsTotal,
		assignmentsTotal: assignmentsTotal,
		shortagesTotal:   shortagesTotal,
		droppedRows:      droppedRows,
		exportJobs:       exportJobs,
		exportQueue:      exportQueue,
	}
}

// Registry exposes the underlying registry, mainly for tests.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics and aggregates simple stats for snapshots.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
}

// RecordCacheOperation records cache hit/miss metrics and updates hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	if m.cacheLatency != nil {
		m.cacheLatency.Observe(duration.Seconds())
	}
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	total := hits + misses
	if total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil || m.cacheWrite == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ObserveRun records one assignment run. Cached runs count towards the run
// totals but not towards assignment and shortage totals.
func (m *MetricsService) ObserveRun(duration time.Duration, cacheHit bool, assignments, shortages int) {
	if m == nil {
		return
	}
	label := "miss"
	if cacheHit {
		label = "hit"
	}
	m.runDuration.WithLabelValues(label).Observe(duration.Seconds())
	m.runsTotal.WithLabelValues(label).Inc()
	atomic.AddUint64(&m.runCount, 1)
	if cacheHit {
		return
	}
	m.assignmentsTotal.Add(float64(assignments))
	m.shortagesTotal.Add(float64(shortages))
	atomic.AddUint64(&m.shortageCount, uint64(shortages))
}

// RecordDroppedRows counts input rows excluded from a run.
func (m *MetricsService) RecordDroppedRows(table string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.droppedRows.WithLabelValues(table).Add(float64(count))
}

// RecordExportJob counts an export job transition.
func (m *MetricsService) RecordExportJob(kind, format, status string) {
	if m == nil {
		return
	}
	m.exportJobs.WithLabelValues(kind, format, status).Inc()
}

// SetExportQueueDepth publishes the number of pending export jobs.
func (m *MetricsService) SetExportQueueDepth(depth int) {
	if m == nil {
		return
	}
	m.exportQueue.Set(float64(depth))
	atomic.StoreInt64(&m.queueDepth, int64(depth))
}

// Snapshot returns aggregated metrics suitable for the admin endpoint.
func (m *MetricsService) Snapshot() models.SystemMetrics {
	if m == nil {
		return models.SystemMetrics{}
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)

	var cacheRatio float64
	totalLookups := hits + misses
	if totalLookups > 0 {
		cacheRatio = float64(hits) / float64(totalLookups)
	}

	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}

	return models.SystemMetrics{
		CacheHitRatio:            cacheRatio,
		CacheHits:                hits,
		CacheMisses:              misses,
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgRequestMs,
		RunsTotal:                atomic.LoadUint64(&m.runCount),
		ShortagesTotal:           atomic.LoadUint64(&m.shortageCount),
		ExportQueueDepth:         atomic.LoadInt64(&m.queueDepth),
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}
