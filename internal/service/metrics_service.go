package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/academic-scheduler/internal/scheduling"
)

// MetricsService encapsulates Prometheus instrumentation for the HTTP layer
// and the scheduling workflows.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Histogram
	cacheWrite      prometheus.Histogram
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	dbQueryDuration *prometheus.HistogramVec

	conflicts        *prometheus.CounterVec
	generatorRuns    *prometheus.CounterVec
	generatorOutcome *prometheus.CounterVec
	generatorLatency prometheus.Histogram
	notifications    *prometheus.CounterVec
	lockWait         *prometheus.HistogramVec
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	m := &MetricsService{
		registry: registry,
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		cacheLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cache_latency_seconds",
			Help:    "Latency for cache lookups",
			Buckets: prometheus.DefBuckets,
		}),
		cacheWrite: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cache_write_seconds",
			Help:    "Latency for cache set operations",
			Buckets: prometheus.DefBuckets,
		}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total cache hits",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total cache misses",
		}),
		dbQueryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Duration of database queries",
			Buckets: prometheus.DefBuckets,
		}, []string{"query"}),
		conflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scheduling_conflicts_total",
			Help: "Conflicts detected while validating placements, by resource",
		}, []string{"resource"}),
		generatorRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "generator_runs_total",
			Help: "Timetable generator runs by mode",
		}, []string{"mode"}),
		generatorOutcome: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "generator_requirements_total",
			Help: "Requirements processed by the generator, by final state",
		}, []string{"state"}),
		generatorLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "generator_duration_seconds",
			Help:    "Wall time of a generator run",
			Buckets: prometheus.DefBuckets,
		}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notifications_total",
			Help: "Notification deliveries by category and result",
		}, []string{"category", "result"}),
		lockWait: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "resource_lock_wait_seconds",
			Help:    "Time spent acquiring resource locks",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5},
		}, []string{"result"}),
	}

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(
		m.requestDuration, m.requestTotal,
		m.cacheLatency, m.cacheWrite, m.cacheHits, m.cacheMisses,
		m.dbQueryDuration, m.conflicts, m.generatorRuns, m.generatorOutcome,
		m.generatorLatency, m.notifications, m.lockWait, goroutines,
	)
	m.handler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	return m
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

// Registry returns the underlying registry.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheOperation records cache hit/miss metrics.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
	} else {
		m.cacheMisses.Inc()
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ObserveDBQuery records database query timing.
func (m *MetricsService) ObserveDBQuery(label string, duration time.Duration) {
	if m == nil {
		return
	}
	m.dbQueryDuration.WithLabelValues(label).Observe(duration.Seconds())
}

// RecordConflicts counts every conflict of a rejected placement.
func (m *MetricsService) RecordConflicts(conflicts []scheduling.Conflict) {
	if m == nil {
		return
	}
	for _, c := range conflicts {
		m.conflicts.WithLabelValues(string(c.Resource)).Inc()
	}
}

// ObserveGeneratorRun records one generator run and the state of each requirement.
func (m *MetricsService) ObserveGeneratorRun(mode string, states []string, duration time.Duration) {
	if m == nil {
		return
	}
	m.generatorRuns.WithLabelValues(mode).Inc()
	m.generatorLatency.Observe(duration.Seconds())
	for _, state := range states {
		m.generatorOutcome.WithLabelValues(state).Inc()
	}
}

// RecordNotification counts a delivery attempt.
func (m *MetricsService) RecordNotification(category string, ok bool) {
	if m == nil {
		return
	}
	result := "sent"
	if !ok {
		result = "failed"
	}
	m.notifications.WithLabelValues(category, result).Inc()
}

// ObserveLockWait records how long lock acquisition took.
func (m *MetricsService) ObserveLockWait(duration time.Duration, err error) {
	if m == nil {
		return
	}
	result := "acquired"
	if err != nil {
		result = "timeout"
	}
	m.lockWait.WithLabelValues(result).Observe(duration.Seconds())
}
