// Package metrics exports Prometheus counters for HTTP traffic, the cache
// and inventory sync runs.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JonMunkholm/invsync/internal/cache"
	"github.com/JonMunkholm/invsync/internal/core"
)

var cacheStates = []cache.State{
	cache.StateDisabled,
	cache.StateConnecting,
	cache.StateConnected,
	cache.StateDegraded,
}

// Metrics owns every collector. It satisfies cache.Recorder and
// inventory.Recorder.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	cacheHits   *prometheus.CounterVec
	cacheMisses *prometheus.CounterVec
	cacheErrors *prometheus.CounterVec
	cacheState  *prometheus.GaugeVec

	syncRuns     *prometheus.CounterVec
	syncDuration *prometheus.HistogramVec
	changes      *prometheus.CounterVec
	fetchErrors  *prometheus.CounterVec
}

// New creates the collectors on a private registry so tests can build as
// many instances as they like.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests.",
			},
			[]string{"method", "endpoint", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request durations.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
			},
			[]string{"method", "endpoint", "status"},
		),
		cacheHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "invsync_cache_hits_total",
				Help: "Cache hits by data class.",
			},
			[]string{"class"},
		),
		cacheMisses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "invsync_cache_misses_total",
				Help: "Cache misses by data class.",
			},
			[]string{"class"},
		),
		cacheErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "invsync_cache_errors_total",
				Help: "Cache backend errors by operation.",
			},
			[]string{"op"},
		),
		cacheState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "invsync_cache_state",
				Help: "1 for the cache's current connection state, 0 otherwise.",
			},
			[]string{"state"},
		),
		syncRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "invsync_sync_runs_total",
				Help: "Supplier sync runs by final status.",
			},
			[]string{"supplier", "status"},
		),
		syncDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "invsync_sync_duration_seconds",
				Help:    "Supplier sync run durations.",
				Buckets: []float64{1, 5, 15, 30, 60, 300, 900, 1800},
			},
			[]string{"supplier"},
		),
		changes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "invsync_inventory_changes_total",
				Help: "Detected inventory changes by supplier and type.",
			},
			[]string{"supplier", "type"},
		),
		fetchErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "invsync_supplier_fetch_errors_total",
				Help: "Failed supplier product fetches.",
			},
			[]string{"supplier"},
		),
	}

	m.registry.MustRegister(
		m.httpRequests, m.httpDuration,
		m.cacheHits, m.cacheMisses, m.cacheErrors, m.cacheState,
		m.syncRuns, m.syncDuration, m.changes, m.fetchErrors,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	m.RecordState(string(cache.StateDisabled))
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordRequest records one HTTP request. endpoint should be the route
// pattern, not the raw path, to keep label cardinality bounded.
func (m *Metrics) RecordRequest(method, endpoint string, statusCode int, duration time.Duration) {
	status := classifyStatus(statusCode)
	m.httpRequests.WithLabelValues(method, endpoint, status).Inc()
	m.httpDuration.WithLabelValues(method, endpoint, status).Observe(duration.Seconds())
}

func classifyStatus(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return "2xx"
	case statusCode >= 300 && statusCode < 400:
		return "3xx"
	case statusCode >= 400 && statusCode < 500:
		return "4xx"
	case statusCode >= 500 && statusCode < 600:
		return "5xx"
	}
	return "unknown"
}

/* ----------------------------------------
	cache.Recorder
---------------------------------------- */

func (m *Metrics) RecordHit(class string) {
	m.cacheHits.WithLabelValues(class).Inc()
}

func (m *Metrics) RecordMiss(class string) {
	m.cacheMisses.WithLabelValues(class).Inc()
}

func (m *Metrics) RecordError(op string) {
	m.cacheErrors.WithLabelValues(op).Inc()
}

func (m *Metrics) RecordState(state string) {
	for _, st := range cacheStates {
		v := 0.0
		if string(st) == state {
			v = 1
		}
		m.cacheState.WithLabelValues(string(st)).Set(v)
	}
}

/* ----------------------------------------
	inventory.Recorder
---------------------------------------- */

func (m *Metrics) RecordSync(supplierID string, status core.SyncStatus, d time.Duration) {
	m.syncRuns.WithLabelValues(supplierID, string(status)).Inc()
	m.syncDuration.WithLabelValues(supplierID).Observe(d.Seconds())
}

func (m *Metrics) RecordChange(supplierID string, t core.ChangeType) {
	m.changes.WithLabelValues(supplierID, string(t)).Inc()
}

func (m *Metrics) RecordFetchError(supplierID string) {
	m.fetchErrors.WithLabelValues(supplierID).Inc()
}
