// Package metrics defines the Prometheus collectors used by the indexer,
// the query engine and the HTTP surface, and exposes a scrape handler.
//
// All recording helpers are safe to call on a nil *Metrics, so core packages
// can run without instrumentation.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the application.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	TasksSubmittedTotal  prometheus.Counter
	TasksCompletedTotal  *prometheus.CounterVec
	QueuePending         prometheus.Gauge
	FilesIndexedTotal    *prometheus.CounterVec
	PagesCrawledTotal    *prometheus.CounterVec
	QueriesTotal         *prometheus.CounterVec
	SearchLatency        *prometheus.HistogramVec
	SearchResultsCount   prometheus.Histogram
	CacheHitsTotal       prometheus.Counter
	CacheMissesTotal     prometheus.Counter
	IndexWords           prometheus.Gauge
	IndexLocations       prometheus.Gauge
	CircuitBreakerState  *prometheus.GaugeVec
}

// New creates all collectors and registers them with reg. A nil reg
// registers with the default Prometheus registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		TasksSubmittedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "workqueue_tasks_submitted_total",
				Help: "Total tasks submitted to the work queue.",
			},
		),
		TasksCompletedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "workqueue_tasks_completed_total",
				Help: "Total tasks completed by the work queue, by status (ok, error).",
			},
			[]string{"status"},
		),
		QueuePending: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "workqueue_pending_tasks",
				Help: "Tasks submitted but not yet completed.",
			},
		),
		FilesIndexedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "files_indexed_total",
				Help: "Total text files processed by the index builder, by status.",
			},
			[]string{"status"},
		),
		PagesCrawledTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pages_crawled_total",
				Help: "Total web pages processed by the crawler, by status.",
			},
			[]string{"status"},
		),
		QueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "queries_total",
				Help: "Query lines handled by the query engine by outcome (evaluated, duplicate, empty).",
			},
			[]string{"outcome"},
		),
		SearchLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "search_latency_seconds",
				Help:    "Index search latency in seconds.",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"mode"},
		),
		SearchResultsCount: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "search_results_count",
				Help:    "Number of results returned per search.",
				Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250},
			},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_hits_total",
				Help: "Total number of result cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_misses_total",
				Help: "Total number of result cache misses.",
			},
		),
		IndexWords: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "index_words",
				Help: "Distinct words in the inverted index.",
			},
		),
		IndexLocations: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "index_locations",
				Help: "Distinct locations in the inverted index.",
			},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open).",
			},
			[]string{"name"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.TasksSubmittedTotal,
		m.TasksCompletedTotal,
		m.QueuePending,
		m.FilesIndexedTotal,
		m.PagesCrawledTotal,
		m.QueriesTotal,
		m.SearchLatency,
		m.SearchResultsCount,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.IndexWords,
		m.IndexLocations,
		m.CircuitBreakerState,
	)

	return m
}

// Handler returns the scrape handler for g, or for the default gatherer
// when g is nil.
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

func (m *Metrics) TaskSubmitted(pending int) {
	if m == nil {
		return
	}
	m.TasksSubmittedTotal.Inc()
	m.QueuePending.Set(float64(pending))
}

func (m *Metrics) TaskCompleted(pending int, failed bool) {
	if m == nil {
		return
	}
	m.TasksCompletedTotal.WithLabelValues(status(failed)).Inc()
	m.QueuePending.Set(float64(pending))
}

func (m *Metrics) FileIndexed(failed bool) {
	if m == nil {
		return
	}
	m.FilesIndexedTotal.WithLabelValues(status(failed)).Inc()
}

func (m *Metrics) PageCrawled(failed bool) {
	if m == nil {
		return
	}
	m.PagesCrawledTotal.WithLabelValues(status(failed)).Inc()
}

func (m *Metrics) QueryHandled(outcome string) {
	if m == nil {
		return
	}
	m.QueriesTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) SearchObserved(mode string, seconds float64, results int) {
	if m == nil {
		return
	}
	m.SearchLatency.WithLabelValues(mode).Observe(seconds)
	m.SearchResultsCount.Observe(float64(results))
}

func (m *Metrics) CacheLookup(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheHitsTotal.Inc()
		return
	}
	m.CacheMissesTotal.Inc()
}

func (m *Metrics) IndexSize(words, locations int) {
	if m == nil {
		return
	}
	m.IndexWords.Set(float64(words))
	m.IndexLocations.Set(float64(locations))
}

func (m *Metrics) BreakerState(name string, state int) {
	if m == nil {
		return
	}
	m.CircuitBreakerState.WithLabelValues(name).Set(float64(state))
}

func status(failed bool) string {
	if failed {
		return "error"
	}
	return "ok"
}
