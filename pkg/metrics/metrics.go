package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "calltriage"

type Metrics struct {
	registry *prometheus.Registry

	// HTTP
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	rateLimitDenied     *prometheus.CounterVec

	// Triage pipeline
	analysesTotal      *prometheus.CounterVec
	priorityScore      prometheus.Histogram
	fallbacksTotal     prometheus.Counter
	completionDuration *prometheus.HistogramVec
	storeErrorsTotal   *prometheus.CounterVec
	recordCacheTotal   *prometheus.CounterVec

	// Store snapshot, refreshed by the stats job
	storedEmergencies *prometheus.GaugeVec
	storedByPriority  *prometheus.GaugeVec
}

// NewMetrics registers every collector on a private registry, plus the Go
// runtime and process collectors.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,

		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		rateLimitDenied: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limit_denied_total",
				Help:      "Requests rejected by the rate limiter",
			},
			[]string{"path"},
		),

		analysesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "analyses_total",
				Help:      "Emergency analyses stored, by emergency type",
			},
			[]string{"emergency_type"},
		),
		priorityScore: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "priority_score",
				Help:      "Distribution of computed priority scores",
				Buckets:   prometheus.LinearBuckets(0, 10, 11),
			},
		),
		fallbacksTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "normalizer_fallbacks_total",
				Help:      "Model responses replaced by the fallback analysis",
			},
		),
		completionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "completion_duration_seconds",
				Help:      "Latency of model completion calls",
				Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30},
			},
			[]string{"outcome"},
		),
		storeErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_errors_total",
				Help:      "Failed store operations",
			},
			[]string{"operation"},
		),
		recordCacheTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "record_cache_lookups_total",
				Help:      "Record cache lookups by result",
			},
			[]string{"result"},
		),

		storedEmergencies: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "stored_emergencies",
				Help:      "Stored emergencies by type",
			},
			[]string{"emergency_type"},
		),
		storedByPriority: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "stored_emergencies_by_priority",
				Help:      "Stored emergencies by priority band",
			},
			[]string{"band"},
		),
	}
}

func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

func (m *Metrics) RecordRateLimited(path string) {
	m.rateLimitDenied.WithLabelValues(path).Inc()
}

func (m *Metrics) RecordAnalysis(emergencyType string, score int) {
	m.analysesTotal.WithLabelValues(emergencyType).Inc()
	m.priorityScore.Observe(float64(score))
}

func (m *Metrics) RecordFallback() {
	m.fallbacksTotal.Inc()
}

func (m *Metrics) RecordCompletion(outcome string, duration time.Duration) {
	m.completionDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

func (m *Metrics) RecordStoreError(operation string) {
	m.storeErrorsTotal.WithLabelValues(operation).Inc()
}

func (m *Metrics) RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.recordCacheTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) SetStoredEmergencies(emergencyType string, count int64) {
	m.storedEmergencies.WithLabelValues(emergencyType).Set(float64(count))
}

func (m *Metrics) SetStoredByPriority(band string, count int64) {
	m.storedByPriority.WithLabelValues(band).Set(float64(count))
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
