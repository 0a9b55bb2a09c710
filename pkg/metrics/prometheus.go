// Package metrics provides Prometheus metrics for the ConnectHub service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Latency buckets in milliseconds. Matching runs in-process so the low end
// matters more than prometheus.DefBuckets would allow.
var defaultBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000} //nolint:gochecknoglobals

// Manager owns every collector the service exports.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	rateLimited         *prometheus.CounterVec

	// Matching
	matchRequests   prometheus.Counter
	matchErrors     prometheus.Counter
	matchLatency    prometheus.Histogram
	matchEligible   prometheus.Histogram
	matchCandidates prometheus.Histogram

	// Ingestion
	commitsAccepted  prometheus.Counter
	commitsDuplicate prometheus.Counter
	commitsRejected  prometheus.Counter
	queueSize        prometheus.Gauge
	queueCapacity    prometheus.Gauge

	// Workers
	workerCount     prometheus.Gauge
	workerProcessed prometheus.Counter
	workerErrors    *prometheus.CounterVec

	// Store
	storeLatency      *prometheus.HistogramVec
	contributorsTotal prometheus.Gauge

	// Auth
	authFailures *prometheus.CounterVec

	// System
	memoryUsage    prometheus.Gauge
	goroutineCount prometheus.Gauge
	gcPause        prometheus.Gauge
}

var (
	globalManager  *Manager                     //nolint:gochecknoglobals // process-wide metrics
	customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // keeps Go runtime collectors out
)

func init() { //nolint:gochecknoinits
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates and registers the collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "connecthub",
		subsystem:        "",
		histogramBuckets: defaultBuckets,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() { //nolint:funlen
	auto := promauto.With(m.registry)

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "http_requests_total",
		Help: "HTTP requests by endpoint, method and status code",
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name:    "http_request_duration_milliseconds",
		Help:    "HTTP request duration in milliseconds",
		Buckets: m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.rateLimited = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "http_rate_limited_total",
		Help: "Requests rejected by the rate limiter",
	}, []string{"endpoint"})

	m.matchRequests = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "match_requests_total",
		Help: "Candidate matching requests served",
	})

	m.matchErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "match_errors_total",
		Help: "Candidate matching requests that failed to load their inputs",
	})

	m.matchLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name:    "match_latency_milliseconds",
		Help:    "Time spent scoring a candidate pool",
		Buckets: m.histogramBuckets,
	})

	m.matchEligible = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name:    "match_eligible_candidates",
		Help:    "Employees passing the primary technology gate per request",
		Buckets: prometheus.ExponentialBuckets(1, 2, 10),
	})

	m.matchCandidates = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name:    "match_returned_candidates",
		Help:    "Candidates returned per request",
		Buckets: prometheus.LinearBuckets(0, 1, 11),
	})

	m.commitsAccepted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "ingest_commits_accepted_total",
		Help: "Commits accepted for ingestion",
	})

	m.commitsDuplicate = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "ingest_commits_duplicate_total",
		Help: "Commits skipped because their hash was already seen",
	})

	m.commitsRejected = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "ingest_commits_rejected_total",
		Help: "Commits rejected by queue backpressure",
	})

	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "ingest_queue_size",
		Help: "Commits waiting in the ingestion queue",
	})

	m.queueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "ingest_queue_capacity",
		Help: "Capacity of the ingestion queue",
	})

	m.workerCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "ingest_worker_count",
		Help: "Running ingestion workers",
	})

	m.workerProcessed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "ingest_worker_processed_total",
		Help: "Commits applied to the store by workers",
	})

	m.workerErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "ingest_worker_errors_total",
		Help: "Worker failures by stage",
	}, []string{"stage"})

	m.storeLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name:    "store_operation_latency_milliseconds",
		Help:    "Latency of store operations",
		Buckets: m.histogramBuckets,
	}, []string{"driver", "op"})

	m.contributorsTotal = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "contributors_total",
		Help: "Contributors tracked by the ranking board",
	})

	m.authFailures = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "auth_failures_total",
		Help: "Rejected logins and tokens by reason",
	}, []string{"reason"})

	m.memoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "system_memory_bytes",
		Help: "Heap bytes allocated",
	})

	m.goroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "system_goroutines",
		Help: "Live goroutines",
	})

	m.gcPause = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "system_gc_pause_milliseconds",
		Help: "Average GC pause",
	})
}

// RecordHTTPRequest counts one HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration observes one HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordRateLimited counts a request refused by the limiter.
func RecordRateLimited(endpoint string) {
	globalManager.rateLimited.WithLabelValues(endpoint).Inc()
}

// RecordMatch records one scoring run.
func RecordMatch(latencyMs float64, eligible, returned int) {
	globalManager.matchRequests.Inc()
	globalManager.matchLatency.Observe(latencyMs)
	globalManager.matchEligible.Observe(float64(eligible))
	globalManager.matchCandidates.Observe(float64(returned))
}

// RecordMatchError counts a match request whose inputs could not be loaded.
func RecordMatchError() {
	globalManager.matchErrors.Inc()
}

// RecordCommitsAccepted adds n accepted commits.
func RecordCommitsAccepted(n int) {
	globalManager.commitsAccepted.Add(float64(n))
}

// RecordCommitsDuplicate adds n duplicate commits.
func RecordCommitsDuplicate(n int) {
	globalManager.commitsDuplicate.Add(float64(n))
}

// RecordCommitsRejected adds n commits refused by backpressure.
func RecordCommitsRejected(n int) {
	globalManager.commitsRejected.Add(float64(n))
}

// UpdateQueueSize sets the queue length gauge.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the queue capacity gauge.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateWorkerCount sets the number of running workers.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordWorkerProcessed counts one applied commit.
func RecordWorkerProcessed() {
	globalManager.workerProcessed.Inc()
}

// RecordWorkerError counts a worker failure at the given stage.
func RecordWorkerError(stage string) {
	globalManager.workerErrors.WithLabelValues(stage).Inc()
}

// RecordStoreLatency observes a store operation.
func RecordStoreLatency(driver, op string, latencyMs float64) {
	globalManager.storeLatency.WithLabelValues(driver, op).Observe(latencyMs)
}

// UpdateContributorCount sets the contributors gauge.
func UpdateContributorCount(count int) {
	globalManager.contributorsTotal.Set(float64(count))
}

// RecordAuthFailure counts a rejected login or token.
func RecordAuthFailure(reason string) {
	globalManager.authFailures.WithLabelValues(reason).Inc()
}

// UpdateSystemMemoryUsage sets the allocated heap size.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.memoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine gauge.
func UpdateSystemGoroutineCount(n int) {
	globalManager.goroutineCount.Set(float64(n))
}

// RecordSystemGCPauseTime sets the average GC pause.
func RecordSystemGCPauseTime(ms float64) {
	globalManager.gcPause.Set(ms)
}

// GetRegistry returns the registry served on /healthz.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
