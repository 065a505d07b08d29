// Package metrics provides Prometheus metrics for the doppel similarity service.
package metrics

import (
	"fmt"
	"runtime"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Comparison outcome labels.
const (
	OutcomeMatch   = "match"
	OutcomeNoMatch = "no_match"
	OutcomeError   = "error"
)

var (
	scoreBuckets    = prometheus.LinearBuckets(0, 10, 11)
	distanceBuckets = []float64{0.005, 0.01, 0.02, 0.03, 0.05, 0.075, 0.1, 0.15, 0.2, 0.3, 0.5}
	latencyBuckets  = []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 50, 100, 250}
)

// Manager owns every collector of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Comparison quality
	comparisons       *prometheus.CounterVec
	comparisonErrors  *prometheus.CounterVec
	doppelgangers     prometheus.Counter
	reflections       prometheus.Counter
	comparisonLatency prometheus.Histogram
	overallScore      prometheus.Histogram
	landmarkDistance  prometheus.Histogram
	duplicates        prometheus.Counter

	// Queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueEnqueued      prometheus.Counter
	queueDequeued      prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// Workers
	workerCount             prometheus.Gauge
	workerActive            prometheus.Gauge
	workerProcessingLatency prometheus.Histogram

	// Repository
	repositoryRecords      prometheus.Gauge
	repositoryEvictions    prometheus.Counter
	repositoryQueryLatency prometheus.Histogram

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Runtime
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // registry without default Go collectors

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates and registers a full set of collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "doppel",
		subsystem:        "similarity",
		histogramBuckets: latencyBuckets,
		constLabels:      map[string]string{},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels}
}

func (m *Manager) gauge(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels}
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels, Buckets: buckets}
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.comparisons = auto.NewCounterVec(m.counter("comparisons_total", "Comparisons by outcome"), []string{"outcome"})
	m.comparisonErrors = auto.NewCounterVec(m.counter("comparison_errors_total", "Failed comparisons by error kind"), []string{"kind"})
	m.doppelgangers = auto.NewCounter(m.counter("doppelgangers_total", "Comparisons flagged as possible doppelgangers"))
	m.reflections = auto.NewCounter(m.counter("reflection_fits_total", "Alignments whose fitted rotation was a reflection"))
	m.comparisonLatency = auto.NewHistogram(m.histogram("comparison_latency_milliseconds", "Time spent in the comparison pipeline", m.histogramBuckets))
	m.overallScore = auto.NewHistogram(m.histogram("overall_score", "Distribution of overall similarity scores", scoreBuckets))
	m.landmarkDistance = auto.NewHistogram(m.histogram("landmark_distance", "Distribution of weighted Procrustes residuals", distanceBuckets))
	m.duplicates = auto.NewCounter(m.counter("duplicates_total", "Submissions rejected as duplicates"))

	m.queueSize = auto.NewGauge(m.gauge("queue_size", "Jobs waiting in the queue"))
	m.queueCapacity = auto.NewGauge(m.gauge("queue_capacity", "Queue capacity"))
	m.queueEnqueued = auto.NewCounter(m.counter("queue_enqueued_total", "Jobs enqueued"))
	m.queueDequeued = auto.NewCounter(m.counter("queue_dequeued_total", "Jobs dequeued"))
	m.queueEnqueueErrors = auto.NewCounter(m.counter("queue_enqueue_errors_total", "Jobs rejected by a full or closed queue"))

	m.workerCount = auto.NewGauge(m.gauge("worker_count", "Configured workers"))
	m.workerActive = auto.NewGauge(m.gauge("worker_active", "Workers currently processing a job"))
	m.workerProcessingLatency = auto.NewHistogram(m.histogram("worker_processing_latency_milliseconds", "Job processing time including persistence", m.histogramBuckets))

	m.repositoryRecords = auto.NewGauge(m.gauge("repository_records", "Stored comparison records"))
	m.repositoryEvictions = auto.NewCounter(m.counter("repository_evictions_total", "Records evicted to respect capacity"))
	m.repositoryQueryLatency = auto.NewHistogram(m.histogram("repository_query_latency_milliseconds", "Ranking query latency", m.histogramBuckets))

	m.httpRequests = auto.NewCounterVec(m.counter("http_requests_total", "HTTP requests by endpoint, method and status"), []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(m.histogram("http_request_duration_milliseconds", "HTTP request duration", m.histogramBuckets), []string{"endpoint", "method", "status_code"})

	m.systemMemoryUsage = auto.NewGauge(m.gauge("system_memory_bytes", "Heap bytes in use"))
	m.systemGoroutineCount = auto.NewGauge(m.gauge("system_goroutines", "Live goroutines"))
}

// RecordComparison counts a comparison by outcome.
func RecordComparison(outcome string) error {
	switch outcome {
	case OutcomeMatch, OutcomeNoMatch, OutcomeError:
		globalManager.comparisons.WithLabelValues(outcome).Inc()
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownOutcome, outcome)
	}
}

// RecordComparisonError counts a failed comparison by error kind.
func RecordComparisonError(kind string) {
	globalManager.comparisons.WithLabelValues(OutcomeError).Inc()
	globalManager.comparisonErrors.WithLabelValues(kind).Inc()
}

// RecordDoppelganger counts a possible-doppelganger verdict.
func RecordDoppelganger() {
	globalManager.doppelgangers.Inc()
}

// RecordReflection counts an alignment whose rotation was improper.
func RecordReflection() {
	globalManager.reflections.Inc()
}

// RecordComparisonLatency records pipeline latency in milliseconds.
func RecordComparisonLatency(latencyMs float64) {
	globalManager.comparisonLatency.Observe(latencyMs)
}

// RecordOverallScore records an overall score in [0,100].
func RecordOverallScore(score float64) {
	globalManager.overallScore.Observe(score)
}

// RecordLandmarkDistance records an alignment residual.
func RecordLandmarkDistance(d float64) {
	globalManager.landmarkDistance.Observe(d)
}

// RecordDuplicate counts a duplicate submission.
func RecordDuplicate() {
	globalManager.duplicates.Inc()
}

// UpdateQueueSize sets the current queue length.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueEnqueue counts an accepted job.
func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

// RecordQueueDequeue counts a dequeued job.
func RecordQueueDequeue() {
	globalManager.queueDequeued.Inc()
}

// RecordQueueEnqueueError counts a rejected job.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// UpdateWorkerCount sets the configured worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// IncWorkerActive marks a worker busy.
func IncWorkerActive() {
	globalManager.workerActive.Inc()
}

// DecWorkerActive marks a worker idle.
func DecWorkerActive() {
	globalManager.workerActive.Dec()
}

// RecordWorkerProcessingLatency records job processing time in milliseconds.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// UpdateRepositoryRecords sets the stored record count.
func UpdateRepositoryRecords(count int) {
	globalManager.repositoryRecords.Set(float64(count))
}

// RecordRepositoryEviction counts an evicted record.
func RecordRepositoryEviction() {
	globalManager.repositoryEvictions.Inc()
}

// RecordRepositoryQueryLatency records ranking query latency in milliseconds.
func RecordRepositoryQueryLatency(latencyMs float64) {
	globalManager.repositoryQueryLatency.Observe(latencyMs)
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// CollectRuntime samples heap usage and goroutine count.
func CollectRuntime() {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	globalManager.systemMemoryUsage.Set(float64(ms.HeapInuse))
	globalManager.systemGoroutineCount.Set(float64(runtime.NumGoroutine()))
}

// GetRegistry returns the registry the global metrics live on.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
