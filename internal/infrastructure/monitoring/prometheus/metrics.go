package prometheus

import (
	"strconv"
	"time"
)

// AppMetrics holds every helmkit metric.
type AppMetrics struct {
	// HTTP layer
	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec
	HTTPActiveRequests  GaugeVec

	// Notation engine
	NotationRequestsTotal   CounterVec
	ValidationOutcomesTotal CounterVec
	CanonicalizeDuration    HistogramVec
	CanonicalCandidates     HistogramVec
	AdHocMonomersTotal      CounterVec

	// Infrastructure
	CacheHitsTotal      CounterVec
	CacheMissesTotal    CounterVec
	CacheErrorsTotal    CounterVec
	MonomerLibrarySize  GaugeVec
	LibraryReloadsTotal CounterVec

	// Batch worker
	WorkerJobsTotal   CounterVec
	WorkerJobDuration HistogramVec
}

// Default Buckets
var (
	DefaultHTTPDurationBuckets = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5}
	DefaultCanonicalBuckets    = []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1, 5}
	DefaultCandidateBuckets    = []float64{1, 2, 6, 24, 120, 720, 5040, 10000}
)

// NewAppMetrics registers all metrics on collector.
func NewAppMetrics(collector MetricsCollector) *AppMetrics {
	m := &AppMetrics{}

	// HTTP
	m.HTTPRequestsTotal = collector.RegisterCounter("http_requests_total", "Total HTTP requests", "method", "path", "status_code")
	m.HTTPRequestDuration = collector.RegisterHistogram("http_request_duration_seconds", "HTTP request duration", DefaultHTTPDurationBuckets, "method", "path")
	m.HTTPActiveRequests = collector.RegisterGauge("http_active_requests", "Active HTTP requests", "method")

	// Notation engine
	m.NotationRequestsTotal = collector.RegisterCounter("notation_requests_total", "Notation operations by outcome", "operation", "result")
	m.ValidationOutcomesTotal = collector.RegisterCounter("validation_outcomes_total", "Validation outcomes by error code (OK on success)", "code")
	m.CanonicalizeDuration = collector.RegisterHistogram("canonicalize_duration_seconds", "Canonicalization latency", DefaultCanonicalBuckets, "result")
	m.CanonicalCandidates = collector.RegisterHistogram("canonical_candidates", "Candidate renamings evaluated per canonicalization", DefaultCandidateBuckets)
	m.AdHocMonomersTotal = collector.RegisterCounter("adhoc_monomers_total", "Ad hoc monomers synthesized from inline SMILES")

	// Infrastructure
	m.CacheHitsTotal = collector.RegisterCounter("cache_hits_total", "Cache hits", "cache")
	m.CacheMissesTotal = collector.RegisterCounter("cache_misses_total", "Cache misses", "cache")
	m.CacheErrorsTotal = collector.RegisterCounter("cache_errors_total", "Cache backend errors", "cache", "operation")
	m.MonomerLibrarySize = collector.RegisterGauge("monomer_library_size", "Monomers in the shared store", "source")
	m.LibraryReloadsTotal = collector.RegisterCounter("monomer_library_reloads_total", "Monomer library reloads", "result")

	// Batch worker
	m.WorkerJobsTotal = collector.RegisterCounter("worker_jobs_total", "Queued notation jobs by outcome", "operation", "result")
	m.WorkerJobDuration = collector.RegisterHistogram("worker_job_duration_seconds", "Queued notation job latency", DefaultCanonicalBuckets, "operation")

	return m
}

// NewNopAppMetrics returns AppMetrics backed by NewNopCollector.
func NewNopAppMetrics() *AppMetrics {
	return NewAppMetrics(NewNopCollector())
}

// Helpers

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

func RecordHTTPRequest(metrics *AppMetrics, method, path string, statusCode int, duration time.Duration) {
	metrics.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
	metrics.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordValidation counts one validation outcome.  code is the error code
// of a failure, or empty on success.
func RecordValidation(metrics *AppMetrics, code string) {
	if code == "" {
		code = "OK"
	}
	metrics.ValidationOutcomesTotal.WithLabelValues(code).Inc()
}

func RecordNotationRequest(metrics *AppMetrics, operation string, err error) {
	metrics.NotationRequestsTotal.WithLabelValues(operation, resultLabel(err)).Inc()
}

// RecordCanonicalization observes latency and, on success, the number of
// candidates the search evaluated.
func RecordCanonicalization(metrics *AppMetrics, duration time.Duration, candidates int, err error) {
	metrics.CanonicalizeDuration.WithLabelValues(resultLabel(err)).Observe(duration.Seconds())
	if err == nil {
		metrics.CanonicalCandidates.WithLabelValues().Observe(float64(candidates))
	}
}

func RecordAdHocMonomers(metrics *AppMetrics, n int) {
	if n > 0 {
		metrics.AdHocMonomersTotal.WithLabelValues().Add(float64(n))
	}
}

func RecordCacheAccess(metrics *AppMetrics, cache string, hit bool) {
	if hit {
		metrics.CacheHitsTotal.WithLabelValues(cache).Inc()
	} else {
		metrics.CacheMissesTotal.WithLabelValues(cache).Inc()
	}
}

func RecordCacheError(metrics *AppMetrics, cache, operation string) {
	metrics.CacheErrorsTotal.WithLabelValues(cache, operation).Inc()
}

func RecordLibraryReload(metrics *AppMetrics, size int, err error) {
	metrics.LibraryReloadsTotal.WithLabelValues(resultLabel(err)).Inc()
	if err == nil {
		metrics.MonomerLibrarySize.WithLabelValues("file").Set(float64(size))
	}
}

// RecordWorkerJob counts one queued job.  result is "success", "failed" for
// a job whose result carries an error, or "malformed" for undecodable input.
func RecordWorkerJob(metrics *AppMetrics, operation, result string, duration time.Duration) {
	if operation == "" {
		operation = "unknown"
	}
	metrics.WorkerJobsTotal.WithLabelValues(operation, result).Inc()
	metrics.WorkerJobDuration.WithLabelValues(operation).Observe(duration.Seconds())
}
