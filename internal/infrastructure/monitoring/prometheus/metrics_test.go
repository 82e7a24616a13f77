package prometheus

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAppMetrics(t *testing.T) (*AppMetrics, MetricsCollector) {
	t.Helper()
	c := newTestCollector(t)
	return NewAppMetrics(c), c
}

func TestNewAppMetrics_AllMetricsRegistered(t *testing.T) {
	m, _ := newTestAppMetrics(t)
	require.NotNil(t, m)
	assert.NotNil(t, m.HTTPRequestsTotal)
	assert.NotNil(t, m.ValidationOutcomesTotal)
	assert.NotNil(t, m.CanonicalizeDuration)
	assert.NotNil(t, m.CanonicalCandidates)
	assert.NotNil(t, m.CacheHitsTotal)
	assert.NotNil(t, m.LibraryReloadsTotal)
}

func TestNewAppMetrics_Twice(t *testing.T) {
	c := newTestCollector(t)
	a := NewAppMetrics(c)
	b := NewAppMetrics(c)
	RecordCacheAccess(a, "canonical", true)
	RecordCacheAccess(b, "canonical", true)
	assert.Contains(t, scrapeMetrics(t, c), `test_cache_hits_total{cache="canonical"} 2`)
}

func TestRecordHTTPRequest(t *testing.T) {
	m, c := newTestAppMetrics(t)
	RecordHTTPRequest(m, "POST", "/api/v1/notations/validate", 422, 5*time.Millisecond)

	out := scrapeMetrics(t, c)
	assert.Contains(t, out, `test_http_requests_total{method="POST",path="/api/v1/notations/validate",status_code="422"} 1`)
	assert.Contains(t, out, `test_http_request_duration_seconds_count{method="POST",path="/api/v1/notations/validate"} 1`)
}

func TestRecordValidation(t *testing.T) {
	m, c := newTestAppMetrics(t)
	RecordValidation(m, "")
	RecordValidation(m, "VAL_001")
	RecordValidation(m, "VAL_001")

	out := scrapeMetrics(t, c)
	assert.Contains(t, out, `test_validation_outcomes_total{code="OK"} 1`)
	assert.Contains(t, out, `test_validation_outcomes_total{code="VAL_001"} 2`)
}

func TestRecordCanonicalization(t *testing.T) {
	m, c := newTestAppMetrics(t)
	RecordCanonicalization(m, time.Millisecond, 2, nil)
	RecordCanonicalization(m, time.Millisecond, 0, errors.New("too many"))

	out := scrapeMetrics(t, c)
	assert.Contains(t, out, `test_canonicalize_duration_seconds_count{result="success"} 1`)
	assert.Contains(t, out, `test_canonicalize_duration_seconds_count{result="error"} 1`)
	assert.Contains(t, out, "test_canonical_candidates_count 1")
	assert.Contains(t, out, "test_canonical_candidates_sum 2")
}

func TestRecordNotationRequestAndAdHoc(t *testing.T) {
	m, c := newTestAppMetrics(t)
	RecordNotationRequest(m, "legacy", nil)
	RecordNotationRequest(m, "legacy", errors.New("ambiguous"))
	RecordAdHocMonomers(m, 0)
	RecordAdHocMonomers(m, 3)

	out := scrapeMetrics(t, c)
	assert.Contains(t, out, `test_notation_requests_total{operation="legacy",result="success"} 1`)
	assert.Contains(t, out, `test_notation_requests_total{operation="legacy",result="error"} 1`)
	assert.Contains(t, out, "test_adhoc_monomers_total 3")
}

func TestRecordCache(t *testing.T) {
	m, c := newTestAppMetrics(t)
	RecordCacheAccess(m, "canonical", true)
	RecordCacheAccess(m, "canonical", false)
	RecordCacheError(m, "canonical", "get")

	out := scrapeMetrics(t, c)
	assert.Contains(t, out, `test_cache_hits_total{cache="canonical"} 1`)
	assert.Contains(t, out, `test_cache_misses_total{cache="canonical"} 1`)
	assert.Contains(t, out, `test_cache_errors_total{cache="canonical",operation="get"} 1`)
}

func TestRecordLibraryReload(t *testing.T) {
	m, c := newTestAppMetrics(t)
	RecordLibraryReload(m, 42, nil)
	RecordLibraryReload(m, 0, errors.New("bad yaml"))

	out := scrapeMetrics(t, c)
	assert.Contains(t, out, `test_monomer_library_size{source="file"} 42`)
	assert.Contains(t, out, `test_monomer_library_reloads_total{result="error"} 1`)
}

func TestRecordWorkerJob(t *testing.T) {
	m, c := newTestAppMetrics(t)
	RecordWorkerJob(m, "canonicalize", "success", time.Millisecond)
	RecordWorkerJob(m, "", "malformed", 0)

	out := scrapeMetrics(t, c)
	assert.Contains(t, out, `test_worker_jobs_total{operation="canonicalize",result="success"} 1`)
	assert.Contains(t, out, `test_worker_jobs_total{operation="unknown",result="malformed"} 1`)
	assert.Contains(t, out, `test_worker_job_duration_seconds_count{operation="canonicalize"} 1`)
}

func TestNopAppMetrics(t *testing.T) {
	m := NewNopAppMetrics()
	assert.NotPanics(t, func() {
		RecordHTTPRequest(m, "GET", "/healthz", 200, time.Millisecond)
		RecordValidation(m, "VAL_002")
		RecordCanonicalization(m, time.Millisecond, 1, nil)
		RecordCacheAccess(m, "canonical", false)
	})
}
