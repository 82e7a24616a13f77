package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/helmkit/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/helmkit/internal/testutil"
)

func TestRequestID_Generated(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = ContextGetRequestID(r.Context())
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	_, err := uuid.Parse(seen)
	require.NoError(t, err)
	assert.Equal(t, seen, w.Header().Get(HeaderRequestID))
}

func TestRequestID_ClientSupplied(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = ContextGetRequestID(r.Context())
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set(HeaderRequestID, "abc-123")
	h.ServeHTTP(httptest.NewRecorder(), r)
	assert.Equal(t, "abc-123", seen)

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set(HeaderRequestID, strings.Repeat("x", maxRequestIDLength+1))
	h.ServeHTTP(httptest.NewRecorder(), r)
	assert.NotEqual(t, strings.Repeat("x", maxRequestIDLength+1), seen)
	assert.Empty(t, ContextGetRequestID(context.Background()))
}

func newLoggedRouter(t *testing.T, logger *testutil.MockLogger, metrics *prometheus.AppMetrics) http.Handler {
	t.Helper()
	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(RequestLogging(logger, metrics, DefaultLoggingConfig()))
	r.Get("/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	r.Get("/boom", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {})
	return r
}

func TestRequestLogging_Levels(t *testing.T) {
	logger := testutil.NewMockLogger()
	h := newLoggedRouter(t, logger, nil)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/items/42", nil))
	assert.True(t, logger.HasMessage("warn", "HTTP request completed with client error"))
	route, ok := logger.Field("HTTP request completed with client error", "route")
	require.True(t, ok)
	assert.Equal(t, "/items/{id}", route)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.True(t, logger.HasMessage("error", "HTTP request completed with server error"))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.True(t, logger.HasMessage("debug", "HTTP request completed"))
	assert.False(t, logger.HasMessage("info", "HTTP request completed"))
}

func TestRequestLogging_Metrics(t *testing.T) {
	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{Namespace: "test"}, testutil.NewMockLogger())
	require.NoError(t, err)
	metrics := prometheus.NewAppMetrics(collector)
	h := newLoggedRouter(t, testutil.NewMockLogger(), metrics)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/items/1", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/items/2", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	w := httptest.NewRecorder()
	collector.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := w.Body.String()
	assert.Contains(t, body, `test_http_requests_total{method="GET",path="/items/{id}",status_code="418"} 2`)
	assert.Contains(t, body, `status_code="404"} 1`)
}

func TestWrappedResponseWriter(t *testing.T) {
	rec := httptest.NewRecorder()
	w := newWrappedResponseWriter(rec)
	n, err := w.Write([]byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	w.WriteHeader(http.StatusInternalServerError)
	assert.Equal(t, http.StatusOK, w.statusCode)
	assert.EqualValues(t, 5, w.bytesWritten)

	_, _, err = w.Hijack()
	assert.Error(t, err)
	w.Flush()
	assert.True(t, rec.Flushed)
}

func TestClientLimiters(t *testing.T) {
	l := NewClientLimiters(1, 2, time.Minute)
	now := time.Unix(1_700_000_000, 0)
	l.now = func() time.Time { return now }

	ok, remaining, _ := l.Reserve("a")
	assert.True(t, ok)
	assert.Equal(t, 1, remaining)
	ok, _, _ = l.Reserve("a")
	assert.True(t, ok)
	ok, _, retry := l.Reserve("a")
	assert.False(t, ok)
	assert.Greater(t, retry, time.Duration(0))

	ok, _, _ = l.Reserve("b")
	assert.True(t, ok, "clients are limited independently")

	now = now.Add(time.Second)
	ok, _, _ = l.Reserve("a")
	assert.True(t, ok, "tokens refill over time")

	now = now.Add(2 * time.Minute)
	l.Reserve("c")
	assert.Equal(t, 1, l.Len(), "idle clients are evicted")
}

func TestRateLimit_Middleware(t *testing.T) {
	cfg := DefaultRateLimitConfig()
	cfg.RequestsPerSecond = 0.001
	cfg.BurstSize = 1
	h := RateLimit(cfg)(okHandler())

	req := func(path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, path, nil)
		r.RemoteAddr = "10.0.0.1:5555"
		h.ServeHTTP(w, r)
		return w
	}

	first := req("/api/v1/notations/validate")
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "1", first.Header().Get("X-RateLimit-Limit"))

	second := req("/api/v1/notations/validate")
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.NotEmpty(t, second.Header().Get("Retry-After"))
	assert.Contains(t, second.Body.String(), "RATE_LIMITED")

	assert.Equal(t, http.StatusOK, req("/healthz").Code)
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "192.0.2.1:1234"
	assert.Equal(t, "192.0.2.1", ClientIP(r))
	r.RemoteAddr = "bogus"
	assert.Equal(t, "bogus", ClientIP(r))
}
