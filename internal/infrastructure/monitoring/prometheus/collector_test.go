package prometheus

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/helmkit/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/helmkit/internal/testutil"
)

func newTestCollector(t *testing.T) MetricsCollector {
	t.Helper()
	c, err := NewMetricsCollector(CollectorConfig{Namespace: "test"}, logging.NewNopLogger())
	require.NoError(t, err)
	return c
}

func scrapeMetrics(t *testing.T, collector MetricsCollector) string {
	t.Helper()
	w := httptest.NewRecorder()
	collector.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	return w.Body.String()
}

func newRawCounter(name string) prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{Name: name, Help: "registered outside the collector"})
}

func TestNewMetricsCollector_EmptyNamespace(t *testing.T) {
	_, err := NewMetricsCollector(CollectorConfig{}, nil)
	assert.Error(t, err)
}

func TestNewMetricsCollector_WithRuntimeMetrics(t *testing.T) {
	c, err := NewMetricsCollector(CollectorConfig{
		Namespace:       "test",
		EnableGoMetrics: true,
	}, nil)
	require.NoError(t, err)
	assert.Contains(t, scrapeMetrics(t, c), "go_goroutines")
}

func TestRegisterCounter(t *testing.T) {
	c := newTestCollector(t)
	vec := c.RegisterCounter("things_total", "things", "kind")
	vec.WithLabelValues("a").Inc()
	vec.WithLabelValues("a").Add(2)

	assert.Contains(t, scrapeMetrics(t, c), `test_things_total{kind="a"} 3`)
}

func TestRegisterCounter_Idempotent(t *testing.T) {
	c := newTestCollector(t)
	c.RegisterCounter("things_total", "things").WithLabelValues().Inc()
	c.RegisterCounter("things_total", "things").WithLabelValues().Inc()

	assert.Contains(t, scrapeMetrics(t, c), "test_things_total 2")
}

func TestRegister_TypeMismatchIsNoop(t *testing.T) {
	logger := testutil.NewMockLogger()
	c, err := NewMetricsCollector(CollectorConfig{Namespace: "test"}, logger)
	require.NoError(t, err)

	c.RegisterCounter("clash", "counter")
	gauge := c.RegisterGauge("clash", "gauge")
	assert.IsType(t, noopGaugeVec{}, gauge)
	assert.NotPanics(t, func() { gauge.WithLabelValues().Set(1) })
	assert.True(t, logger.HasMessage("warn", "metric type mismatch"))
}

func TestRegister_LabelConflictIsLogged(t *testing.T) {
	logger := testutil.NewMockLogger()
	c, err := NewMetricsCollector(CollectorConfig{Namespace: "test", Subsystem: "a"}, logger)
	require.NoError(t, err)

	require.NoError(t, c.Registry().Register(newRawCounter("test_a_raw")))
	vec := c.RegisterCounter("raw", "raw")
	assert.IsType(t, noopCounterVec{}, vec)
	assert.True(t, logger.HasMessage("error", "failed to register counter"))
}

func TestRegisterGaugeAndHistogram(t *testing.T) {
	c := newTestCollector(t)
	g := c.RegisterGauge("level", "level", "source")
	g.WithLabelValues("file").Set(5)
	g.WithLabelValues("file").Inc()
	g.WithLabelValues("file").Dec()

	h := c.RegisterHistogram("latency_seconds", "latency", []float64{1, 2})
	h.WithLabelValues().Observe(1.5)

	out := scrapeMetrics(t, c)
	assert.Contains(t, out, `test_level{source="file"} 5`)
	assert.Contains(t, out, `test_latency_seconds_bucket{le="2"} 1`)
	n, err := promtest.GatherAndCount(c.Registry())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestNopCollector(t *testing.T) {
	c := NewNopCollector()
	c.RegisterCounter("x", "x").WithLabelValues().Inc()
	c.RegisterGauge("y", "y").WithLabelValues().Set(1)
	c.RegisterHistogram("z", "z", nil).WithLabelValues().Observe(1)
	n, err := promtest.GatherAndCount(c.Registry())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NotNil(t, c.Handler())
}

func TestTimer(t *testing.T) {
	c := newTestCollector(t)
	h := c.RegisterHistogram("op_seconds", "op", nil)
	timer := NewTimer(h.WithLabelValues())
	time.Sleep(time.Millisecond)
	assert.GreaterOrEqual(t, timer.ObserveDuration(), time.Millisecond)
	assert.Contains(t, scrapeMetrics(t, c), "test_op_seconds_count 1")

	assert.NotPanics(t, func() { NewTimer(nil).ObserveDuration() })
}
