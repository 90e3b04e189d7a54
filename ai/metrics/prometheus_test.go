package metrics

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExporterRecordsCounters(t *testing.T) {
	e := NewPrometheusExporter(ExporterConfig{})

	e.RecordRequest("smart_history", 500*time.Millisecond, true)
	e.RecordRequest("smart_history", time.Second, false)
	e.RecordCacheHit("example_cache")
	e.RecordCacheMiss("example_cache")
	e.RecordLLMTokens("gemini-flash-latest", "prompt", 1200)
	e.RecordTokensSaved(600)
	e.RecordCost("gemini-flash-latest", 0.0005)

	assert.InDelta(t, 1.0, testutil.ToFloat64(e.requests.WithLabelValues("smart_history", "success")), 1e-9)
	assert.InDelta(t, 1.0, testutil.ToFloat64(e.requests.WithLabelValues("smart_history", "error")), 1e-9)
	assert.InDelta(t, 1.0, testutil.ToFloat64(e.cacheHits.WithLabelValues("example_cache")), 1e-9)
	assert.InDelta(t, 1200.0, testutil.ToFloat64(e.llmTokensUsed.WithLabelValues("gemini-flash-latest", "prompt")), 1e-9)
	assert.InDelta(t, 600.0, testutil.ToFloat64(e.tokensSaved), 1e-9)
}

func TestTokensSavedIgnoresNegative(t *testing.T) {
	e := NewPrometheusExporter(ExporterConfig{})
	e.RecordTokensSaved(-100)
	assert.InDelta(t, 0.0, testutil.ToFloat64(e.tokensSaved), 1e-9)
}

func TestHandlerServesMetrics(t *testing.T) {
	e := NewPrometheusExporter(ExporterConfig{})
	e.RecordRequest("no_history", 100*time.Millisecond, true)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	e.Handler().ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "tripsense_travel_requests_total")
}
