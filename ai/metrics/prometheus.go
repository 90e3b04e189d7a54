// Package metrics provides Prometheus export and persisted analytics for the
// travel assistant serving path.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusExporter exports serving metrics in Prometheus format.
type PrometheusExporter struct {
	registry *prometheus.Registry

	requests         *prometheus.CounterVec
	requestLatency   *prometheus.HistogramVec
	componentLatency *prometheus.HistogramVec

	cacheHits   *prometheus.CounterVec
	cacheMisses *prometheus.CounterVec

	llmTokensUsed *prometheus.CounterVec
	llmLatency    *prometheus.HistogramVec
	tokensSaved   prometheus.Counter
	costUSD       *prometheus.CounterVec
}

// ExporterConfig configures the Prometheus exporter.
type ExporterConfig struct {
	// Registry to use (if nil, creates a new one).
	Registry *prometheus.Registry

	// Buckets for latency histograms, in seconds.
	LatencyBuckets []float64
}

// DefaultExporterConfig returns the default exporter configuration.
func DefaultExporterConfig() ExporterConfig {
	return ExporterConfig{
		LatencyBuckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
	}
}

// NewPrometheusExporter creates a Prometheus metrics exporter.
func NewPrometheusExporter(cfg ExporterConfig) *PrometheusExporter {
	if len(cfg.LatencyBuckets) == 0 {
		cfg.LatencyBuckets = DefaultExporterConfig().LatencyBuckets
	}
	registry := cfg.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	e := &PrometheusExporter{registry: registry}

	e.requests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tripsense",
			Subsystem: "travel",
			Name:      "requests_total",
			Help:      "Total travel assistant requests",
		},
		[]string{"scenario", "status"},
	)
	e.requestLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tripsense",
			Subsystem: "travel",
			Name:      "request_latency_seconds",
			Help:      "End-to-end request latency in seconds",
			Buckets:   cfg.LatencyBuckets,
		},
		[]string{"scenario"},
	)
	e.componentLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tripsense",
			Subsystem: "travel",
			Name:      "component_latency_seconds",
			Help:      "Per-component (flight/hotel/itinerary) latency in seconds",
			Buckets:   cfg.LatencyBuckets,
		},
		[]string{"component"},
	)

	e.cacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tripsense",
			Subsystem: "travel",
			Name:      "cache_hits_total",
			Help:      "Total cache hits",
		},
		[]string{"cache_type"},
	)
	e.cacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tripsense",
			Subsystem: "travel",
			Name:      "cache_misses_total",
			Help:      "Total cache misses",
		},
		[]string{"cache_type"},
	)

	e.llmTokensUsed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tripsense",
			Subsystem: "travel",
			Name:      "llm_tokens_total",
			Help:      "Total LLM tokens consumed",
		},
		[]string{"model", "token_type"},
	)
	e.llmLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tripsense",
			Subsystem: "travel",
			Name:      "llm_latency_seconds",
			Help:      "LLM request latency in seconds",
			Buckets:   cfg.LatencyBuckets,
		},
		[]string{"model", "provider"},
	)
	e.tokensSaved = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "tripsense",
			Subsystem: "travel",
			Name:      "tokens_saved_total",
			Help:      "Prompt tokens avoided by few-shot strategy selection",
		},
	)
	e.costUSD = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tripsense",
			Subsystem: "travel",
			Name:      "llm_cost_usd_total",
			Help:      "Accumulated LLM cost in USD",
		},
		[]string{"model"},
	)

	registry.MustRegister(
		e.requests,
		e.requestLatency,
		e.componentLatency,
		e.cacheHits,
		e.cacheMisses,
		e.llmTokensUsed,
		e.llmLatency,
		e.tokensSaved,
		e.costUSD,
	)
	return e
}

// RecordRequest records one end-to-end request.
func (e *PrometheusExporter) RecordRequest(scenario string, latency time.Duration, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	e.requests.WithLabelValues(scenario, status).Inc()
	e.requestLatency.WithLabelValues(scenario).Observe(latency.Seconds())
}

// RecordComponentLatency records one component generation.
func (e *PrometheusExporter) RecordComponentLatency(component string, latency time.Duration) {
	e.componentLatency.WithLabelValues(component).Observe(latency.Seconds())
}

// RecordCacheHit records a cache hit.
func (e *PrometheusExporter) RecordCacheHit(cacheType string) {
	e.cacheHits.WithLabelValues(cacheType).Inc()
}

// RecordCacheMiss records a cache miss.
func (e *PrometheusExporter) RecordCacheMiss(cacheType string) {
	e.cacheMisses.WithLabelValues(cacheType).Inc()
}

// RecordLLMTokens records LLM token usage.
func (e *PrometheusExporter) RecordLLMTokens(model, tokenType string, count int) {
	e.llmTokensUsed.WithLabelValues(model, tokenType).Add(float64(count))
}

// RecordLLMLatency records LLM request latency.
func (e *PrometheusExporter) RecordLLMLatency(model, provider string, latency time.Duration) {
	e.llmLatency.WithLabelValues(model, provider).Observe(latency.Seconds())
}

// RecordTokensSaved records prompt tokens avoided by strategy selection.
func (e *PrometheusExporter) RecordTokensSaved(count int) {
	if count > 0 {
		e.tokensSaved.Add(float64(count))
	}
}

// RecordCost records accumulated LLM spend.
func (e *PrometheusExporter) RecordCost(model string, usd float64) {
	e.costUSD.WithLabelValues(model).Add(usd)
}

// Handler returns the HTTP handler for the metrics endpoint.
func (e *PrometheusExporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}
