// Package metrics provides Prometheus metrics export for the recommendation
// core.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Exporter exports recommendation metrics in Prometheus format.
type Exporter struct {
	registry *prometheus.Registry

	// Cache metrics, labeled by cache tier (result, embedding, emotion,
	// user_context).
	cacheHits   *prometheus.CounterVec
	cacheMisses *prometheus.CounterVec

	// Collaborator call metrics, labeled by provider (embedding, places,
	// details, summary, tags, translate).
	providerCalls  *prometheus.CounterVec
	providerErrors *prometheus.CounterVec

	// Ranking metrics.
	pathSelected    *prometheus.CounterVec
	rankingLatency  prometheus.Histogram
	resultTruncated prometheus.Counter
}

// NewExporter creates a new metrics exporter with its own registry.
func NewExporter() *Exporter {
	registry := prometheus.NewRegistry()

	e := &Exporter{
		registry: registry,
		cacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "moodplace_cache_hits_total",
			Help: "Cache hits by tier.",
		}, []string{"tier"}),
		cacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "moodplace_cache_misses_total",
			Help: "Cache misses by tier.",
		}, []string{"tier"}),
		providerCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "moodplace_provider_calls_total",
			Help: "External collaborator calls by provider.",
		}, []string{"provider"}),
		providerErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "moodplace_provider_errors_total",
			Help: "External collaborator failures by provider.",
		}, []string{"provider"}),
		pathSelected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "moodplace_path_selected_total",
			Help: "Source-selection policy decisions by path.",
		}, []string{"path"}),
		rankingLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "moodplace_ranking_latency_seconds",
			Help:    "End-to-end ranking call latency.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
		}),
		resultTruncated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "moodplace_results_truncated_total",
			Help: "Ranking calls that produced more than K candidates.",
		}),
	}

	registry.MustRegister(
		e.cacheHits, e.cacheMisses,
		e.providerCalls, e.providerErrors,
		e.pathSelected, e.rankingLatency, e.resultTruncated,
	)
	return e
}

func (e *Exporter) CacheHit(tier string)           { e.cacheHits.WithLabelValues(tier).Inc() }
func (e *Exporter) CacheMiss(tier string)          { e.cacheMisses.WithLabelValues(tier).Inc() }
func (e *Exporter) ProviderCall(provider string)   { e.providerCalls.WithLabelValues(provider).Inc() }
func (e *Exporter) ProviderError(provider string)  { e.providerErrors.WithLabelValues(provider).Inc() }
func (e *Exporter) PathSelected(path string)       { e.pathSelected.WithLabelValues(path).Inc() }
func (e *Exporter) RankingObserved(seconds float64) { e.rankingLatency.Observe(seconds) }
func (e *Exporter) ResultTruncated()               { e.resultTruncated.Inc() }

// Handler returns the HTTP handler serving the metrics endpoint.
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}
