package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	generationRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seekwell_generation_requests_total",
			Help: "Total number of text generation calls by outcome.",
		},
		[]string{"outcome"},
	)
	generationLatencySeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "seekwell_generation_latency_seconds",
			Help:    "Text generation round-trip latency in seconds.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		},
	)
	generationTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seekwell_generation_tokens_total",
			Help: "Total input and generated tokens reported by the model service.",
		},
		[]string{"direction"},
	)
	dictionaryBuildsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "seekwell_dictionary_builds_total",
			Help: "Total number of completed dictionary builds.",
		},
	)
	dictionaryBuildSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "seekwell_dictionary_build_seconds",
			Help:    "Full dictionary build duration in seconds.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		},
	)
	dictionaryFieldsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seekwell_dictionary_fields_total",
			Help: "Fields processed during dictionary builds by outcome.",
		},
		[]string{"outcome"},
	)
	translationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seekwell_translations_total",
			Help: "Natural language translation requests by outcome.",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(
		generationRequestsTotal,
		generationLatencySeconds,
		generationTokensTotal,
		dictionaryBuildsTotal,
		dictionaryBuildSeconds,
		dictionaryFieldsTotal,
		translationsTotal,
	)
}

func ObserveGeneration(elapsed time.Duration, inputTokens, generatedTokens int, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	generationRequestsTotal.WithLabelValues(outcome).Inc()
	generationLatencySeconds.Observe(elapsed.Seconds())
	if inputTokens > 0 {
		generationTokensTotal.WithLabelValues("input").Add(float64(inputTokens))
	}
	if generatedTokens > 0 {
		generationTokensTotal.WithLabelValues("generated").Add(float64(generatedTokens))
	}
}

// ObserveFieldProcessed records one field's outcome: described, fallback,
// or skipped (sampling failed).
func ObserveFieldProcessed(outcome string) {
	dictionaryFieldsTotal.WithLabelValues(outcome).Inc()
}

func ObserveDictionaryBuild(elapsed time.Duration) {
	dictionaryBuildsTotal.Inc()
	dictionaryBuildSeconds.Observe(elapsed.Seconds())
}

// ObserveTranslation records a translation outcome: translated when a query
// was extracted, empty when the model produced no tagged query.
func ObserveTranslation(query string, err error) {
	switch {
	case err != nil:
		translationsTotal.WithLabelValues("error").Inc()
	case query == "":
		translationsTotal.WithLabelValues("empty").Inc()
	default:
		translationsTotal.WithLabelValues("translated").Inc()
	}
}
