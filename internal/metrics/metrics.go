package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	// AnalysesTotal counts analyzed images by outcome.
	AnalysesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vision_gateway",
		Name:      "analyses_total",
		Help:      "Total number of analyzed images, labeled by outcome.",
	}, []string{"outcome"})

	// UpstreamDurationSeconds is the round-trip time to the vision endpoint.
	UpstreamDurationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "vision_gateway",
		Name:      "upstream_duration_seconds",
		Help:      "Round-trip time of vision endpoint requests, labeled by outcome.",
		Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60, 120},
	}, []string{"outcome"})

	TokensTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vision_gateway",
		Name:      "tokens_total",
		Help:      "Total number of tokens reported by the vision endpoint, labeled by direction.",
	}, []string{"direction"})

	BatchSize = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "vision_gateway",
		Name:      "batch_size",
		Help:      "Number of images per batch request.",
		Buckets:   []float64{1, 2, 5, 10, 20, 50, 100},
	})
)

// Register registers gateway metrics with the default Prometheus registry.
// Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			AnalysesTotal,
			UpstreamDurationSeconds,
			TokensTotal,
			BatchSize,
		)
	})
}

// ObserveTokens adds reported token counts. Negative counts are ignored
// since counters cannot decrease.
func ObserveTokens(input, output int) {
	TokensTotal.WithLabelValues("input").Add(float64(max(input, 0)))
	TokensTotal.WithLabelValues("output").Add(float64(max(output, 0)))
}
