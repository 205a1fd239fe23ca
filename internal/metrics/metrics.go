package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "roomcal",
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	upstreamDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "roomcal",
			Name:      "upstream_request_duration_seconds",
			Help:      "Booking API request latency by endpoint and outcome.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint", "outcome"},
	)

	occurrencesExpanded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "roomcal",
			Name:      "occurrences_expanded_total",
			Help:      "Occurrences produced by recurrence expansion.",
		},
	)

	seriesTruncated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "roomcal",
			Name:      "series_truncated_total",
			Help:      "Recurring series cut off by the per-series cap.",
		},
	)

	prefetchRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "roomcal",
			Name:      "prefetch_runs_total",
			Help:      "Month prefetch attempts by result.",
		},
		[]string{"result"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, upstreamDuration, occurrencesExpanded, seriesTruncated, prefetchRuns)
	})
}

// IncHTTP increments the counter for an endpoint label.
func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

// ObserveUpstream records one booking API call.
func ObserveUpstream(endpoint string, err error, elapsed time.Duration) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	upstreamDuration.WithLabelValues(endpoint, outcome).Observe(elapsed.Seconds())
}

// AddExpansion records the size of one expansion run.
func AddExpansion(occurrences, truncated int) {
	occurrencesExpanded.Add(float64(occurrences))
	seriesTruncated.Add(float64(truncated))
}

// IncPrefetch counts a prefetch attempt; result is "ok", "retry" or "failed".
func IncPrefetch(result string) {
	prefetchRuns.WithLabelValues(result).Inc()
}
