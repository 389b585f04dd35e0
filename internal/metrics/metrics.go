// Package metrics holds the Prometheus instruments of the watcher.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "cybernews"

var (
	// FetchAttemptsTotal counts individual HTTP attempts by source and outcome.
	FetchAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_attempts_total",
			Help:      "HTTP fetch attempts by source and outcome",
		},
		[]string{"source", "outcome"},
	)

	// FetchDuration observes whole fetches including retries.
	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Duration of fetches including retries",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		},
		[]string{"source"},
	)

	// ExtractionsTotal counts extraction outcomes by method.
	ExtractionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extractions_total",
			Help:      "Extraction results by method and completeness",
		},
		[]string{"method", "result"},
	)

	// ClassifiedTotal counts classified articles by severity.
	ClassifiedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "classified_articles_total",
			Help:      "Classified articles by severity",
		},
		[]string{"severity"},
	)

	// AlertsTotal counts alert decisions by outcome.
	AlertsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_total",
			Help:      "Alert decisions by outcome",
		},
		[]string{"outcome"},
	)

	// DigestsTotal counts digest sends by outcome.
	DigestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "digests_total",
			Help:      "Digest notifications by outcome",
		},
		[]string{"outcome"},
	)

	// PendingAlerts is the number of alerts waiting for replay.
	PendingAlerts = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_alerts",
			Help:      "Alerts whose delivery failed and await replay",
		},
	)
)

// RecordFetchAttempt increments the attempt counter.
func RecordFetchAttempt(source, outcome string) {
	FetchAttemptsTotal.WithLabelValues(source, outcome).Inc()
}

// RecordFetch observes the duration of a fetch.
func RecordFetch(source string, d time.Duration) {
	FetchDuration.WithLabelValues(source).Observe(d.Seconds())
}

// RecordExtraction increments the extraction counter.
func RecordExtraction(method string, partial bool) {
	result := "complete"
	if partial {
		result = "partial"
	}

	ExtractionsTotal.WithLabelValues(method, result).Inc()
}

// RecordClassified increments the classification counter.
func RecordClassified(severity string) {
	ClassifiedTotal.WithLabelValues(severity).Inc()
}

// RecordAlert increments the alert counter for an outcome
// (dispatched, suppressed, failed, replayed).
func RecordAlert(outcome string) {
	AlertsTotal.WithLabelValues(outcome).Inc()
}

// RecordDigest increments the digest counter.
func RecordDigest(outcome string) {
	DigestsTotal.WithLabelValues(outcome).Inc()
}

// SetPending sets the pending alert gauge.
func SetPending(n int) {
	PendingAlerts.Set(float64(n))
}
