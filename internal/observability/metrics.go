package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce        sync.Once
	httpRequestsTotal   *prometheus.CounterVec
	httpLatencySeconds  *prometheus.HistogramVec
	httpErrorsTotal     *prometheus.CounterVec
	reviewsTotal        *prometheus.CounterVec
	pointsAwardedTotal  *prometheus.CounterVec
	attachmentsRejected *prometheus.CounterVec
	statsCacheLookups   *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used across the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "phybench",
			Name:      "http_requests_total",
			Help:      "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "phybench",
			Name:      "http_latency_seconds",
			Help:      "Latency distribution for API requests.",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		httpErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "phybench",
			Name:      "http_errors_total",
			Help:      "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		reviewsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "phybench",
			Name:      "reviews_total",
			Help:      "Review decisions by requested status and outcome.",
		}, []string{"decision", "outcome"})

		pointsAwardedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "phybench",
			Name:      "points_awarded_total",
			Help:      "Points granted through score events, by event tag.",
		}, []string{"tag"})

		attachmentsRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "phybench",
			Name:      "attachments_rejected_total",
			Help:      "Attachment uploads rejected, by reason.",
		}, []string{"reason"})

		statsCacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "phybench",
			Name:      "stats_cache_lookups_total",
			Help:      "Statistics cache lookups by key and result.",
		}, []string{"key", "result"})

		prometheus.MustRegister(
			httpRequestsTotal,
			httpLatencySeconds,
			httpErrorsTotal,
			reviewsTotal,
			pointsAwardedTotal,
			attachmentsRejected,
			statsCacheLookups,
		)
	})
}

// HTTPRequests exposes the counter for API requests.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the latency histogram for API requests.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// HTTPErrors exposes the counter for error responses.
func HTTPErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return httpErrorsTotal
}

// Reviews exposes the review decision counter.
func Reviews() *prometheus.CounterVec {
	RegisterMetrics()
	return reviewsTotal
}

// PointsAwarded exposes the counter of points granted.
func PointsAwarded() *prometheus.CounterVec {
	RegisterMetrics()
	return pointsAwardedTotal
}

// AttachmentsRejected exposes the counter of rejected uploads.
func AttachmentsRejected() *prometheus.CounterVec {
	RegisterMetrics()
	return attachmentsRejected
}

// StatsCacheLookups exposes the statistics cache hit/miss counter.
func StatsCacheLookups() *prometheus.CounterVec {
	RegisterMetrics()
	return statsCacheLookups
}
