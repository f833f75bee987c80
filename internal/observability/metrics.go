package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce       sync.Once
	requestsTotal      *prometheus.CounterVec
	latencySeconds     *prometheus.HistogramVec
	sessionsStarted    prometheus.Counter
	sessionsCompleted  *prometheus.CounterVec
	segmentsScored     prometheus.Counter
	segmentRepeatTotal prometheus.Counter
)

// RegisterMetrics initialises the Prometheus collectors for the mock-test API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "naati",
			Name:      "http_requests_total",
			Help:      "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		latencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "naati",
			Name:      "http_latency_seconds",
			Help:      "Latency distribution for API requests.",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0, 5.0},
		}, []string{"method", "route"})

		sessionsStarted = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "naati",
			Name:      "mock_test_sessions_started_total",
			Help:      "Total number of mock test sessions started.",
		})

		sessionsCompleted = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "naati",
			Name:      "mock_test_sessions_completed_total",
			Help:      "Total number of mock test sessions completed, by outcome.",
		}, []string{"outcome"})

		segmentsScored = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "naati",
			Name:      "mock_test_segments_scored_total",
			Help:      "Total number of segment submissions scored.",
		})

		segmentRepeatTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "naati",
			Name:      "mock_test_segment_repeats_total",
			Help:      "Total number of repeated segment submissions.",
		})

		prometheus.MustRegister(
			requestsTotal, latencySeconds,
			sessionsStarted, sessionsCompleted,
			segmentsScored, segmentRepeatTotal,
		)
	})
}

// Requests exposes the counter for API requests.
func Requests() *prometheus.CounterVec {
	RegisterMetrics()
	return requestsTotal
}

// Latency exposes the latency histogram for API requests.
func Latency() *prometheus.HistogramVec {
	RegisterMetrics()
	return latencySeconds
}

// SessionsStarted exposes the counter for started sessions.
func SessionsStarted() prometheus.Counter {
	RegisterMetrics()
	return sessionsStarted
}

// SessionsCompleted exposes the counter for completed sessions by outcome.
func SessionsCompleted() *prometheus.CounterVec {
	RegisterMetrics()
	return sessionsCompleted
}

// SegmentsScored exposes the counter for scored segment submissions.
func SegmentsScored() prometheus.Counter {
	RegisterMetrics()
	return segmentsScored
}

// SegmentRepeats exposes the counter for repeated submissions.
func SegmentRepeats() prometheus.Counter {
	RegisterMetrics()
	return segmentRepeatTotal
}
