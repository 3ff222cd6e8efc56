// Package metrics defines the Prometheus metrics exported on /metrics.
//
// Collectors are package-level so services can record without holding a
// reference. Register attaches them to a registry; the server owns its own
// registry rather than using the global one.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Auth outcomes
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeInvalid = "invalid"
	OutcomeError   = "error"
)

var (
	// HTTPRequestsTotal counts handled requests by route template, method and status.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "teamroster_http_requests_total",
			Help: "Total HTTP requests by route, method and status code.",
		},
		[]string{"route", "method", "status"},
	)

	// HTTPRequestDurationSeconds is a histogram of request latency by route.
	HTTPRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "teamroster_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	// AuthAttemptsTotal counts login and registration attempts by outcome.
	AuthAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "teamroster_auth_attempts_total",
			Help: "Total authentication attempts by operation and outcome.",
		},
		[]string{"operation", "outcome"},
	)

	// AuthorizationDenialsTotal counts requests refused by an ownership check.
	AuthorizationDenialsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "teamroster_authorization_denials_total",
			Help: "Total requests refused by an authorization check.",
		},
		[]string{"check"},
	)
)

// Register attaches every collector plus the Go and process collectors to reg
func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		HTTPRequestsTotal,
		HTTPRequestDurationSeconds,
		AuthAttemptsTotal,
		AuthorizationDenialsTotal,
	)
}

// RecordAuthAttempt increments the auth attempt counter
func RecordAuthAttempt(operation, outcome string) {
	AuthAttemptsTotal.WithLabelValues(operation, outcome).Inc()
}

// RecordDenial increments the denial counter for an authorization check
func RecordDenial(check string) {
	AuthorizationDenialsTotal.WithLabelValues(check).Inc()
}

// RecordHTTPRequest records a completed request
func RecordHTTPRequest(route, method, status string, elapsed time.Duration) {
	HTTPRequestsTotal.WithLabelValues(route, method, status).Inc()
	HTTPRequestDurationSeconds.WithLabelValues(route, method).Observe(elapsed.Seconds())
}
