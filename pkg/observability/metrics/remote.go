package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	remoteRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "freddy_remote_request_duration_seconds",
			Help:    "Duration of remote CRUD requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"resource", "operation", "status"},
	)

	remoteRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "freddy_remote_requests_total",
			Help: "Total number of remote CRUD requests",
		},
		[]string{"resource", "operation", "status"},
	)

	remoteRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "freddy_remote_requests_in_flight",
			Help: "Current number of remote CRUD requests awaiting a response",
		},
	)

	circuitStateChanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "freddy_circuit_breaker_transitions_total",
			Help: "Circuit breaker state transitions per resource",
		},
		[]string{"resource", "to"},
	)

	cacheOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "freddy_query_cache_outcomes_total",
			Help: "Query cache lookups by outcome (hit, miss, stale, shared, discarded, error)",
		},
		[]string{"resource", "outcome"},
	)
)

// StatusTransportError labels requests that produced no HTTP response.
const StatusTransportError = 0

// RecordRemoteRequest records one finished remote request. status is the
// HTTP status code or StatusTransportError.
func RecordRemoteRequest(resource, operation string, status int, duration time.Duration) {
	statusStr := strconv.Itoa(status)
	if status == StatusTransportError {
		statusStr = "transport_error"
	}
	remoteRequestDuration.WithLabelValues(resource, operation, statusStr).Observe(duration.Seconds())
	remoteRequestsTotal.WithLabelValues(resource, operation, statusStr).Inc()
}

// IncrementInFlight increments the in-flight requests gauge.
func IncrementInFlight() {
	remoteRequestsInFlight.Inc()
}

// DecrementInFlight decrements the in-flight requests gauge.
func DecrementInFlight() {
	remoteRequestsInFlight.Dec()
}

// RecordCircuitTransition counts a breaker transition.
func RecordCircuitTransition(resource, to string) {
	circuitStateChanges.WithLabelValues(resource, to).Inc()
}

// RecordCacheOutcome counts a query cache lookup.
func RecordCacheOutcome(resource, outcome string) {
	cacheOutcomes.WithLabelValues(resource, outcome).Inc()
}
