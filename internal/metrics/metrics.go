package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gohr_http_requests_total",
			Help: "HTTP requests by method, route and status",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gohr_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// Approval engine metrics
var (
	// TransitionsTotal counts lifecycle operations; result is ok, invalid, not_found, conflict or error.
	TransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gohr_request_transitions_total",
			Help: "Request lifecycle operations by action and result",
		},
		[]string{"action", "result"},
	)

	TransitionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gohr_request_transition_duration_seconds",
			Help:    "Latency of request lifecycle operations including persistence",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"action"},
	)

	EscalationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gohr_escalations_total",
			Help: "Requests moved to escalated by the deadline sweep",
		},
	)

	EscalationSweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gohr_escalation_sweep_duration_seconds",
			Help:    "Duration of one escalation sweep",
			Buckets: prometheus.DefBuckets,
		},
	)

	// SideEffectFailures counts notify, audit and publish failures that did not roll back a transition.
	SideEffectFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gohr_side_effect_failures_total",
			Help: "Failed post-commit side effects by kind",
		},
		[]string{"kind"},
	)

	DegradedRoutes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gohr_degraded_routes_total",
			Help: "Approval routes resolved with placeholder approvers",
		},
	)
)

// Replication metrics
var (
	ReplicationEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gohr_replication_events_total",
			Help: "Replication events by type and direction (published, received, applied, discarded)",
		},
		[]string{"type", "direction"},
	)

	ReplicationSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gohr_replication_ws_subscribers",
			Help: "Connected websocket viewers",
		},
	)
)
