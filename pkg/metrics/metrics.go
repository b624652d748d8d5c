package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ActiveSessions tracks collaborative sessions currently in the active state.
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "codecraft_active_sessions",
			Help: "Number of active collaborative sessions",
		},
	)

	// SessionTransitions counts lifecycle transitions by kind
	// (created|joined|left|scheduled|reactivated|deleted).
	SessionTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codecraft_session_transitions_total",
			Help: "Total number of session lifecycle transitions",
		},
		[]string{"transition"},
	)

	// CodeUpdates counts code replication outcomes (applied|noop|denied).
	CodeUpdates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codecraft_code_updates_total",
			Help: "Total number of code update requests by outcome",
		},
		[]string{"outcome"},
	)

	// SweepRuns counts garbage collector sweeps by kind (liveness|expiry).
	SweepRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codecraft_sweep_runs_total",
			Help: "Total number of maintenance sweep executions",
		},
		[]string{"kind"},
	)

	// SweptSessions counts sessions affected by sweeps (scheduled|purged|healed).
	SweptSessions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codecraft_swept_sessions_total",
			Help: "Total number of sessions transitioned by maintenance sweeps",
		},
		[]string{"action"},
	)

	// CodeExecutions counts sandbox runs by result (success|error).
	CodeExecutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codecraft_code_executions_total",
			Help: "Total number of code executions",
		},
		[]string{"result"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "codecraft_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
