package store

import "github.com/prometheus/client_golang/prometheus"

// Label cardinality is bounded by the statement catalog (statement names are
// constants) and a two-valued outcome.
var (
	// statementsTotal counts executed statements by name and outcome (ok|error).
	statementsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_statements_total",
			Help: "Total number of statements executed against the store.",
		},
		[]string{"statement", "outcome"},
	)

	// statementDuration records statement latency in seconds by name.
	statementDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "store_statement_duration_seconds",
			Help:    "Duration of store statements in seconds.",
			Buckets: []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"statement"},
	)

	// connectAttempts counts session connect attempts by outcome.
	connectAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_connect_attempts_total",
			Help: "Total number of store connect attempts.",
		},
		[]string{"outcome"},
	)

	// sessionReady is 1 while a live session is held.
	sessionReady = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "store_session_ready",
			Help: "Whether the gateway currently holds a live store session.",
		},
	)
)

func init() {
	prometheus.MustRegister(statementsTotal, statementDuration, connectAttempts, sessionReady)
}
