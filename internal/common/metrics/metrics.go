// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SourceCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "research_source_calls_total",
			Help: "Total number of source adapter calls by outcome",
		},
		[]string{"source", "outcome"},
	)

	SourceCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "research_source_call_duration_seconds",
			Help: "Duration of source adapter calls in seconds",
		},
		[]string{"source"},
	)

	RetryAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "research_retry_attempts_total",
			Help: "Total number of retry attempts per source",
		},
		[]string{"source"},
	)

	CircuitTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "research_circuit_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"source", "to_state"},
	)

	RunIterations = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "research_run_iterations",
			Help:    "Iterations consumed per research run",
			Buckets: []float64{1, 2, 3, 4, 5, 8, 10},
		},
	)

	EvidenceCollected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "research_evidence_collected_total",
			Help: "Total evidence items accepted into run state per source",
		},
		[]string{"source"},
	)

	RunsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "research_runs_completed_total",
			Help: "Total research runs completed by outcome",
		},
		[]string{"outcome"},
	)
)
