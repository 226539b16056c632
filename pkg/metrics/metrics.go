package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics for monitoring
var (
	Transfers = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bridge_transfers_total",
		Help: "The total number of transfers and recoveries by route and outcome",
	}, []string{"source_chain", "dest_chain", "mode", "outcome"})

	StepDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bridge_step_duration_seconds",
		Help:    "Time taken by each protocol step",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 12), // Start at 0.5s with 12 buckets doubling in size
	}, []string{"chain_id", "step", "state"})

	BurnAttempts = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bridge_burn_attempts",
		Help:    "Number of burn submissions needed per transfer",
		Buckets: []float64{1, 2, 3, 4, 5},
	}, []string{"chain_id"})

	MintOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bridge_mint_outcomes_total",
		Help: "Mint results by resolution (confirmed, already_completed, timeout, expired, failed)",
	}, []string{"chain_id", "outcome"})

	AttestationPolls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bridge_attestation_polls_total",
		Help: "Attestation service requests by result",
	}, []string{"source_domain", "result"})

	AttestationCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bridge_attestation_cache_hits_total",
		Help: "Attestations served from the in-process cache",
	})

	ClassifiedErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bridge_errors_total",
		Help: "Total number of step errors by classification",
	}, []string{"chain_id", "step", "class"})

	CircuitBreakerStatus = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bridge_attestation_circuit_open",
		Help: "Whether the attestation service circuit breaker is open (1) or closed (0)",
	})
)
