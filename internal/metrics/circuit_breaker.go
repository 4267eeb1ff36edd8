// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	circuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "sonox_circuit_breaker_state",
		Help: "Circuit breaker state by target (1 for the active state, 0 otherwise)",
	}, []string{"target", "state"})

	CircuitBreakerTrips = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sonox_circuit_breaker_trips_total",
		Help: "Total number of circuit breaker transitions to open",
	}, []string{"target", "reason"})

	CircuitBreakerRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sonox_circuit_breaker_rejected_total",
		Help: "Calls rejected without reaching the target because the breaker was open",
	}, []string{"target"})
)

var circuitStates = []string{"closed", "half-open", "open"}

// SetCircuitBreakerState records the active circuit breaker state for a target.
func SetCircuitBreakerState(target, state string) {
	for _, s := range circuitStates {
		value := 0.0
		if s == state {
			value = 1.0
		}
		circuitBreakerState.WithLabelValues(target, s).Set(value)
	}
}

// RecordCircuitBreakerTrip increments the trip counter when a breaker opens.
func RecordCircuitBreakerTrip(target, reason string) {
	CircuitBreakerTrips.WithLabelValues(target, reason).Inc()
}

// RecordCircuitBreakerRejected counts a short-circuited call.
func RecordCircuitBreakerRejected(target string) {
	CircuitBreakerRejected.WithLabelValues(target).Inc()
}
