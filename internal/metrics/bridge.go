// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BridgeRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sonox_bridge_request_duration_seconds",
		Help:    "Latency of discovery bridge requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "status"})

	BridgeRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sonox_bridge_retries_total",
		Help: "Retried discovery bridge requests",
	}, []string{"operation"})

	BridgeEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sonox_bridge_events_total",
		Help: "Events received from the discovery bridge webhook",
	}, []string{"type", "result"})

	RepublishTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sonox_republish_total",
		Help: "Events forwarded to external sinks (mqtt, textsync) by result",
	}, []string{"sink", "result"})
)

// ObserveBridgeRequest records one bridge round trip.
func ObserveBridgeRequest(operation, status string, seconds float64) {
	BridgeRequestDuration.WithLabelValues(operation, status).Observe(seconds)
}

// IncBridgeRetry counts a retry attempt.
func IncBridgeRetry(operation string) {
	BridgeRetriesTotal.WithLabelValues(operation).Inc()
}

// IncBridgeEvent counts a received webhook event.
func IncBridgeEvent(eventType, result string) {
	BridgeEventsTotal.WithLabelValues(eventType, result).Inc()
}

// IncRepublish counts an event forwarded to an external sink.
func IncRepublish(sink, result string) {
	RepublishTotal.WithLabelValues(sink, result).Inc()
}
