// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BusPublishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sonox_bus_published_total",
		Help: "Total number of events published on the in-memory bus by topic",
	}, []string{"topic"})

	BusDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sonox_bus_dropped_total",
		Help: "Total number of in-memory bus message drops by topic and reason",
	}, []string{"topic", "reason"})

	BusSubscribers = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "sonox_bus_subscribers",
		Help: "Current number of bus subscribers by topic",
	}, []string{"topic"})
)

// IncBusPublished records a delivered publish for the given topic.
func IncBusPublished(topic string) {
	BusPublishedTotal.WithLabelValues(orUnknown(topic)).Inc()
}

// IncBusDropReason records a dropped bus message with a concrete reason.
func IncBusDropReason(topic, reason string) {
	BusDroppedTotal.WithLabelValues(orUnknown(topic), orUnknown(reason)).Inc()
}

// AddBusSubscribers adjusts the subscriber gauge for a topic.
func AddBusSubscribers(topic string, delta float64) {
	BusSubscribers.WithLabelValues(orUnknown(topic)).Add(delta)
}

func orUnknown(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
