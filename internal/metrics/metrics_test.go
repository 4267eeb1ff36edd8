// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getGaugeValue(t *testing.T, gauge prometheus.Gauge) float64 {
	t.Helper()
	metric := &dto.Metric{}
	require.NoError(t, gauge.Write(metric))
	return metric.GetGauge().GetValue()
}

func getCounterValue(t *testing.T, counter prometheus.Counter) float64 {
	t.Helper()
	metric := &dto.Metric{}
	require.NoError(t, counter.Write(metric))
	return metric.GetCounter().GetValue()
}

func getHistogramCount(t *testing.T, obs prometheus.Observer) uint64 {
	t.Helper()
	metric := &dto.Metric{}
	require.NoError(t, obs.(prometheus.Metric).Write(metric))
	return metric.GetHistogram().GetSampleCount()
}

func TestRecordAnnouncement(t *testing.T) {
	counter := AnnouncementsTotal.WithLabelValues("all", "completed")
	hist := AnnouncementDuration.WithLabelValues("all")
	before := getCounterValue(t, counter)
	beforeObs := getHistogramCount(t, hist)

	RecordAnnouncement("all", "completed", 3.5)
	RecordAnnouncement("all", "completed", 0)

	assert.Equal(t, before+2, getCounterValue(t, counter))
	assert.Equal(t, beforeObs+1, getHistogramCount(t, hist), "zero durations are not observed")
}

func TestRecordActionDefaultsToOK(t *testing.T) {
	ok := ActionsTotal.WithLabelValues("clipall", "ok")
	busy := ActionsTotal.WithLabelValues("clipall", "targets_busy")
	beforeOK, beforeBusy := getCounterValue(t, ok), getCounterValue(t, busy)

	RecordAction("clipall", "")
	RecordAction("clipall", "targets_busy")

	assert.Equal(t, beforeOK+1, getCounterValue(t, ok))
	assert.Equal(t, beforeBusy+1, getCounterValue(t, busy))
}

func TestRunStageCounters(t *testing.T) {
	tests := []struct {
		name    string
		record  func()
		counter prometheus.Counter
	}{
		{"wait outcome", func() { RecordWaitOutcome("aborted") }, AnnouncementWaitOutcomes.WithLabelValues("aborted")},
		{"restore failure", func() { RecordRestoreFailure("volume") }, RestoreFailuresTotal.WithLabelValues("volume")},
		{"setup failure", func() { RecordSetupFailure("play") }, SetupFailuresTotal.WithLabelValues("play")},
		{"bridge retry", func() { IncBridgeRetry("groups") }, BridgeRetriesTotal.WithLabelValues("groups")},
		{"bridge event", func() { IncBridgeEvent("volume-change", "ok") }, BridgeEventsTotal.WithLabelValues("volume-change", "ok")},
		{"republish", func() { IncRepublish("mqtt", "dropped") }, RepublishTotal.WithLabelValues("mqtt", "dropped")},
		{"breaker trip", func() { RecordCircuitBreakerTrip("bridge", "failures") }, CircuitBreakerTrips.WithLabelValues("bridge", "failures")},
		{"breaker reject", func() { RecordCircuitBreakerRejected("bridge") }, CircuitBreakerRejected.WithLabelValues("bridge")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := getCounterValue(t, tt.counter)
			tt.record()
			assert.Equal(t, before+1, getCounterValue(t, tt.counter))
		})
	}
}

func TestBusMetricsNormalizeEmptyLabels(t *testing.T) {
	published := BusPublishedTotal.WithLabelValues("unknown")
	dropped := BusDroppedTotal.WithLabelValues("unknown", "unknown")
	subs := BusSubscribers.WithLabelValues("metrics-test")
	beforePub, beforeDrop := getCounterValue(t, published), getCounterValue(t, dropped)

	IncBusPublished("")
	IncBusDropReason("", "")
	AddBusSubscribers("metrics-test", 2)
	AddBusSubscribers("metrics-test", -1)

	assert.Equal(t, beforePub+1, getCounterValue(t, published))
	assert.Equal(t, beforeDrop+1, getCounterValue(t, dropped))
	assert.Equal(t, 1.0, getGaugeValue(t, subs))
}

func TestSetCircuitBreakerStateIsExclusive(t *testing.T) {
	SetCircuitBreakerState("metrics-test", "open")
	assert.Equal(t, 1.0, getGaugeValue(t, circuitBreakerState.WithLabelValues("metrics-test", "open")))
	assert.Equal(t, 0.0, getGaugeValue(t, circuitBreakerState.WithLabelValues("metrics-test", "closed")))

	SetCircuitBreakerState("metrics-test", "half-open")
	assert.Equal(t, 0.0, getGaugeValue(t, circuitBreakerState.WithLabelValues("metrics-test", "open")))
	assert.Equal(t, 1.0, getGaugeValue(t, circuitBreakerState.WithLabelValues("metrics-test", "half-open")))
}
