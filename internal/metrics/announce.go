// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AnnouncementsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sonox_announcements_total",
		Help: "Announcement runs by policy and final outcome",
	}, []string{"policy", "outcome"})

	AnnouncementWaitOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sonox_announcement_wait_outcome_total",
		Help: "How the completion wait of an announcement resolved",
	}, []string{"outcome"})

	AnnouncementDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sonox_announcement_duration_seconds",
		Help:    "Wall time of announcement runs from selection to restore completion",
		Buckets: []float64{1, 2, 5, 10, 20, 30, 60, 120},
	}, []string{"policy"})

	AnnouncementTargets = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sonox_announcement_targets",
		Help:    "Number of nodes targeted per announcement run",
		Buckets: []float64{1, 2, 3, 4, 6, 8, 12, 16, 32},
	}, []string{"policy"})

	RestoreFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sonox_restore_failures_total",
		Help: "Per-node restore failures by stage",
	}, []string{"stage"})

	SetupFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sonox_setup_failures_total",
		Help: "Per-node failures while preparing an announcement, by stage",
	}, []string{"stage"})

	ActiveRuns = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sonox_announcement_active_runs",
		Help: "Announcement runs currently in progress",
	})

	LeaseConflictsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sonox_lease_conflicts_total",
		Help: "Lease acquisition attempts that found an overlapping run",
	})

	ActionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sonox_actions_total",
		Help: "Action invocations by action name and result kind",
	}, []string{"action", "result"})

	PendingRestoresReplayed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sonox_pending_restores_replayed_total",
		Help: "Journaled restores replayed after an interrupted run, by result",
	}, []string{"result"})
)

// RecordAnnouncement records the terminal outcome of a run.
func RecordAnnouncement(policy, outcome string, seconds float64) {
	AnnouncementsTotal.WithLabelValues(policy, outcome).Inc()
	if seconds > 0 {
		AnnouncementDuration.WithLabelValues(policy).Observe(seconds)
	}
}

// RecordWaitOutcome counts how a completion wait resolved.
func RecordWaitOutcome(outcome string) {
	AnnouncementWaitOutcomes.WithLabelValues(outcome).Inc()
}

// RecordRestoreFailure counts a failed restore step.
func RecordRestoreFailure(stage string) {
	RestoreFailuresTotal.WithLabelValues(stage).Inc()
}

// RecordSetupFailure counts a failed setup step.
func RecordSetupFailure(stage string) {
	SetupFailuresTotal.WithLabelValues(stage).Inc()
}

// RecordAction counts one action invocation. An empty kind counts as ok.
func RecordAction(action, kind string) {
	if kind == "" {
		kind = "ok"
	}
	ActionsTotal.WithLabelValues(action, kind).Inc()
}
