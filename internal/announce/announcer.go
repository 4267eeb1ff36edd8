// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package announce interrupts idle nodes to play an announcement and puts
// every affected node back into its previous grouping and playback state.
package announce

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ManuGH/sonox/internal/log"
	"github.com/ManuGH/sonox/internal/metrics"
	"github.com/ManuGH/sonox/internal/store"
	"github.com/ManuGH/sonox/internal/telemetry"
	"github.com/ManuGH/sonox/internal/zone"
)

// RunStore is the persistence the announcer needs: node leases and the
// pending-restore journal.
type RunStore interface {
	TryAcquireLease(ctx context.Context, key, owner string, ttl time.Duration) (store.Lease, bool, error)
	ReleaseLease(ctx context.Context, key, owner string) error
	PutPending(ctx context.Context, p store.PendingRestore) error
	DeletePending(ctx context.Context, runID string) error
	ListPending(ctx context.Context) ([]store.PendingRestore, error)
}

// Announcer runs announcements against a zone.System.
type Announcer struct {
	sys      zone.System
	store    RunStore
	cfg      Config
	reconf   *Reconfigurator
	player   *Player
	waiter   *Waiter
	restorer *RestoreEngine
	runs     *runRegistry
	tracer   trace.Tracer
	newID    func() string
}

// Option configures an Announcer.
type Option func(*Announcer)

// WithIDGenerator replaces the run ID generator.
func WithIDGenerator(fn func() string) Option {
	return func(a *Announcer) { a.newID = fn }
}

// New returns an Announcer. A nil store falls back to an in-memory one.
func New(sys zone.System, st RunStore, cfg Config, opts ...Option) *Announcer {
	if st == nil {
		st = store.NewMemoryStore()
	}
	cfg = cfg.withDefaults()
	a := &Announcer{
		sys:      sys,
		store:    st,
		cfg:      cfg,
		reconf:   NewReconfigurator(sys),
		player:   NewPlayer(sys),
		waiter:   NewWaiter(sys, cfg.RestorePadding, cfg.ConvergenceTimeout),
		restorer: NewRestoreEngine(sys),
		runs:     newRunRegistry(),
		tracer:   telemetry.Tracer("github.com/ManuGH/sonox/internal/announce"),
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Restorer exposes the restore engine for preset application.
func (a *Announcer) Restorer() *RestoreEngine { return a.restorer }

// Reconfigurator exposes the group reconfigurator.
func (a *Announcer) Reconfigurator() *Reconfigurator { return a.reconf }

// Active lists runs in progress.
func (a *Announcer) Active() []RunInfo { return a.runs.list() }

// Abort cuts the wait of a running announcement short; the run proceeds
// straight to restore. It reports whether the run was found.
func (a *Announcer) Abort(runID string) bool { return a.runs.abort(runID) }

// Announce performs one complete run: select, lock, journal, regroup,
// play, wait, restore. The only error after a successful selection is a
// lock timeout; every later failure is logged and reflected in the Result.
func (a *Announcer) Announce(ctx context.Context, req Request) (Result, error) {
	if err := req.validate(); err != nil {
		return Result{}, err
	}

	runID := a.newID()
	ctx = log.ContextWithRunID(ctx, runID)
	ctx, span := a.tracer.Start(ctx, "announce.run",
		trace.WithAttributes(telemetry.RunAttributes(runID, string(req.Policy), req.ExpectedDuration.Milliseconds())...))
	defer span.End()

	logger := log.WithComponentFromContext(ctx, "announce")
	start := time.Now()

	sel, release, err := a.lockTargets(ctx, runID, req.Policy, a.leaseTTL(req))
	if err != nil {
		kind := ErrorKind(err)
		metrics.RecordAnnouncement(string(req.Policy), kind, 0)
		span.SetAttributes(attribute.String(telemetry.ErrorKindKey, kind))
		span.SetStatus(codes.Error, err.Error())
		logger.Info().Err(err).
			Str(log.FieldEvent, "announce.rejected").
			Str(log.FieldPolicy, string(req.Policy)).
			Msg("announcement not started")
		return Result{RunID: runID, Policy: req.Policy, Message: err.Error()}, err
	}
	defer release()

	rooms := sel.TargetRooms()
	span.SetAttributes(
		attribute.String(telemetry.CoordinatorKey, sel.Coordinator.RoomName),
		attribute.StringSlice(telemetry.TargetsKey, rooms),
	)
	metrics.AnnouncementTargets.WithLabelValues(string(req.Policy)).Observe(float64(len(rooms)))
	metrics.ActiveRuns.Inc()
	defer metrics.ActiveRuns.Dec()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	a.runs.add(RunInfo{
		ID:          runID,
		Policy:      req.Policy,
		Coordinator: sel.Coordinator.RoomName,
		Targets:     rooms,
		Phase:       PhaseReconfiguring,
		StartedAt:   start,
	}, cancel)
	defer a.runs.remove(runID)

	logger.Info().
		Str(log.FieldEvent, "announce.start").
		Str(log.FieldPolicy, string(req.Policy)).
		Str(log.FieldCoordinator, sel.Coordinator.RoomName).
		Strs(log.FieldTargets, rooms).
		Int(log.FieldGroups, len(sel.Snapshots)).
		Str(log.FieldURI, req.SourceURI).
		Int64(log.FieldDuration, req.ExpectedDuration.Milliseconds()).
		Msg("announcement started")

	a.journal(ctx, runID, sel)

	a.reconfigure(runCtx, sel)

	if sel.Policy == PolicyAll && len(sel.Targets) > 1 && runCtx.Err() == nil {
		a.runs.setPhase(runID, PhaseConverging)
		a.waiter.AwaitConvergence(runCtx, sel.Coordinator.ID, sel.TargetIDs())
	}

	outcome := OutcomeAborted
	if runCtx.Err() == nil {
		a.runs.setPhase(runID, PhasePlaying)
		if err := a.player.Start(runCtx, sel.Coordinator.RoomName, req, rooms); err != nil {
			logger.Warn().Err(err).Str(log.FieldEvent, "announce.setup_incomplete").Msg("announcement setup had failures, waiting anyway")
		}
		outcome = a.waiter.AwaitCompletion(runCtx, sel.Coordinator, req.ExpectedDuration)
	}
	span.SetAttributes(attribute.String(telemetry.OutcomeKey, string(outcome)))

	a.runs.setPhase(runID, PhaseRestoring)
	restoreCtx, cancelRestore := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.RestoreTimeout)
	defer cancelRestore()
	report := a.restorer.Restore(restoreCtx, sel.Snapshots)
	if err := a.store.DeletePending(restoreCtx, runID); err != nil {
		logger.Warn().Err(err).Str(log.FieldEvent, "journal.delete_failed").Msg("could not clear pending restore")
	}

	res := Result{
		RunID:       runID,
		Success:     true,
		Policy:      req.Policy,
		Coordinator: sel.Coordinator.RoomName,
		Targets:     rooms,
		Outcome:     outcome,
		Restore:     report,
		Message:     resultMessage(outcome, report),
	}

	runOutcome := string(outcome)
	if !report.OK() {
		runOutcome = "restore_partial"
		span.SetStatus(codes.Error, "restore incomplete")
	}
	elapsed := time.Since(start)
	metrics.RecordAnnouncement(string(req.Policy), runOutcome, elapsed.Seconds())

	evt := logger.Info()
	if !report.OK() {
		evt = logger.Warn()
	}
	evt.
		Str(log.FieldEvent, "announce.done").
		Str(log.FieldOutcome, string(outcome)).
		Int("restore_failures", len(report.Failures)).
		Dur("elapsed", elapsed).
		Msg("announcement finished")
	return res, nil
}

func resultMessage(outcome WaitOutcome, rep RestoreReport) string {
	var played string
	switch outcome {
	case OutcomeAborted:
		played = "announcement aborted"
	case OutcomeTimeout:
		played = "played announcement (timed out)"
	default:
		played = "played announcement"
	}
	if rep.OK() {
		return played + " and groups restored."
	}
	return fmt.Sprintf("%s, restore incomplete: %d failed steps.", played, len(rep.Failures))
}

func (a *Announcer) leaseTTL(req Request) time.Duration {
	return req.ExpectedDuration + a.cfg.RestorePadding + a.cfg.ConvergenceTimeout + a.cfg.RestoreTimeout + a.cfg.LeaseSlack
}

func leaseKey(nodeID string) string { return "node:" + nodeID }

// lockTargets selects targets and leases all of them. On conflict it backs
// off and selects again, since the holder may change what is eligible.
func (a *Announcer) lockTargets(ctx context.Context, owner string, policy Policy, ttl time.Duration) (Selection, func(), error) {
	logger := log.WithComponentFromContext(ctx, "announce")
	deadline := time.Now().Add(a.cfg.LockWaitTimeout)
	for {
		sel, err := Select(ctx, a.sys, policy)
		if err != nil {
			return Selection{}, nil, err
		}
		keys := make([]string, 0, len(sel.Targets))
		for _, id := range sel.TargetIDs() {
			keys = append(keys, leaseKey(id))
		}
		sort.Strings(keys)

		held, holder, err := a.acquireAll(ctx, keys, owner, ttl)
		if err != nil {
			return Selection{}, nil, fmt.Errorf("acquire leases: %w", err)
		}
		if held {
			release := func() {
				relCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
				defer cancel()
				a.releaseAll(relCtx, keys, owner)
			}
			return sel, release, nil
		}

		metrics.LeaseConflictsTotal.Inc()
		logger.Debug().
			Str(log.FieldEvent, "announce.lease_conflict").
			Str("holder", holder).
			Msg("targets leased by another run, retrying")
		if !time.Now().Before(deadline) {
			return Selection{}, nil, fmt.Errorf("%w: held by run %s", ErrTargetsBusy, holder)
		}
		timer := time.NewTimer(a.cfg.LockRetryInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return Selection{}, nil, ctx.Err()
		case <-timer.C:
		}
	}
}

func (a *Announcer) acquireAll(ctx context.Context, keys []string, owner string, ttl time.Duration) (bool, string, error) {
	var acquired []string
	for _, key := range keys {
		l, ok, err := a.store.TryAcquireLease(ctx, key, owner, ttl)
		if err != nil || !ok {
			a.releaseAll(ctx, acquired, owner)
			holder := ""
			if l != nil {
				holder = l.Owner()
			}
			return false, holder, err
		}
		acquired = append(acquired, key)
	}
	return true, "", nil
}

func (a *Announcer) releaseAll(ctx context.Context, keys []string, owner string) {
	for _, key := range keys {
		if err := a.store.ReleaseLease(ctx, key, owner); err != nil {
			logger := log.WithComponentFromContext(ctx, "announce")
			logger.Warn().Err(err).Str(log.FieldEvent, "lease.release_failed").Str("key", key).Msg("could not release lease")
		}
	}
}

func (a *Announcer) journal(ctx context.Context, runID string, sel Selection) {
	logger := log.WithComponentFromContext(ctx, "announce")
	payload, err := json.Marshal(sel.Snapshots)
	if err == nil {
		err = a.store.PutPending(ctx, store.PendingRestore{
			RunID:     runID,
			Policy:    string(sel.Policy),
			CreatedAt: time.Now(),
			Payload:   payload,
		})
	}
	if err != nil {
		logger.Warn().Err(err).Str(log.FieldEvent, "journal.put_failed").Msg("could not journal restore plan, continuing without crash recovery")
	}
}

// reconfigure groups every target under the coordinator. Per-node failures
// are logged and skipped.
func (a *Announcer) reconfigure(ctx context.Context, sel Selection) {
	logger := log.WithComponentFromContext(ctx, "announce")
	coord := sel.Coordinator.RoomName
	if err := a.reconf.Isolate(ctx, coord); err != nil {
		metrics.RecordSetupFailure(StageIsolate)
		logger.Warn().Err(err).Str(log.FieldEvent, "announce.isolate_failed").Str(log.FieldRoom, coord).Msg("could not isolate coordinator")
	}
	for _, n := range sel.Targets[1:] {
		if ctx.Err() != nil {
			return
		}
		if err := a.reconf.Attach(ctx, n.RoomName, coord); err != nil {
			metrics.RecordSetupFailure(StageAttach)
			logger.Warn().Err(err).
				Str(log.FieldEvent, "announce.attach_failed").
				Str(log.FieldRoom, n.RoomName).
				Str(log.FieldCoordinator, coord).
				Msg("could not attach target, skipping it")
		}
	}
}

// RestorePending replays journaled restores left behind by interrupted
// runs. Entries whose nodes are leased by a live run are skipped.
func (a *Announcer) RestorePending(ctx context.Context) (int, error) {
	logger := log.WithComponentFromContext(ctx, "announce.recovery")
	pending, err := a.store.ListPending(ctx)
	if err != nil {
		return 0, fmt.Errorf("list pending restores: %w", err)
	}

	restored := 0
	var errs []error
	for _, p := range pending {
		var snaps []Snapshot
		if err := json.Unmarshal(p.Payload, &snaps); err != nil {
			metrics.PendingRestoresReplayed.WithLabelValues("corrupt").Inc()
			errs = append(errs, fmt.Errorf("decode pending restore %s: %w", p.RunID, err))
			if err := a.store.DeletePending(ctx, p.RunID); err != nil {
				logger.Warn().Err(err).
					Str(log.FieldEvent, "journal.delete_failed").
					Str(log.FieldRunID, p.RunID).
					Msg("could not clear corrupt pending restore")
			}
			continue
		}

		var keys []string
		for _, s := range snaps {
			for _, n := range s.Nodes {
				if n.NodeID != "" {
					keys = append(keys, leaseKey(n.NodeID))
				}
			}
		}
		sort.Strings(keys)
		owner := "recovery-" + p.RunID
		held, holder, err := a.acquireAll(ctx, keys, owner, a.cfg.RestoreTimeout+a.cfg.LeaseSlack)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if !held {
			metrics.PendingRestoresReplayed.WithLabelValues("busy").Inc()
			logger.Info().Str(log.FieldRunID, p.RunID).Str("holder", holder).Msg("pending restore skipped, nodes in use")
			continue
		}

		rep := a.restorer.Restore(log.ContextWithRunID(ctx, p.RunID), snaps)
		a.releaseAll(ctx, keys, owner)
		if err := a.store.DeletePending(ctx, p.RunID); err != nil {
			errs = append(errs, err)
		}
		result := "ok"
		if !rep.OK() {
			result = "partial"
		}
		metrics.PendingRestoresReplayed.WithLabelValues(result).Inc()
		logger.Info().
			Str(log.FieldEvent, "recovery.restored").
			Str(log.FieldRunID, p.RunID).
			Int("entries", rep.Entries).
			Int("failures", len(rep.Failures)).
			Msg("replayed pending restore")
		restored++
	}
	return restored, errors.Join(errs...)
}
