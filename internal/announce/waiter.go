// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package announce

import (
	"context"
	"strings"
	"time"

	"github.com/ManuGH/sonox/internal/bus"
	"github.com/ManuGH/sonox/internal/log"
	"github.com/ManuGH/sonox/internal/metrics"
	"github.com/ManuGH/sonox/internal/zone"
)

// WaitOutcome tells how a completion wait resolved.
type WaitOutcome string

const (
	OutcomeStopped WaitOutcome = "stopped"
	OutcomeTimeout WaitOutcome = "timeout"
	OutcomeAborted WaitOutcome = "aborted"
)

// Waiter decides when an announcement is over. Every subscription it opens
// is closed before its methods return.
type Waiter struct {
	sys                zone.System
	padding            time.Duration
	convergenceTimeout time.Duration
}

// NewWaiter returns a Waiter. padding is added to the expected duration to
// form the hard ceiling; convergenceTimeout bounds the topology gate.
func NewWaiter(sys zone.System, padding, convergenceTimeout time.Duration) *Waiter {
	return &Waiter{sys: sys, padding: padding, convergenceTimeout: convergenceTimeout}
}

// Converged reports whether the topology carries every target in the
// coordinator's group. A system reduced to one group always qualifies.
func Converged(groups []zone.Group, coordinatorID string, targetIDs []string) bool {
	if len(groups) == 1 {
		return true
	}
	g, ok := zone.GroupOf(groups, coordinatorID)
	if !ok || g.Coordinator.ID != coordinatorID {
		return false
	}
	for _, id := range targetIDs {
		if !g.Contains(id) {
			return false
		}
	}
	return true
}

// AwaitConvergence blocks until the topology converged, the convergence
// timeout elapsed or ctx ended. It returns true only on convergence.
func (w *Waiter) AwaitConvergence(ctx context.Context, coordinatorID string, targetIDs []string) bool {
	logger := log.WithComponentFromContext(ctx, "announce.waiter")

	sub, err := w.sys.Subscribe(ctx, zone.TopicTopology)
	if err != nil {
		logger.Warn().Err(err).Str(log.FieldEvent, "wait.subscribe_failed").Msg("topology subscription failed, skipping convergence gate")
		return false
	}
	defer sub.Close()

	// subscribe before reading so a change between the two is not missed
	if groups, err := w.sys.Groups(ctx); err == nil && Converged(groups, coordinatorID, targetIDs) {
		return true
	}

	timer := time.NewTimer(w.convergenceTimeout)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return false
		case <-timer.C:
			logger.Warn().
				Str(log.FieldEvent, "wait.convergence_timeout").
				Dur("timeout", w.convergenceTimeout).
				Msg("topology did not converge, starting playback anyway")
			return false
		case msg := <-sub.C():
			evt, ok := msg.(zone.TopologyEvent)
			if ok && Converged(evt.Groups, coordinatorID, targetIDs) {
				return true
			}
		}
	}
}

// AwaitCompletion races natural completion against a hard ceiling of
// expected+padding. STOPPED events are only considered from expected/2 on,
// which skips the transient stop while the source is switched.
func (w *Waiter) AwaitCompletion(ctx context.Context, coordinator zone.NodeInfo, expected time.Duration) WaitOutcome {
	outcome := w.awaitCompletion(ctx, coordinator, expected)
	metrics.RecordWaitOutcome(string(outcome))
	logger := log.WithComponentFromContext(ctx, "announce.waiter")
	logger.Debug().
		Str(log.FieldEvent, "wait.resolved").
		Str(log.FieldOutcome, string(outcome)).
		Str(log.FieldRoom, coordinator.RoomName).
		Msg("completion wait resolved")
	return outcome
}

func (w *Waiter) awaitCompletion(ctx context.Context, coordinator zone.NodeInfo, expected time.Duration) WaitOutcome {
	if expected < 0 {
		expected = 0
	}
	ceiling := time.NewTimer(expected + w.padding)
	defer ceiling.Stop()
	guard := time.NewTimer(expected / 2)
	defer guard.Stop()

	var (
		sub    bus.Subscriber
		events <-chan bus.Message
	)
	defer func() {
		if sub != nil {
			_ = sub.Close()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return OutcomeAborted
		case <-ceiling.C:
			return OutcomeTimeout
		case <-guard.C:
			s, err := w.sys.Subscribe(ctx, zone.TopicTransport)
			if err != nil {
				logger := log.WithComponentFromContext(ctx, "announce.waiter")
				logger.Warn().Err(err).Str(log.FieldEvent, "wait.subscribe_failed").Msg("transport subscription failed, waiting for timeout")
				continue
			}
			sub = s
			events = s.C()
		case msg := <-events:
			if isStoppedFor(msg, coordinator) {
				return OutcomeStopped
			}
		}
	}
}

func isStoppedFor(msg bus.Message, coordinator zone.NodeInfo) bool {
	evt, ok := msg.(zone.TransportEvent)
	if !ok || evt.State.PlaybackState != zone.StateStopped {
		return false
	}
	if evt.NodeID != "" {
		return evt.NodeID == coordinator.ID
	}
	return strings.EqualFold(evt.RoomName, coordinator.RoomName)
}
