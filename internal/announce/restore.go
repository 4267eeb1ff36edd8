// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package announce

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/ManuGH/sonox/internal/log"
	"github.com/ManuGH/sonox/internal/metrics"
	"github.com/ManuGH/sonox/internal/zone"
)

// Restore stages, used in reports and metrics.
const (
	StageIsolate = "isolate"
	StageAttach  = "attach"
	StageLookup  = "lookup"
	StageSource  = "source"
	StageRepeat  = "repeat"
	StageSeek    = "seek"
	StageVolume  = "volume"
	StagePlay    = "play"
)

// RestoreFailure is one failed restore step.
type RestoreFailure struct {
	Room  string `json:"room"`
	Stage string `json:"stage"`
	Err   error  `json:"-"`
}

func (f RestoreFailure) Error() string {
	return fmt.Sprintf("%s %s: %v", f.Stage, f.Room, f.Err)
}

func (f RestoreFailure) Unwrap() error { return f.Err }

// RestoreReport summarises a restore pass.
type RestoreReport struct {
	Entries  int              `json:"entries"`
	Failures []RestoreFailure `json:"failures,omitempty"`
}

// OK reports whether every step succeeded.
func (r RestoreReport) OK() bool {
	return len(r.Failures) == 0
}

// Err joins the failures, or returns nil.
func (r RestoreReport) Err() error {
	if r.OK() {
		return nil
	}
	errs := make([]error, 0, len(r.Failures))
	for _, f := range r.Failures {
		errs = append(errs, f)
	}
	return errors.Join(errs...)
}

// RestoreEngine replays snapshots. Entries are applied strictly in order
// and a failing node never stops the remaining entries.
type RestoreEngine struct {
	sys    zone.System
	reconf *Reconfigurator
}

// NewRestoreEngine returns an engine driving sys.
func NewRestoreEngine(sys zone.System) *RestoreEngine {
	return &RestoreEngine{sys: sys, reconf: NewReconfigurator(sys)}
}

// Restore applies every snapshot in order.
func (e *RestoreEngine) Restore(ctx context.Context, snapshots []Snapshot) RestoreReport {
	var rep RestoreReport
	for _, snap := range snapshots {
		if len(snap.Nodes) == 0 {
			continue
		}
		rep.Entries++
		rep.Failures = append(rep.Failures, e.Apply(ctx, snap)...)
	}
	return rep
}

// formed reports whether the snapshot's coordinator already leads exactly
// the snapshot's members. Nodes missing from the topology are ignored.
// Isolating a formed group would only break it apart again.
// joined reports whether ns is currently a member of a group coordinated by another node.
func (e *RestoreEngine) joined(ctx context.Context, ns NodeSnapshot) bool {
	groups, err := e.sys.Groups(ctx)
	if err != nil {
		return false
	}
	for _, g := range groups {
		if matchesNode(g.Coordinator, ns) {
			continue
		}
		if slices.ContainsFunc(g.Members, func(m zone.NodeInfo) bool { return matchesNode(m, ns) }) {
			return true
		}
	}
	return false
}

func (e *RestoreEngine) formed(ctx context.Context, snap Snapshot) bool {
	groups, err := e.sys.Groups(ctx)
	if err != nil {
		return false
	}
	coord := snap.Coordinator()
	var group zone.Group
	found := false
	for _, g := range groups {
		if matchesNode(g.Coordinator, coord) {
			group, found = g, true
			break
		}
	}
	if !found {
		return false
	}
	for _, m := range group.Members {
		if !slices.ContainsFunc(snap.Nodes, func(ns NodeSnapshot) bool { return matchesNode(m, ns) }) {
			return false
		}
	}
	for _, ns := range snap.Nodes {
		inGroup := slices.ContainsFunc(group.Members, func(m zone.NodeInfo) bool { return matchesNode(m, ns) })
		if inGroup {
			continue
		}
		for _, n := range zone.NodesOf(groups) {
			if matchesNode(n, ns) {
				return false
			}
		}
	}
	return true
}

func matchesNode(n zone.NodeInfo, ns NodeSnapshot) bool {
	if ns.NodeID != "" {
		return n.ID == ns.NodeID
	}
	return strings.EqualFold(n.RoomName, ns.Room)
}

// Apply restores a single snapshot and returns its failed steps.
func (e *RestoreEngine) Apply(ctx context.Context, snap Snapshot) []RestoreFailure {
	logger := log.WithComponentFromContext(ctx, "announce.restore")
	var failures []RestoreFailure
	fail := func(room, stage string, err error) {
		metrics.RecordRestoreFailure(stage)
		logger.Error().Err(err).
			Str(log.FieldEvent, "restore.step_failed").
			Str(log.FieldRoom, room).
			Str("stage", stage).
			Msg("restore step failed")
		failures = append(failures, RestoreFailure{Room: room, Stage: stage, Err: err})
	}

	coord := snap.Coordinator()
	if snap.Kind == KindGroup && !e.formed(ctx, snap) {
		if err := e.reconf.Isolate(ctx, coord.Room); err != nil {
			fail(coord.Room, StageIsolate, err)
			return failures
		}
		for _, m := range snap.Nodes[1:] {
			if err := e.reconf.Attach(ctx, m.Room, coord.Room); err != nil {
				fail(m.Room, StageAttach, err)
			}
		}
	} else if snap.Kind == KindNode && !zone.IsGroupURI(coord.SourceURI) && e.joined(ctx, coord) {
		if err := e.reconf.Isolate(ctx, coord.Room); err != nil {
			fail(coord.Room, StageIsolate, err)
			return failures
		}
	}

	n, err := e.sys.Node(ctx, coord.Room)
	if err != nil {
		fail(coord.Room, StageLookup, &TargetNotFoundError{Room: coord.Room, Err: err})
		return failures
	}

	if coord.SourceURI != "" {
		if err := n.SetSourceURI(ctx, coord.SourceURI, coord.SourceMetadata); err != nil {
			fail(coord.Room, StageSource, err)
		}
	}
	ownTransport := !zone.IsGroupURI(coord.SourceURI)
	if ownTransport {
		if coord.Repeat != "" {
			if err := n.SetRepeat(ctx, coord.Repeat); err != nil {
				fail(coord.Room, StageRepeat, err)
			}
		}
		if coord.TrackNo != nil && *coord.TrackNo > 0 {
			elapsed := 0
			if coord.ElapsedTime != nil {
				elapsed = *coord.ElapsedTime
			}
			if err := n.Seek(ctx, *coord.TrackNo, elapsed); err != nil {
				fail(coord.Room, StageSeek, err)
			}
		}
	}

	for _, ns := range snap.Nodes {
		target := n
		if ns.Room != coord.Room {
			target, err = e.sys.Node(ctx, ns.Room)
			if err != nil {
				fail(ns.Room, StageLookup, &TargetNotFoundError{Room: ns.Room, Err: err})
				continue
			}
		}
		if err := target.SetVolume(ctx, ns.Volume); err != nil {
			fail(ns.Room, StageVolume, err)
		}
	}

	if ownTransport {
		switch {
		case coord.PlaybackState == zone.StatePlaying:
			if err := n.Play(ctx); err != nil {
				fail(coord.Room, StagePlay, err)
			}
		case coord.SourceURI == "":
			// nothing replaced the announcement source, stop it explicitly
			if err := n.Pause(ctx); err != nil {
				fail(coord.Room, StagePlay, err)
			}
		}
	}

	if len(failures) == 0 {
		logger.Debug().
			Str(log.FieldEvent, "restore.entry_done").
			Str(log.FieldRoom, coord.Room).
			Strs("rooms", snap.Rooms()).
			Msg("snapshot restored")
	}
	return failures
}
