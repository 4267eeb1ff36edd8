// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package announce

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/sonox/internal/bus"
	"github.com/ManuGH/sonox/internal/zone"
	"github.com/ManuGH/sonox/internal/zone/memsys"
)

// scramble mimics an announcement: everything idle grouped under Kitchen
// at a raised volume, playing the clip.
func scramble(t *testing.T, sys *memsys.System) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, sys.Regroup(ctx, "Living", "Kitchen"))
	require.NoError(t, sys.Regroup(ctx, "Dining", "Kitchen"))
	for _, room := range []string{"Living", "Dining", "Kitchen"} {
		n, err := sys.Node(ctx, room)
		require.NoError(t, err)
		require.NoError(t, n.SetVolume(ctx, 60))
	}
	kitchen, err := sys.Node(ctx, "Kitchen")
	require.NoError(t, err)
	require.NoError(t, kitchen.SetSourceURI(ctx, clipURI, ""))
	require.NoError(t, kitchen.Play(ctx))
}

func TestRestoreIsIdempotent(t *testing.T) {
	sys := memsys.New(bus.NewMemoryBus())
	t.Cleanup(func() { _ = sys.Close() })
	seedScenarioA(sys)
	ctx := context.Background()

	before, err := sys.Groups(ctx)
	require.NoError(t, err)
	sel, err := Select(ctx, sys, PolicyAll)
	require.NoError(t, err)

	scramble(t, sys)
	engine := NewRestoreEngine(sys)

	first := engine.Restore(ctx, sel.Snapshots)
	require.True(t, first.OK(), "first restore: %v", first.Err())
	once, err := sys.Groups(ctx)
	require.NoError(t, err)

	second := engine.Restore(ctx, sel.Snapshots)
	require.True(t, second.OK(), "second restore: %v", second.Err())
	twice, err := sys.Groups(ctx)
	require.NoError(t, err)

	if diff := cmp.Diff(once, twice); diff != "" {
		t.Errorf("second restore changed state (-once +twice):\n%s", diff)
	}
	assert.Equal(t, layout(t, sys), map[string][]string{
		"Office":  {"Office"},
		"Living":  {"Dining", "Living"},
		"Kitchen": {"Kitchen"},
	})
	for _, g := range before {
		for _, m := range g.Members {
			assert.Equal(t, m.State.Volume, nodeInfo(t, sys, m.RoomName).State.Volume, m.RoomName)
		}
	}
}

func TestRestoreSecondPassIssuesNoRegrouping(t *testing.T) {
	sys := memsys.New(bus.NewMemoryBus())
	t.Cleanup(func() { _ = sys.Close() })
	seedScenarioA(sys)
	ctx := context.Background()

	sel, err := Select(ctx, sys, PolicyAll)
	require.NoError(t, err)
	scramble(t, sys)
	engine := NewRestoreEngine(sys)
	require.True(t, engine.Restore(ctx, sel.Snapshots).OK())

	sys.ResetCalls()
	require.True(t, engine.Restore(ctx, sel.Snapshots).OK())
	for _, c := range sys.Calls() {
		assert.NotEqual(t, "standalone", c.Op, "unexpected isolate of %s", c.Room)
		if c.Op == "source" {
			assert.False(t, zone.IsGroupURI(c.Arg), "unexpected attach of %s", c.Room)
		}
	}
}

func TestRestoreContinuesPastUnreachableNode(t *testing.T) {
	sys := memsys.New(bus.NewMemoryBus())
	t.Cleanup(func() { _ = sys.Close() })
	seedScenarioA(sys)
	ctx := context.Background()

	sel, err := Select(ctx, sys, PolicyAll)
	require.NoError(t, err)
	scramble(t, sys)
	sys.SetFault("Living", zone.ErrUnreachable)

	rep := NewRestoreEngine(sys).Restore(ctx, sel.Snapshots)
	require.False(t, rep.OK())
	assert.Equal(t, 2, rep.Entries)
	require.Len(t, rep.Failures, 1)
	assert.Equal(t, "Living", rep.Failures[0].Room)
	assert.Equal(t, StageIsolate, rep.Failures[0].Stage)
	assert.ErrorIs(t, rep.Err(), zone.ErrUnreachable)

	assert.Equal(t, []string{"Kitchen"}, layout(t, sys)["Kitchen"])
	assert.Equal(t, 18, nodeInfo(t, sys, "Kitchen").State.Volume)
}

func TestRestoreMissingRoomIsSkipped(t *testing.T) {
	sys := memsys.New(bus.NewMemoryBus())
	t.Cleanup(func() { _ = sys.Close() })
	sys.AddGroup(memsys.Room{ID: "D", Name: "Kitchen", Volume: 60, URI: "x-rincon-queue:D#0"})
	ctx := context.Background()

	snaps := []Snapshot{
		{Kind: KindNode, Nodes: []NodeSnapshot{{Room: "Attic", Volume: 10}}},
		{Kind: KindNode, Nodes: []NodeSnapshot{{Room: "Kitchen", Volume: 18, SourceURI: "x-rincon-queue:D#0", PlaybackState: zone.StateStopped}}},
	}
	rep := NewRestoreEngine(sys).Restore(ctx, snaps)
	require.Len(t, rep.Failures, 1)
	assert.Equal(t, "Attic", rep.Failures[0].Room)
	assert.ErrorIs(t, rep.Failures[0].Err, ErrTargetNotFound)
	assert.Equal(t, 18, nodeInfo(t, sys, "Kitchen").State.Volume)
}

func TestRestoreResumesPlayback(t *testing.T) {
	sys := memsys.New(bus.NewMemoryBus())
	t.Cleanup(func() { _ = sys.Close() })
	sys.AddGroup(memsys.Room{ID: "D", Name: "Kitchen", Volume: 60, URI: clipURI})
	ctx := context.Background()

	snap := Snapshot{Kind: KindNode, Nodes: []NodeSnapshot{{
		Room: "Kitchen", Volume: 25, PlaybackState: zone.StatePlaying,
		SourceURI: "x-sonosapi-stream:s1234", Repeat: zone.RepeatNone,
	}}}
	require.Empty(t, NewRestoreEngine(sys).Apply(ctx, snap))

	kitchen := nodeInfo(t, sys, "Kitchen")
	assert.Equal(t, zone.StatePlaying, kitchen.State.PlaybackState)
	assert.Equal(t, "x-sonosapi-stream:s1234", kitchen.SourceURI)
	assert.Equal(t, 25, kitchen.State.Volume)
	for _, c := range sys.Calls() {
		assert.NotEqual(t, "seek", c.Op, "live streams are never seeked")
	}
}

func TestRestoreAttachesMembersOfLoneCoordinator(t *testing.T) {
	sys := memsys.New(bus.NewMemoryBus())
	t.Cleanup(func() { _ = sys.Close() })
	seedScenarioA(sys)
	ctx := context.Background()

	sel, err := Select(ctx, sys, PolicyAll)
	require.NoError(t, err)
	// Dining leaves Living, so Living still coordinates a subset of its snapshot.
	dining, err := sys.Node(ctx, "Dining")
	require.NoError(t, err)
	require.NoError(t, dining.BecomeStandaloneCoordinator(ctx))

	rep := NewRestoreEngine(sys).Restore(ctx, sel.Snapshots)
	require.True(t, rep.OK(), rep.Err())
	assert.Equal(t, []string{"Dining", "Living"}, layout(t, sys)["Living"])
}
