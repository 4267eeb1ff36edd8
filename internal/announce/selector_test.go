// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package announce

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/sonox/internal/zone"
)

func node(id, room string, state zone.PlaybackState, uri string) zone.NodeInfo {
	return zone.NodeInfo{ID: id, RoomName: room, SourceURI: uri, State: zone.PlayerState{PlaybackState: state, Volume: 20, TrackNo: 4, ElapsedTime: 17}}
}

func scenarioAGroups() []zone.Group {
	a := node("A", "Office", zone.StatePlaying, "x-sonosapi-stream:s1")
	b := node("B", "Living", zone.StateStopped, "x-rincon-queue:B#0")
	c := node("C", "Dining", zone.StateStopped, zone.GroupURI("B"))
	d := node("D", "Kitchen", zone.StateStopped, "x-rincon-queue:D#0")
	return []zone.Group{
		{ID: "A:1", Coordinator: a, Members: []zone.NodeInfo{a}},
		{ID: "B:1", Coordinator: b, Members: []zone.NodeInfo{b, c}},
		{ID: "D:1", Coordinator: d, Members: []zone.NodeInfo{d}},
	}
}

func TestSelectAllCapturesIdleGroups(t *testing.T) {
	sel, err := SelectFrom(scenarioAGroups(), PolicyAll)
	require.NoError(t, err)

	require.Len(t, sel.Snapshots, 2)
	assert.Equal(t, KindGroup, sel.Snapshots[0].Kind)
	assert.Equal(t, []string{"Living", "Dining"}, sel.Snapshots[0].Rooms())
	assert.Equal(t, []string{"Kitchen"}, sel.Snapshots[1].Rooms())
	assert.Equal(t, "Living", sel.Coordinator.RoomName)
	assert.Equal(t, []string{"Living", "Dining", "Kitchen"}, sel.TargetRooms())
	assert.Equal(t, []string{"B", "C", "D"}, sel.TargetIDs())
}

func TestSelectAvailableCapturesIdleNodes(t *testing.T) {
	sel, err := SelectFrom(scenarioAGroups(), PolicyAvailable)
	require.NoError(t, err)

	require.Len(t, sel.Snapshots, 3)
	for _, s := range sel.Snapshots {
		assert.Equal(t, KindNode, s.Kind)
		assert.Len(t, s.Nodes, 1)
	}
	assert.Equal(t, "Living", sel.Coordinator.RoomName)
	assert.Equal(t, []string{"Living", "Dining", "Kitchen"}, sel.TargetRooms())
}

func TestSelectNeverIncludesPlaying(t *testing.T) {
	groups := scenarioAGroups()
	groups[1].Members[1].State.PlaybackState = zone.StatePlaying

	for _, policy := range []Policy{PolicyAll, PolicyAvailable} {
		sel, err := SelectFrom(groups, policy)
		require.NoError(t, err)
		for _, n := range sel.Targets {
			assert.NotEqual(t, zone.StatePlaying, n.State.PlaybackState, "%s selected %s", policy, n.RoomName)
		}
	}

	sel, err := SelectFrom(groups, PolicyAll)
	require.NoError(t, err)
	assert.Equal(t, []string{"Kitchen"}, sel.TargetRooms())
}

func TestSelectNoEligibleTargets(t *testing.T) {
	a := node("A", "Office", zone.StatePlaying, "x-sonosapi-stream:s1")
	groups := []zone.Group{{Coordinator: a, Members: []zone.NodeInfo{a}}}

	_, err := SelectFrom(groups, PolicyAll)
	var target *NoEligibleTargetsError
	require.ErrorAs(t, err, &target)
	assert.Equal(t, PolicyAll, target.Policy)

	_, err = SelectFrom(nil, PolicyAvailable)
	assert.ErrorIs(t, err, ErrNoEligibleTargets)
}

func TestParsePolicy(t *testing.T) {
	for in, want := range map[string]Policy{"all": PolicyAll, "ALL": PolicyAll, "available": PolicyAvailable} {
		got, err := ParsePolicy(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParsePolicy("some")
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestCaptureNodeDropsPositionForStreams(t *testing.T) {
	queue := CaptureNode(node("B", "Living", zone.StatePaused, "x-rincon-queue:B#0"))
	require.NotNil(t, queue.TrackNo)
	assert.Equal(t, 4, *queue.TrackNo)
	assert.Equal(t, 17, *queue.ElapsedTime)

	for _, uri := range []string{"x-sonosapi-stream:s1", "x-rincon-stream:RINCON_1", zone.GroupURI("B")} {
		snap := CaptureNode(node("C", "Dining", zone.StateStopped, uri))
		assert.Nil(t, snap.TrackNo, uri)
		assert.Nil(t, snap.ElapsedTime, uri)
	}
}
