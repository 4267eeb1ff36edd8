// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package zone

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsLiveStream(t *testing.T) {
	tests := []struct {
		uri  string
		want bool
	}{
		{"x-sonosapi-stream:s17488?sid=254", true},
		{"x-rincon-mp3radio://radio.example/stream", true},
		{"X-RINCON-STREAM:RINCON_000E58", true},
		{"x-sonos-htastream:RINCON_1:spdif", true},
		{"x-rincon-queue:RINCON_1#0", false},
		{"http://host:5005/clips/doorbell.mp3", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			assert.Equal(t, tt.want, IsLiveStream(tt.uri))
		})
	}
}

func TestGroupHelpers(t *testing.T) {
	a := NodeInfo{ID: "A", RoomName: "Kitchen"}
	b := NodeInfo{ID: "B", RoomName: "Living Room", State: PlayerState{PlaybackState: StatePlaying}}
	c := NodeInfo{ID: "C", RoomName: "Office"}
	groups := []Group{
		{ID: "A", Coordinator: a, Members: []NodeInfo{a}},
		{ID: "B", Coordinator: b, Members: []NodeInfo{b, c}},
	}

	assert.True(t, groups[0].Standalone())
	assert.False(t, groups[1].Standalone())
	assert.False(t, groups[0].AnyPlaying())
	assert.True(t, groups[1].AnyPlaying())

	g, ok := GroupOf(groups, "C")
	assert.True(t, ok)
	assert.Equal(t, "B", g.ID)

	n, ok := FindRoom(groups, "living room")
	assert.True(t, ok)
	assert.Equal(t, "B", n.ID)

	_, ok = FindRoom(groups, "Garage")
	assert.False(t, ok)

	assert.Equal(t, []string{"A", "B", "C"}, ids(NodesOf(groups)))
	assert.True(t, IsGroupURI(GroupURI("B")))
}

func ids(nodes []NodeInfo) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.ID)
	}
	return out
}
