// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package announce

import (
	"github.com/ManuGH/sonox/internal/zone"
)

// SnapshotKind distinguishes restorable descriptors.
type SnapshotKind string

const (
	// KindGroup restores membership (isolate coordinator, attach members)
	// before reapplying state.
	KindGroup SnapshotKind = "group"
	// KindNode restores a single node's state. A node still joined to
	// another coordinator is made standalone first unless its captured
	// source is itself a group URI.
	KindNode SnapshotKind = "node"
)

// NodeSnapshot is the captured state of one node.
type NodeSnapshot struct {
	Room           string             `json:"roomName"`
	NodeID         string             `json:"uuid"`
	Volume         int                `json:"volume"`
	PlaybackState  zone.PlaybackState `json:"state"`
	SourceURI      string             `json:"uri,omitempty"`
	SourceMetadata string             `json:"metadata,omitempty"`
	Repeat         zone.RepeatMode    `json:"repeat,omitempty"`
	TrackNo        *int               `json:"trackNo,omitempty"`
	ElapsedTime    *int               `json:"elapsedTime,omitempty"`
}

// Snapshot is one ordered restore entry. Nodes[0] is the coordinator at
// capture time.
type Snapshot struct {
	Kind  SnapshotKind   `json:"kind"`
	Nodes []NodeSnapshot `json:"nodes"`
}

// Coordinator returns the first node of the snapshot.
func (s Snapshot) Coordinator() NodeSnapshot {
	if len(s.Nodes) == 0 {
		return NodeSnapshot{}
	}
	return s.Nodes[0]
}

// Rooms lists the room names in snapshot order.
func (s Snapshot) Rooms() []string {
	out := make([]string, 0, len(s.Nodes))
	for _, n := range s.Nodes {
		out = append(out, n.Room)
	}
	return out
}

// CaptureNode records a node's restorable state. Track position is only kept
// for sources where it has meaning.
func CaptureNode(n zone.NodeInfo) NodeSnapshot {
	snap := NodeSnapshot{
		Room:           n.RoomName,
		NodeID:         n.ID,
		Volume:         n.State.Volume,
		PlaybackState:  n.State.PlaybackState,
		SourceURI:      n.SourceURI,
		SourceMetadata: n.SourceMetadata,
		Repeat:         n.State.PlayMode.Repeat,
	}
	if !zone.IsLiveStream(n.SourceURI) && !zone.IsGroupURI(n.SourceURI) {
		trackNo := n.State.TrackNo
		elapsed := n.State.ElapsedTime
		snap.TrackNo = &trackNo
		snap.ElapsedTime = &elapsed
	}
	return snap
}

// CaptureGroups returns one group snapshot per group with no PLAYING member,
// coordinator first then members in live order.
func CaptureGroups(groups []zone.Group) []Snapshot {
	var out []Snapshot
	for _, g := range groups {
		if g.AnyPlaying() || len(g.Members) == 0 {
			continue
		}
		snap := Snapshot{Kind: KindGroup, Nodes: []NodeSnapshot{CaptureNode(g.Coordinator)}}
		for _, m := range g.Members {
			if m.ID == g.Coordinator.ID {
				continue
			}
			snap.Nodes = append(snap.Nodes, CaptureNode(m))
		}
		out = append(out, snap)
	}
	return out
}

// CaptureNodes returns one node snapshot per idle node.
func CaptureNodes(nodes []zone.NodeInfo) []Snapshot {
	var out []Snapshot
	for _, n := range nodes {
		if n.IsPlaying() {
			continue
		}
		out = append(out, Snapshot{Kind: KindNode, Nodes: []NodeSnapshot{CaptureNode(n)}})
	}
	return out
}
