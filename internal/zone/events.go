// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package zone

// TopologyEvent carries the full group layout after a change.
type TopologyEvent struct {
	Groups []Group `json:"groups"`
}

// TransportEvent carries a node's state after a transport change.
type TransportEvent struct {
	NodeID   string      `json:"uuid"`
	RoomName string      `json:"roomName"`
	State    PlayerState `json:"state"`
}

// VolumeEvent carries a node's volume change.
type VolumeEvent struct {
	NodeID   string `json:"uuid"`
	RoomName string `json:"roomName"`
	Previous int    `json:"previousVolume"`
	New      int    `json:"newVolume"`
}
