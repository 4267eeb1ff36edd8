// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package preset holds named grouping scenes: which rooms play together, at
// what volume and from which source.
package preset

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ManuGH/sonox/internal/announce"
	"github.com/ManuGH/sonox/internal/zone"
)

// ErrPresetNotFound is returned when a named preset is not loaded.
var ErrPresetNotFound = errors.New("preset not found")

// PresetParseError reports malformed preset input.
type PresetParseError struct {
	Source string
	Err    error
}

func (e *PresetParseError) Error() string {
	return fmt.Sprintf("parse preset %s: %v", e.Source, e.Err)
}

func (e *PresetParseError) Unwrap() error { return e.Err }

// Player is one room of a preset. The first player coordinates the group.
type Player struct {
	RoomName string `json:"roomName" yaml:"roomName"`
	// Volume is left unchanged when nil.
	Volume *int `json:"volume,omitempty" yaml:"volume,omitempty"`
}

// Preset is a grouping scene.
type Preset struct {
	Players     []Player      `json:"players" yaml:"players"`
	State       string        `json:"state,omitempty" yaml:"state,omitempty"`
	URI         string        `json:"uri,omitempty" yaml:"uri,omitempty"`
	Metadata    string        `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	PlayMode    zone.PlayMode `json:"playMode,omitempty" yaml:"playMode,omitempty"`
	TrackNo     int           `json:"trackNo,omitempty" yaml:"trackNo,omitempty"`
	ElapsedTime int           `json:"elapsedTime,omitempty" yaml:"elapsedTime,omitempty"`
	PauseOthers bool          `json:"pauseOthers,omitempty" yaml:"pauseOthers,omitempty"`
	Favorite    string        `json:"favorite,omitempty" yaml:"favorite,omitempty"`
	Playlist    string        `json:"playlist,omitempty" yaml:"playlist,omitempty"`
}

// Coordinator returns the room that leads the preset group.
func (p Preset) Coordinator() string {
	if len(p.Players) == 0 {
		return ""
	}
	return p.Players[0].RoomName
}

// Rooms lists the preset's rooms in order.
func (p Preset) Rooms() []string {
	out := make([]string, len(p.Players))
	for i, pl := range p.Players {
		out[i] = pl.RoomName
	}
	return out
}

func (p Preset) validate() error {
	if len(p.Players) == 0 {
		return errors.New("players must not be empty")
	}
	seen := make(map[string]bool, len(p.Players))
	for i, pl := range p.Players {
		room := strings.ToLower(strings.TrimSpace(pl.RoomName))
		if room == "" {
			return fmt.Errorf("players[%d]: roomName is required", i)
		}
		if seen[room] {
			return fmt.Errorf("players[%d]: duplicate room %q", i, pl.RoomName)
		}
		seen[room] = true
		if pl.Volume != nil && (*pl.Volume < 0 || *pl.Volume > 100) {
			return fmt.Errorf("players[%d]: volume %d out of range 0-100", i, *pl.Volume)
		}
	}
	if p.Favorite != "" && p.Playlist != "" {
		return errors.New("favorite and playlist are mutually exclusive")
	}
	return nil
}

// PlaybackState maps the preset state to a transport state. Anything but
// "playing" leaves the group stopped.
func (p Preset) PlaybackState() zone.PlaybackState {
	switch strings.ToUpper(strings.TrimSpace(p.State)) {
	case "PLAYING", "PLAY":
		return zone.StatePlaying
	case "PAUSED", "PAUSED_PLAYBACK":
		return zone.StatePaused
	}
	return zone.StateStopped
}

// ToSnapshot turns the preset into a restorable group entry. Players
// without a volume keep their current one from groups.
func (p Preset) ToSnapshot(groups []zone.Group) announce.Snapshot {
	snap := announce.Snapshot{Kind: announce.KindGroup}
	for i, pl := range p.Players {
		ns := announce.NodeSnapshot{Room: pl.RoomName}
		if live, ok := zone.FindRoom(groups, pl.RoomName); ok {
			ns.NodeID = live.ID
			ns.Volume = live.State.Volume
		}
		if pl.Volume != nil {
			ns.Volume = *pl.Volume
		}
		if i == 0 {
			ns.PlaybackState = p.PlaybackState()
			ns.SourceURI = p.URI
			ns.SourceMetadata = p.Metadata
			ns.Repeat = p.PlayMode.Repeat
			if p.URI != "" && !zone.IsLiveStream(p.URI) && p.TrackNo > 0 {
				trackNo, elapsed := p.TrackNo, p.ElapsedTime
				ns.TrackNo = &trackNo
				ns.ElapsedTime = &elapsed
			}
		}
		snap.Nodes = append(snap.Nodes, ns)
	}
	return snap
}

// Capture converts a live group into a preset that reproduces it.
func Capture(g zone.Group) Preset {
	p := Preset{
		State:    strings.ToLower(string(g.Coordinator.State.PlaybackState)),
		URI:      g.Coordinator.SourceURI,
		Metadata: g.Coordinator.SourceMetadata,
		PlayMode: g.Coordinator.State.PlayMode,
	}
	if g.Coordinator.State.PlaybackState == zone.StatePlaying {
		p.State = "playing"
	}
	if !zone.IsLiveStream(p.URI) {
		p.TrackNo = g.Coordinator.State.TrackNo
		p.ElapsedTime = g.Coordinator.State.ElapsedTime
	}
	add := func(n zone.NodeInfo) {
		v := n.State.Volume
		p.Players = append(p.Players, Player{RoomName: n.RoomName, Volume: &v})
	}
	add(g.Coordinator)
	for _, m := range g.Members {
		if m.ID != g.Coordinator.ID {
			add(m)
		}
	}
	return p
}
