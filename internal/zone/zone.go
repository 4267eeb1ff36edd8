// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package zone models the groupable audio system the announcer drives:
// nodes (rooms), the groups they form and the events they emit.
package zone

import (
	"context"
	"errors"
	"strings"

	"github.com/ManuGH/sonox/internal/bus"
)

// PlaybackState is the transport state reported by a node.
type PlaybackState string

const (
	StatePlaying       PlaybackState = "PLAYING"
	StatePaused        PlaybackState = "PAUSED_PLAYBACK"
	StateStopped       PlaybackState = "STOPPED"
	StateTransitioning PlaybackState = "TRANSITIONING"
)

// RepeatMode is the queue repeat setting of a coordinator.
type RepeatMode string

const (
	RepeatNone RepeatMode = "none"
	RepeatAll  RepeatMode = "all"
	RepeatOne  RepeatMode = "one"
)

// Event topics published by every System implementation.
const (
	TopicTopology  = "topology-change"
	TopicTransport = "transport-state"
	TopicVolume    = "volume-change"
)

// GroupURIPrefix marks a source URI that follows another node's transport.
const GroupURIPrefix = "x-rincon:"

var (
	// ErrNotFound is returned when a room or node is unknown to the system.
	ErrNotFound = errors.New("zone: node not found")
	// ErrUnreachable is returned when a node did not accept a command.
	ErrUnreachable = errors.New("zone: node unreachable")
	// ErrNotCoordinator is returned for transport commands sent to a group member.
	ErrNotCoordinator = errors.New("zone: node is not a group coordinator")
)

type Track struct {
	Title       string `json:"title,omitempty"`
	Artist      string `json:"artist,omitempty"`
	Album       string `json:"album,omitempty"`
	StationName string `json:"stationName,omitempty"`
	Duration    int    `json:"duration,omitempty"`
	URI         string `json:"uri,omitempty"`
}

type PlayMode struct {
	Repeat RepeatMode `json:"repeat,omitempty"`
}

// PlayerState is the observable state of a single node.
type PlayerState struct {
	Volume        int           `json:"volume"`
	Mute          bool          `json:"mute"`
	PlaybackState PlaybackState `json:"playbackState"`
	CurrentTrack  Track         `json:"currentTrack"`
	TrackNo       int           `json:"trackNo"`
	ElapsedTime   int           `json:"elapsedTime"`
	PlayMode      PlayMode      `json:"playMode"`
}

// NodeInfo is a point-in-time view of a node.
type NodeInfo struct {
	ID             string      `json:"uuid"`
	RoomName       string      `json:"roomName"`
	SourceURI      string      `json:"avTransportUri"`
	SourceMetadata string      `json:"avTransportUriMetadata"`
	State          PlayerState `json:"state"`
}

// IsPlaying reports whether the node is actively rendering.
func (n NodeInfo) IsPlaying() bool {
	return n.State.PlaybackState == StatePlaying
}

// Group is a point-in-time view of one group. Members includes the
// coordinator as its first element.
type Group struct {
	ID          string     `json:"uuid"`
	Coordinator NodeInfo   `json:"coordinator"`
	Members     []NodeInfo `json:"members"`
}

// AnyPlaying reports whether any member of the group is PLAYING.
func (g Group) AnyPlaying() bool {
	for _, m := range g.Members {
		if m.IsPlaying() {
			return true
		}
	}
	return false
}

// Contains reports whether nodeID is a member of the group.
func (g Group) Contains(nodeID string) bool {
	for _, m := range g.Members {
		if m.ID == nodeID {
			return true
		}
	}
	return false
}

// Standalone reports whether the group consists of a single node.
func (g Group) Standalone() bool {
	return len(g.Members) <= 1
}

// GroupOf returns the group containing nodeID.
func GroupOf(groups []Group, nodeID string) (Group, bool) {
	for _, g := range groups {
		if g.Contains(nodeID) {
			return g, true
		}
	}
	return Group{}, false
}

// FindRoom returns the node with the given room name, compared case-insensitively.
func FindRoom(groups []Group, room string) (NodeInfo, bool) {
	for _, g := range groups {
		for _, m := range g.Members {
			if strings.EqualFold(m.RoomName, room) {
				return m, true
			}
		}
	}
	return NodeInfo{}, false
}

// GroupURI returns the source URI that makes a node follow coordinatorID.
func GroupURI(coordinatorID string) string {
	return GroupURIPrefix + coordinatorID
}

// IsGroupURI reports whether uri points at another node's transport.
func IsGroupURI(uri string) bool {
	return strings.HasPrefix(uri, GroupURIPrefix)
}

var liveStreamPrefixes = []string{
	"x-sonosapi-stream:",
	"x-sonosapi-radio:",
	"x-sonosapi-hls:",
	"x-rincon-mp3radio:",
	"x-rincon-stream:",
	"x-sonos-htastream:",
	"x-sonosprog-http:",
	"aac:",
	"hls-radio:",
}

// IsLiveStream reports whether uri is a radio stream or line-in source for
// which track number and elapsed time have no meaning.
func IsLiveStream(uri string) bool {
	lower := strings.ToLower(uri)
	for _, p := range liveStreamPrefixes {
		if strings.HasPrefix(lower, p) {
			return true
		}
	}
	return false
}

// Node is the command surface of one node. Implementations resolve the
// node's current group membership at call time.
type Node interface {
	Info() NodeInfo
	SetSourceURI(ctx context.Context, uri, metadata string) error
	SetVolume(ctx context.Context, level int) error
	Play(ctx context.Context) error
	Pause(ctx context.Context) error
	BecomeStandaloneCoordinator(ctx context.Context) error
	Seek(ctx context.Context, trackNo, elapsedSeconds int) error
	SetRepeat(ctx context.Context, mode RepeatMode) error
	PlayFavorite(ctx context.Context, name string) error
	PlayPlaylist(ctx context.Context, name string) error
}

// System is the discovery collaborator: live topology queries, command
// handles and event subscriptions.
type System interface {
	Groups(ctx context.Context) ([]Group, error)
	Nodes(ctx context.Context) ([]NodeInfo, error)
	Node(ctx context.Context, room string) (Node, error)
	Subscribe(ctx context.Context, topic string) (bus.Subscriber, error)
}

// NodesOf flattens groups into their members, preserving order.
func NodesOf(groups []Group) []NodeInfo {
	var out []NodeInfo
	for _, g := range groups {
		out = append(out, g.Members...)
	}
	return out
}
