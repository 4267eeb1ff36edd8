// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package memsys is an in-process zone.System used by tests and by the
// daemon's simulate mode. It follows the grouping rules of the real
// devices: an x-rincon source joins a group, a leaving coordinator hands
// its members to the next member, and transport commands only work on
// coordinators.
package memsys

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/ManuGH/sonox/internal/bus"
	"github.com/ManuGH/sonox/internal/log"
	"github.com/ManuGH/sonox/internal/zone"
)

// Room seeds one node.
type Room struct {
	ID       string
	Name     string
	Volume   int
	State    zone.PlaybackState
	URI      string
	Metadata string
	TrackNo  int
	Elapsed  int
	Repeat   zone.RepeatMode
	Track    zone.Track
}

// Call records one command received by the simulator.
type Call struct {
	Room string
	Op   string
	Arg  string
}

type node struct {
	info        zone.NodeInfo
	coordinator string
}

type fault struct {
	err error
	ops map[string]bool
}

// System is the simulated topology.
type System struct {
	mu       sync.Mutex
	bus      bus.Bus
	nodes    map[string]*node
	order    []string
	faults   map[string]fault
	calls    []Call
	autoStop time.Duration
	timers   map[string]*time.Timer
	closed   bool
}

// Option configures a System.
type Option func(*System)

// WithAutoStop stops playback of http(s) sources after d, emulating a clip
// reaching its end.
func WithAutoStop(d time.Duration) Option {
	return func(s *System) { s.autoStop = d }
}

// New returns an empty simulator publishing on b.
func New(b bus.Bus, opts ...Option) *System {
	s := &System{
		bus:    b,
		nodes:  make(map[string]*node),
		faults: make(map[string]fault),
		timers: make(map[string]*time.Timer),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddGroup seeds a group. Members follow the coordinator's transport.
func (s *System) AddGroup(coordinator Room, members ...Room) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.addNode(coordinator, coordinator.ID)
	for _, m := range members {
		m.URI = zone.GroupURI(coordinator.ID)
		m.Metadata = ""
		s.addNode(m, coordinator.ID)
	}
}

func (s *System) addNode(r Room, coordinatorID string) {
	if r.State == "" {
		r.State = zone.StateStopped
	}
	if r.Repeat == "" {
		r.Repeat = zone.RepeatNone
	}
	if _, exists := s.nodes[r.ID]; !exists {
		s.order = append(s.order, r.ID)
	}
	s.nodes[r.ID] = &node{
		coordinator: coordinatorID,
		info: zone.NodeInfo{
			ID:             r.ID,
			RoomName:       r.Name,
			SourceURI:      r.URI,
			SourceMetadata: r.Metadata,
			State: zone.PlayerState{
				Volume:        r.Volume,
				PlaybackState: r.State,
				CurrentTrack:  r.Track,
				TrackNo:       r.TrackNo,
				ElapsedTime:   r.Elapsed,
				PlayMode:      zone.PlayMode{Repeat: r.Repeat},
			},
		},
	}
}

// SetFault makes every listed operation on room fail with err. With no ops
// every operation fails. A nil err clears the fault.
func (s *System) SetFault(room string, err error, ops ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.idForRoomLocked(room)
	if err == nil {
		delete(s.faults, id)
		return
	}
	f := fault{err: err}
	if len(ops) > 0 {
		f.ops = make(map[string]bool, len(ops))
		for _, op := range ops {
			f.ops[op] = true
		}
	}
	s.faults[id] = f
}

// Calls returns the commands received so far.
func (s *System) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// ResetCalls clears the command log.
func (s *System) ResetCalls() {
	s.mu.Lock()
	s.calls = nil
	s.mu.Unlock()
}

// Close stops pending auto-stop timers.
func (s *System) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
	return nil
}

func (s *System) Groups(_ context.Context) ([]zone.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.groupsLocked(), nil
}

func (s *System) Nodes(ctx context.Context) ([]zone.NodeInfo, error) {
	groups, err := s.Groups(ctx)
	if err != nil {
		return nil, err
	}
	return zone.NodesOf(groups), nil
}

func (s *System) Node(_ context.Context, room string) (zone.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.idForRoomLocked(room)
	if id == "" {
		return nil, fmt.Errorf("room %q: %w", room, zone.ErrNotFound)
	}
	return &handle{sys: s, id: id}, nil
}

func (s *System) Subscribe(ctx context.Context, topic string) (bus.Subscriber, error) {
	return s.bus.Subscribe(ctx, topic)
}

// SetTransportState forces a coordinator's transport state and emits the
// matching events, emulating playback ending or a user pressing play.
func (s *System) SetTransportState(ctx context.Context, room string, state zone.PlaybackState) error {
	s.mu.Lock()
	id := s.idForRoomLocked(room)
	if id == "" {
		s.mu.Unlock()
		return fmt.Errorf("room %q: %w", room, zone.ErrNotFound)
	}
	coord := s.nodes[id].coordinator
	s.nodes[coord].info.State.PlaybackState = state
	events := s.transportEventsLocked(coord)
	s.mu.Unlock()
	s.publish(ctx, zone.TopicTransport, events...)
	return nil
}

// Regroup attaches room to coordinatorRoom outside of any command log,
// emulating a user changing groups from another controller.
func (s *System) Regroup(ctx context.Context, room, coordinatorRoom string) error {
	s.mu.Lock()
	id := s.idForRoomLocked(room)
	coord := s.idForRoomLocked(coordinatorRoom)
	if id == "" || coord == "" {
		s.mu.Unlock()
		return zone.ErrNotFound
	}
	s.detachLocked(id)
	s.nodes[id].coordinator = s.nodes[coord].coordinator
	s.nodes[id].info.SourceURI = zone.GroupURI(s.nodes[id].coordinator)
	groups := s.groupsLocked()
	s.mu.Unlock()
	s.publish(ctx, zone.TopicTopology, zone.TopologyEvent{Groups: groups})
	return nil
}

func (s *System) idForRoomLocked(room string) string {
	for _, id := range s.order {
		if strings.EqualFold(s.nodes[id].info.RoomName, room) {
			return id
		}
	}
	return ""
}

func (s *System) groupsLocked() []zone.Group {
	var groups []zone.Group
	for _, id := range s.order {
		n := s.nodes[id]
		if n.coordinator != id {
			continue
		}
		coord := n.info
		g := zone.Group{ID: id + ":1", Coordinator: coord, Members: []zone.NodeInfo{coord}}
		for _, mid := range s.order {
			m := s.nodes[mid]
			if mid == id || m.coordinator != id {
				continue
			}
			g.Members = append(g.Members, s.memberViewLocked(m, coord))
		}
		groups = append(groups, g)
	}
	return groups
}

// memberViewLocked overlays the coordinator's transport onto a member.
func (s *System) memberViewLocked(m *node, coord zone.NodeInfo) zone.NodeInfo {
	info := m.info
	info.State.PlaybackState = coord.State.PlaybackState
	info.State.CurrentTrack = coord.State.CurrentTrack
	info.State.TrackNo = coord.State.TrackNo
	info.State.ElapsedTime = coord.State.ElapsedTime
	info.State.PlayMode = coord.State.PlayMode
	return info
}

func (s *System) infoLocked(id string) zone.NodeInfo {
	n := s.nodes[id]
	if n.coordinator == id {
		return n.info
	}
	return s.memberViewLocked(n, s.nodes[n.coordinator].info)
}

func (s *System) membersLocked(coordID string) []string {
	var out []string
	for _, id := range s.order {
		if id != coordID && s.nodes[id].coordinator == coordID {
			out = append(out, id)
		}
	}
	return out
}

// detachLocked removes id from its group. A coordinator hands its members
// and transport to the first remaining member.
func (s *System) detachLocked(id string) bool {
	n := s.nodes[id]
	if n.coordinator != id {
		n.coordinator = id
		n.info.SourceURI = "x-rincon-queue:" + id + "#0"
		n.info.SourceMetadata = ""
		n.info.State.PlaybackState = zone.StateStopped
		return true
	}
	members := s.membersLocked(id)
	if len(members) == 0 {
		return false
	}
	heir := s.nodes[members[0]]
	heir.coordinator = heir.info.ID
	heir.info.SourceURI = n.info.SourceURI
	heir.info.SourceMetadata = n.info.SourceMetadata
	heir.info.State.PlaybackState = n.info.State.PlaybackState
	heir.info.State.CurrentTrack = n.info.State.CurrentTrack
	heir.info.State.TrackNo = n.info.State.TrackNo
	heir.info.State.ElapsedTime = n.info.State.ElapsedTime
	heir.info.State.PlayMode = n.info.State.PlayMode
	for _, mid := range members[1:] {
		s.nodes[mid].coordinator = heir.info.ID
		s.nodes[mid].info.SourceURI = zone.GroupURI(heir.info.ID)
	}
	if t, ok := s.timers[id]; ok {
		t.Stop()
		delete(s.timers, id)
	}
	n.info.SourceURI = "x-rincon-queue:" + id + "#0"
	n.info.SourceMetadata = ""
	n.info.State.PlaybackState = zone.StateStopped
	return true
}

func (s *System) transportEventsLocked(coordID string) []bus.Message {
	ids := append([]string{coordID}, s.membersLocked(coordID)...)
	events := make([]bus.Message, 0, len(ids))
	for _, id := range ids {
		info := s.infoLocked(id)
		events = append(events, zone.TransportEvent{NodeID: id, RoomName: info.RoomName, State: info.State})
	}
	return events
}

func (s *System) publish(ctx context.Context, topic string, events ...bus.Message) {
	if s.bus == nil {
		return
	}
	for _, evt := range events {
		if err := s.bus.Publish(ctx, topic, evt); err != nil {
			logger := log.WithComponent("memsys")
			logger.Warn().Err(err).Str("topic", topic).Msg("publish simulated event")
		}
	}
}

// begin records the call and returns the injected fault, if any.
func (s *System) beginLocked(id, op, arg string) error {
	s.calls = append(s.calls, Call{Room: s.nodes[id].info.RoomName, Op: op, Arg: arg})
	f, ok := s.faults[id]
	if !ok {
		return nil
	}
	if f.ops == nil || f.ops[op] {
		return f.err
	}
	return nil
}

func (s *System) scheduleAutoStopLocked(coordID, uri string) {
	if s.autoStop <= 0 || s.closed {
		return
	}
	u, err := url.Parse(uri)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return
	}
	if t, ok := s.timers[coordID]; ok {
		t.Stop()
	}
	s.timers[coordID] = time.AfterFunc(s.autoStop, func() {
		s.mu.Lock()
		delete(s.timers, coordID)
		n, ok := s.nodes[coordID]
		if !ok || s.closed || n.coordinator != coordID || n.info.SourceURI != uri {
			s.mu.Unlock()
			return
		}
		n.info.State.PlaybackState = zone.StateStopped
		events := s.transportEventsLocked(coordID)
		s.mu.Unlock()
		s.publish(context.Background(), zone.TopicTransport, events...)
	})
}

var errNoSource = errors.New("memsys: no source set")
