// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package memsys

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/ManuGH/sonox/internal/bus"
	"github.com/ManuGH/sonox/internal/zone"
)

type handle struct {
	sys *System
	id  string
}

var _ zone.Node = (*handle)(nil)

type pending struct {
	topic  string
	events []bus.Message
}

func (h *handle) Info() zone.NodeInfo {
	h.sys.mu.Lock()
	defer h.sys.mu.Unlock()
	return h.sys.infoLocked(h.id)
}

// run executes fn under the system lock and publishes what it produced.
func (h *handle) run(ctx context.Context, op, arg string, fn func() ([]pending, error)) error {
	s := h.sys
	s.mu.Lock()
	if err := s.beginLocked(h.id, op, arg); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("%s %s: %w", op, s.nodes[h.id].info.RoomName, err)
	}
	out, err := fn()
	s.mu.Unlock()
	for _, p := range out {
		s.publish(ctx, p.topic, p.events...)
	}
	return err
}

func (h *handle) topology() pending {
	return pending{topic: zone.TopicTopology, events: []bus.Message{zone.TopologyEvent{Groups: h.sys.groupsLocked()}}}
}

func (h *handle) transport(coordID string) pending {
	return pending{topic: zone.TopicTransport, events: h.sys.transportEventsLocked(coordID)}
}

func (h *handle) requireCoordinator() error {
	n := h.sys.nodes[h.id]
	if n.coordinator != h.id {
		return fmt.Errorf("%s: %w", n.info.RoomName, zone.ErrNotCoordinator)
	}
	return nil
}

func (h *handle) SetSourceURI(ctx context.Context, uri, metadata string) error {
	return h.run(ctx, "source", uri, func() ([]pending, error) {
		s := h.sys
		n := s.nodes[h.id]
		if zone.IsGroupURI(uri) {
			target := strings.TrimPrefix(uri, zone.GroupURIPrefix)
			tn, ok := s.nodes[target]
			if !ok {
				return nil, fmt.Errorf("join %s: %w", target, zone.ErrNotFound)
			}
			if target == h.id {
				return nil, fmt.Errorf("join %s: node cannot follow itself", target)
			}
			if n.coordinator != h.id && n.coordinator == tn.coordinator {
				return nil, nil
			}
			s.detachLocked(h.id)
			// detaching may have promoted the target's coordinator
			coord := s.nodes[target].coordinator
			n.coordinator = coord
			n.info.SourceURI = zone.GroupURI(coord)
			n.info.SourceMetadata = ""
			return []pending{h.topology(), h.transport(coord)}, nil
		}

		var out []pending
		if n.coordinator != h.id {
			s.detachLocked(h.id)
			out = append(out, h.topology())
		}
		if t, ok := s.timers[h.id]; ok {
			t.Stop()
			delete(s.timers, h.id)
		}
		n.info.SourceURI = uri
		n.info.SourceMetadata = metadata
		n.info.State.PlaybackState = zone.StateStopped
		n.info.State.TrackNo = 1
		n.info.State.ElapsedTime = 0
		n.info.State.CurrentTrack = zone.Track{URI: uri}
		return append(out, h.transport(h.id)), nil
	})
}

func (h *handle) SetVolume(ctx context.Context, level int) error {
	return h.run(ctx, "volume", strconv.Itoa(level), func() ([]pending, error) {
		if level < 0 {
			level = 0
		}
		if level > 100 {
			level = 100
		}
		n := h.sys.nodes[h.id]
		prev := n.info.State.Volume
		if prev == level {
			return nil, nil
		}
		n.info.State.Volume = level
		return []pending{{topic: zone.TopicVolume, events: []bus.Message{
			zone.VolumeEvent{NodeID: h.id, RoomName: n.info.RoomName, Previous: prev, New: level},
		}}}, nil
	})
}

func (h *handle) Play(ctx context.Context) error {
	return h.run(ctx, "play", "", func() ([]pending, error) {
		if err := h.requireCoordinator(); err != nil {
			return nil, err
		}
		n := h.sys.nodes[h.id]
		if n.info.SourceURI == "" {
			return nil, errNoSource
		}
		n.info.State.PlaybackState = zone.StatePlaying
		h.sys.scheduleAutoStopLocked(h.id, n.info.SourceURI)
		return []pending{h.transport(h.id)}, nil
	})
}

func (h *handle) Pause(ctx context.Context) error {
	return h.run(ctx, "pause", "", func() ([]pending, error) {
		if err := h.requireCoordinator(); err != nil {
			return nil, err
		}
		n := h.sys.nodes[h.id]
		if n.info.State.PlaybackState != zone.StatePlaying {
			return nil, nil
		}
		n.info.State.PlaybackState = zone.StatePaused
		return []pending{h.transport(h.id)}, nil
	})
}

func (h *handle) BecomeStandaloneCoordinator(ctx context.Context) error {
	return h.run(ctx, "standalone", "", func() ([]pending, error) {
		if !h.sys.detachLocked(h.id) {
			return nil, nil
		}
		return []pending{h.topology()}, nil
	})
}

func (h *handle) Seek(ctx context.Context, trackNo, elapsedSeconds int) error {
	return h.run(ctx, "seek", fmt.Sprintf("%d@%d", trackNo, elapsedSeconds), func() ([]pending, error) {
		if err := h.requireCoordinator(); err != nil {
			return nil, err
		}
		st := &h.sys.nodes[h.id].info.State
		st.TrackNo = trackNo
		st.ElapsedTime = elapsedSeconds
		return nil, nil
	})
}

func (h *handle) SetRepeat(ctx context.Context, mode zone.RepeatMode) error {
	return h.run(ctx, "repeat", string(mode), func() ([]pending, error) {
		if err := h.requireCoordinator(); err != nil {
			return nil, err
		}
		h.sys.nodes[h.id].info.State.PlayMode.Repeat = mode
		return nil, nil
	})
}

func (h *handle) PlayFavorite(ctx context.Context, name string) error {
	return h.playContainer(ctx, "favorite", "x-rincon-cpcontainer:favorite:"+name)
}

func (h *handle) PlayPlaylist(ctx context.Context, name string) error {
	return h.playContainer(ctx, "playlist", "x-rincon-playlist:"+name)
}

func (h *handle) playContainer(ctx context.Context, op, uri string) error {
	return h.run(ctx, op, uri, func() ([]pending, error) {
		if err := h.requireCoordinator(); err != nil {
			return nil, err
		}
		n := h.sys.nodes[h.id]
		n.info.SourceURI = uri
		n.info.SourceMetadata = ""
		n.info.State.TrackNo = 1
		n.info.State.ElapsedTime = 0
		n.info.State.PlaybackState = zone.StatePlaying
		return []pending{h.transport(h.id)}, nil
	})
}
