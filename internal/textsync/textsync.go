// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package textsync forwards now-playing information to the text inputs of
// a building automation server.
package textsync

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/rs/zerolog"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/ManuGH/sonox/internal/bus"
	"github.com/ManuGH/sonox/internal/log"
	"github.com/ManuGH/sonox/internal/metrics"
	"github.com/ManuGH/sonox/internal/platform/httpx"
	"github.com/ManuGH/sonox/internal/zone"
)

const sink = "textsync"

// Config addresses the automation server.
type Config struct {
	Host    string
	Port    int
	UseSSL  bool
	User    string
	Pass    string
	Timeout time.Duration
}

// Topology is the part of zone.System the syncer needs.
type Topology interface {
	Groups(ctx context.Context) ([]zone.Group, error)
	Subscribe(ctx context.Context, topic string) (bus.Subscriber, error)
}

type nowPlaying struct {
	title  string
	artist string
	radio  string
	state  zone.PlaybackState
}

// Syncer sends title, artist, station and state of a group to every member
// room's text inputs, skipping rooms whose values did not change.
type Syncer struct {
	base   string
	user   string
	pass   string
	client *http.Client
	topo   Topology
	logger zerolog.Logger

	mu   sync.Mutex
	last map[string]nowPlaying
}

// New returns a syncer for cfg.
func New(cfg Config, topo Topology) *Syncer {
	scheme := "http"
	if cfg.UseSSL {
		scheme = "https"
	}
	pass := cfg.Pass
	if p, err := url.PathUnescape(pass); err == nil {
		pass = p
	}
	return &Syncer{
		base:   scheme + "://" + cfg.Host + ":" + strconv.Itoa(cfg.Port),
		user:   cfg.User,
		pass:   pass,
		client: httpx.NewClient(cfg.Timeout),
		topo:   topo,
		logger: log.WithComponent("textsync"),
		last:   make(map[string]nowPlaying),
	}
}

var roomFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeRoom folds a room name into the identifier used in input names:
// accents removed, only ASCII letters and digits kept, lower case.
func NormalizeRoom(name string) string {
	folded, _, err := transform.String(roomFolder, name)
	if err != nil {
		folded = name
	}
	var b strings.Builder
	for _, r := range folded {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

// Run handles transport events until ctx is done. Sends happen on a
// separate worker so a slow automation server never stalls the
// subscription; while it is busy only the latest event per node is kept.
func (s *Syncer) Run(ctx context.Context) error {
	sub, err := s.topo.Subscribe(ctx, zone.TopicTransport)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", zone.TopicTransport, err)
	}
	defer func() { _ = sub.Close() }()

	q := newEventQueue()
	workerCtx, stop := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.drain(workerCtx, q)
	}()
	defer func() {
		stop()
		<-done
	}()

	s.logger.Info().Str(log.FieldEvent, "textsync.start").Str("target", s.base).Msg("text input sync started")
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-sub.C():
			if !ok {
				return nil
			}
			if evt, ok := msg.(zone.TransportEvent); ok {
				q.put(evt)
			}
		}
	}
}

func (s *Syncer) drain(ctx context.Context, q *eventQueue) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-q.ready:
		}
		for _, evt := range q.take() {
			if ctx.Err() != nil {
				return
			}
			s.Handle(ctx, evt)
		}
	}
}

// eventQueue holds the newest pending event per node in arrival order.
type eventQueue struct {
	mu      sync.Mutex
	order   []string
	pending map[string]zone.TransportEvent
	ready   chan struct{}
}

func newEventQueue() *eventQueue {
	return &eventQueue{pending: make(map[string]zone.TransportEvent), ready: make(chan struct{}, 1)}
}

func (q *eventQueue) put(evt zone.TransportEvent) {
	q.mu.Lock()
	if _, ok := q.pending[evt.NodeID]; !ok {
		q.order = append(q.order, evt.NodeID)
	}
	q.pending[evt.NodeID] = evt
	q.mu.Unlock()
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

func (q *eventQueue) take() []zone.TransportEvent {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]zone.TransportEvent, 0, len(q.order))
	for _, id := range q.order {
		out = append(out, q.pending[id])
	}
	q.order = q.order[:0]
	clear(q.pending)
	return out
}

// Handle pushes evt to the text inputs of every member of the group
// coordinated by evt's node. Events from group members are ignored.
func (s *Syncer) Handle(ctx context.Context, evt zone.TransportEvent) {
	groups, err := s.topo.Groups(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Str(log.FieldRoom, evt.RoomName).Msg("textsync topology lookup failed")
		return
	}
	var members []zone.NodeInfo
	for _, g := range groups {
		if g.Coordinator.ID == evt.NodeID {
			members = g.Members
			break
		}
	}
	if len(members) == 0 {
		s.logger.Debug().Str(log.FieldRoom, evt.RoomName).Msg("textsync: event not from a coordinator")
		return
	}

	now := nowPlaying{
		title:  evt.State.CurrentTrack.Title,
		artist: evt.State.CurrentTrack.Artist,
		radio:  evt.State.CurrentTrack.StationName,
		state:  evt.State.PlaybackState,
	}
	for _, m := range members {
		room := NormalizeRoom(m.RoomName)
		if !s.changed(room, now) {
			continue
		}
		updates := []struct{ key, value string }{
			{"title", now.title},
			{"artist", now.artist},
			{"radio", now.radio},
			{"state", string(now.state)},
		}
		for _, u := range updates {
			s.send(ctx, room, u.key, u.value)
		}
	}
}

func (s *Syncer) changed(room string, now nowPlaying) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if last, ok := s.last[room]; ok && last == now {
		return false
	}
	s.last[room] = now
	return true
}

// InputURL returns the request URL that sets input key of room to value.
func (s *Syncer) InputURL(room, key, value string) string {
	return s.base + "/dev/sps/io/sonox_" + room + "_current_" + key + "/" + url.PathEscape(value)
}

func (s *Syncer) send(ctx context.Context, room, key, value string) {
	target := s.InputURL(room, key, value)
	logger := s.logger.With().Str(log.FieldRoom, room).Str("input", key).Logger()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		logger.Error().Err(err).Msg("textsync request build failed")
		metrics.IncRepublish(sink, "invalid")
		return
	}
	req.SetBasicAuth(s.user, s.pass)
	resp, err := s.client.Do(req)
	if err != nil {
		logger.Error().Err(err).Str(log.FieldEvent, "textsync.failed").Msg("textsync send failed")
		metrics.IncRepublish(sink, "error")
		return
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	if resp.StatusCode >= 300 {
		logger.Error().Int(log.FieldStatus, resp.StatusCode).Str(log.FieldEvent, "textsync.rejected").Msg("textsync send rejected")
		metrics.IncRepublish(sink, "rejected")
		return
	}
	logger.Debug().Str("value", value).Msg("textsync sent")
	metrics.IncRepublish(sink, "ok")
}
