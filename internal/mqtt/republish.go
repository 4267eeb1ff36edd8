// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/sonox/internal/bus"
	"github.com/ManuGH/sonox/internal/log"
	"github.com/ManuGH/sonox/internal/metrics"
	"github.com/ManuGH/sonox/internal/zone"
)

const sink = "mqtt"

// Source delivers zone events. Both zone.System and bus.Bus satisfy it.
type Source interface {
	Subscribe(ctx context.Context, topic string) (bus.Subscriber, error)
}

// Message is one outgoing MQTT publication.
type Message struct {
	Topic   string
	Payload []byte
}

type playbackPayload struct {
	State  zone.PlaybackState `json:"state"`
	Track  trackPayload       `json:"track"`
	Volume int                `json:"volume"`
	Mute   bool               `json:"mute"`
}

type trackPayload struct {
	Title    string `json:"title"`
	Artist   string `json:"artist"`
	Album    string `json:"album"`
	Duration int    `json:"duration"`
}

type volumePayload struct {
	Previous int `json:"previousVolume"`
	New      int `json:"newVolume"`
}

var topicEscaper = strings.NewReplacer("/", "_", "+", "_", "#", "_")

// Topic returns "<prefix>/<room>/<kind>" with MQTT wildcard and level
// characters in room replaced.
func Topic(prefix, room, kind string) string {
	return prefix + "/" + topicEscaper.Replace(room) + "/" + kind
}

// Messages converts a zone event into its MQTT publications. Unknown
// messages yield none.
func Messages(prefix string, msg bus.Message) ([]Message, error) {
	switch evt := msg.(type) {
	case zone.TopologyEvent:
		out := make([]Message, 0, len(evt.Groups))
		for _, g := range evt.Groups {
			data, err := json.Marshal(g)
			if err != nil {
				return nil, fmt.Errorf("encode zone %s: %w", g.ID, err)
			}
			out = append(out, Message{Topic: Topic(prefix, g.Coordinator.RoomName, "zone"), Payload: data})
		}
		return out, nil
	case zone.TransportEvent:
		data, err := json.Marshal(playbackPayload{
			State: evt.State.PlaybackState,
			Track: trackPayload{
				Title:    evt.State.CurrentTrack.Title,
				Artist:   evt.State.CurrentTrack.Artist,
				Album:    evt.State.CurrentTrack.Album,
				Duration: evt.State.CurrentTrack.Duration,
			},
			Volume: evt.State.Volume,
			Mute:   evt.State.Mute,
		})
		if err != nil {
			return nil, fmt.Errorf("encode playback %s: %w", evt.RoomName, err)
		}
		return []Message{{Topic: Topic(prefix, evt.RoomName, "playback"), Payload: data}}, nil
	case zone.VolumeEvent:
		data, err := json.Marshal(volumePayload{Previous: evt.Previous, New: evt.New})
		if err != nil {
			return nil, fmt.Errorf("encode volume %s: %w", evt.RoomName, err)
		}
		return []Message{{Topic: Topic(prefix, evt.RoomName, "volume"), Payload: data}}, nil
	}
	return nil, nil
}

// Republisher forwards topology, transport and volume events to a Publisher.
type Republisher struct {
	pub        Publisher
	src        Source
	prefix     string
	retryDelay time.Duration
	maxRetries int
	logger     zerolog.Logger
	pending    sync.WaitGroup
}

// NewRepublisher returns a republisher reading from src.
func NewRepublisher(pub Publisher, src Source, cfg Config) *Republisher {
	prefix := strings.TrimRight(cfg.TopicPrefix, "/")
	if prefix == "" {
		prefix = "sonox"
	}
	return &Republisher{
		pub:        pub,
		src:        src,
		prefix:     prefix,
		retryDelay: cfg.RetryDelay,
		maxRetries: max(cfg.MaxRetries, 0),
		logger:     log.WithComponent("mqtt"),
	}
}

// Run forwards events until ctx is done, then waits for queued retries to
// give up.
func (r *Republisher) Run(ctx context.Context) error {
	topics := []string{zone.TopicTopology, zone.TopicTransport, zone.TopicVolume}
	subs := make([]bus.Subscriber, 0, len(topics))
	defer func() {
		for _, s := range subs {
			_ = s.Close()
		}
		r.pending.Wait()
	}()
	for _, topic := range topics {
		s, err := r.src.Subscribe(ctx, topic)
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", topic, err)
		}
		subs = append(subs, s)
	}

	r.logger.Info().Str(log.FieldEvent, "mqtt.start").Str("prefix", r.prefix).Msg("mqtt republisher started")
	for {
		var msg bus.Message
		var ok bool
		select {
		case <-ctx.Done():
			return nil
		case msg, ok = <-subs[0].C():
		case msg, ok = <-subs[1].C():
		case msg, ok = <-subs[2].C():
		}
		if !ok {
			return nil
		}
		r.forward(ctx, msg)
	}
}

func (r *Republisher) forward(ctx context.Context, msg bus.Message) {
	out, err := Messages(r.prefix, msg)
	if err != nil {
		r.logger.Warn().Err(err).Msg("mqtt encode failed")
		metrics.IncRepublish(sink, "invalid")
		return
	}
	for _, m := range out {
		err := r.pub.Publish(ctx, m.Topic, m.Payload)
		switch {
		case err == nil:
			metrics.IncRepublish(sink, "ok")
		case errors.Is(err, ErrNotConnected) && r.maxRetries > 0:
			r.logger.Warn().Str("topic", m.Topic).Dur("retry_in", r.retryDelay).Msg("mqtt not connected, queueing message")
			r.pending.Add(1)
			go func() {
				defer r.pending.Done()
				r.retry(ctx, m)
			}()
		default:
			r.drop(m, err)
		}
	}
}

func (r *Republisher) retry(ctx context.Context, m Message) {
	t := time.NewTimer(r.retryDelay)
	defer t.Stop()
	var err error
	for attempt := 1; attempt <= r.maxRetries; attempt++ {
		select {
		case <-ctx.Done():
			r.drop(m, ctx.Err())
			return
		case <-t.C:
		}
		metrics.IncRepublish(sink, "retry")
		if err = r.pub.Publish(ctx, m.Topic, m.Payload); err == nil {
			metrics.IncRepublish(sink, "ok")
			return
		}
		if !errors.Is(err, ErrNotConnected) {
			break
		}
		t.Reset(r.retryDelay)
	}
	r.drop(m, err)
}

func (r *Republisher) drop(m Message, err error) {
	r.logger.Error().Err(err).Str("topic", m.Topic).Str(log.FieldEvent, "mqtt.dropped").Msg("mqtt publish failed")
	metrics.IncRepublish(sink, "dropped")
}
