// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ManuGH/sonox/internal/bus"
	"github.com/ManuGH/sonox/internal/log"
	"github.com/ManuGH/sonox/internal/zone"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Local automation clients connect from arbitrary origins.
	CheckOrigin: func(*http.Request) bool { return true },
}

// StreamMessage is one event on the websocket stream.
type StreamMessage struct {
	Type string      `json:"type"`
	Data bus.Message `json:"data"`
}

// handleEventStream pushes topology, transport and volume events to the
// client until it disconnects.
func (s *Server) handleEventStream(w http.ResponseWriter, r *http.Request) {
	logger := log.WithComponentFromContext(r.Context(), "api.ws")
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	topics := []string{zone.TopicTopology, zone.TopicTransport, zone.TopicVolume}
	subs := make([]bus.Subscriber, 0, len(topics))
	defer func() {
		for _, sub := range subs {
			_ = sub.Close()
		}
	}()
	for _, t := range topics {
		sub, err := s.deps.Events.Subscribe(ctx, t)
		if err != nil {
			writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: "events_unavailable", Message: err.Error()})
			return
		}
		subs = append(subs, sub)
	}

	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer func() { _ = conn.Close() }()

	// Reader: only handles control frames and notices the client leaving.
	go func() {
		defer cancel()
		conn.SetReadLimit(maxMessageSize)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()
	for {
		var out StreamMessage
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
			continue
		case msg, ok := <-subs[0].C():
			if !ok {
				return
			}
			out = StreamMessage{Type: zone.TopicTopology, Data: msg}
		case msg, ok := <-subs[1].C():
			if !ok {
				return
			}
			out = StreamMessage{Type: zone.TopicTransport, Data: msg}
		case msg, ok := <-subs[2].C():
			if !ok {
				return
			}
			out = StreamMessage{Type: zone.TopicVolume, Data: msg}
		}
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(out); err != nil {
			logger.Debug().Err(err).Msg("websocket client gone")
			return
		}
	}
}
