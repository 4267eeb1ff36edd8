// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ManuGH/sonox/internal/bus"
	"github.com/ManuGH/sonox/internal/log"
	"github.com/ManuGH/sonox/internal/metrics"
	"github.com/ManuGH/sonox/internal/zone"
)

const (
	maxWebhookBody = 1 << 20
	publishTimeout = 2 * time.Second
)

// ErrUnknownEvent is returned for webhook types the service does not consume.
var ErrUnknownEvent = errors.New("bridge: unknown event type")

// Event is the webhook envelope posted by the bridge.
type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Webhook publishes bridge events on the bus.
type Webhook struct {
	bus bus.Bus
}

// NewWebhook returns a webhook publishing to b.
func NewWebhook(b bus.Bus) *Webhook {
	return &Webhook{bus: b}
}

// Decode converts an envelope into the zone event it carries.
func Decode(evt Event) (bus.Message, error) {
	switch evt.Type {
	case zone.TopicTopology:
		var zones []zoneJSON
		if err := json.Unmarshal(evt.Data, &zones); err != nil {
			return nil, fmt.Errorf("decode %s: %w", evt.Type, err)
		}
		return zone.TopologyEvent{Groups: toGroups(zones)}, nil
	case zone.TopicTransport:
		var info zone.NodeInfo
		if err := json.Unmarshal(evt.Data, &info); err != nil {
			return nil, fmt.Errorf("decode %s: %w", evt.Type, err)
		}
		return zone.TransportEvent{NodeID: info.ID, RoomName: info.RoomName, State: info.State}, nil
	case zone.TopicVolume:
		var v zone.VolumeEvent
		if err := json.Unmarshal(evt.Data, &v); err != nil {
			return nil, fmt.Errorf("decode %s: %w", evt.Type, err)
		}
		return v, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, evt.Type)
}

// Handle decodes evt and publishes it under its type.
func (w *Webhook) Handle(ctx context.Context, evt Event) error {
	msg, err := Decode(evt)
	if err != nil {
		result := "invalid"
		if errors.Is(err, ErrUnknownEvent) {
			result = "ignored"
		}
		metrics.IncBridgeEvent(evt.Type, result)
		return err
	}
	if err := w.bus.Publish(ctx, evt.Type, msg); err != nil {
		metrics.IncBridgeEvent(evt.Type, "publish_failed")
		return fmt.Errorf("publish %s: %w", evt.Type, err)
	}
	metrics.IncBridgeEvent(evt.Type, "ok")
	return nil
}

// ServeHTTP accepts POSTed envelopes. Unknown types are acknowledged and
// dropped so the bridge does not retry them.
func (w *Webhook) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	logger := log.WithComponentFromContext(r.Context(), "bridge.webhook")
	var evt Event
	dec := json.NewDecoder(http.MaxBytesReader(rw, r.Body, maxWebhookBody))
	if err := dec.Decode(&evt); err != nil {
		http.Error(rw, "invalid event envelope", http.StatusBadRequest)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), publishTimeout)
	defer cancel()
	err := w.Handle(ctx, evt)
	switch {
	case err == nil:
		rw.WriteHeader(http.StatusNoContent)
	case errors.Is(err, ErrUnknownEvent):
		logger.Debug().Str("type", evt.Type).Msg("ignoring bridge event")
		rw.WriteHeader(http.StatusNoContent)
	default:
		logger.Warn().Err(err).Str("type", evt.Type).Msg("bridge event rejected")
		http.Error(rw, err.Error(), http.StatusBadRequest)
	}
}
