// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package bus carries topology and transport events between the zone
// systems and their consumers (completion waits, republishers, websocket).
package bus

import "context"

// Message is an opaque event payload.
type Message interface{}

type Subscriber interface {
	// C returns a read-only message channel. It is not closed by Close;
	// owners stop reading once they close the subscription.
	C() <-chan Message
	// Close unsubscribes. Safe to call more than once.
	Close() error
}

// Bus is the event transport abstraction.
type Bus interface {
	Publish(ctx context.Context, topic string, msg Message) error
	Subscribe(ctx context.Context, topic string) (Subscriber, error)
}
