// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package bus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ManuGH/sonox/internal/log"
	"github.com/ManuGH/sonox/internal/metrics"
)

// DefaultBuffer is the per-subscriber channel capacity.
const DefaultBuffer = 64

const dropLogEvery = 100

var dropCount atomic.Uint64

// MemoryBus is an in-process pub/sub. Publish blocks on a full subscriber
// until the publish context ends, then drops the message for that
// subscriber only; closed subscribers are skipped.
type MemoryBus struct {
	mu     sync.RWMutex
	subs   map[string][]*memSub
	buffer int
}

// NewMemoryBus returns a bus with DefaultBuffer sized subscriber channels.
func NewMemoryBus() *MemoryBus {
	return NewMemoryBusWithBuffer(DefaultBuffer)
}

// NewMemoryBusWithBuffer returns a bus whose subscribers buffer n messages.
func NewMemoryBusWithBuffer(n int) *MemoryBus {
	if n <= 0 {
		n = DefaultBuffer
	}
	return &MemoryBus{subs: make(map[string][]*memSub), buffer: n}
}

func publishDropReason(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "context_done"
	}
}

func (b *MemoryBus) Publish(ctx context.Context, topic string, msg Message) error {
	if ctx == nil {
		return fmt.Errorf("publish context is nil")
	}
	b.mu.RLock()
	subs := append([]*memSub(nil), b.subs[topic]...)
	b.mu.RUnlock()

	// Subscribers with free buffer are served before any blocking send.
	var blocked []*memSub
	for _, s := range subs {
		select {
		case s.ch <- msg:
		case <-s.done:
		default:
			blocked = append(blocked, s)
		}
	}

	var dropErr error
	for _, s := range blocked {
		select {
		case s.ch <- msg:
			continue
		case <-s.done:
			continue
		default:
		}
		select {
		case s.ch <- msg:
		case <-s.done:
		case <-ctx.Done():
			b.recordDrop(topic, ctx.Err())
			if dropErr == nil {
				dropErr = fmt.Errorf("publish topic %q: %w", topic, ctx.Err())
			}
		}
	}
	if dropErr != nil {
		return dropErr
	}
	metrics.IncBusPublished(topic)
	return nil
}

func (b *MemoryBus) recordDrop(topic string, err error) {
	reason := publishDropReason(err)
	metrics.IncBusDropReason(topic, reason)
	count := dropCount.Add(1)
	if count%dropLogEvery == 1 {
		logger := log.WithComponent("bus")
		logger.Warn().
			Str(log.FieldEvent, "bus.publish_dropped").
			Str("topic", topic).
			Str("reason", reason).
			Uint64("dropped", count).
			Msg("memory bus dropped a message for a full subscriber")
	}
}

func (b *MemoryBus) Subscribe(_ context.Context, topic string) (Subscriber, error) {
	s := &memSub{
		b:     b,
		topic: topic,
		ch:    make(chan Message, b.buffer),
		done:  make(chan struct{}),
	}

	b.mu.Lock()
	b.subs[topic] = append(b.subs[topic], s)
	b.mu.Unlock()
	metrics.AddBusSubscribers(topic, 1)

	return s, nil
}

// Subscribers reports the number of live subscriptions on topic.
func (b *MemoryBus) Subscribers(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic])
}

type memSub struct {
	b     *MemoryBus
	topic string
	ch    chan Message
	done  chan struct{}
	once  sync.Once
}

func (s *memSub) C() <-chan Message {
	return s.ch
}

func (s *memSub) Close() error {
	s.once.Do(func() {
		s.b.mu.Lock()
		lst := s.b.subs[s.topic]
		out := lst[:0]
		for _, c := range lst {
			if c != s {
				out = append(out, c)
			}
		}
		if len(out) == 0 {
			delete(s.b.subs, s.topic)
		} else {
			s.b.subs[s.topic] = out
		}
		s.b.mu.Unlock()
		close(s.done)
		metrics.AddBusSubscribers(s.topic, -1)
	})
	return nil
}

var _ Bus = (*MemoryBus)(nil)
