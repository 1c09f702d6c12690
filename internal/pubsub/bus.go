// Copyright (c) zedis contributors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package pubsub implements the process-wide broadcast bus behind the
// PUBLISH/SUBSCRIBE command pair: a bounded per-subscriber
// backlog, publish returning the count of receivers that accepted the
// message, and explicit lag reporting (via channel close) when a slow
// subscriber's backlog overflows.
package pubsub

import (
	"sync"

	"github.com/zedis/zedis/internal/metrics"
)

const defaultBacklog = 128

// Message is one delivered (channel, payload) pair.
type Message struct {
	Channel string
	Payload string
}

type subEntry struct {
	channels map[string]struct{}
	ch       chan Message
	closed   bool
}

// Bus is the broadcast hub. The zero value is not usable; construct with
// NewBus.
type Bus struct {
	mu     sync.Mutex
	subs   map[uint64]*subEntry
	nextID uint64
	mirror func(channel, payload string)
}

// SetMirror installs fn, invoked once per Publish after local delivery
// (the NATS bridge's outbound hook). Inbound remote messages come back in
// through PublishLocal, which skips the mirror, so a bridged pair of
// servers cannot echo messages between each other forever.
func (b *Bus) SetMirror(fn func(channel, payload string)) {
	b.mu.Lock()
	b.mirror = fn
	b.mu.Unlock()
}

func NewBus() *Bus {
	return &Bus{subs: make(map[uint64]*subEntry)}
}

// Subscription is a live registration returned by Subscribe. Callers must
// range over C() and call Close() when done (typically on connection
// teardown or on leaving Subscribed mode).
type Subscription struct {
	bus *Bus
	id  uint64
	ch  chan Message
}

// C returns the delivery channel. It is closed by the bus itself if this
// subscriber's backlog overflows (a lagged subscriber) — the receive loop
// must treat a closed channel as "lag error, leave Subscribed mode".
func (s *Subscription) C() <-chan Message { return s.ch }

// Close unregisters the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	entry, ok := s.bus.subs[s.id]
	if !ok {
		return
	}
	if !entry.closed {
		close(entry.ch)
		entry.closed = true
	}
	delete(s.bus.subs, s.id)
}

// Subscribe registers interest in channels, returning a Subscription with a
// bounded delivery backlog.
func (b *Bus) Subscribe(channels ...string) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	set := make(map[string]struct{}, len(channels))
	for _, c := range channels {
		set[c] = struct{}{}
	}
	ch := make(chan Message, defaultBacklog)
	b.subs[id] = &subEntry{channels: set, ch: ch}
	return &Subscription{bus: b, id: id, ch: ch}
}

// Publish delivers payload to every current subscriber of channel, in
// publication order per subscriber (the bus never reorders a single
// publisher's sends to a given subscriber since delivery is a non-blocking
// send into that subscriber's buffered channel). It returns the number of
// subscribers that accepted the message. A subscriber whose backlog is
// full is dropped — its channel is closed so its connection observes lag
// and leaves Subscribed mode, rather than silently stalling the publisher.
func (b *Bus) Publish(channel, payload string) int {
	delivered := b.deliver(channel, payload)
	b.mu.Lock()
	mirror := b.mirror
	b.mu.Unlock()
	if mirror != nil {
		mirror(channel, payload)
	}
	return delivered
}

// PublishLocal delivers to local subscribers only, never the mirror.
func (b *Bus) PublishLocal(channel, payload string) int {
	return b.deliver(channel, payload)
}

func (b *Bus) deliver(channel, payload string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	delivered := 0
	msg := Message{Channel: channel, Payload: payload}
	for id, entry := range b.subs {
		if _, ok := entry.channels[channel]; !ok {
			continue
		}
		select {
		case entry.ch <- msg:
			delivered++
		default:
			if !entry.closed {
				close(entry.ch)
				entry.closed = true
			}
			delete(b.subs, id)
			metrics.PubSubDropped.Inc()
		}
	}
	return delivered
}

// SubscriberCount reports how many live subscriptions exist, for metrics.
func (b *Bus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
