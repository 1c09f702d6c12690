// Copyright (c) zedis contributors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package pubsub

import (
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/zedis/zedis/pkg/log"
)

// NatsBridge mirrors PUBLISH traffic onto a NATS subject prefix, so that
// multiple independent server processes can share a pub/sub fabric even
// though the core keyspace itself is not clustered. The bridge is an
// optional, best-effort bolt-on, not replication.
type NatsBridge struct {
	conn   *nats.Conn
	prefix string
	bus    *Bus
	subs   []*nats.Subscription
}

// NewNatsBridge connects to url and wires bidirectional forwarding: local
// Publish calls are mirrored onto "<prefix>.<channel>", and inbound NATS
// messages on "<prefix>.>" are re-published into the local Bus so that
// locally subscribed connections see them too.
func NewNatsBridge(url, prefix string, bus *Bus) (*NatsBridge, error) {
	conn, err := nats.Connect(url, nats.MaxReconnects(-1), nats.ReconnectWait(nats.DefaultReconnectWait))
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	br := &NatsBridge{conn: conn, prefix: prefix, bus: bus}

	sub, err := conn.Subscribe(prefix+".>", func(msg *nats.Msg) {
		channel := msg.Subject[len(prefix)+1:]
		// PublishLocal, not Publish: re-mirroring an inbound message
		// would bounce it between bridged servers indefinitely.
		bus.PublishLocal(channel, string(msg.Data))
	})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("nats subscribe: %w", err)
	}
	br.subs = append(br.subs, sub)
	return br, nil
}

// Forward mirrors one local publish onto the NATS fabric. Best-effort: a
// publish error is logged, never propagated back to the PUBLISH caller,
// since the local bus delivery has already happened by the time this runs.
func (b *NatsBridge) Forward(channel, payload string) {
	if err := b.conn.Publish(b.prefix+"."+channel, []byte(payload)); err != nil {
		log.Warnf("pubsub: nats forward to %q failed: %s", channel, err)
	}
}

func (b *NatsBridge) Close() {
	for _, s := range b.subs {
		_ = s.Unsubscribe()
	}
	b.conn.Close()
}
