// Copyright (c) zedis contributors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package conn implements the per-connection state machine: Normal,
// Queuing (MULTI/EXEC/DISCARD) and Subscribed, driven off a single read
// loop per client socket, one goroutine per accepted connection.
package conn

import (
	"bufio"
	"errors"
	"io"
	"net"
	"strings"

	"github.com/zedis/zedis/internal/acl"
	"github.com/zedis/zedis/internal/dispatch"
	"github.com/zedis/zedis/internal/metrics"
	"github.com/zedis/zedis/internal/pubsub"
	"github.com/zedis/zedis/internal/resp"
	"github.com/zedis/zedis/pkg/log"
)

// state is the connection's current mode.
type state int

const (
	stateNormal state = iota
	stateQueuing
	stateSubscribed
)

// Conn owns one client socket end-to-end: decoding frames, routing them
// through the dispatcher, and handling the MULTI/EXEC and SUBSCRIBE mode
// transitions. Callers construct one per accepted connection and call
// Serve, typically from its own goroutine.
type Conn struct {
	nc      net.Conn
	r       *bufio.Reader
	w       *bufio.Writer
	d       *dispatch.Dispatcher
	bus     *pubsub.Bus
	gate    *acl.Gate
	limiter *acl.Limiter
	st      state
	queue   [][]string
	user    *acl.User
}

// New wraps an accepted socket. bus may be nil, in which case SUBSCRIBE
// degrades to an error reply rather than a working subscription.
func New(nc net.Conn, d *dispatch.Dispatcher, bus *pubsub.Bus) *Conn {
	return &Conn{
		nc:  nc,
		r:   bufio.NewReader(nc),
		w:   bufio.NewWriter(nc),
		d:   d,
		bus: bus,
		st:  stateNormal,
	}
}

// WithACL attaches a Gate and Limiter to an already-constructed Conn,
// enabling AUTH, per-command ACL checks, and per-IP rate limiting. Either
// may be nil: a nil gate leaves every connection unauthenticated-but-
// unchecked (no ACL configured at all), a nil limiter skips throttling.
// Kept as a separate setter rather than extra New parameters so the many
// ACL-less call sites (tests, the no-auth default deployment) don't have
// to pass nil, nil.
func (c *Conn) WithACL(gate *acl.Gate, limiter *acl.Limiter) *Conn {
	c.gate = gate
	c.limiter = limiter
	return c
}

// Serve runs the connection's read loop until the socket closes or a
// protocol error forces it shut. It never returns an error the caller must
// act on beyond logging: a closed connection is simply the end of this
// unit of work, not a supervisor-level failure.
func (c *Conn) Serve() {
	defer c.nc.Close()
	metrics.ConnectedClients.Inc()
	defer metrics.ConnectedClients.Dec()
	for {
		tokens, err := resp.ParseCommand(c.r)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				log.Debugf("conn: %s: %v", c.nc.RemoteAddr(), err)
			}
			return
		}

		if c.limiter != nil && !c.limiter.Allow(c.remoteIP()) {
			if err := c.reply(resp.Errorf("ERR rate limit exceeded")); err != nil {
				log.Debugf("conn: %s: write failed: %v", c.nc.RemoteAddr(), err)
				return
			}
			continue
		}

		if err := c.handle(tokens); err != nil {
			log.Debugf("conn: %s: write failed: %v", c.nc.RemoteAddr(), err)
			return
		}
	}
}

// remoteIP strips the port off the connection's remote address for keying
// the rate limiter's per-client buckets. Falls back to the full address
// string if it isn't a host:port pair (e.g. net.Pipe's unaddressed ends).
func (c *Conn) remoteIP() string {
	addr := c.nc.RemoteAddr().String()
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}

func (c *Conn) handle(tokens []string) error {
	name := strings.ToUpper(tokens[0])

	switch c.st {
	case stateQueuing:
		return c.handleQueuing(name, tokens)
	default:
		switch name {
		case "AUTH":
			return c.handleAuth(tokens)
		case "MULTI":
			c.st = stateQueuing
			c.queue = c.queue[:0]
			return c.reply(resp.SimpleString("OK"))
		case "SUBSCRIBE":
			return c.enterSubscribed(tokens[1:])
		default:
			if err := c.checkACL(name); err != nil {
				return c.reply(resp.Errorf("%s", err.Error()))
			}
			return c.reply(c.d.Execute(tokens))
		}
	}
}

// handleAuth logs the connection in against the Gate, storing the
// resolved User for subsequent checkACL calls. With no gate configured,
// AUTH is accepted as a no-op: there is nothing to check commands against,
// so everything is let through.
func (c *Conn) handleAuth(tokens []string) error {
	if len(tokens) != 3 {
		return c.reply(resp.Errorf("ERR wrong number of arguments for 'AUTH' command"))
	}
	if c.gate == nil {
		return c.reply(resp.SimpleString("OK"))
	}
	u, err := c.gate.Login(tokens[1], tokens[2])
	if err != nil {
		return c.reply(resp.Errorf("WRONGPASS invalid username-password pair"))
	}
	c.user = u
	return c.reply(resp.SimpleString("OK"))
}

// checkACL gates a command against the connection's authenticated user. A
// nil Gate means ACL is not configured at all, so every command passes.
func (c *Conn) checkACL(name string) error {
	if c.gate == nil {
		return nil
	}
	return c.gate.Check(c.user, name)
}

func (c *Conn) handleQueuing(name string, tokens []string) error {
	switch name {
	case "EXEC":
		// ACL checks happen here, per entry, not at queue time: queued
		// commands aren't validated until EXEC runs them.
		results := make([]resp.Frame, len(c.queue))
		for i, queued := range c.queue {
			qname := strings.ToUpper(queued[0])
			if err := c.checkACL(qname); err != nil {
				results[i] = resp.Errorf("%s", err.Error())
				continue
			}
			results[i] = c.d.Execute(queued)
		}
		c.queue = nil
		c.st = stateNormal
		return c.reply(resp.Array(results))
	case "DISCARD":
		c.queue = nil
		c.st = stateNormal
		return c.reply(resp.SimpleString("OK"))
	case "MULTI":
		return c.reply(resp.Errorf("ERR MULTI calls can not be nested"))
	default:
		c.queue = append(c.queue, tokens)
		return c.reply(resp.SimpleString("QUEUED"))
	}
}

// enterSubscribed registers the connection's interest and hands the socket
// over to the subscribed read/delivery loop. Any client input received
// while subscribed ends pub/sub mode rather than being parsed as
// SUBSCRIBE/UNSUBSCRIBE within the mode.
func (c *Conn) enterSubscribed(channels []string) error {
	if c.bus == nil {
		return c.reply(resp.Errorf("ERR pub/sub is not available"))
	}
	if len(channels) == 0 {
		return c.reply(resp.Errorf("ERR wrong number of arguments for 'SUBSCRIBE' command"))
	}

	sub := c.bus.Subscribe(channels...)
	defer sub.Close()

	// One ack per channel: ["subscribe", channel, count], count being how
	// many channels this connection is subscribed to so far.
	for i, ch := range channels {
		ack := resp.Array([]resp.Frame{
			resp.BulkStringFromString("subscribe"),
			resp.BulkStringFromString(ch),
			resp.Integer(int64(i + 1)),
		})
		if err := c.reply(ack); err != nil {
			return err
		}
	}

	// One more frame read ends subscribed mode (any client input
	// terminates pub/sub mode); it runs on its own goroutine so the
	// delivery loop below can select on it alongside the subscription.
	nextInput := make(chan struct{})
	go func() {
		// Result and error are both discarded: only the arrival of more
		// bytes matters here, not what they decode to.
		_, _ = resp.ParseCommand(c.r)
		close(nextInput)
	}()

	for {
		select {
		case msg, ok := <-sub.C():
			if !ok {
				return c.reply(resp.Errorf("ERR subscriber lagged, connection dropped from pub/sub"))
			}
			frame := resp.Array([]resp.Frame{
				resp.BulkStringFromString("message"),
				resp.BulkStringFromString(msg.Channel),
				resp.BulkStringFromString(msg.Payload),
			})
			if err := c.reply(frame); err != nil {
				return err
			}
		case <-nextInput:
			return nil
		}
	}
}

func (c *Conn) reply(f resp.Frame) error {
	if err := resp.Encode(c.w, f); err != nil {
		return err
	}
	return c.w.Flush()
}
