// Copyright (c) zedis contributors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package shadow mirrors mutating commands to a secondary server,
// fire-and-forget. The forwarder owns one
// outbound connection on a background goroutine fed by an unbounded
// queue, the same single-writer discipline as the durability AOL writer:
// callers never block on the network and never observe a failure. Replies
// from the shadow host are never read.
package shadow

import (
	"bufio"
	"net"
	"sync"
	"time"

	"github.com/zedis/zedis/internal/resp"
	"github.com/zedis/zedis/pkg/log"
)

// redialEvery rate-limits reconnection attempts after a send failure so a
// down shadow host costs one dial per interval, not one per command.
const redialEvery = 5 * time.Second

// Forwarder mirrors commands to one remote address. Construct with New.
type Forwarder struct {
	addr string

	mu      sync.Mutex
	cond    *sync.Cond
	pending [][]string
	closed  bool

	nc       net.Conn
	bw       *bufio.Writer
	lastDial time.Time
}

// New starts a Forwarder mirroring to addr. The first dial happens lazily
// on the first forwarded command, so a shadow host that is down at boot
// does not delay startup.
func New(addr string) *Forwarder {
	f := &Forwarder{addr: addr}
	f.cond = sync.NewCond(&f.mu)
	go f.run()
	return f
}

// Forward enqueues one command for mirroring. Never blocks, never fails.
func (f *Forwarder) Forward(tokens []string) {
	cp := make([]string, len(tokens))
	copy(cp, tokens)

	f.mu.Lock()
	if !f.closed {
		f.pending = append(f.pending, cp)
		f.cond.Signal()
	}
	f.mu.Unlock()
}

// Close stops the background goroutine after draining what is already
// queued, then closes the outbound connection.
func (f *Forwarder) Close() {
	f.mu.Lock()
	f.closed = true
	f.cond.Signal()
	f.mu.Unlock()
}

func (f *Forwarder) run() {
	for {
		f.mu.Lock()
		for len(f.pending) == 0 && !f.closed {
			f.cond.Wait()
		}
		batch := f.pending
		f.pending = nil
		done := f.closed && len(batch) == 0
		f.mu.Unlock()

		if done {
			if f.nc != nil {
				f.nc.Close()
			}
			return
		}

		for _, tokens := range batch {
			f.send(tokens)
		}
	}
}

// send writes one command, dialing or redialing as needed. Errors drop
// the command: the mirror is best effort.
func (f *Forwarder) send(tokens []string) {
	if f.bw == nil {
		if time.Since(f.lastDial) < redialEvery {
			return
		}
		f.lastDial = time.Now()
		nc, err := net.DialTimeout("tcp", f.addr, 2*time.Second)
		if err != nil {
			log.Debugf("shadow: dial %s: %v", f.addr, err)
			return
		}
		log.Infof("shadow: mirroring to %s", f.addr)
		f.nc = nc
		f.bw = bufio.NewWriter(nc)
	}

	if err := resp.Encode(f.bw, resp.EncodeCommand(tokens)); err != nil {
		log.Debugf("shadow: send to %s: %v", f.addr, err)
		f.nc.Close()
		f.nc, f.bw = nil, nil
	}
}
