// Copyright (c) zedis contributors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package supervisor binds the listener, accepts connections, and spawns a
// per-connection goroutine for each: net.Listen first, optionally wrapped
// with tls.Config from a cert/key pair, then serve until shutdown.
package supervisor

import (
	"crypto/tls"
	"net"
	"sync"

	"github.com/zedis/zedis/internal/acl"
	"github.com/zedis/zedis/internal/conn"
	"github.com/zedis/zedis/internal/dispatch"
	"github.com/zedis/zedis/internal/hardware"
	"github.com/zedis/zedis/internal/pubsub"
	"github.com/zedis/zedis/pkg/log"
)

// Config holds what Supervisor needs to bind and serve. TLS is enabled
// only when both CertFile and KeyFile are set; otherwise the listener
// speaks plaintext TCP.
type Config struct {
	Addr     string
	CertFile string
	KeyFile  string
}

// Supervisor owns the listener and the set of in-flight connection
// goroutines. The zero value is not usable; construct with New.
type Supervisor struct {
	cfg     Config
	d       *dispatch.Dispatcher
	bus     *pubsub.Bus
	gate    *acl.Gate
	limiter *acl.Limiter
	ln      net.Listener
	wg      sync.WaitGroup
}

func New(cfg Config, d *dispatch.Dispatcher, bus *pubsub.Bus) *Supervisor {
	return &Supervisor{cfg: cfg, d: d, bus: bus}
}

// WithACL attaches a Gate and Limiter, applied to every connection Serve
// spawns from then on. Either may be nil to leave that protection off.
func (s *Supervisor) WithACL(gate *acl.Gate, limiter *acl.Limiter) *Supervisor {
	s.gate = gate
	s.limiter = limiter
	return s
}

// Listen binds the configured address, wrapping it in TLS when both
// CertFile and KeyFile are set. It must be called before Serve.
func (s *Supervisor) Listen() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}

	if s.cfg.CertFile != "" && s.cfg.KeyFile != "" {
		cert, err := tls.LoadX509KeyPair(s.cfg.CertFile, s.cfg.KeyFile)
		if err != nil {
			ln.Close()
			return err
		}
		ln = tls.NewListener(ln, &tls.Config{
			Certificates:             []tls.Certificate{cert},
			MinVersion:               tls.VersionTLS12,
			PreferServerCipherSuites: true,
		})
		log.Infof("zedis: listening (tls) on %s", s.cfg.Addr)
	} else {
		log.Infof("zedis: listening on %s", s.cfg.Addr)
	}

	hints := hardware.New().Hints()
	log.Infof("zedis: hardware advisor suggests %d core(s): %v", len(hints.Cores), hints.Cores)

	s.ln = ln
	return nil
}

// Serve accepts connections until the listener is closed (typically by
// Shutdown), spawning one conn.Conn goroutine per accepted socket and
// tracking it in the WaitGroup Shutdown waits on. A panic inside a
// connection goroutine is logged and ends only that connection.
func (s *Supervisor) Serve() {
	for {
		nc, err := s.ln.Accept()
		if err != nil {
			log.Debugf("zedis: accept loop exiting: %v", err)
			return
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer func() {
				if r := recover(); r != nil {
					log.Errorf("zedis: connection goroutine panicked: %v", r)
				}
			}()
			conn.New(nc, s.d, s.bus).WithACL(s.gate, s.limiter).Serve()
		}()
	}
}

// Shutdown closes the listener, stopping Serve's accept loop, then waits
// for in-flight connection goroutines to finish on their own (a
// connection ends when its client disconnects or a protocol error
// occurs; there is no forced mid-command cutoff and no command-level
// timeout).
func (s *Supervisor) Shutdown() {
	if s.ln != nil {
		s.ln.Close()
	}
	s.wg.Wait()
}
