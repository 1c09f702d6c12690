// Copyright (c) zedis contributors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package dispatch implements the command dispatcher: decode
// the command name, check arity, and route to a typed handler over the
// keyspace. Mutating commands additionally append a source-level record to
// the durability writer — disabled automatically during AOL replay, so
// Dispatcher.Execute doubles as the durability.Dispatch callback without
// special-casing replay here.
package dispatch

import (
	"errors"
	"strconv"
	"strings"

	"github.com/zedis/zedis/internal/durability"
	"github.com/zedis/zedis/internal/keyspace"
	"github.com/zedis/zedis/internal/metrics"
	"github.com/zedis/zedis/internal/pubsub"
	"github.com/zedis/zedis/internal/resp"
	"github.com/zedis/zedis/internal/scripting"
)

// Forwarder mirrors a completed mutating command to a shadow host,
// satisfied by internal/shadow.Forwarder. Best effort: Execute never
// waits on it and never sees an error from it.
type Forwarder interface {
	Forward(tokens []string)
}

// Embedder is the narrow text->vector seam VADD.TEXT/VSEARCH.TEXT and their
// M3/hybrid counterparts use, satisfied by internal/embedding.Embedder
// without dispatch importing that package's concrete stub directly.
type Embedder interface {
	Embed(text string) (dense []float32, sparse map[uint32]float32, err error)
}

type handlerFunc func(d *Dispatcher, tokens []string) resp.Frame

// registerFunc is the seam each command-group file's registerXCommands
// function uses to install its handlers into the shared table, so every
// group file stays ignorant of the table's concrete representation.
type registerFunc func(name string, mutating bool, h handlerFunc)

type commandEntry struct {
	handler  handlerFunc
	mutating bool
}

// Dispatcher holds everything a command handler needs: the keyspace, the
// AOL writer (for mutating commands), and the pub/sub bus (for
// PUBLISH). All three are optional seams — a nil aol or bus degrades
// gracefully rather than panicking, which keeps the package usable from
// tests that only care about a handful of commands.
type Dispatcher struct {
	KS       *keyspace.Keyspace
	AOL      *durability.Writer
	Bus      *pubsub.Bus
	Embedder Embedder

	// Shadow, when set, receives every mutating command that completed
	// without error, after it was appended to the AOL.
	Shadow Forwarder

	// SnapshotPath is where SAVE writes a point-in-time snapshot. Left
	// empty, SAVE reports an error rather than guessing a location.
	SnapshotPath string

	table map[string]commandEntry
}

// New builds a Dispatcher with every command group wired into the
// dispatch table.
func New(ks *keyspace.Keyspace, aol *durability.Writer, bus *pubsub.Bus, embedder Embedder) *Dispatcher {
	d := &Dispatcher{KS: ks, AOL: aol, Bus: bus, Embedder: embedder}
	d.table = buildTable()
	return d
}

// Execute satisfies durability.Dispatch directly (and scriptCaller adapts
// it to scripting.Caller): it decodes tokens, routes to the matching
// handler, and appends a source-level AOL record for mutating commands
// that completed without error. During AOL replay the writer is held
// disabled (see internal/durability.Recover), so the Append call below is
// a safe no-op and commands are never re-logged.
func (d *Dispatcher) Execute(tokens []string) resp.Frame {
	if len(tokens) == 0 {
		return resp.Errorf("ERR empty command")
	}
	name := strings.ToUpper(tokens[0])
	entry, ok := d.table[name]
	if !ok {
		return resp.Errorf("ERR unknown command %q", tokens[0])
	}

	frame := entry.handler(d, tokens)
	if entry.mutating && !frame.IsError() {
		if d.AOL != nil {
			d.AOL.Append(strings.Join(tokens, " "))
		}
		if d.Shadow != nil {
			d.Shadow.Forward(tokens)
		}
	}

	outcome := "ok"
	if frame.IsError() {
		outcome = "error"
	}
	metrics.CommandsTotal.WithLabelValues(name, outcome).Inc()

	return frame
}

func buildTable() map[string]commandEntry {
	t := make(map[string]commandEntry)
	var register registerFunc = func(name string, mutating bool, h handlerFunc) {
		t[name] = commandEntry{handler: h, mutating: mutating}
	}

	registerScalarCommands(register)
	registerListCommands(register)
	registerHashCommands(register)
	registerSetCommands(register)
	registerSortedSetCommands(register)
	registerStreamCommands(register)
	registerBitfieldCommands(register)
	registerGeoCommands(register)
	registerJSONCommands(register)
	registerVectorCommands(register)
	registerProbabilisticCommands(register)
	registerTimeSeriesCommands(register)
	registerGraphCommands(register)
	registerMLCommands(register)
	registerDurabilityCommands(register)
	registerPubSubCommands(register)
	registerScriptingCommands(register)
	registerLivenessCommands(register)

	return t
}

// scriptCaller adapts Execute to scripting.Caller's (string, []string)
// signature and coerces the result frame to the bulk-string return value
// EVAL's call() reports back to the script.
func (d *Dispatcher) scriptCaller(cmd string, args []string) (string, error) {
	tokens := append([]string{cmd}, args...)
	frame := d.Execute(tokens)
	if frame.IsError() {
		return "", errors.New(frame.Str)
	}
	return frameScalarString(frame), nil
}

// frameScalarString renders a non-error Frame as the single string a
// script's call() result or EVAL's own coercion needs.
func frameScalarString(f resp.Frame) string {
	switch f.Kind {
	case resp.KindSimpleString:
		return f.Str
	case resp.KindInteger:
		return strconv.FormatInt(f.Int, 10)
	case resp.KindBulkString:
		if f.Null {
			return ""
		}
		return string(f.Bulk)
	default:
		return ""
	}
}

var _ scripting.Caller = (*Dispatcher)(nil).scriptCaller
