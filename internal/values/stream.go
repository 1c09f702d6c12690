// Copyright (c) zedis contributors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package values

import (
	"fmt"
	"strconv"
	"strings"
)

// StreamID is a (ms, seq) pair. Comparisons are numeric-tuple, never string
// comparisons, which would misorder at digit-count boundaries (e.g.
// "9999999999999" sorting after "10000000000000").
type StreamID struct {
	Ms  int64
	Seq int64
}

func (id StreamID) Less(o StreamID) bool {
	if id.Ms != o.Ms {
		return id.Ms < o.Ms
	}
	return id.Seq < o.Seq
}

func (id StreamID) Equal(o StreamID) bool { return id.Ms == o.Ms && id.Seq == o.Seq }

func (id StreamID) String() string { return fmt.Sprintf("%d-%d", id.Ms, id.Seq) }

// MinStreamID and MaxStreamID are the "-" / "+" range-bound sentinels.
var (
	MinStreamID = StreamID{Ms: 0, Seq: 0}
	MaxStreamID = StreamID{Ms: 1<<63 - 1, Seq: 1<<63 - 1}
)

// ParseStreamID parses "ms-seq", "ms" (seq defaults to 0), "-" and "+".
func ParseStreamID(s string) (StreamID, error) {
	switch s {
	case "-":
		return MinStreamID, nil
	case "+":
		return MaxStreamID, nil
	}
	parts := strings.SplitN(s, "-", 2)
	ms, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return StreamID{}, fmt.Errorf("invalid stream id %q", s)
	}
	if len(parts) == 1 {
		return StreamID{Ms: ms, Seq: 0}, nil
	}
	seq, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return StreamID{}, fmt.Errorf("invalid stream id %q", s)
	}
	return StreamID{Ms: ms, Seq: seq}, nil
}

// StreamEntry is one append-only record.
type StreamEntry struct {
	ID     StreamID
	Fields map[string][]byte
}

// Stream is an ordered append-only sequence of entries.
type Stream struct {
	entries []StreamEntry
	lastID  StreamID
	hasLast bool
}

func NewStream() *Stream { return &Stream{} }

func (s *Stream) Type() Type { return TypeStream }

// Add appends a new entry. If id is "*", the id auto-generates from nowMs:
// if nowMs equals the last id's ms, seq increments; otherwise seq=0.
// Explicit ids must be strictly greater than the last id or the call
// fails.
func (s *Stream) Add(id string, fields map[string][]byte, nowMs int64) (StreamID, error) {
	var newID StreamID
	if id == "*" {
		if s.hasLast && s.lastID.Ms == nowMs {
			newID = StreamID{Ms: nowMs, Seq: s.lastID.Seq + 1}
		} else {
			newID = StreamID{Ms: nowMs, Seq: 0}
		}
	} else {
		parsed, err := ParseStreamID(id)
		if err != nil {
			return StreamID{}, err
		}
		if s.hasLast && !s.lastID.Less(parsed) {
			return StreamID{}, fmt.Errorf("ERR The ID specified in XADD is equal or smaller than the target stream top item")
		}
		newID = parsed
	}
	s.entries = append(s.entries, StreamEntry{ID: newID, Fields: fields})
	s.lastID = newID
	s.hasLast = true
	return newID, nil
}

func (s *Stream) Len() int { return len(s.entries) }

// Entries returns every entry in append order, for snapshotting.
func (s *Stream) Entries() []StreamEntry {
	out := make([]StreamEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

// LastID returns the most recently assigned id, if any.
func (s *Stream) LastID() (StreamID, bool) { return s.lastID, s.hasLast }

// LoadStream reconstructs a Stream from a snapshot, preserving exact ids
// (no re-assignment) so a subsequent Add("*", ...) continues the sequence
// correctly.
func LoadStream(entries []StreamEntry, lastID StreamID, hasLast bool) *Stream {
	cp := make([]StreamEntry, len(entries))
	copy(cp, entries)
	return &Stream{entries: cp, lastID: lastID, hasLast: hasLast}
}

// Range returns entries with start <= id <= end, comparing ids numerically
// (never lexicographically).
func (s *Stream) Range(start, end StreamID) []StreamEntry {
	out := make([]StreamEntry, 0)
	for _, e := range s.entries {
		if !e.ID.Less(start) && !end.Less(e.ID) {
			out = append(out, e)
		}
	}
	return out
}
