// Copyright (c) zedis contributors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package dispatch

import (
	"time"

	"github.com/zedis/zedis/internal/resp"
	"github.com/zedis/zedis/internal/values"
)

func registerStreamCommands(register registerFunc) {
	register("XADD", true, cmdXAdd)
	register("XRANGE", false, cmdXRange)
}

// XADD key id field1 value1 [field2 value2 ...]
func cmdXAdd(d *Dispatcher, tokens []string) resp.Frame {
	if len(tokens) < 5 || len(tokens)%2 != 1 {
		return arityErr("XADD")
	}
	fields := make(map[string][]byte, (len(tokens)-3)/2)
	for i := 3; i < len(tokens); i += 2 {
		fields[tokens[i]] = []byte(tokens[i+1])
	}
	nowMs := time.Now().UnixMilli()
	id := tokens[2]

	var assigned values.StreamID
	_, err := d.KS.Mutate(tokens[1], func(cur values.Value, ok bool) (values.Value, bool, error) {
		var s *values.Stream
		if ok {
			var isStream bool
			s, isStream = cur.(*values.Stream)
			if !isStream {
				return nil, false, values.ErrWrongType
			}
		} else {
			s = values.NewStream()
		}
		var err error
		assigned, err = s.Add(id, fields, nowMs)
		if err != nil {
			return nil, false, err
		}
		return s, false, nil
	})
	if err != nil {
		return resp.ErrorFrame(err.Error())
	}
	return resp.BulkStringFromString(assigned.String())
}

func cmdXRange(d *Dispatcher, tokens []string) resp.Frame {
	if len(tokens) != 4 {
		return arityErr("XRANGE")
	}
	start, err := values.ParseStreamID(tokens[2])
	if err != nil {
		return resp.ErrorFrame(err.Error())
	}
	end, err := values.ParseStreamID(tokens[3])
	if err != nil {
		return resp.ErrorFrame(err.Error())
	}
	raw, ok := d.KS.Get(tokens[1])
	if !ok {
		return bulkArray(nil)
	}
	s, isStream := raw.(*values.Stream)
	if !isStream {
		return wrongTypeErr()
	}
	entries := s.Range(start, end)
	out := make([]resp.Frame, len(entries))
	for i, e := range entries {
		fieldsFrame := make([]resp.Frame, 0, len(e.Fields)*2)
		for k, v := range e.Fields {
			fieldsFrame = append(fieldsFrame, resp.BulkStringFromString(k), resp.BulkString(v))
		}
		out[i] = resp.Array([]resp.Frame{
			resp.BulkStringFromString(e.ID.String()),
			resp.Array(fieldsFrame),
		})
	}
	return resp.Array(out)
}
