// Copyright (c) zedis contributors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package dispatch

import (
	"github.com/zedis/zedis/internal/resp"
	"github.com/zedis/zedis/internal/values"
)

func registerHashCommands(register registerFunc) {
	register("HSET", true, cmdHSet)
	register("HGET", false, cmdHGet)
}

func cmdHSet(d *Dispatcher, tokens []string) resp.Frame {
	if len(tokens) != 4 {
		return arityErr("HSET")
	}
	var added bool
	_, err := d.KS.Mutate(tokens[1], func(cur values.Value, ok bool) (values.Value, bool, error) {
		var h *values.Hash
		if ok {
			var isHash bool
			h, isHash = cur.(*values.Hash)
			if !isHash {
				return nil, false, values.ErrWrongType
			}
		} else {
			h = values.NewHash()
		}
		added = h.Set(tokens[2], []byte(tokens[3]))
		return h, false, nil
	})
	if err != nil {
		return resp.ErrorFrame(err.Error())
	}
	if added {
		return resp.Integer(1)
	}
	return resp.Integer(0)
}

func cmdHGet(d *Dispatcher, tokens []string) resp.Frame {
	if len(tokens) != 3 {
		return arityErr("HGET")
	}
	raw, ok := d.KS.Get(tokens[1])
	if !ok {
		return resp.NullBulkString()
	}
	h, isHash := raw.(*values.Hash)
	if !isHash {
		return wrongTypeErr()
	}
	v, ok := h.Get(tokens[2])
	return bulkOrNull(v, ok)
}
