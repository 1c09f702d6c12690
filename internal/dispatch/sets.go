// Copyright (c) zedis contributors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package dispatch

import (
	"github.com/zedis/zedis/internal/resp"
	"github.com/zedis/zedis/internal/values"
)

func registerSetCommands(register registerFunc) {
	register("SADD", true, cmdSAdd)
	register("SMEMBERS", false, cmdSMembers)
}

func cmdSAdd(d *Dispatcher, tokens []string) resp.Frame {
	if len(tokens) < 3 {
		return arityErr("SADD")
	}
	members := make([][]byte, 0, len(tokens)-2)
	for _, t := range tokens[2:] {
		members = append(members, []byte(t))
	}
	var added int
	_, err := d.KS.Mutate(tokens[1], func(cur values.Value, ok bool) (values.Value, bool, error) {
		var s *values.Set
		if ok {
			var isSet bool
			s, isSet = cur.(*values.Set)
			if !isSet {
				return nil, false, values.ErrWrongType
			}
		} else {
			s = values.NewSet()
		}
		added = s.Add(members...)
		return s, false, nil
	})
	if err != nil {
		return resp.ErrorFrame(err.Error())
	}
	return resp.Integer(int64(added))
}

func cmdSMembers(d *Dispatcher, tokens []string) resp.Frame {
	if len(tokens) != 2 {
		return arityErr("SMEMBERS")
	}
	raw, ok := d.KS.Get(tokens[1])
	if !ok {
		return bulkArray(nil)
	}
	s, isSet := raw.(*values.Set)
	if !isSet {
		return wrongTypeErr()
	}
	return bulkArray(s.Members())
}
