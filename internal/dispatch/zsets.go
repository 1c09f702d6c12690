// Copyright (c) zedis contributors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package dispatch

import (
	"strings"

	"github.com/zedis/zedis/internal/resp"
	"github.com/zedis/zedis/internal/values"
)

func registerSortedSetCommands(register registerFunc) {
	register("ZADD", true, cmdZAdd)
	register("ZRANGE", false, cmdZRange)
}

func cmdZAdd(d *Dispatcher, tokens []string) resp.Frame {
	if len(tokens) != 4 {
		return arityErr("ZADD")
	}
	score, err := parseFloat(tokens[2])
	if err != nil {
		return resp.Errorf("ERR value is not a valid float")
	}
	member := tokens[3]
	var isNew bool
	_, err = d.KS.Mutate(tokens[1], func(cur values.Value, ok bool) (values.Value, bool, error) {
		var z *values.SortedSet
		if ok {
			var isZSet bool
			z, isZSet = cur.(*values.SortedSet)
			if !isZSet {
				return nil, false, values.ErrWrongType
			}
		} else {
			z = values.NewSortedSet()
		}
		isNew = z.Add(member, score)
		return z, false, nil
	})
	if err != nil {
		return resp.ErrorFrame(err.Error())
	}
	if isNew {
		return resp.Integer(1)
	}
	return resp.Integer(0)
}

func cmdZRange(d *Dispatcher, tokens []string) resp.Frame {
	if len(tokens) < 4 {
		return arityErr("ZRANGE")
	}
	start, err := parseInt(tokens[2])
	if err != nil {
		return resp.ErrorFrame(values.ErrNotInteger.Error())
	}
	end, err := parseInt(tokens[3])
	if err != nil {
		return resp.ErrorFrame(values.ErrNotInteger.Error())
	}
	withScores := len(tokens) >= 5 && strings.EqualFold(tokens[4], "WITHSCORES")

	raw, ok := d.KS.Get(tokens[1])
	if !ok {
		return bulkArray(nil)
	}
	z, isZSet := raw.(*values.SortedSet)
	if !isZSet {
		return wrongTypeErr()
	}
	entries := z.RankRange(start, end)
	if !withScores {
		out := make([]resp.Frame, len(entries))
		for i, e := range entries {
			out[i] = resp.BulkStringFromString(e.Member)
		}
		return resp.Array(out)
	}
	out := make([]resp.Frame, 0, len(entries)*2)
	for _, e := range entries {
		out = append(out, resp.BulkStringFromString(e.Member), resp.BulkStringFromString(formatScore(e.Score)))
	}
	return resp.Array(out)
}
