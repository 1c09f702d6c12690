// Copyright (c) zedis contributors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package dispatch

import (
	"github.com/zedis/zedis/internal/resp"
	"github.com/zedis/zedis/internal/values"
)

func registerListCommands(register registerFunc) {
	register("RPUSH", true, cmdRPush)
	register("LPOP", true, cmdLPop)
	register("LRANGE", false, cmdLRange)
}

func cmdRPush(d *Dispatcher, tokens []string) resp.Frame {
	if len(tokens) < 3 {
		return arityErr("RPUSH")
	}
	vals := make([][]byte, 0, len(tokens)-2)
	for _, t := range tokens[2:] {
		vals = append(vals, []byte(t))
	}
	v, err := d.KS.Mutate(tokens[1], func(cur values.Value, ok bool) (values.Value, bool, error) {
		var l *values.List
		if ok {
			var isList bool
			l, isList = cur.(*values.List)
			if !isList {
				return nil, false, values.ErrWrongType
			}
		} else {
			l = values.NewList()
		}
		l.RPush(vals...)
		return l, false, nil
	})
	if err != nil {
		return resp.ErrorFrame(err.Error())
	}
	return resp.Integer(int64(v.(*values.List).Len()))
}

func cmdLPop(d *Dispatcher, tokens []string) resp.Frame {
	if len(tokens) != 2 {
		return arityErr("LPOP")
	}
	var popped []byte
	var popOk bool
	_, err := d.KS.Mutate(tokens[1], func(cur values.Value, ok bool) (values.Value, bool, error) {
		if !ok {
			return nil, true, nil
		}
		l, isList := cur.(*values.List)
		if !isList {
			return nil, false, values.ErrWrongType
		}
		popped, popOk = l.LPop()
		return l, l.Len() == 0, nil
	})
	if err != nil {
		return resp.ErrorFrame(err.Error())
	}
	return bulkOrNull(popped, popOk)
}

func cmdLRange(d *Dispatcher, tokens []string) resp.Frame {
	if len(tokens) != 4 {
		return arityErr("LRANGE")
	}
	start, err := parseInt(tokens[2])
	if err != nil {
		return resp.ErrorFrame(values.ErrNotInteger.Error())
	}
	end, err := parseInt(tokens[3])
	if err != nil {
		return resp.ErrorFrame(values.ErrNotInteger.Error())
	}
	raw, ok := d.KS.Get(tokens[1])
	if !ok {
		return bulkArray(nil)
	}
	l, isList := raw.(*values.List)
	if !isList {
		return wrongTypeErr()
	}
	return bulkArray(l.LRange(start, end))
}
