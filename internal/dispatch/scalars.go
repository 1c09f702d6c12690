// Copyright (c) zedis contributors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package dispatch

import (
	"github.com/zedis/zedis/internal/resp"
	"github.com/zedis/zedis/internal/values"
)

func registerScalarCommands(register registerFunc) {
	register("GET", false, cmdGet)
	register("SET", true, cmdSet)
	register("SETEX", true, cmdSetex)
	register("DEL", true, cmdDel)
	register("EXISTS", false, cmdExists)
	register("TTL", false, cmdTTL)
	register("INCR", true, cmdIncr)
	register("INCRBY", true, cmdIncrBy)
}

func cmdGet(d *Dispatcher, tokens []string) resp.Frame {
	if len(tokens) != 2 {
		return arityErr("GET")
	}
	raw, ok := d.KS.Get(tokens[1])
	if !ok {
		return resp.NullBulkString()
	}
	s, ok := raw.(*values.String)
	if !ok {
		return wrongTypeErr()
	}
	return resp.BulkString(s.Bytes())
}

func cmdSet(d *Dispatcher, tokens []string) resp.Frame {
	if len(tokens) != 3 {
		return arityErr("SET")
	}
	d.KS.Set(tokens[1], values.NewString([]byte(tokens[2])), 0)
	return resp.SimpleString("OK")
}

func cmdSetex(d *Dispatcher, tokens []string) resp.Frame {
	if len(tokens) != 4 {
		return arityErr("SETEX")
	}
	ttl, err := ttlFromSeconds(tokens[2])
	if err != nil {
		return resp.Errorf("ERR invalid expire time in 'SETEX' command")
	}
	d.KS.Set(tokens[1], values.NewString([]byte(tokens[3])), ttl)
	return resp.SimpleString("OK")
}

func cmdDel(d *Dispatcher, tokens []string) resp.Frame {
	if len(tokens) < 2 {
		return arityErr("DEL")
	}
	var n int64
	for _, key := range tokens[1:] {
		if d.KS.Remove(key) {
			n++
		}
	}
	return resp.Integer(n)
}

func cmdExists(d *Dispatcher, tokens []string) resp.Frame {
	if len(tokens) < 2 {
		return arityErr("EXISTS")
	}
	var n int64
	for _, key := range tokens[1:] {
		if d.KS.Contains(key) {
			n++
		}
	}
	return resp.Integer(n)
}

func cmdTTL(d *Dispatcher, tokens []string) resp.Frame {
	if len(tokens) != 2 {
		return arityErr("TTL")
	}
	return resp.Integer(d.KS.TTL(tokens[1]))
}

func cmdIncr(d *Dispatcher, tokens []string) resp.Frame {
	if len(tokens) != 2 {
		return arityErr("INCR")
	}
	return incrByN(d, tokens[1], 1)
}

func cmdIncrBy(d *Dispatcher, tokens []string) resp.Frame {
	if len(tokens) != 3 {
		return arityErr("INCRBY")
	}
	delta, err := parseInt(tokens[2])
	if err != nil {
		return resp.ErrorFrame(values.ErrNotInteger.Error())
	}
	return incrByN(d, tokens[1], delta)
}

func incrByN(d *Dispatcher, key string, delta int64) resp.Frame {
	v, err := d.KS.Mutate(key, func(cur values.Value, ok bool) (values.Value, bool, error) {
		if !ok {
			s := values.NewString([]byte("0"))
			if _, err := s.IncrBy(delta); err != nil {
				return nil, false, err
			}
			return s, false, nil
		}
		s, ok := cur.(*values.String)
		if !ok {
			return nil, false, values.ErrWrongType
		}
		if _, err := s.IncrBy(delta); err != nil {
			return nil, false, err
		}
		return s, false, nil
	})
	if err != nil {
		return resp.ErrorFrame(err.Error())
	}
	n, _ := v.(*values.String).AsInt()
	return resp.Integer(n)
}
