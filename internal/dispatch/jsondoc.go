// Copyright (c) zedis contributors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package dispatch

import (
	"github.com/zedis/zedis/internal/resp"
	"github.com/zedis/zedis/internal/values"
)

func registerJSONCommands(register registerFunc) {
	register("JSON.SET", true, cmdJSONSet)
	register("JSON.GET", false, cmdJSONGet)
}

// JSON.SET key path rawjson — path is accepted for wire compatibility but
// only "." (whole document) is honored by the underlying values.JSONDoc
// ("." returns the whole document).
func cmdJSONSet(d *Dispatcher, tokens []string) resp.Frame {
	if len(tokens) != 4 {
		return arityErr("JSON.SET")
	}
	_, err := d.KS.Mutate(tokens[1], func(cur values.Value, ok bool) (values.Value, bool, error) {
		if ok {
			doc, isDoc := cur.(*values.JSONDoc)
			if !isDoc {
				return nil, false, values.ErrWrongType
			}
			if err := doc.Set([]byte(tokens[3])); err != nil {
				return nil, false, err
			}
			return doc, false, nil
		}
		doc, err := values.NewJSONDoc([]byte(tokens[3]))
		if err != nil {
			return nil, false, err
		}
		return doc, false, nil
	})
	if err != nil {
		return resp.ErrorFrame(err.Error())
	}
	return resp.SimpleString("OK")
}

func cmdJSONGet(d *Dispatcher, tokens []string) resp.Frame {
	if len(tokens) != 3 {
		return arityErr("JSON.GET")
	}
	raw, ok := d.KS.Get(tokens[1])
	if !ok {
		return resp.NullBulkString()
	}
	doc, isDoc := raw.(*values.JSONDoc)
	if !isDoc {
		return wrongTypeErr()
	}
	out, err := doc.Get(tokens[2])
	if err != nil {
		return resp.ErrorFrame(err.Error())
	}
	return resp.BulkString(out)
}
