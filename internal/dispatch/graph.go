// Copyright (c) zedis contributors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package dispatch

import (
	"github.com/zedis/zedis/internal/resp"
	"github.com/zedis/zedis/internal/values"
)

func registerGraphCommands(register registerFunc) {
	register("GRAPH.ADD", true, cmdGraphAdd)
	register("GRAPH.BFS", false, cmdGraphBFS)
}

// GRAPH.ADD key from to
func cmdGraphAdd(d *Dispatcher, tokens []string) resp.Frame {
	if len(tokens) != 4 {
		return arityErr("GRAPH.ADD")
	}
	from, to := tokens[2], tokens[3]
	_, err := d.KS.Mutate(tokens[1], func(cur values.Value, ok bool) (values.Value, bool, error) {
		var g *values.Graph
		if ok {
			var isGraph bool
			g, isGraph = cur.(*values.Graph)
			if !isGraph {
				return nil, false, values.ErrWrongType
			}
		} else {
			g = values.NewGraph()
		}
		g.AddEdge(from, to)
		return g, false, nil
	})
	if err != nil {
		return resp.ErrorFrame(err.Error())
	}
	return resp.SimpleString("OK")
}

// GRAPH.BFS key start maxDepth
func cmdGraphBFS(d *Dispatcher, tokens []string) resp.Frame {
	if len(tokens) != 4 {
		return arityErr("GRAPH.BFS")
	}
	maxDepth, err := parseInt(tokens[3])
	if err != nil {
		return resp.ErrorFrame(values.ErrNotInteger.Error())
	}
	raw, ok := d.KS.Get(tokens[1])
	if !ok {
		return stringArray(nil)
	}
	g, isGraph := raw.(*values.Graph)
	if !isGraph {
		return wrongTypeErr()
	}
	return stringArray(g.BFS(tokens[2], int(maxDepth)))
}
