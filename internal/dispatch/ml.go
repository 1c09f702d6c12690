// Copyright (c) zedis contributors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package dispatch

import (
	"github.com/zedis/zedis/internal/resp"
	"github.com/zedis/zedis/internal/values"
)

func registerMLCommands(register registerFunc) {
	register("ML.LOAD", true, cmdMLLoad)
	register("ML.RUN", false, cmdMLRun)
}

// ML.LOAD key name scale — registers a placeholder model under key, where
// scale is the single float32 parameter values.Model.Run multiplies by.
func cmdMLLoad(d *Dispatcher, tokens []string) resp.Frame {
	if len(tokens) != 4 {
		return arityErr("ML.LOAD")
	}
	scale, err := parseFloat(tokens[3])
	if err != nil {
		return resp.Errorf("ERR value is not a valid float")
	}
	name := tokens[2]
	_, err = d.KS.Mutate(tokens[1], func(cur values.Value, ok bool) (values.Value, bool, error) {
		return values.NewModel(name, float32(scale)), false, nil
	})
	if err != nil {
		return resp.ErrorFrame(err.Error())
	}
	return resp.SimpleString("OK")
}

// ML.RUN key v1 v2 .. vN
func cmdMLRun(d *Dispatcher, tokens []string) resp.Frame {
	if len(tokens) < 3 {
		return arityErr("ML.RUN")
	}
	raw, ok := d.KS.Get(tokens[1])
	if !ok {
		return resp.Errorf("ERR no such model")
	}
	model, isModel := raw.(*values.Model)
	if !isModel {
		return wrongTypeErr()
	}
	input, err := parseFloats(tokens[2:])
	if err != nil {
		return resp.Errorf("ERR value is not a valid float")
	}
	output := model.Run(input)
	out := make([]resp.Frame, len(output))
	for i, v := range output {
		out[i] = resp.BulkStringFromString(formatScore(float64(v)))
	}
	return resp.Array(out)
}
