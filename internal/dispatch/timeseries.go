// Copyright (c) zedis contributors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package dispatch

import (
	"github.com/zedis/zedis/internal/resp"
	"github.com/zedis/zedis/internal/values"
)

func registerTimeSeriesCommands(register registerFunc) {
	register("TS.ADD", true, cmdTSAdd)
	register("TS.RANGE", false, cmdTSRange)
}

// TS.ADD key timestamp value
func cmdTSAdd(d *Dispatcher, tokens []string) resp.Frame {
	if len(tokens) != 4 {
		return arityErr("TS.ADD")
	}
	ts, err := parseInt(tokens[2])
	if err != nil {
		return resp.ErrorFrame(values.ErrNotInteger.Error())
	}
	val, err := parseFloat(tokens[3])
	if err != nil {
		return resp.Errorf("ERR value is not a valid float")
	}
	_, err = d.KS.Mutate(tokens[1], func(cur values.Value, ok bool) (values.Value, bool, error) {
		var series *values.TimeSeries
		if ok {
			var isSeries bool
			series, isSeries = cur.(*values.TimeSeries)
			if !isSeries {
				return nil, false, values.ErrWrongType
			}
		} else {
			series = values.NewTimeSeries()
		}
		series.Add(ts, val)
		return series, false, nil
	})
	if err != nil {
		return resp.ErrorFrame(err.Error())
	}
	return resp.Integer(ts)
}

// TS.RANGE key fromMs toMs
func cmdTSRange(d *Dispatcher, tokens []string) resp.Frame {
	if len(tokens) != 4 {
		return arityErr("TS.RANGE")
	}
	from, err := parseInt(tokens[2])
	if err != nil {
		return resp.ErrorFrame(values.ErrNotInteger.Error())
	}
	to, err := parseInt(tokens[3])
	if err != nil {
		return resp.ErrorFrame(values.ErrNotInteger.Error())
	}
	raw, ok := d.KS.Get(tokens[1])
	if !ok {
		return resp.Array(nil)
	}
	series, isSeries := raw.(*values.TimeSeries)
	if !isSeries {
		return wrongTypeErr()
	}
	samples := series.Range(from, to)
	out := make([]resp.Frame, 0, len(samples)*2)
	for _, s := range samples {
		out = append(out, resp.Integer(s.TimestampMs), resp.BulkStringFromString(formatScore(s.Value)))
	}
	return resp.Array(out)
}
