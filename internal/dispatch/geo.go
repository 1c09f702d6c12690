// Copyright (c) zedis contributors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package dispatch

import (
	"github.com/zedis/zedis/internal/resp"
	"github.com/zedis/zedis/internal/values"
)

func registerGeoCommands(register registerFunc) {
	register("GEOADD", true, cmdGeoAdd)
}

// geoScore packs (lon, lat) into a single sortable float64 without a
// geohash library: each coordinate is shifted to be non-negative and
// quantized to 1e-7 degrees, and the score is lonFixed*4e9 + latFixed,
// computed in float64, so scores order by longitude first. The result
// exceeds float64's 53-bit exact-integer range, so the low latitude
// digits are rounded away and nearby points can share a score.
func geoScore(lon, lat float64) float64 {
	const scale = 1e7 // ~1cm precision at the equator
	lonFixed := int64((lon + 180) * scale)
	latFixed := int64((lat + 90) * scale)
	return float64(lonFixed)*4e9 + float64(latFixed)
}

// GEOADD key lon lat member
func cmdGeoAdd(d *Dispatcher, tokens []string) resp.Frame {
	if len(tokens) != 5 {
		return arityErr("GEOADD")
	}
	lon, err := parseFloat(tokens[2])
	if err != nil {
		return resp.Errorf("ERR value is not a valid float")
	}
	lat, err := parseFloat(tokens[3])
	if err != nil {
		return resp.Errorf("ERR value is not a valid float")
	}
	member := tokens[4]
	score := geoScore(lon, lat)

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
