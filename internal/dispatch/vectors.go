// Copyright (c) zedis contributors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package dispatch

import (
	"github.com/zedis/zedis/internal/resp"
	"github.com/zedis/zedis/internal/values"
)

func registerVectorCommands(register registerFunc) {
	register("VADD", true, cmdVAdd)
	register("VSEARCH", false, cmdVSearch)
	register("VADD.TEXT", true, cmdVAddText)
	register("VSEARCH.TEXT", false, cmdVSearchText)
	register("VADD.M3", true, cmdVAddText)
	register("VSEARCH.HYBRID", false, cmdVSearchHybrid)
}

func parseFloats(toks []string) ([]float32, error) {
	out := make([]float32, len(toks))
	for i, t := range toks {
		f, err := parseFloat(t)
		if err != nil {
			return nil, err
		}
		out[i] = float32(f)
	}
	return out, nil
}

// VADD key id v1 v2 .. vN
func cmdVAdd(d *Dispatcher, tokens []string) resp.Frame {
	if len(tokens) < 4 {
		return arityErr("VADD")
	}
	dense, err := parseFloats(tokens[3:])
	if err != nil {
		return resp.Errorf("ERR value is not a valid float")
	}
	return vadd(d, tokens[1], tokens[2], dense, nil)
}

func vadd(d *Dispatcher, key, id string, dense []float32, sparse []values.SparseTerm) resp.Frame {
	_, err := d.KS.Mutate(key, func(cur values.Value, ok bool) (values.Value, bool, error) {
		var idx *values.VectorIndex
		if ok {
			var isIndex bool
			idx, isIndex = cur.(*values.VectorIndex)
			if !isIndex {
				return nil, false, values.ErrWrongType
			}
		} else {
			idx = values.NewVectorIndex()
		}
		if err := idx.Add(id, dense, sparse); err != nil {
			return nil, false, err
		}
		return idx, false, nil
	})
	if err != nil {
		return resp.ErrorFrame(err.Error())
	}
	return resp.SimpleString("OK")
}

func searchReply(results []values.SearchResult) resp.Frame {
	out := make([]resp.Frame, 0, len(results)*2)
	for _, r := range results {
		out = append(out, resp.BulkStringFromString(r.ID), resp.BulkStringFromString(formatScore(float64(r.Score))))
	}
	return resp.Array(out)
}

// VSEARCH key alpha k v1 v2 .. vN
func cmdVSearch(d *Dispatcher, tokens []string) resp.Frame {
	if len(tokens) < 5 {
		return arityErr("VSEARCH")
	}
	alpha, err := parseFloat(tokens[2])
	if err != nil {
		return resp.Errorf("ERR value is not a valid float")
	}
	k, err := parseInt(tokens[3])
	if err != nil {
		return resp.ErrorFrame(values.ErrNotInteger.Error())
	}
	query, err := parseFloats(tokens[4:])
	if err != nil {
		return resp.Errorf("ERR value is not a valid float")
	}
	return vsearch(d, tokens[1], query, nil, float32(alpha), int(k))
}

func vsearch(d *Dispatcher, key string, dense []float32, sparse []values.SparseTerm, alpha float32, k int) resp.Frame {
	raw, ok := d.KS.Get(key)
	if !ok {
		return bulkArray(nil)
	}
	idx, isIndex := raw.(*values.VectorIndex)
	if !isIndex {
		return wrongTypeErr()
	}
	results, err := idx.Search(dense, sparse, alpha, k)
	if err != nil {
		return resp.ErrorFrame(err.Error())
	}
	return searchReply(results)
}

// VADD.TEXT key id text — and VADD.M3, sharing the same handler: both
// embed free text through the configured Embedder rather than taking raw
// vector components on the wire.
func cmdVAddText(d *Dispatcher, tokens []string) resp.Frame {
	if len(tokens) != 4 {
		return arityErr("VADD.TEXT")
	}
	if d.Embedder == nil {
		return resp.Errorf("ERR no embedding collaborator configured")
	}
	dense, sparse, err := d.Embedder.Embed(tokens[3])
	if err != nil {
		return resp.ErrorFrame(err.Error())
	}
	return vadd(d, tokens[1], tokens[2], dense, sparseMapToTerms(sparse))
}

// VSEARCH.TEXT key alpha k text
func cmdVSearchText(d *Dispatcher, tokens []string) resp.Frame {
	if len(tokens) != 5 {
		return arityErr("VSEARCH.TEXT")
	}
	if d.Embedder == nil {
		return resp.Errorf("ERR no embedding collaborator configured")
	}
	alpha, err := parseFloat(tokens[2])
	if err != nil {
		return resp.Errorf("ERR value is not a valid float")
	}
	k, err := parseInt(tokens[3])
	if err != nil {
		return resp.ErrorFrame(values.ErrNotInteger.Error())
	}
	dense, sparse, err := d.Embedder.Embed(tokens[4])
	if err != nil {
		return resp.ErrorFrame(err.Error())
	}
	return vsearch(d, tokens[1], dense, sparseMapToTerms(sparse), float32(alpha), int(k))
}

// VSEARCH.HYBRID key alpha k text — identical to VSEARCH.TEXT but named
// separately, since the hybrid (dense+sparse)
// blend is the point of exposing alpha on the wire in the first place.
func cmdVSearchHybrid(d *Dispatcher, tokens []string) resp.Frame {
	return cmdVSearchText(d, tokens)
}

func sparseMapToTerms(m map[uint32]float32) []values.SparseTerm {
	if len(m) == 0 {
		return nil
	}
	out := make([]values.SparseTerm, 0, len(m))
	for term, w := range m {
		out = append(out, values.SparseTerm{Term: term, Weight: w})
	}
	return out
}
