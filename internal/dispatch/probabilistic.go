// Copyright (c) zedis contributors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package dispatch

import (
	"github.com/zedis/zedis/internal/resp"
	"github.com/zedis/zedis/internal/values"
)

func registerProbabilisticCommands(register registerFunc) {
	register("BF.ADD", true, cmdBFAdd)
	register("BF.EXISTS", false, cmdBFExists)
	register("CF.ADD", true, cmdCFAdd)
	register("CF.EXISTS", false, cmdCFExists)
	register("PFADD", true, cmdPFAdd)
	register("PFCOUNT", false, cmdPFCount)
	register("CMS.INCRBY", true, cmdCMSIncrBy)
	register("CMS.QUERY", false, cmdCMSQuery)
	register("TOPK.ADD", true, cmdTopKAdd)
	register("TOPK.LIST", false, cmdTopKList)
	register("TDIGEST.ADD", true, cmdTDigestAdd)
	register("TDIGEST.QUANTILE", false, cmdTDigestQuantile)
}

const (
	defaultBloomCapacity = 10000
	defaultBloomFPRate   = 0.01
	defaultCuckooCap     = 10000
)

func cmdBFAdd(d *Dispatcher, tokens []string) resp.Frame {
	if len(tokens) != 3 {
		return arityErr("BF.ADD")
	}
	item := []byte(tokens[2])
	_, err := d.KS.Mutate(tokens[1], func(cur values.Value, ok bool) (values.Value, bool, error) {
		var bf *values.BloomFilter
		if ok {
			var isBloom bool
			bf, isBloom = cur.(*values.BloomFilter)
			if !isBloom {
				return nil, false, values.ErrWrongType
			}
		} else {
			bf = values.NewBloomFilter(defaultBloomCapacity, defaultBloomFPRate)
		}
		bf.Add(item)
		return bf, false, nil
	})
	if err != nil {
		return resp.ErrorFrame(err.Error())
	}
	return resp.Integer(1)
}

func cmdBFExists(d *Dispatcher, tokens []string) resp.Frame {
	if len(tokens) != 3 {
		return arityErr("BF.EXISTS")
	}
	raw, ok := d.KS.Get(tokens[1])
	if !ok {
		return resp.Integer(0)
	}
	bf, isBloom := raw.(*values.BloomFilter)
	if !isBloom {
		return wrongTypeErr()
	}
	if bf.Contains([]byte(tokens[2])) {
		return resp.Integer(1)
	}
	return resp.Integer(0)
}

func cmdCFAdd(d *Dispatcher, tokens []string) resp.Frame {
	if len(tokens) != 3 {
		return arityErr("CF.ADD")
	}
	item := []byte(tokens[2])
	var added bool
	_, err := d.KS.Mutate(tokens[1], func(cur values.Value, ok bool) (values.Value, bool, error) {
		var cf *values.CuckooFilter
		if ok {
			var isCuckoo bool
			cf, isCuckoo = cur.(*values.CuckooFilter)
			if !isCuckoo {
				return nil, false, values.ErrWrongType
			}
		} else {
			cf = values.NewCuckooFilter(defaultCuckooCap)
		}
		added = cf.Add(item)
		return cf, false, nil
	})
	if err != nil {
		return resp.ErrorFrame(err.Error())
	}
	if added {
		return resp.Integer(1)
	}
	return resp.Integer(0)
}

func cmdCFExists(d *Dispatcher, tokens []string) resp.Frame {
	if len(tokens) != 3 {
		return arityErr("CF.EXISTS")
	}
	raw, ok := d.KS.Get(tokens[1])
	if !ok {
		return resp.Integer(0)
	}
	cf, isCuckoo := raw.(*values.CuckooFilter)
	if !isCuckoo {
		return wrongTypeErr()
	}
	if cf.Contains([]byte(tokens[2])) {
		return resp.Integer(1)
	}
	return resp.Integer(0)
}

func cmdPFAdd(d *Dispatcher, tokens []string) resp.Frame {
	if len(tokens) < 3 {
		return arityErr("PFADD")
	}
	_, err := d.KS.Mutate(tokens[1], func(cur values.Value, ok bool) (values.Value, bool, error) {
		var hll *values.HyperLogLog
		if ok {
			var isHLL bool
			hll, isHLL = cur.(*values.HyperLogLog)
			if !isHLL {
				return nil, false, values.ErrWrongType
			}
		} else {
			hll = values.NewHyperLogLog()
		}
		for _, item := range tokens[2:] {
			hll.Add([]byte(item))
		}
		return hll, false, nil
	})
	if err != nil {
		return resp.ErrorFrame(err.Error())
	}
	return resp.Integer(1)
}

func cmdPFCount(d *Dispatcher, tokens []string) resp.Frame {
	if len(tokens) != 2 {
		return arityErr("PFCOUNT")
	}
	raw, ok := d.KS.Get(tokens[1])
	if !ok {
		return resp.Integer(0)
	}
	hll, isHLL := raw.(*values.HyperLogLog)
	if !isHLL {
		return wrongTypeErr()
	}
	return resp.Integer(int64(hll.Count()))
}

func cmdCMSIncrBy(d *Dispatcher, tokens []string) resp.Frame {
	if len(tokens) != 4 {
		return arityErr("CMS.INCRBY")
	}
	delta, err := parseInt(tokens[3])
	if err != nil {
		return resp.ErrorFrame(values.ErrNotInteger.Error())
	}
	item := []byte(tokens[2])
	var result int64
	_, err = d.KS.Mutate(tokens[1], func(cur values.Value, ok bool) (values.Value, bool, error) {
		var cms *values.CountMinSketch
		if ok {
			var isCMS bool
			cms, isCMS = cur.(*values.CountMinSketch)
			if !isCMS {
				return nil, false, values.ErrWrongType
			}
		} else {
			cms = values.NewCountMinSketch(2048, 5)
		}
		result = cms.IncrBy(item, delta)
		return cms, false, nil
	})
	if err != nil {
		return resp.ErrorFrame(err.Error())
	}
	return resp.Integer(result)
}

func cmdCMSQuery(d *Dispatcher, tokens []string) resp.Frame {
	if len(tokens) != 3 {
		return arityErr("CMS.QUERY")
	}
	raw, ok := d.KS.Get(tokens[1])
	if !ok {
		return resp.Integer(0)
	}
	cms, isCMS := raw.(*values.CountMinSketch)
	if !isCMS {
		return wrongTypeErr()
	}
	return resp.Integer(cms.Query([]byte(tokens[2])))
}

func cmdTopKAdd(d *Dispatcher, tokens []string) resp.Frame {
	if len(tokens) != 3 {
		return arityErr("TOPK.ADD")
	}
	item := tokens[2]
	var evicted string
	var didEvict bool
	_, err := d.KS.Mutate(tokens[1], func(cur values.Value, ok bool) (values.Value, bool, error) {
		var tk *values.TopK
		if ok {
			var isTopK bool
			tk, isTopK = cur.(*values.TopK)
			if !isTopK {
				return nil, false, values.ErrWrongType
			}
		} else {
			tk = values.NewTopK(10)
		}
		evicted, didEvict = tk.Add(item)
		return tk, false, nil
	})
	if err != nil {
		return resp.ErrorFrame(err.Error())
	}
	return bulkOrNull([]byte(evicted), didEvict)
}

func cmdTopKList(d *Dispatcher, tokens []string) resp.Frame {
	if len(tokens) != 2 {
		return arityErr("TOPK.LIST")
	}
	raw, ok := d.KS.Get(tokens[1])
	if !ok {
		return stringArray(nil)
	}
	tk, isTopK := raw.(*values.TopK)
	if !isTopK {
		return wrongTypeErr()
	}
	return stringArray(tk.List())
}

func cmdTDigestAdd(d *Dispatcher, tokens []string) resp.Frame {
	if len(tokens) != 3 {
		return arityErr("TDIGEST.ADD")
	}
	value, err := parseFloat(tokens[2])
	if err != nil {
		return resp.Errorf("ERR value is not a valid float")
	}
	_, err = d.KS.Mutate(tokens[1], func(cur values.Value, ok bool) (values.Value, bool, error) {
		var td *values.TDigest
		if ok {
			var isTDigest bool
			td, isTDigest = cur.(*values.TDigest)
			if !isTDigest {
				return nil, false, values.ErrWrongType
			}
		} else {
			td = values.NewTDigest()
		}
		td.Add(value)
		return td, false, nil
	})
	if err != nil {
		return resp.ErrorFrame(err.Error())
	}
	return resp.SimpleString("OK")
}

func cmdTDigestQuantile(d *Dispatcher, tokens []string) resp.Frame {
	if len(tokens) != 3 {
		return arityErr("TDIGEST.QUANTILE")
	}
	q, err := parseFloat(tokens[2])
	if err != nil {
		return resp.Errorf("ERR value is not a valid float")
	}
	raw, ok := d.KS.Get(tokens[1])
	if !ok {
		return resp.NullBulkString()
	}
	td, isTDigest := raw.(*values.TDigest)
	if !isTDigest {
		return wrongTypeErr()
	}
	v, has := td.Quantile(q)
	if !has {
		return resp.NullBulkString()
	}
	return resp.BulkStringFromString(formatScore(v))
}
