// Copyright (c) zedis contributors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package values

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/fxamacker/cbor/v2"
)

// encMode encodes deterministically (map keys sorted), so encoding the
// same value twice yields identical bytes even where a dump passes
// through a Go map (hash fields, graph adjacency, stream entry fields).
// Snapshot byte-equality across a save/restart/save cycle depends on it.
var encMode = mustEncMode()

func mustEncMode() cbor.EncMode {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	return em
}

// Encode serializes v into a CBOR payload tagged with its Type, for the
// snapshot format. Probabilistic sketches (BloomFilter,
// HyperLogLog, CuckooFilter, CountMinSketch, TopK, TDigest) encode only
// their sizing parameters, not their accumulated state: their inner state
// is not meaningfully serializable without pulling in far more machinery
// than the command surface justifies, so they reset to empty across a
// snapshot/restore cycle (see DESIGN.md).
func Encode(v Value) (Type, []byte, error) {
	t := v.Type()
	var payload interface{}

	switch val := v.(type) {
	case *BitfieldString:
		payload = stringDump{Bytes: val.Bytes()}
	case *String:
		payload = stringDump{Bytes: val.Bytes()}
	case *List:
		payload = listDump{Items: val.LRange(0, -1)}
	case *Hash:
		payload = hashDump{Fields: val.All()}
	case *Set:
		// Members iterates a map; sort so equal sets encode to equal bytes.
		members := val.Members()
		sort.Slice(members, func(i, j int) bool { return bytes.Compare(members[i], members[j]) < 0 })
		payload = setDump{Members: members}
	case *SortedSet:
		entries := val.RankRange(0, -1)
		d := make([]zsetMemberDump, len(entries))
		for i, e := range entries {
			d[i] = zsetMemberDump{Member: e.Member, Score: e.Score}
		}
		payload = zsetDump{Members: d}
	case *Stream:
		last, hasLast := val.LastID()
		payload = streamDump{Entries: val.Entries(), LastID: last, HasLast: hasLast}
	case *JSONDoc:
		raw, err := val.Get(".")
		if err != nil {
			return t, nil, err
		}
		payload = jsonDump{Raw: raw}
	case *VectorIndex:
		dim, docs := val.Dump()
		payload = vectorDump{Dim: dim, Docs: docs}
	case *BloomFilter:
		payload = bloomDump{NBits: val.NBits(), NumHashes: val.NumHashes()}
	case *HyperLogLog:
		payload = hllDump{}
	case *CuckooFilter:
		payload = cuckooDump{NumBuckets: val.NumBuckets()}
	case *CountMinSketch:
		payload = cmsDump{Width: val.Width(), Depth: val.Depth()}
	case *TopK:
		payload = topkDump{K: val.K()}
	case *TDigest:
		payload = tdigestDump{MaxUnmerged: val.MaxUnmerged()}
	case *TimeSeries:
		payload = timeSeriesDump{Samples: val.Range(minInt64, maxInt64)}
	case *Graph:
		payload = graphDump{Edges: val.Edges()}
	case *Model:
		payload = modelDump{Name: val.Name(), Scale: val.Scale()}
	default:
		return t, nil, fmt.Errorf("values: no codec for %T", v)
	}

	data, err := encMode.Marshal(payload)
	if err != nil {
		return t, nil, fmt.Errorf("values: encode %s: %w", t, err)
	}
	return t, data, nil
}

const (
	minInt64 = -(1 << 63)
	maxInt64 = 1<<63 - 1
)

// Decode reconstructs a Value of the given Type from a CBOR payload
// produced by Encode.
func Decode(t Type, data []byte) (Value, error) {
	switch t {
	case TypeString:
		var d stringDump
		if err := cbor.Unmarshal(data, &d); err != nil {
			return nil, err
		}
		return NewString(d.Bytes), nil
	case TypeBitfieldString:
		var d stringDump
		if err := cbor.Unmarshal(data, &d); err != nil {
			return nil, err
		}
		bf := NewBitfieldString()
		bf.Set(d.Bytes)
		return bf, nil
	case TypeList:
		var d listDump
		if err := cbor.Unmarshal(data, &d); err != nil {
			return nil, err
		}
		l := NewList()
		l.RPush(d.Items...)
		return l, nil
	case TypeHash:
		var d hashDump
		if err := cbor.Unmarshal(data, &d); err != nil {
			return nil, err
		}
		h := NewHash()
		for f, v := range d.Fields {
			h.Set(f, v)
		}
		return h, nil
	case TypeSet:
		var d setDump
		if err := cbor.Unmarshal(data, &d); err != nil {
			return nil, err
		}
		s := NewSet()
		s.Add(d.Members...)
		return s, nil
	case TypeSortedSet:
		var d zsetDump
		if err := cbor.Unmarshal(data, &d); err != nil {
			return nil, err
		}
		z := NewSortedSet()
		for _, m := range d.Members {
			z.Add(m.Member, m.Score)
		}
		return z, nil
	case TypeStream:
		var d streamDump
		if err := cbor.Unmarshal(data, &d); err != nil {
			return nil, err
		}
		return LoadStream(d.Entries, d.LastID, d.HasLast), nil
	case TypeJSONDoc:
		var d jsonDump
		if err := cbor.Unmarshal(data, &d); err != nil {
			return nil, err
		}
		return NewJSONDoc(d.Raw)
	case TypeVectorIndex:
		var d vectorDump
		if err := cbor.Unmarshal(data, &d); err != nil {
			return nil, err
		}
		return LoadVectorIndex(d.Dim, d.Docs), nil
	case TypeBloomFilter:
		var d bloomDump
		if err := cbor.Unmarshal(data, &d); err != nil {
			return nil, err
		}
		return LoadEmptyBloomFilter(d.NBits, d.NumHashes), nil
	case TypeHyperLogLog:
		return NewHyperLogLog(), nil
	case TypeCuckooFilter:
		var d cuckooDump
		if err := cbor.Unmarshal(data, &d); err != nil {
			return nil, err
		}
		return LoadEmptyCuckooFilter(d.NumBuckets), nil
	case TypeCountMinSketch:
		var d cmsDump
		if err := cbor.Unmarshal(data, &d); err != nil {
			return nil, err
		}
		return NewCountMinSketch(d.Width, d.Depth), nil
	case TypeTopK:
		var d topkDump
		if err := cbor.Unmarshal(data, &d); err != nil {
			return nil, err
		}
		return NewTopK(d.K), nil
	case TypeTDigest:
		var d tdigestDump
		if err := cbor.Unmarshal(data, &d); err != nil {
			return nil, err
		}
		return LoadEmptyTDigest(d.MaxUnmerged), nil
	case TypeTimeSeries:
		var d timeSeriesDump
		if err := cbor.Unmarshal(data, &d); err != nil {
			return nil, err
		}
		ts := NewTimeSeries()
		for _, s := range d.Samples {
			ts.Add(s.TimestampMs, s.Value)
		}
		return ts, nil
	case TypeGraph:
		var d graphDump
		if err := cbor.Unmarshal(data, &d); err != nil {
			return nil, err
		}
		g := NewGraph()
		for from := range d.Edges {
			g.AddNode(from)
		}
		for from, tos := range d.Edges {
			for _, to := range tos {
				g.AddEdge(from, to)
			}
		}
		return g, nil
	case TypeModel:
		var d modelDump
		if err := cbor.Unmarshal(data, &d); err != nil {
			return nil, err
		}
		return NewModel(d.Name, d.Scale), nil
	default:
		return nil, fmt.Errorf("values: no codec for type %s", t)
	}
}

type stringDump struct {
	Bytes []byte
}

type listDump struct {
	Items [][]byte
}

type hashDump struct {
	Fields map[string][]byte
}

type setDump struct {
	Members [][]byte
}

type zsetMemberDump struct {
	Member string
	Score  float64
}

type zsetDump struct {
	Members []zsetMemberDump
}

type streamDump struct {
	Entries []StreamEntry
	LastID  StreamID
	HasLast bool
}

type jsonDump struct {
	Raw []byte
}

type vectorDump struct {
	Dim  int
	Docs []VectorDocDump
}

type bloomDump struct {
	NBits     uint64
	NumHashes int
}

type hllDump struct{}

type cuckooDump struct {
	NumBuckets uint64
}

type cmsDump struct {
	Width uint64
	Depth uint64
}

type topkDump struct {
	K int
}

type tdigestDump struct {
	MaxUnmerged int
}

type timeSeriesDump struct {
	Samples []Sample
}

type graphDump struct {
	Edges map[string][]string
}

type modelDump struct {
	Name  string
	Scale float32
}
