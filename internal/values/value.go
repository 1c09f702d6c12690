// Copyright (c) zedis contributors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package values implements the heterogeneous typed-value library: one Go
// type per keyspace variant, each a plain struct mutated under the
// caller's shard lock — these types carry no internal synchronization of
// their own, by design (see DESIGN.md).
package values

import "errors"

// Type is the closed set of variants a key can be bound to.
type Type int

const (
	TypeString Type = iota
	TypeList
	TypeHash
	TypeSet
	TypeSortedSet
	TypeStream
	TypeBitfieldString
	TypeJSONDoc
	TypeVectorIndex
	TypeBloomFilter
	TypeHyperLogLog
	TypeCuckooFilter
	TypeCountMinSketch
	TypeTopK
	TypeTDigest
	TypeTimeSeries
	TypeGraph
	TypeModel
)

var typeNames = map[Type]string{
	TypeString:         "string",
	TypeList:           "list",
	TypeHash:           "hash",
	TypeSet:            "set",
	TypeSortedSet:      "zset",
	TypeStream:         "stream",
	TypeBitfieldString: "string",
	TypeJSONDoc:        "ReJSON-RL",
	TypeVectorIndex:    "vector",
	TypeBloomFilter:    "bloom",
	TypeHyperLogLog:    "hll",
	TypeCuckooFilter:   "cuckoo",
	TypeCountMinSketch: "cms",
	TypeTopK:           "topk",
	TypeTDigest:        "tdigest",
	TypeTimeSeries:     "timeseries",
	TypeGraph:          "graph",
	TypeModel:          "model",
}

func (t Type) String() string {
	if n, ok := typeNames[t]; ok {
		return n
	}
	return "unknown"
}

// Value is implemented by every per-variant type.
type Value interface {
	Type() Type
}

// ErrWrongType is the WRONGTYPE error: an operation was applied to a key
// bound to an incompatible variant. Types are never coerced.
var ErrWrongType = errors.New("WRONGTYPE Operation against a key holding the wrong kind of value")

// ErrNotInteger signals a String value's bytes don't decode as a base-10
// signed 64-bit integer for an INCR-family operation.
var ErrNotInteger = errors.New("value is not an integer or out of range")
