// Copyright (c) zedis contributors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package values

// CountMinSketch estimates per-item frequency in bounded memory: depth rows
// of width counters each, item mapped through depth independent hashes,
// query returns the minimum across rows (an over-estimate in expectation,
// never an under-estimate).
type CountMinSketch struct {
	width, depth uint64
	counts       [][]int64
}

func NewCountMinSketch(width, depth uint64) *CountMinSketch {
	if width == 0 {
		width = 2048
	}
	if depth == 0 {
		depth = 5
	}
	counts := make([][]int64, depth)
	for i := range counts {
		counts[i] = make([]int64, width)
	}
	return &CountMinSketch{width: width, depth: depth, counts: counts}
}

func (c *CountMinSketch) Type() Type { return TypeCountMinSketch }

func (c *CountMinSketch) IncrBy(item []byte, delta int64) int64 {
	min := int64(1<<63 - 1)
	for row := uint64(0); row < c.depth; row++ {
		idx := hashWithSeed(100+row, item) % c.width
		c.counts[row][idx] += delta
		if c.counts[row][idx] < min {
			min = c.counts[row][idx]
		}
	}
	return min
}

// Width and Depth expose sizing for snapshot restore (counts are not
// preserved across snapshots — see DESIGN.md known limitations).
func (c *CountMinSketch) Width() uint64 { return c.width }
func (c *CountMinSketch) Depth() uint64 { return c.depth }

func (c *CountMinSketch) Query(item []byte) int64 {
	min := int64(1<<63 - 1)
	for row := uint64(0); row < c.depth; row++ {
		idx := hashWithSeed(100+row, item) % c.width
		if c.counts[row][idx] < min {
			min = c.counts[row][idx]
		}
	}
	return min
}
