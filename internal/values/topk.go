// Copyright (c) zedis contributors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package values

import "sort"

// topkEntry is one tracked heavy-hitter.
type topkEntry struct {
	item  string
	count int64
}

// TopK tracks the k most frequent items seen, Space-Saving style: an
// internal CountMinSketch gives a frequency estimate for any item, and a
// bounded list of the current k leaders is maintained against it. Like all
// heavy-hitter sketches this trades exactness for bounded memory.
type TopK struct {
	k      int
	sketch *CountMinSketch
	top    []topkEntry
}

func NewTopK(k int) *TopK {
	if k < 1 {
		k = 10
	}
	return &TopK{k: k, sketch: NewCountMinSketch(2048, 5)}
}

func (t *TopK) Type() Type { return TypeTopK }

// Add records one occurrence of item, returning the item evicted from the
// top-k set (if any) as a result of item entering it.
func (t *TopK) Add(item string) (evicted string, didEvict bool) {
	count := t.sketch.IncrBy([]byte(item), 1)

	for i := range t.top {
		if t.top[i].item == item {
			t.top[i].count = count
			t.resort()
			return "", false
		}
	}

	if len(t.top) < t.k {
		t.top = append(t.top, topkEntry{item: item, count: count})
		t.resort()
		return "", false
	}

	minIdx := len(t.top) - 1
	if count > t.top[minIdx].count {
		evicted = t.top[minIdx].item
		t.top[minIdx] = topkEntry{item: item, count: count}
		t.resort()
		return evicted, true
	}
	return "", false
}

func (t *TopK) resort() {
	sort.SliceStable(t.top, func(i, j int) bool { return t.top[i].count > t.top[j].count })
}

// K exposes the configured top-k width for snapshot restore (leaders are
// not preserved across snapshots — see DESIGN.md known limitations).
func (t *TopK) K() int { return t.k }

// List returns the current top-k items, most frequent first.
func (t *TopK) List() []string {
	out := make([]string, len(t.top))
	for i, e := range t.top {
		out[i] = e.item
	}
	return out
}
