// Copyright (c) zedis contributors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package values

// List is an ordered sequence of byte strings: push at tail, pop at head.
type List struct {
	items [][]byte
}

func NewList() *List { return &List{} }

func (l *List) Type() Type { return TypeList }

func (l *List) RPush(vals ...[]byte) int {
	for _, v := range vals {
		l.items = append(l.items, append([]byte(nil), v...))
	}
	return len(l.items)
}

func (l *List) LPush(vals ...[]byte) int {
	fresh := make([][]byte, 0, len(vals)+len(l.items))
	for i := len(vals) - 1; i >= 0; i-- {
		fresh = append(fresh, append([]byte(nil), vals[i]...))
	}
	l.items = append(fresh, l.items...)
	return len(l.items)
}

// LPop removes and returns the head element. ok is false on an empty list.
func (l *List) LPop() (val []byte, ok bool) {
	if len(l.items) == 0 {
		return nil, false
	}
	val = l.items[0]
	l.items = l.items[1:]
	return val, true
}

// RPop removes and returns the tail element. ok is false on an empty list.
func (l *List) RPop() (val []byte, ok bool) {
	n := len(l.items)
	if n == 0 {
		return nil, false
	}
	val = l.items[n-1]
	l.items = l.items[:n-1]
	return val, true
}

func (l *List) Len() int { return len(l.items) }

// normalizeRange clamps a negative-indices-from-tail [start,end] range
// (inclusive) against n, returning a half-open [lo,hi) slice range, or
// lo==hi if the range is empty.
func normalizeRange(start, end int64, n int) (lo, hi int) {
	if n == 0 {
		return 0, 0
	}
	if start < 0 {
		start += int64(n)
	}
	if end < 0 {
		end += int64(n)
	}
	if start < 0 {
		start = 0
	}
	if end >= int64(n) {
		end = int64(n) - 1
	}
	if start > end || start >= int64(n) {
		return 0, 0
	}
	return int(start), int(end) + 1
}

// LRange returns items[start:end] inclusive, with negative indices counted
// from the tail.
func (l *List) LRange(start, end int64) [][]byte {
	lo, hi := normalizeRange(start, end, len(l.items))
	out := make([][]byte, hi-lo)
	copy(out, l.items[lo:hi])
	return out
}
