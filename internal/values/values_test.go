// Copyright (c) zedis contributors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package values

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSSOStringInlineAndHeap(t *testing.T) {
	short := NewSSOString([]byte("hi"))
	require.True(t, short.IsInline())
	require.Equal(t, []byte("hi"), short.Bytes())

	exact := NewSSOString(make([]byte, 22))
	require.True(t, exact.IsInline())

	long := NewSSOString([]byte("this value is well over twenty-two bytes"))
	require.False(t, long.IsInline())
	require.Equal(t, 40, long.Len())

	// Shrinking back under the inline cap returns to inline storage.
	long.Set([]byte("tiny"))
	require.True(t, long.IsInline())
	require.Equal(t, []byte("tiny"), long.Bytes())
}

func TestStringIntegerCoercion(t *testing.T) {
	s := NewString([]byte("10"))
	n, err := s.IncrBy(5)
	require.NoError(t, err)
	require.EqualValues(t, 15, n)
	require.Equal(t, []byte("15"), s.Bytes())

	s = NewString([]byte("hi"))
	_, err = s.AsInt()
	require.Error(t, err)
	_, err = s.IncrBy(1)
	require.Error(t, err)
}

func TestSortedSetOrderAndUpdates(t *testing.T) {
	z := NewSortedSet()
	require.True(t, z.Add("a", 1))
	require.True(t, z.Add("b", 2))
	require.True(t, z.Add("c", 1))
	require.False(t, z.Add("a", 1)) // same member, update not insert

	got := z.RankRange(0, -1)
	members := make([]string, len(got))
	for i, e := range got {
		members[i] = e.Member
	}
	// Ties on score break by member: a before c at score 1.
	require.Equal(t, []string{"a", "c", "b"}, members)

	// A score update must atomically reorder.
	require.False(t, z.Add("a", 99))
	got = z.RankRange(0, -1)
	require.Equal(t, "a", got[len(got)-1].Member)

	score, ok := z.Score("a")
	require.True(t, ok)
	require.Equal(t, 99.0, score)

	inRange := z.ScoreRange(1, 2)
	require.Len(t, inRange, 2) // c@1, b@2

	require.True(t, z.Remove("c"))
	require.False(t, z.Remove("c"))
	require.Equal(t, 2, z.Card())
}

func TestSortedSetNegativeRankIndices(t *testing.T) {
	z := NewSortedSet()
	for i, m := range []string{"x", "y", "z"} {
		z.Add(m, float64(i))
	}
	last := z.RankRange(-1, -1)
	require.Len(t, last, 1)
	require.Equal(t, "z", last[0].Member)

	require.Empty(t, z.RankRange(2, 1))
}

func TestBitfieldOverflowPolicies(t *testing.T) {
	b := NewBitfieldString()

	prev, ok := b.SetField(Field{Width: 8, Offset: 0}, 255, OverflowWrap)
	require.True(t, ok)
	require.EqualValues(t, 0, prev)
	require.EqualValues(t, 255, b.Get(Field{Width: 8, Offset: 0}))

	// Wrap: 255 + 1 mod 2^8 = 0.
	got, ok := b.IncrByField(Field{Width: 8, Offset: 0}, 1, OverflowWrap)
	require.True(t, ok)
	require.EqualValues(t, 0, got)

	// Sat clamps at the unsigned max.
	b.SetField(Field{Width: 8, Offset: 0}, 250, OverflowWrap)
	got, ok = b.IncrByField(Field{Width: 8, Offset: 0}, 10, OverflowSat)
	require.True(t, ok)
	require.EqualValues(t, 255, got)

	// Fail leaves the field untouched.
	_, ok = b.IncrByField(Field{Width: 8, Offset: 0}, 10, OverflowFail)
	require.False(t, ok)
	require.EqualValues(t, 255, b.Get(Field{Width: 8, Offset: 0}))
}

func TestBitfieldSignedSemantics(t *testing.T) {
	b := NewBitfieldString()
	f := Field{Signed: true, Width: 8, Offset: 0}

	// Wrap reinterprets: 200 mod 2^8 = 200 -> -56 as i8.
	_, ok := b.SetField(f, 200, OverflowWrap)
	require.True(t, ok)
	require.EqualValues(t, -56, b.Get(f))

	// Sat clamps at the signed min.
	got, ok := b.IncrByField(f, -1000, OverflowSat)
	require.True(t, ok)
	require.EqualValues(t, -128, got)
}

func TestBitfieldHashOffsetWindows(t *testing.T) {
	b := NewBitfieldString()
	// Two adjacent u4 fields must not clobber each other.
	b.SetField(Field{Width: 4, Offset: 0}, 0xA, OverflowWrap)
	b.SetField(Field{Width: 4, Offset: 4}, 0x5, OverflowWrap)
	require.EqualValues(t, 0xA, b.Get(Field{Width: 4, Offset: 0}))
	require.EqualValues(t, 0x5, b.Get(Field{Width: 4, Offset: 4}))
	require.Equal(t, []byte{0xA5}, b.Bytes())
}

func TestStreamIDAssignment(t *testing.T) {
	s := NewStream()

	id1, err := s.Add("*", map[string][]byte{"k": []byte("v")}, 1000)
	require.NoError(t, err)
	require.Equal(t, StreamID{Ms: 1000, Seq: 0}, id1)

	// Same wall-clock ms: seq increments.
	id2, err := s.Add("*", map[string][]byte{"k": []byte("v")}, 1000)
	require.NoError(t, err)
	require.Equal(t, StreamID{Ms: 1000, Seq: 1}, id2)

	// Later ms resets seq.
	id3, err := s.Add("*", map[string][]byte{"k": []byte("v")}, 2000)
	require.NoError(t, err)
	require.Equal(t, StreamID{Ms: 2000, Seq: 0}, id3)

	// Explicit ids must be strictly greater than the last.
	_, err = s.Add("2000-0", nil, 3000)
	require.Error(t, err)
	id4, err := s.Add("2000-5", nil, 3000)
	require.NoError(t, err)
	require.Equal(t, StreamID{Ms: 2000, Seq: 5}, id4)
}

func TestStreamIDNumericOrdering(t *testing.T) {
	// Lexicographic comparison would put "10000000000000-0" before
	// "9999999999999-0"; the numeric tuple comparison must not.
	lo := StreamID{Ms: 9999999999999}
	hi := StreamID{Ms: 10000000000000}
	require.True(t, lo.Less(hi))
	require.False(t, hi.Less(lo))

	s := NewStream()
	_, err := s.Add("9999999999999-0", nil, 0)
	require.NoError(t, err)
	_, err = s.Add("10000000000000-0", nil, 0)
	require.NoError(t, err)

	got := s.Range(StreamID{}, StreamID{Ms: maxInt64, Seq: maxInt64})
	require.Len(t, got, 2)
	require.Equal(t, StreamID{Ms: 9999999999999}, got[0].ID)
	require.Equal(t, StreamID{Ms: 10000000000000}, got[1].ID)
}

func TestVectorSearchDenseOnly(t *testing.T) {
	v := NewVectorIndex()
	require.NoError(t, v.Add("x", []float32{1, 0, 0}, nil))
	require.NoError(t, v.Add("y", []float32{0.9, 0.1, 0}, nil))
	require.NoError(t, v.Add("z", []float32{0, 0, 1}, nil))

	// Dimension locks on first insert.
	require.Error(t, v.Add("w", []float32{1, 0}, nil))

	results, err := v.Search([]float32{1, 0, 0}, nil, 1, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, "x", results[0].ID)
	require.Equal(t, "y", results[1].ID)
	require.GreaterOrEqual(t, results[0].Score, results[1].Score)
}

func TestVectorSearchSparseOnly(t *testing.T) {
	v := NewVectorIndex()
	require.NoError(t, v.Add("a", []float32{1, 0}, []SparseTerm{{Term: 1, Weight: 2}, {Term: 7, Weight: 1}}))
	require.NoError(t, v.Add("b", []float32{1, 0}, []SparseTerm{{Term: 3, Weight: 5}}))

	// Alpha 0: only the sparse dot product counts.
	results, err := v.Search([]float32{0, 1}, []SparseTerm{{Term: 1, Weight: 3}}, 0, 10)
	require.NoError(t, err)
	require.Equal(t, "a", results[0].ID)
	require.EqualValues(t, 6, results[0].Score)
}

func TestCodecRoundTripsSerializableVariants(t *testing.T) {
	l := NewList()
	l.RPush([]byte("a"), []byte("b"))

	h := NewHash()
	h.Set("f", []byte("v"))

	z := NewSortedSet()
	z.Add("a", 1)
	z.Add("b", 2)

	sm := NewStream()
	sm.Add("*", map[string][]byte{"k": []byte("v")}, 42)

	jd, err := NewJSONDoc([]byte(`{"a":[1,2]}`))
	require.NoError(t, err)

	vi := NewVectorIndex()
	require.NoError(t, vi.Add("d", []float32{0.5, -0.5}, []SparseTerm{{Term: 9, Weight: 1}}))

	ts := NewTimeSeries()
	ts.Add(1, 1.5)
	ts.Add(2, 2.5)

	st := NewSet()
	st.Add([]byte("m1"), []byte("m2"))

	g := NewGraph()
	g.AddEdge("a", "b")
	g.AddEdge("b", "c")

	bf := NewBitfieldString()
	bf.SetField(Field{Width: 8, Offset: 0}, 0xAB, OverflowWrap)

	for _, v := range []Value{
		NewString([]byte("hello")), l, h, st, z, sm, jd, vi, ts, g, bf,
		NewModel("scaler", 2.5),
	} {
		typ, payload, err := Encode(v)
		require.NoError(t, err, "encoding %s", v.Type())
		require.Equal(t, v.Type(), typ)

		back, err := Decode(typ, payload)
		require.NoError(t, err, "decoding %s", typ)
		require.Equal(t, typ, back.Type())

		// Re-encoding the decoded value must be stable (the snapshot
		// round-trip property, per variant): Encode sorts everything that
		// passes through a map, so dump order never depends on iteration
		// order.
		_, payload2, err := Encode(back)
		require.NoError(t, err)
		require.Equal(t, payload, payload2, "re-encode of %s differs", typ)
	}
}

func TestCodecRoundTripsSetAndGraph(t *testing.T) {
	st := NewSet()
	st.Add([]byte("m1"), []byte("m2"))
	typ, payload, err := Encode(st)
	require.NoError(t, err)
	back, err := Decode(typ, payload)
	require.NoError(t, err)
	reloaded := back.(*Set)
	require.Equal(t, 2, reloaded.Len())
	require.True(t, reloaded.Contains([]byte("m1")))
	require.True(t, reloaded.Contains([]byte("m2")))

	g := NewGraph()
	g.AddEdge("a", "b")
	g.AddEdge("b", "c")
	typ, payload, err = Encode(g)
	require.NoError(t, err)
	back, err = Decode(typ, payload)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b", "c"}, back.(*Graph).BFS("a", 10))
}

func TestCodecResetsProbabilisticSketches(t *testing.T) {
	b := NewBloomFilter(1000, 0.01)
	b.Add([]byte("present"))
	require.True(t, b.Contains([]byte("present")))

	typ, payload, err := Encode(b)
	require.NoError(t, err)
	back, err := Decode(typ, payload)
	require.NoError(t, err)

	// Sizing survives, contents do not: the documented snapshot
	// limitation for sketches.
	reloaded := back.(*BloomFilter)
	require.Equal(t, b.NBits(), reloaded.NBits())
	require.Equal(t, b.NumHashes(), reloaded.NumHashes())
	require.False(t, reloaded.Contains([]byte("present")))
}

func TestGraphBFSBoundedDepth(t *testing.T) {
	g := NewGraph()
	g.AddEdge("a", "b")
	g.AddEdge("b", "c")
	g.AddEdge("c", "d")

	require.Equal(t, []string{"a", "b"}, g.BFS("a", 1))
	require.Equal(t, []string{"a", "b", "c"}, g.BFS("a", 2))
	require.Equal(t, []string{"a", "b", "c", "d"}, g.BFS("a", 10))
}

func TestModelRunScales(t *testing.T) {
	m := NewModel("scaler", 3)
	require.Equal(t, []float32{3, 6}, m.Run([]float32{1, 2}))
}
