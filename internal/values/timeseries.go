// Copyright (c) zedis contributors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package values

import "sort"

// Sample is one (timestamp_ms, value) point.
type Sample struct {
	TimestampMs int64
	Value       float64
}

// TimeSeries is an append-only sequence of samples supporting range-by-time
// queries. Samples are kept sorted by timestamp so range queries bisect
// rather than scan.
type TimeSeries struct {
	samples []Sample
}

func NewTimeSeries() *TimeSeries { return &TimeSeries{} }

func (ts *TimeSeries) Type() Type { return TypeTimeSeries }

// Add appends a sample, inserting in timestamp order (out-of-order arrivals
// are rare in practice but not rejected).
func (ts *TimeSeries) Add(timestampMs int64, value float64) {
	i := sort.Search(len(ts.samples), func(i int) bool { return ts.samples[i].TimestampMs >= timestampMs })
	ts.samples = append(ts.samples, Sample{})
	copy(ts.samples[i+1:], ts.samples[i:])
	ts.samples[i] = Sample{TimestampMs: timestampMs, Value: value}
}

// Range returns samples with fromMs <= ts <= toMs.
func (ts *TimeSeries) Range(fromMs, toMs int64) []Sample {
	lo := sort.Search(len(ts.samples), func(i int) bool { return ts.samples[i].TimestampMs >= fromMs })
	hi := sort.Search(len(ts.samples), func(i int) bool { return ts.samples[i].TimestampMs > toMs })
	if hi < lo {
		hi = lo
	}
	out := make([]Sample, hi-lo)
	copy(out, ts.samples[lo:hi])
	return out
}

func (ts *TimeSeries) Len() int { return len(ts.samples) }
