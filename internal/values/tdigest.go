// Copyright (c) zedis contributors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package values

import "sort"

// centroid is one cluster in the digest: a mean and the count of samples
// merged into it.
type centroid struct {
	mean  float64
	count int64
}

// TDigest is a simplified mergeable quantile sketch: samples are added as
// singleton centroids and periodically compressed by merging adjacent
// centroids (sorted by mean) until the centroid count falls back under a
// budget. This approximates the real t-digest's k-size scaling function
// with a flat compression threshold — simpler to reason about, still gives
// sublinear memory growth and reasonable quantile accuracy for the command
// surface this exposes (TDIGEST.ADD / TDIGEST.QUANTILE). See DESIGN.md.
type TDigest struct {
	centroids  []centroid
	maxUnmerged int
	totalCount int64
}

func NewTDigest() *TDigest {
	return &TDigest{maxUnmerged: 1000}
}

func (t *TDigest) Type() Type { return TypeTDigest }

func (t *TDigest) Add(value float64) {
	t.centroids = append(t.centroids, centroid{mean: value, count: 1})
	t.totalCount++
	if len(t.centroids) > t.maxUnmerged {
		t.compress()
	}
}

func (t *TDigest) compress() {
	sort.Slice(t.centroids, func(i, j int) bool { return t.centroids[i].mean < t.centroids[j].mean })
	target := t.maxUnmerged / 2
	for len(t.centroids) > target {
		merged := t.centroids[:0:0]
		for i := 0; i < len(t.centroids); i += 2 {
			if i+1 < len(t.centroids) {
				a, b := t.centroids[i], t.centroids[i+1]
				total := a.count + b.count
				mean := (a.mean*float64(a.count) + b.mean*float64(b.count)) / float64(total)
				merged = append(merged, centroid{mean: mean, count: total})
			} else {
				merged = append(merged, t.centroids[i])
			}
		}
		t.centroids = merged
	}
}

// Quantile returns an estimate of the value at rank q in [0,1]: the mean of
// the first centroid (in mean order) whose cumulative count reaches
// q*Count(). No interpolation between centroids is done.
func (t *TDigest) Quantile(q float64) (float64, bool) {
	if len(t.centroids) == 0 {
		return 0, false
	}
	sort.Slice(t.centroids, func(i, j int) bool { return t.centroids[i].mean < t.centroids[j].mean })
	target := q * float64(t.totalCount)
	var cum int64
	for i, c := range t.centroids {
		cum += c.count
		if float64(cum) >= target || i == len(t.centroids)-1 {
			return c.mean, true
		}
	}
	return t.centroids[len(t.centroids)-1].mean, true
}

func (t *TDigest) Count() int64 { return t.totalCount }

// MaxUnmerged exposes the compression threshold for snapshot restore
// (centroids are not preserved across snapshots — see DESIGN.md known
// limitations).
func (t *TDigest) MaxUnmerged() int { return t.maxUnmerged }

// LoadEmptyTDigest reconstructs a digest with the given compression
// threshold and no samples.
func LoadEmptyTDigest(maxUnmerged int) *TDigest {
	if maxUnmerged < 2 {
		maxUnmerged = 1000
	}
	return &TDigest{maxUnmerged: maxUnmerged}
}
