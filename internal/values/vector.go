// Copyright (c) zedis contributors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package values

import (
	"fmt"
	"math"
	"sort"

	"github.com/x448/float16"
)

// SparseTerm is one (term id, weight) pair of a sparse vector component.
type SparseTerm struct {
	Term   uint32
	Weight float32
}

type vectorDoc struct {
	id     string
	dense  []float16.Float16
	sparse map[uint32]float32
}

// VectorIndex maps doc-id -> (dense half-precision vector, optional sparse
// term-weight vector). Dimension is locked on first insert; later inserts
// with a mismatched dimension fail. Search is brute-force linear
// scan by the convex blend alpha*cosine(dense) + (1-alpha)*sparse-dot.
type VectorIndex struct {
	dim  int
	docs map[string]*vectorDoc
}

func NewVectorIndex() *VectorIndex {
	return &VectorIndex{docs: make(map[string]*vectorDoc)}
}

func (v *VectorIndex) Type() Type { return TypeVectorIndex }

func (v *VectorIndex) Dimension() int { return v.dim }

// Add inserts or replaces the vector for id. dense is narrowed to
// half-precision at this boundary only — the wire protocol and search API
// always deal in float32; the narrowed representation never leaks into
// the command protocol.
func (v *VectorIndex) Add(id string, dense []float32, sparse []SparseTerm) error {
	if v.dim == 0 && len(v.docs) == 0 {
		v.dim = len(dense)
	} else if len(dense) != v.dim {
		return fmt.Errorf("dimension mismatch: index is %d-dimensional, got %d", v.dim, len(dense))
	}
	packed := make([]float16.Float16, len(dense))
	for i, f := range dense {
		packed[i] = float16.Fromfloat32(f)
	}
	var sparseMap map[uint32]float32
	if len(sparse) > 0 {
		sparseMap = make(map[uint32]float32, len(sparse))
		for _, t := range sparse {
			sparseMap[t.Term] = t.Weight
		}
	}
	v.docs[id] = &vectorDoc{id: id, dense: packed, sparse: sparseMap}
	return nil
}

func (v *VectorIndex) Len() int { return len(v.docs) }

// VectorDocDump is one document's snapshot representation, widened back to
// float32 at the boundary (the narrowed half-precision storage never leaks
// past this package).
type VectorDocDump struct {
	ID     string
	Dense  []float32
	Sparse []SparseTerm
}

// Dump returns the index's locked dimension and every document, for
// snapshotting. Docs are ordered by id and sparse terms by term id, so
// dumping the same index twice yields the same slice (both walks are
// over maps otherwise).
func (v *VectorIndex) Dump() (dim int, docs []VectorDocDump) {
	docs = make([]VectorDocDump, 0, len(v.docs))
	for _, doc := range v.docs {
		dense := make([]float32, len(doc.dense))
		for i, h := range doc.dense {
			dense[i] = h.Float32()
		}
		var sparse []SparseTerm
		for term, w := range doc.sparse {
			sparse = append(sparse, SparseTerm{Term: term, Weight: w})
		}
		sort.Slice(sparse, func(i, j int) bool { return sparse[i].Term < sparse[j].Term })
		docs = append(docs, VectorDocDump{ID: doc.id, Dense: dense, Sparse: sparse})
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return v.dim, docs
}

// LoadVectorIndex reconstructs a VectorIndex from a snapshot, restoring the
// locked dimension even if docs is empty.
func LoadVectorIndex(dim int, docs []VectorDocDump) *VectorIndex {
	idx := &VectorIndex{dim: dim, docs: make(map[string]*vectorDoc, len(docs))}
	for _, d := range docs {
		packed := make([]float16.Float16, len(d.Dense))
		for i, f := range d.Dense {
			packed[i] = float16.Fromfloat32(f)
		}
		var sparseMap map[uint32]float32
		if len(d.Sparse) > 0 {
			sparseMap = make(map[uint32]float32, len(d.Sparse))
			for _, t := range d.Sparse {
				sparseMap[t.Term] = t.Weight
			}
		}
		idx.docs[d.ID] = &vectorDoc{id: d.ID, dense: packed, sparse: sparseMap}
	}
	return idx
}

func cosine(a, b []float16.Float16) float32 {
	var dot, na, nb float64
	for i := range a {
		af, bf := float64(a[i].Float32()), float64(b[i].Float32())
		dot += af * bf
		na += af * af
		nb += bf * bf
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}

// sparseDot computes the dot product over matching term ids via a
// hash-merge (iterate the smaller map, probe the larger) rather than the
// O(n*m) nested loop a naive implementation would use.
func sparseDot(a, b map[uint32]float32) float32 {
	if len(a) > len(b) {
		a, b = b, a
	}
	var sum float32
	for term, w := range a {
		if bw, ok := b[term]; ok {
			sum += w * bw
		}
	}
	return sum
}

// SearchResult is one scored hit.
type SearchResult struct {
	ID    string
	Score float32
}

// Search returns the top-k docs ranked by alpha*cosine(dense) +
// (1-alpha)*sparse-dot, descending. alpha=1 reduces to pure dense,
// alpha=0 to pure sparse.
func (v *VectorIndex) Search(queryDense []float32, querySparse []SparseTerm, alpha float32, k int) ([]SearchResult, error) {
	if len(queryDense) != v.dim && alpha > 0 {
		return nil, fmt.Errorf("dimension mismatch: index is %d-dimensional, got %d", v.dim, len(queryDense))
	}
	packedQuery := make([]float16.Float16, len(queryDense))
	for i, f := range queryDense {
		packedQuery[i] = float16.Fromfloat32(f)
	}
	var qSparse map[uint32]float32
	if len(querySparse) > 0 {
		qSparse = make(map[uint32]float32, len(querySparse))
		for _, t := range querySparse {
			qSparse[t.Term] = t.Weight
		}
	}

	results := make([]SearchResult, 0, len(v.docs))
	for id, doc := range v.docs {
		var score float32
		if alpha > 0 {
			score += alpha * cosine(packedQuery, doc.dense)
		}
		if alpha < 1 {
			score += (1 - alpha) * sparseDot(qSparse, doc.sparse)
		}
		results = append(results, SearchResult{ID: id, Score: score})
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if k < len(results) {
		results = results[:k]
	}
	return results, nil
}
