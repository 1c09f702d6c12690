// Copyright (c) zedis contributors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package embedding is the text embedding collaborator:
// VADD.TEXT, VADD.M3, VSEARCH.TEXT and VSEARCH.HYBRID need a
// text->vector seam, but producing a real embedding is explicitly not
// this repository's job. Embedder's contract is deliberately narrow, and
// the only implementation here is a deterministic stub — never a loaded
// model.
package embedding

import (
	"context"
	"encoding/binary"
	"hash/fnv"
)

// Embedder turns free text into a dense vector and a sparse term-weight
// map, the same dual representation internal/values.VectorIndex indexes
// natively for hybrid dense+sparse search.
type Embedder interface {
	Embed(ctx context.Context, text string) (dense []float32, sparse map[uint32]float32, err error)
}

// StubEmbedder deterministically hashes its input into a fixed-size dense
// vector and a small sparse bag-of-terms map. It is not a language model
// and carries no notion of semantic similarity beyond "same text in,
// same vector out" — good enough to exercise VADD.TEXT/VSEARCH.TEXT end
// to end without shipping model weights.
type StubEmbedder struct {
	Dim int
}

// NewStub builds a StubEmbedder producing dim-dimensional dense vectors.
// dim <= 0 defaults to 32.
func NewStub(dim int) *StubEmbedder {
	if dim <= 0 {
		dim = 32
	}
	return &StubEmbedder{Dim: dim}
}

// Embed never blocks and never fails; ctx is accepted only to satisfy
// Embedder's signature for callers that do have a deadline to honor.
func (s *StubEmbedder) Embed(_ context.Context, text string) ([]float32, map[uint32]float32, error) {
	dense := hashToVector(text, s.Dim)
	sparse := hashToSparse(text)
	return dense, sparse, nil
}

// FileBackedEmbedder is a StubEmbedder that additionally remembers a
// model directory path (the optional bge-m3/ directory). The
// path is never opened or read here: wiring a real model loader is out
// of scope, and the field exists only so a deployment can point at one
// without the interface changing shape later.
type FileBackedEmbedder struct {
	*StubEmbedder
	ModelDir string
}

// NewFileBackedEmbedder builds a FileBackedEmbedder remembering modelDir
// for a future real loader; its Embed behavior is identical to StubEmbedder's.
func NewFileBackedEmbedder(modelDir string, dim int) *FileBackedEmbedder {
	return &FileBackedEmbedder{StubEmbedder: NewStub(dim), ModelDir: modelDir}
}

func hashToVector(text string, dim int) []float32 {
	out := make([]float32, dim)
	h := fnv.New64a()
	seed := make([]byte, 8)
	for i := range out {
		h.Reset()
		binary.LittleEndian.PutUint64(seed, uint64(i))
		h.Write(seed)
		h.Write([]byte(text))
		sum := h.Sum64()
		// Map the hash into [-1, 1] so cosine similarity behaves sanely.
		out[i] = float32(sum%2001)/1000.0 - 1.0
	}
	return out
}

func hashToSparse(text string) map[uint32]float32 {
	const buckets = 256
	weights := make(map[uint32]float32)
	var word []byte
	flush := func() {
		if len(word) == 0 {
			return
		}
		h := fnv.New32a()
		h.Write(word)
		term := h.Sum32() % buckets
		weights[term] += 1.0
		word = word[:0]
	}
	for i := 0; i < len(text); i++ {
		c := text[i]
		if c == ' ' || c == '\t' || c == '\n' {
			flush()
			continue
		}
		word = append(word, c)
	}
	flush()
	return weights
}
