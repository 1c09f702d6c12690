// Copyright (c) zedis contributors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package values

// Model is an opaque named tensor-op bound to a key. The real inference
// backend lives outside this process; this stub
// implements the one operation the command surface requires — scaling an
// input vector by a stored constant — so MODEL.RUN has deterministic,
// testable behavior without pulling in an actual runtime.
type Model struct {
	name  string
	scale float32
}

func NewModel(name string, scale float32) *Model {
	return &Model{name: name, scale: scale}
}

func (m *Model) Type() Type { return TypeModel }

func (m *Model) Name() string { return m.name }

func (m *Model) Scale() float32 { return m.scale }

// Run applies the model to input, returning a new slice scaled elementwise.
func (m *Model) Run(input []float32) []float32 {
	out := make([]float32, len(input))
	for i, v := range input {
		out[i] = v * m.scale
	}
	return out
}
