// Copyright (c) zedis contributors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package embedding

import "context"

// DispatchAdapter satisfies dispatch.Embedder's ctx-less Embed signature
// by wrapping an Embedder and supplying context.Background(). The RESP
// command path (dispatch.Dispatcher.Execute) has no per-call context to
// thread through, so the adapter is the seam between that world and
// callers (the HTTP façade, ETL) that do have one to enforce.
type DispatchAdapter struct {
	Embedder Embedder
}

// Adapt wraps e for use as a dispatch.Embedder.
func Adapt(e Embedder) *DispatchAdapter {
	return &DispatchAdapter{Embedder: e}
}

func (a *DispatchAdapter) Embed(text string) ([]float32, map[uint32]float32, error) {
	return a.Embedder.Embed(context.Background(), text)
}
