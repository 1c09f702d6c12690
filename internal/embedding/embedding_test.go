// Copyright (c) zedis contributors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package embedding

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStubEmbedderDeterministic(t *testing.T) {
	e := NewStub(16)
	d1, s1, err := e.Embed(context.Background(), "hello world")
	require.NoError(t, err)
	d2, s2, err := e.Embed(context.Background(), "hello world")
	require.NoError(t, err)
	require.Equal(t, d1, d2)
	require.Equal(t, s1, s2)
	require.Len(t, d1, 16)
}

func TestStubEmbedderDiffersByInput(t *testing.T) {
	e := NewStub(16)
	d1, _, _ := e.Embed(context.Background(), "alpha")
	d2, _, _ := e.Embed(context.Background(), "beta")
	require.NotEqual(t, d1, d2)
}

func TestFileBackedEmbedderNeverOpensPath(t *testing.T) {
	e := NewFileBackedEmbedder("/does/not/exist", 8)
	dense, _, err := e.Embed(context.Background(), "text")
	require.NoError(t, err)
	require.Len(t, dense, 8)
}

func TestDispatchAdapterSatisfiesNoCtxSignature(t *testing.T) {
	a := Adapt(NewStub(8))
	dense, sparse, err := a.Embed("query text")
	require.NoError(t, err)
	require.Len(t, dense, 8)
	require.NotEmpty(t, sparse)
}
