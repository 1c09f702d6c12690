// Copyright (c) zedis contributors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package searchfacade

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zedis/zedis/internal/dispatch"
	"github.com/zedis/zedis/internal/keyspace"
)

func newTestFacade(t *testing.T) *Facade {
	t.Helper()
	d := dispatch.New(keyspace.New(), nil, nil, nil)
	return New(d)
}

func postJSON(t *testing.T, h http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAddDocAndSearch(t *testing.T) {
	f := newTestFacade(t)
	h := f.Handler()

	rec := postJSON(t, h, "/v1/index/docs/doc", docRequest{ID: "a", Vector: []float32{1, 0, 0}})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = postJSON(t, h, "/v1/index/docs/doc", docRequest{ID: "b", Vector: []float32{0, 1, 0}})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = postJSON(t, h, "/v1/index/docs/search", searchRequest{Vector: []float32{1, 0, 0}, K: 1})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp searchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 1)
	require.Equal(t, "a", resp.Results[0].ID)
	require.InDelta(t, 1.0, resp.Results[0].Score, 0.01)
}

func TestSearchCachedUntilWrite(t *testing.T) {
	f := newTestFacade(t)
	h := f.Handler()

	postJSON(t, h, "/v1/index/docs/doc", docRequest{ID: "a", Vector: []float32{1, 0}})

	query := searchRequest{Vector: []float32{1, 0}, K: 5}
	rec := postJSON(t, h, "/v1/index/docs/search", query)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, rec.Header().Get("X-Cache"))

	rec = postJSON(t, h, "/v1/index/docs/search", query)
	require.Equal(t, "hit", rec.Header().Get("X-Cache"))

	// A write to the index must invalidate its cached responses.
	postJSON(t, h, "/v1/index/docs/doc", docRequest{ID: "b", Vector: []float32{0, 1}})
	rec = postJSON(t, h, "/v1/index/docs/search", query)
	require.Empty(t, rec.Header().Get("X-Cache"))
}

func TestAddDocValidation(t *testing.T) {
	f := newTestFacade(t)
	h := f.Handler()

	rec := postJSON(t, h, "/v1/index/docs/doc", docRequest{Vector: []float32{1}})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postJSON(t, h, "/v1/index/docs/doc", docRequest{ID: "a"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	// Dimension mismatch surfaces the dispatcher's error.
	postJSON(t, h, "/v1/index/docs/doc", docRequest{ID: "a", Vector: []float32{1, 2}})
	rec = postJSON(t, h, "/v1/index/docs/doc", docRequest{ID: "b", Vector: []float32{1}})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestResponseCacheEvictsLRUAndExpires(t *testing.T) {
	c := newResponseCache(10)
	c.Put(cacheKey("i", "a"), []byte("12345"), time.Minute)
	c.Put(cacheKey("i", "b"), []byte("12345"), time.Minute)
	require.NotNil(t, c.Get(cacheKey("i", "a")))

	// Third entry exceeds the 10-byte budget; LRU tail ("b") goes first.
	c.Put(cacheKey("i", "c"), []byte("12345"), time.Minute)
	require.Nil(t, c.Get(cacheKey("i", "b")))
	require.NotNil(t, c.Get(cacheKey("i", "a")))

	c.Put(cacheKey("j", "d"), []byte("x"), -time.Second)
	require.Nil(t, c.Get(cacheKey("j", "d")))

	c.InvalidateIndex("i")
	require.Nil(t, c.Get(cacheKey("i", "a")))
	require.Nil(t, c.Get(cacheKey("i", "c")))
}
