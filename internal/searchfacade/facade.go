// Copyright (c) zedis contributors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package searchfacade translates a small JSON-over-HTTP search API onto
// the core's vector commands. It never speaks RESP on the
// wire: request bodies become command token slices handed straight to the
// dispatcher, and the dispatcher's reply frames are re-encoded as JSON.
// Search responses are cached per index with a short TTL; a document write
// through the facade invalidates that index's cached responses (writes
// made over RESP do not).
package searchfacade

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/zedis/zedis/internal/dispatch"
	"github.com/zedis/zedis/internal/resp"
	"github.com/zedis/zedis/pkg/log"
)

const (
	cacheTTL      = 30 * time.Second
	cacheMaxBytes = 8 << 20
)

// Facade is the HTTP adapter. Construct with New.
type Facade struct {
	d     *dispatch.Dispatcher
	cache *responseCache
}

func New(d *dispatch.Dispatcher) *Facade {
	return &Facade{d: d, cache: newResponseCache(cacheMaxBytes)}
}

// docRequest is the body of POST /v1/index/{name}/doc. Either Vector or
// Text must be set; Text routes through the embedding collaborator.
type docRequest struct {
	ID     string    `json:"id"`
	Vector []float32 `json:"vector,omitempty"`
	Text   string    `json:"text,omitempty"`
}

// searchRequest is the body of POST /v1/index/{name}/search.
type searchRequest struct {
	Vector []float32 `json:"vector,omitempty"`
	Text   string    `json:"text,omitempty"`
	K      int       `json:"k"`
	Alpha  *float64  `json:"alpha,omitempty"`
}

type searchHit struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

type searchResponse struct {
	Results []searchHit `json:"results"`
}

// Handler returns the facade's full middleware stack: panic recovery and
// per-request logging around the router.
func (f *Facade) Handler() http.Handler {
	r := f.router()
	h := handlers.RecoveryHandler(handlers.PrintRecoveryStack(true))(r)
	return handlers.CustomLoggingHandler(io.Discard, h, func(_ io.Writer, params handlers.LogFormatterParams) {
		log.Debugf("searchfacade: %s %s (%d, %.02fkb, %dms)",
			params.Request.Method, params.URL.RequestURI(),
			params.StatusCode, float32(params.Size)/1024,
			time.Since(params.TimeStamp).Milliseconds())
	})
}

func (f *Facade) router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/v1/index/{name}/doc", f.addDoc).Methods(http.MethodPost)
	r.HandleFunc("/v1/index/{name}/search", f.search).Methods(http.MethodPost)
	return r
}

func (f *Facade) addDoc(rw http.ResponseWriter, r *http.Request) {
	index := mux.Vars(r)["name"]

	var req docRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(rw, err.Error(), http.StatusBadRequest)
		return
	}
	if req.ID == "" {
		http.Error(rw, "'id' is required", http.StatusBadRequest)
		return
	}

	var tokens []string
	switch {
	case req.Text != "":
		tokens = []string{"VADD.TEXT", index, req.ID, req.Text}
	case len(req.Vector) > 0:
		tokens = append([]string{"VADD", index, req.ID}, formatVector(req.Vector)...)
	default:
		http.Error(rw, "one of 'vector' or 'text' is required", http.StatusBadRequest)
		return
	}

	frame := f.d.Execute(tokens)
	if frame.IsError() {
		http.Error(rw, frame.Str, http.StatusUnprocessableEntity)
		return
	}

	f.cache.InvalidateIndex(index)
	rw.Header().Set("Content-Type", "application/json")
	json.NewEncoder(rw).Encode(map[string]string{"status": "ok"})
}

func (f *Facade) search(rw http.ResponseWriter, r *http.Request) {
	index := mux.Vars(r)["name"]

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(rw, err.Error(), http.StatusBadRequest)
		return
	}

	var req searchRequest
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(rw, err.Error(), http.StatusBadRequest)
		return
	}
	if req.K <= 0 {
		req.K = 10
	}
	alpha := 1.0
	if req.Alpha != nil {
		alpha = *req.Alpha
	}

	sum := sha256.Sum256(body)
	key := cacheKey(index, hex.EncodeToString(sum[:]))
	if cached := f.cache.Get(key); cached != nil {
		rw.Header().Set("Content-Type", "application/json")
		rw.Header().Set("X-Cache", "hit")
		rw.Write(cached)
		return
	}

	var tokens []string
	switch {
	case req.Text != "":
		tokens = []string{"VSEARCH.TEXT", index,
			formatFloat(alpha), strconv.Itoa(req.K), req.Text}
	case len(req.Vector) > 0:
		tokens = append([]string{"VSEARCH", index,
			formatFloat(alpha), strconv.Itoa(req.K)}, formatVector(req.Vector)...)
	default:
		http.Error(rw, "one of 'vector' or 'text' is required", http.StatusBadRequest)
		return
	}

	frame := f.d.Execute(tokens)
	if frame.IsError() {
		http.Error(rw, frame.Str, http.StatusUnprocessableEntity)
		return
	}

	out, err := json.Marshal(hitsFromFrame(frame))
	if err != nil {
		http.Error(rw, err.Error(), http.StatusInternalServerError)
		return
	}

	f.cache.Put(key, out, cacheTTL)
	rw.Header().Set("Content-Type", "application/json")
	rw.Write(out)
}

// hitsFromFrame decodes the dispatcher's flat [id, score, id, score, ...]
// reply array into the facade's JSON shape.
func hitsFromFrame(frame resp.Frame) searchResponse {
	out := searchResponse{Results: []searchHit{}}
	for i := 0; i+1 < len(frame.Array); i += 2 {
		id := string(frame.Array[i].Bulk)
		score, err := strconv.ParseFloat(string(frame.Array[i+1].Bulk), 64)
		if err != nil {
			continue
		}
		out.Results = append(out.Results, searchHit{ID: id, Score: score})
	}
	return out
}

func formatVector(v []float32) []string {
	out := make([]string, len(v))
	for i, f := range v {
		out[i] = strconv.FormatFloat(float64(f), 'g', -1, 32)
	}
	return out
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
