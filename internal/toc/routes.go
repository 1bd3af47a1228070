package toc

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Trail-HEAD-Outfitters/SourceSherpa/internal/apperr"
)

// SearchRequest is the body (or query string) of a context search.
type SearchRequest struct {
	Query   string `json:"query"`
	K       int    `json:"k"`
	Repo    string `json:"repo,omitempty"`
	Program string `json:"program,omitempty"`
	Group   string `json:"group,omitempty"`
	Lang    string `json:"lang,omitempty"`
}

// Filters returns the exact-match filters carried by the request.
func (r SearchRequest) Filters() map[string]string {
	return map[string]string{"repo": r.Repo, "program": r.Program, "group": r.Group, "lang": r.Lang}
}

// SearchResponse lists ranked hits.
type SearchResponse struct {
	Query string `json:"query"`
	Count int    `json:"count"`
	Hits  []Hit  `json:"hits"`
}

// RegisterRoutes mounts the context search endpoint.
func RegisterRoutes(r chi.Router, store Store) {
	r.Get("/v1/context/search", handleSearch(store))
	r.Post("/v1/context/search", handleSearch(store))
}

func handleSearch(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := decodeSearchRequest(r)
		if err != nil {
			apperr.WriteHTTP(w, err)
			return
		}

		hits, err := store.Search(r.Context(), req.Query, req.K, req.Filters())
		if err != nil {
			apperr.WriteHTTP(w, err)
			return
		}
		if hits == nil {
			hits = []Hit{}
		}
		apperr.WriteJSON(w, http.StatusOK, SearchResponse{Query: req.Query, Count: len(hits), Hits: hits})
	}
}

func decodeSearchRequest(r *http.Request) (SearchRequest, error) {
	req := SearchRequest{K: DefaultK}
	if r.Method == http.MethodPost {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return req, apperr.New(apperr.MalformedInput, "decoding search request", err)
		}
		if req.K == 0 {
			req.K = DefaultK
		}
		return req, nil
	}

	q := r.URL.Query()
	req.Query = q.Get("query")
	req.Repo = q.Get("repo")
	req.Program = q.Get("program")
	req.Group = q.Get("group")
	req.Lang = q.Get("lang")
	if v := q.Get("k"); v != "" {
		k, err := strconv.Atoi(v)
		if err != nil {
			return req, apperr.Newf(apperr.InvalidArgument, "k must be an integer, got %q", v)
		}
		req.K = k
	}
	return req, nil
}
