package vectordb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Trail-HEAD-Outfitters/SourceSherpa/internal/apperr"
	"github.com/Trail-HEAD-Outfitters/SourceSherpa/internal/embeddings"
)

// QdrantConfig locates a Qdrant collection over its REST API.
type QdrantConfig struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

// QdrantClient reads snippet points from Qdrant. Semantic search needs an
// embedder producing vectors of the collection's size.
type QdrantClient struct {
	baseURL    string
	apiKey     string
	collection string
	httpClient *http.Client
	embedder   embeddings.Embedder
}

// QdrantPoint is a stored point. ID is a json.Number for numeric ids and a
// string for UUIDs.
type QdrantPoint struct {
	ID      any
	Payload map[string]any
	Score   float32
}

// PayloadWithID merges the stored payload with the point id.
func (p QdrantPoint) PayloadWithID() map[string]any {
	out := make(map[string]any, len(p.Payload)+1)
	for k, v := range p.Payload {
		out[k] = v
	}
	out["id"] = p.ID
	return out
}

// NewQdrantClient creates a client. embedder may be nil when only id lookups are needed.
func NewQdrantClient(cfg QdrantConfig, embedder embeddings.Embedder) *QdrantClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &QdrantClient{
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		embedder:   embedder,
	}
}

type qdrantRawPoint struct {
	ID      json.RawMessage `json:"id"`
	Payload map[string]any  `json:"payload"`
	Score   float32         `json:"score"`
}

type qdrantResponse struct {
	Result []qdrantRawPoint `json:"result"`
	Status any             `json:"status"`
}

// GetPoints fetches the points with the given ids. Ids Qdrant does not know
// are absent from the result.
func (c *QdrantClient) GetPoints(ctx context.Context, ids []string) ([]QdrantPoint, error) {
	body := map[string]any{
		"ids":          pointIDs(ids),
		"with_payload": true,
		"with_vector":  false,
	}
	return c.post(ctx, "/collections/"+c.collection+"/points", body)
}

// SearchVector returns the nearest points to vector.
func (c *QdrantClient) SearchVector(ctx context.Context, vector []float32, limit int, filter *SearchFilter) ([]QdrantPoint, error) {
	if limit <= 0 {
		limit = 10
	}
	body := map[string]any{
		"vector":       vector,
		"limit":        limit,
		"with_payload": true,
	}
	if must := qdrantMust(filter); len(must) > 0 {
		body["filter"] = map[string]any{"must": must}
	}
	return c.post(ctx, "/collections/"+c.collection+"/points/search", body)
}

// Search embeds query and runs SearchVector.
func (c *QdrantClient) Search(ctx context.Context, query string, limit int, filter *SearchFilter) ([]QdrantPoint, error) {
	if c.embedder == nil {
		return nil, apperr.Newf(apperr.InvalidArgument, "qdrant semantic search requires an embedding model")
	}
	vectors, err := c.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, apperr.New(apperr.UpstreamFailure, "embedding query", err)
	}
	if len(vectors) == 0 {
		return nil, apperr.Newf(apperr.UpstreamFailure, "embedder returned no vector")
	}
	return c.SearchVector(ctx, vectors[0], limit, filter)
}

func (c *QdrantClient) post(ctx context.Context, path string, body any) ([]QdrantPoint, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal qdrant request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create qdrant request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperr.New(apperr.StoreUnavailable, "qdrant request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, apperr.Newf(apperr.StoreUnavailable, "qdrant returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var result qdrantResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, apperr.New(apperr.StoreUnavailable, "decoding qdrant response", err)
	}

	points := make([]QdrantPoint, 0, len(result.Result))
	for _, rp := range result.Result {
		points = append(points, QdrantPoint{ID: decodePointID(rp.ID), Payload: rp.Payload, Score: rp.Score})
	}
	return points, nil
}

// pointIDs sends numeric ids as numbers and everything else as strings.
func pointIDs(ids []string) []any {
	out := make([]any, 0, len(ids))
	for _, id := range ids {
		if n, err := strconv.ParseUint(id, 10, 64); err == nil {
			out = append(out, n)
			continue
		}
		out = append(out, id)
	}
	return out
}

func decodePointID(raw json.RawMessage) any {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return json.Number(strings.TrimSpace(string(raw)))
}

func qdrantMust(filter *SearchFilter) []map[string]any {
	where := filter.where()
	keys := make([]string, 0, len(where))
	for k := range where {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var must []map[string]any
	for _, key := range keys {
		must = append(must, map[string]any{"key": key, "match": map[string]any{"value": where[key]}})
	}
	return must
}
