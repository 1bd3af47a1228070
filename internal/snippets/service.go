// Package snippets fetches full code snippets from the vector index by id.
package snippets

import (
	"context"
	"log/slog"

	"github.com/Trail-HEAD-Outfitters/SourceSherpa/internal/apperr"
	"github.com/Trail-HEAD-Outfitters/SourceSherpa/internal/vectordb"
)

// Payload is a stored snippet payload merged with its id.
type Payload = map[string]any

// Backend reads payloads from a vector index.
type Backend interface {
	// Payloads returns the payloads of the ids that exist. Missing ids are skipped.
	Payloads(ctx context.Context, ids []string) ([]Payload, error)
	// Search returns payloads nearest to query, each carrying a "score".
	Search(ctx context.Context, query string, k int, filter *vectordb.SearchFilter) ([]Payload, error)
}

// Service implements snippet fetch over a Backend.
type Service struct {
	backend Backend
}

// NewService creates a Service.
func NewService(backend Backend) *Service {
	return &Service{backend: backend}
}

// Fetch returns the payloads for ids. An empty request returns an empty
// result without touching the backend; a request where no id exists is NotFound.
func (s *Service) Fetch(ctx context.Context, ids []string) ([]Payload, error) {
	if len(ids) == 0 {
		return []Payload{}, nil
	}
	payloads, err := s.backend.Payloads(ctx, ids)
	if err != nil {
		return nil, storeErr("fetching snippets", err)
	}
	if len(payloads) == 0 {
		return nil, apperr.Newf(apperr.NotFound, "no documents found for %d id(s)", len(ids))
	}
	if len(payloads) < len(ids) {
		slog.Debug("some snippet ids not found", "requested", len(ids), "found", len(payloads))
	}
	return payloads, nil
}

// Search runs a semantic search over the snippet index.
func (s *Service) Search(ctx context.Context, query string, k int, filter *vectordb.SearchFilter) ([]Payload, error) {
	if query == "" {
		return nil, apperr.Newf(apperr.InvalidArgument, "query is required")
	}
	payloads, err := s.backend.Search(ctx, query, k, filter)
	if err != nil {
		return nil, storeErr("searching snippets", err)
	}
	return payloads, nil
}

// storeErr keeps coded errors and treats everything else as an unreachable store.
func storeErr(msg string, err error) error {
	if apperr.CodeOf(err) != apperr.Internal {
		return err
	}
	return apperr.New(apperr.StoreUnavailable, msg, err)
}

// ChromemBackend serves payloads from a chromem-go store.
type ChromemBackend struct {
	Store vectordb.SnippetStore
}

func (b ChromemBackend) Payloads(ctx context.Context, ids []string) ([]Payload, error) {
	docs, err := b.Store.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]Payload, len(docs))
	for i, d := range docs {
		out[i] = d.Payload()
	}
	return out, nil
}

func (b ChromemBackend) Search(ctx context.Context, query string, k int, filter *vectordb.SearchFilter) ([]Payload, error) {
	results, err := b.Store.Search(ctx, query, k, filter)
	if err != nil {
		return nil, err
	}
	out := make([]Payload, len(results))
	for i, r := range results {
		p := r.Document.Payload()
		p["score"] = r.Similarity
		out[i] = p
	}
	return out, nil
}

// QdrantBackend serves payloads from a Qdrant collection.
type QdrantBackend struct {
	Client *vectordb.QdrantClient
}

func (b QdrantBackend) Payloads(ctx context.Context, ids []string) ([]Payload, error) {
	points, err := b.Client.GetPoints(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]Payload, len(points))
	for i, p := range points {
		out[i] = p.PayloadWithID()
	}
	return out, nil
}

func (b QdrantBackend) Search(ctx context.Context, query string, k int, filter *vectordb.SearchFilter) ([]Payload, error) {
	points, err := b.Client.Search(ctx, query, k, filter)
	if err != nil {
		return nil, err
	}
	out := make([]Payload, len(points))
	for i, p := range points {
		pl := p.PayloadWithID()
		pl["score"] = p.Score
		out[i] = pl
	}
	return out, nil
}
