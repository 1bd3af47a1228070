package vectordb

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	chromem "github.com/philippgille/chromem-go"

	"github.com/Trail-HEAD-Outfitters/SourceSherpa/internal/embeddings"
)

const (
	collectionName = "code"
	// PersistFile is the gzipped gob written by Persist inside its directory.
	PersistFile = "chromem.gob.gz"
	// embedWorkers bounds concurrent embedding calls while adding documents.
	embedWorkers = 4
)

// ChromemStore is the embedded snippet index: one chromem-go collection that
// lives in memory and is saved to a single file between runs.
type ChromemStore struct {
	db    *chromem.DB
	embed chromem.EmbeddingFunc
	col   *chromem.Collection
}

func NewChromemStore(embedder embeddings.Embedder) (*ChromemStore, error) {
	s := &ChromemStore{db: chromem.NewDB(), embed: embeddings.ChromemFunc(embedder)}
	col, err := s.db.GetOrCreateCollection(collectionName, nil, s.embed)
	if err != nil {
		return nil, fmt.Errorf("creating %q collection: %w", collectionName, err)
	}
	s.col = col
	return s, nil
}

// AddDocuments embeds and upserts docs.
func (s *ChromemStore) AddDocuments(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}
	batch := make([]chromem.Document, 0, len(docs))
	for _, d := range docs {
		batch = append(batch, chromem.Document{ID: d.ID, Content: d.Content, Metadata: d.Metadata.toMap()})
	}
	return s.col.AddDocuments(ctx, batch, embedWorkers)
}

// GetByIDs returns the stored documents among ids in request order. Empty and
// unknown ids are skipped.
func (s *ChromemStore) GetByIDs(ctx context.Context, ids []string) ([]Document, error) {
	var docs []Document
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if id == "" {
			continue
		}
		d, err := s.col.GetByID(ctx, id)
		if err != nil {
			// chromem reports a missing id as an error.
			continue
		}
		docs = append(docs, Document{ID: d.ID, Content: d.Content, Metadata: metadataFromMap(d.Metadata)})
	}
	return docs, nil
}

// Search ranks documents by similarity to query. chromem refuses limits
// larger than the collection, so limit is clamped to Count.
func (s *ChromemStore) Search(ctx context.Context, query string, limit int, filter *SearchFilter) ([]SearchResult, error) {
	n := s.col.Count()
	if n == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}

	hits, err := s.col.Query(ctx, query, min(limit, n), filter.where(), nil)
	if err != nil {
		return nil, fmt.Errorf("querying %q collection: %w", collectionName, err)
	}
	out := make([]SearchResult, 0, len(hits))
	for _, h := range hits {
		out = append(out, SearchResult{
			Document:   Document{ID: h.ID, Content: h.Content, Metadata: metadataFromMap(h.Metadata)},
			Similarity: h.Similarity,
		})
	}
	return out, nil
}

// Persist writes the whole database to dir/PersistFile, creating dir.
func (s *ChromemStore) Persist(_ context.Context, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return s.db.ExportToFile(filepath.Join(dir, PersistFile), true, "")
}

// Load replaces the in-memory database with dir/PersistFile.
func (s *ChromemStore) Load(_ context.Context, dir string) error {
	if err := s.db.ImportFromFile(filepath.Join(dir, PersistFile), ""); err != nil {
		return fmt.Errorf("importing snippet store from %s: %w", dir, err)
	}
	col := s.db.GetCollection(collectionName, s.embed)
	if col == nil {
		return fmt.Errorf("%s holds no %q collection", dir, collectionName)
	}
	s.col = col
	return nil
}

func (s *ChromemStore) Count() int { return s.col.Count() }
