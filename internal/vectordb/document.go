package vectordb

import "context"

// SnippetStore is the read side of a snippet index.
type SnippetStore interface {
	GetByIDs(ctx context.Context, ids []string) ([]Document, error)
	Search(ctx context.Context, query string, limit int, filter *SearchFilter) ([]SearchResult, error)
}

// Document is a source snippet stored in the vector index.
type Document struct {
	ID       string
	Content  string
	Metadata DocumentMetadata
}

// DocumentMetadata holds the payload fields stored next to a snippet.
type DocumentMetadata struct {
	Repo       string
	Path       string
	Lang       string
	Group      string
	Notes      string
	ChunkStart string
	Kind       string
}

// SearchResult pairs a document with its similarity score.
type SearchResult struct {
	Document   Document
	Similarity float32
}

// SearchFilter narrows semantic search by exact payload values.
type SearchFilter struct {
	Repo  string
	Lang  string
	Group string
}

// Payload flattens a document into the map returned to callers. The id is
// always present and the snippet text is stored under "code".
func (d Document) Payload() map[string]any {
	p := map[string]any{"id": d.ID}
	for k, v := range d.Metadata.toMap() {
		if v != "" {
			p[k] = v
		}
	}
	if d.Content != "" {
		p["code"] = d.Content
	}
	return p
}

// where converts the filter to a chromem equality clause. Nil and empty
// filters match everything.
func (f *SearchFilter) where() map[string]string {
	if f == nil {
		return nil
	}
	w := map[string]string{}
	for k, v := range map[string]string{"repo": f.Repo, "lang": f.Lang, "group": f.Group} {
		if v != "" {
			w[k] = v
		}
	}
	if len(w) == 0 {
		return nil
	}
	return w
}

func (m DocumentMetadata) toMap() map[string]string {
	return map[string]string{
		"repo":        m.Repo,
		"path":        m.Path,
		"lang":        m.Lang,
		"group":       m.Group,
		"notes":       m.Notes,
		"chunk_start": m.ChunkStart,
		"kind":        m.Kind,
	}
}

func metadataFromMap(m map[string]string) DocumentMetadata {
	return DocumentMetadata{
		Repo:       m["repo"],
		Path:       m["path"],
		Lang:       m["lang"],
		Group:      m["group"],
		Notes:      m["notes"],
		ChunkStart: m["chunk_start"],
		Kind:       m["kind"],
	}
}
