package toc

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/Trail-HEAD-Outfitters/SourceSherpa/internal/apperr"
	"github.com/Trail-HEAD-Outfitters/SourceSherpa/internal/db"
	"github.com/Trail-HEAD-Outfitters/SourceSherpa/internal/feature"
)

const recordColumns = "f.repo, f.program, f.bucket, f.path, f.matched_glob, f.notes, f.source_artifact, f.hash, f.lang"

// SQLiteStore keeps the TOC in SQLite with an FTS5 index for Search.
type SQLiteStore struct {
	db *db.DB
	mu sync.Mutex // serializes Reindex
}

// NewSQLiteStore creates a store over an open database.
func NewSQLiteStore(database *db.DB) *SQLiteStore {
	return &SQLiteStore{db: database}
}

// OpenSQLite opens (or creates) the database file at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	database, err := db.Open(path)
	if err != nil {
		return nil, apperr.New(apperr.StoreUnavailable, "opening sqlite toc", err)
	}
	return NewSQLiteStore(database), nil
}

// Reindex atomically replaces every record in one transaction.
func (s *SQLiteStore) Reindex(ctx context.Context, records []feature.Record) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept, dups := feature.Dedup(records)
	logDuplicates(dups)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, apperr.New(apperr.StoreUnavailable, "starting reindex transaction", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{`DELETE FROM features_fts`, `DELETE FROM features`} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return 0, apperr.New(apperr.StoreUnavailable, "clearing toc", err)
		}
	}

	insRecord, err := tx.PrepareContext(ctx, `
		INSERT INTO features (repo, program, bucket, path, matched_glob, notes, source_artifact, hash, lang)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("preparing record insert: %w", err)
	}
	defer insRecord.Close()

	insText, err := tx.PrepareContext(ctx, `
		INSERT INTO features_fts (terms, bucket, notes, feature_id) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("preparing text insert: %w", err)
	}
	defer insText.Close()

	for _, r := range kept {
		res, err := insRecord.ExecContext(ctx,
			r.Repo, r.Program, r.Bucket, r.Path, r.MatchedGlob, r.Notes, r.SourceArtifact, r.Hash, r.Lang)
		if err != nil {
			return 0, apperr.New(apperr.DuplicateRecord, fmt.Sprintf("inserting %s", r.Key()), err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return 0, fmt.Errorf("reading record id: %w", err)
		}
		if _, err := insText.ExecContext(ctx, IndexTerms(r), r.Bucket, r.Notes, id); err != nil {
			return 0, fmt.Errorf("indexing %s: %w", r.Key(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, apperr.New(apperr.StoreUnavailable, "committing reindex", err)
	}
	slog.Info("toc reindexed", "backend", "sqlite", "inserted", len(kept), "duplicates", len(dups))
	return len(kept), nil
}

// Search runs an FTS5 query with the terms OR-ed and orders hits by bm25.
func (s *SQLiteStore) Search(ctx context.Context, query string, k int, filters map[string]string) ([]Hit, error) {
	if err := ValidateK(k); err != nil {
		return nil, err
	}
	terms := SearchTerms(query)
	if len(terms) == 0 {
		return nil, apperr.Newf(apperr.InvalidArgument, "query %q has no searchable terms", query)
	}
	exact, err := NormalizeSearchFilters(filters)
	if err != nil {
		return nil, err
	}

	quoted := make([]string, len(terms))
	for i, t := range terms {
		quoted[i] = `"` + t + `"`
	}

	var b strings.Builder
	b.WriteString(`SELECT ` + recordColumns + `, bm25(features_fts) AS rank
		FROM features_fts JOIN features f ON f.id = features_fts.feature_id
		WHERE features_fts MATCH ?`)
	args := []any{strings.Join(quoted, " OR ")}
	for _, field := range sortedKeys(exact) {
		b.WriteString(" AND f." + field + " = ?")
		args = append(args, exact[field])
	}
	b.WriteString(" ORDER BY rank LIMIT ?")
	args = append(args, k)

	rows, err := s.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, apperr.New(apperr.StoreUnavailable, "searching toc", err)
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var h Hit
		var rank float64
		if err := rows.Scan(recordDest(&h.Record, &rank)...); err != nil {
			return nil, fmt.Errorf("scanning hit: %w", err)
		}
		h.Score = -rank
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// Query evaluates f against the records table.
func (s *SQLiteStore) Query(ctx context.Context, f Filter, limit int) ([]feature.Record, error) {
	where, args := renderSQL(f.Root)
	if limit <= 0 {
		limit = -1
	}
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM features f WHERE `+where+` ORDER BY f.id LIMIT ?`, args...)
	if err != nil {
		return nil, apperr.New(apperr.StoreUnavailable, "querying toc", err)
	}
	defer rows.Close()

	var records []feature.Record
	for rows.Next() {
		var r feature.Record
		if err := rows.Scan(recordDest(&r)...); err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// Count returns the number of stored records.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM features`).Scan(&n); err != nil {
		return 0, apperr.New(apperr.StoreUnavailable, "counting toc records", err)
	}
	return n, nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return apperr.New(apperr.StoreUnavailable, "sqlite toc unreachable", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func recordDest(r *feature.Record, extra ...any) []any {
	dest := []any{&r.Repo, &r.Program, &r.Bucket, &r.Path, &r.MatchedGlob, &r.Notes, &r.SourceArtifact, &r.Hash, &r.Lang}
	return append(dest, extra...)
}

func logDuplicates(dups []feature.Duplicate) {
	for _, d := range dups {
		slog.Info("skipping duplicate record",
			"key", d.Key.String(), "source", d.Record.SourceArtifact, "first_source", d.FirstSource)
	}
	if len(dups) > 0 {
		slog.Warn("duplicate records skipped during reindex", "count", len(dups))
	}
}

// renderSQL renders a filter node as a WHERE expression over alias f.
// Equality comparisons use NOCASE collation.
func renderSQL(n Node) (string, []any) {
	if n.IsLeaf() {
		return renderCondition(*n.Cond)
	}
	if len(n.Children) == 0 {
		return "1", nil
	}
	sep := " AND "
	if n.Or {
		sep = " OR "
	}
	parts := make([]string, 0, len(n.Children))
	var args []any
	for _, c := range n.Children {
		expr, a := renderSQL(c)
		parts = append(parts, "("+expr+")")
		args = append(args, a...)
	}
	return strings.Join(parts, sep), args
}

func renderCondition(c Condition) (string, []any) {
	col := "f." + c.Field
	switch c.Op {
	case OpEq:
		return col + " = ? COLLATE NOCASE", []any{c.Values[0]}
	case OpNe:
		return col + " <> ? COLLATE NOCASE", []any{c.Values[0]}
	case OpIn, OpNotIn:
		if len(c.Values) == 0 {
			if c.Op == OpIn {
				return "0", nil
			}
			return "1", nil
		}
		not := ""
		if c.Op == OpNotIn {
			not = "NOT "
		}
		args := make([]any, len(c.Values))
		for i, v := range c.Values {
			args[i] = v
		}
		return col + " COLLATE NOCASE " + not + "IN (" + placeholders(len(c.Values)) + ")", args
	case OpRegex:
		return col + " REGEXP ?", []any{c.Values[0]}
	case OpContains:
		return "instr(lower(" + col + "), lower(?)) > 0", []any{c.Values[0]}
	case OpExists:
		if c.Values[0] == "true" {
			return col + " <> ''", nil
		}
		return col + " = ''", nil
	}
	return "0", nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

var _ Store = (*SQLiteStore)(nil)

