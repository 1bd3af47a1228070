// Package toc stores feature records as a searchable table of contents and
// evaluates the structured filters produced during retrieval.
package toc

import (
	"context"
	"sort"
	"strings"
	"unicode"

	"github.com/Trail-HEAD-Outfitters/SourceSherpa/internal/apperr"
	"github.com/Trail-HEAD-Outfitters/SourceSherpa/internal/feature"
)

const (
	MinK     = 1
	MaxK     = 50
	DefaultK = 10
)

// Store is a table-of-contents backend.
type Store interface {
	// Reindex replaces the whole TOC with records and returns how many were
	// inserted. Duplicate keys are skipped and logged.
	Reindex(ctx context.Context, records []feature.Record) (int, error)
	// Search ranks records by full-text relevance of query, restricted by
	// exact filters on repo, program, bucket and lang.
	Search(ctx context.Context, query string, k int, filters map[string]string) ([]Hit, error)
	// Query returns records matching f in insertion order. limit <= 0 means no bound.
	Query(ctx context.Context, f Filter, limit int) ([]feature.Record, error)
	Count(ctx context.Context) (int, error)
	Ping(ctx context.Context) error
	Close() error
}

// Hit is a search result.
type Hit struct {
	feature.Record `bson:",inline"`
	Score          float64 `json:"score" bson:"score"`
}

// ValidateK rejects result counts outside [MinK, MaxK].
func ValidateK(k int) error {
	if k < MinK || k > MaxK {
		return apperr.Newf(apperr.InvalidArgument, "k must be between %d and %d, got %d", MinK, MaxK, k)
	}
	return nil
}

// searchFields are the fields Search accepts as exact filters.
var searchFields = map[string]bool{"repo": true, "program": true, "bucket": true, "lang": true}

// NormalizeSearchFilters resolves aliases and drops empty values. Keys that
// are not searchable fields are an InvalidArgument error.
func NormalizeSearchFilters(filters map[string]string) (map[string]string, error) {
	out := make(map[string]string, len(filters))
	for k, v := range filters {
		if v == "" {
			continue
		}
		field, ok := CanonicalField(k)
		if !ok || !searchFields[field] {
			return nil, apperr.Newf(apperr.InvalidArgument, "unsupported search filter %q", k)
		}
		out[field] = v
	}
	return out, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SearchTerms splits a free-text query into unique lower-case word terms,
// splitting camel case words into their parts as well.
func SearchTerms(query string) []string {
	seen := make(map[string]bool)
	var terms []string
	add := func(t string) {
		t = strings.ToLower(t)
		if t == "" || seen[t] {
			return
		}
		seen[t] = true
		terms = append(terms, t)
	}
	for _, word := range words(query) {
		add(word)
		for _, part := range SplitCamel(word) {
			add(part)
		}
	}
	return terms
}

// IndexTerms returns the text indexed for a record's path: every path
// segment word plus its camel case parts.
func IndexTerms(r feature.Record) string {
	return strings.Join(SearchTerms(r.Path), " ")
}

func words(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// SplitCamel splits an identifier such as "HTTPOrderController2" into
// "HTTP", "Order", "Controller", "2".
func SplitCamel(word string) []string {
	runes := []rune(word)
	if len(runes) == 0 {
		return nil
	}
	var parts []string
	start := 0
	for i := 1; i < len(runes); i++ {
		prev, cur := runes[i-1], runes[i]
		boundary := false
		switch {
		case unicode.IsLower(prev) && unicode.IsUpper(cur):
			boundary = true
		case unicode.IsDigit(prev) != unicode.IsDigit(cur):
			boundary = true
		case unicode.IsUpper(prev) && unicode.IsUpper(cur) && i+1 < len(runes) && unicode.IsLower(runes[i+1]):
			boundary = true
		}
		if boundary {
			parts = append(parts, string(runes[start:i]))
			start = i
		}
	}
	return append(parts, string(runes[start:]))
}
