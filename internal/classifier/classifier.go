// Package classifier turns raw AST artifacts into feature records by
// applying the pattern registry and the path resolver to every file entry.
package classifier

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/Trail-HEAD-Outfitters/SourceSherpa/internal/feature"
	"github.com/Trail-HEAD-Outfitters/SourceSherpa/internal/pathmeta"
	"github.com/Trail-HEAD-Outfitters/SourceSherpa/internal/patterns"
	"github.com/Trail-HEAD-Outfitters/SourceSherpa/internal/progress"
)

// Hasher supplies a content hash for an entry that arrived without one.
type Hasher interface {
	Hash(entryPath string) string
}

// Classifier is safe for concurrent use; it holds no mutable state.
type Classifier struct {
	registry *patterns.Registry
	resolver pathmeta.Resolver
	hasher   Hasher
	reporter progress.Reporter
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithHasher fills missing content hashes using h.
func WithHasher(h Hasher) Option {
	return func(c *Classifier) { c.hasher = h }
}

// WithReporter reports batch progress to r.
func WithReporter(r progress.Reporter) Option {
	return func(c *Classifier) { c.reporter = r }
}

// New creates a Classifier over the given registry and resolver.
func New(registry *patterns.Registry, resolver pathmeta.Resolver, opts ...Option) *Classifier {
	c := &Classifier{
		registry: registry,
		resolver: resolver,
		reporter: progress.Nop{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify produces the record for one entry. Unmatched entries still yield
// a record, with bucket, matched glob and notes left empty.
func (c *Classifier) Classify(e Entry, sourceArtifact string) feature.Record {
	repo, program := c.resolver.Resolve(e.Path)
	rec := feature.Record{
		Repo:           repo,
		Program:        program,
		Path:           e.Path,
		SourceArtifact: sourceArtifact,
		Hash:           e.Hash,
		Lang:           DetectLanguage(e.Path),
	}
	if rule, ok := c.registry.Match(e.Path); ok {
		rec.Bucket = rule.Bucket
		rec.MatchedGlob = rule.FirstGlob()
		rec.Notes = rule.Notes
	}
	if rec.Hash == "" && c.hasher != nil {
		rec.Hash = c.hasher.Hash(e.Path)
	}
	return rec
}

// ClassifyEntries classifies entries in order; output length equals input length.
func (c *Classifier) ClassifyEntries(entries []Entry, sourceArtifact string) []feature.Record {
	out := make([]feature.Record, 0, len(entries))
	for _, e := range entries {
		out = append(out, c.Classify(e, sourceArtifact))
	}
	return out
}

// ClassifyPaths is a convenience for callers holding bare path strings.
func (c *Classifier) ClassifyPaths(paths []string, sourceArtifact string) []feature.Record {
	entries := make([]Entry, len(paths))
	for i, p := range paths {
		entries[i] = Entry{Path: p}
	}
	return c.ClassifyEntries(entries, sourceArtifact)
}

// SkippedArtifact records an artifact that could not be decoded.
type SkippedArtifact struct {
	Artifact string `json:"artifact"`
	Reason   string `json:"reason"`
}

// Result summarises a batch run.
type Result struct {
	Records      []feature.Record    `json:"records"`
	Duplicates   []feature.Duplicate `json:"duplicates,omitempty"`
	Skipped      []SkippedArtifact   `json:"skipped,omitempty"`
	Artifacts    int                 `json:"artifacts"`
	Entries      int                 `json:"entries"`
	Unclassified int                 `json:"unclassified"`
	// IgnoredValues counts artifact values that carried no path.
	IgnoredValues int `json:"ignored_values"`
}

// ClassifyArtifacts reads, extracts and classifies every artifact, then
// deduplicates the combined records. A malformed artifact is skipped and
// reported; it never aborts the batch.
func (c *Classifier) ClassifyArtifacts(ctx context.Context, artifactPaths []string) (*Result, error) {
	res := &Result{}
	var all []feature.Record

	c.reporter.Start(len(artifactPaths))
	defer c.reporter.Finish()

	for i, ap := range artifactPaths {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("classification cancelled: %w", err)
		}
		name := filepath.Base(ap)
		c.reporter.Update(i+1, name)
		res.Artifacts++

		data, err := os.ReadFile(ap)
		if err != nil {
			slog.Warn("skipping unreadable artifact", "artifact", ap, "error", err)
			res.Skipped = append(res.Skipped, SkippedArtifact{Artifact: ap, Reason: err.Error()})
			continue
		}
		ex, err := ExtractEntries(data)
		if err != nil {
			slog.Warn("skipping malformed artifact", "artifact", ap, "error", err)
			res.Skipped = append(res.Skipped, SkippedArtifact{Artifact: ap, Reason: err.Error()})
			continue
		}
		if len(ex.Entries) == 0 {
			slog.Debug("artifact has no file entries", "artifact", ap, "shape", ex.Shape)
		}
		res.IgnoredValues += ex.Skipped
		res.Entries += len(ex.Entries)
		all = append(all, c.ClassifyEntries(ex.Entries, name)...)
	}

	res.Records, res.Duplicates = feature.Dedup(all)
	for _, d := range res.Duplicates {
		slog.Info("duplicate feature record", "key", d.Key.String(), "artifact", d.Record.SourceArtifact, "first_artifact", d.FirstSource)
	}
	for _, r := range res.Records {
		if !r.Classified() {
			res.Unclassified++
		}
	}
	return res, nil
}
