// Package feature defines the classification record stored in the TOC.
package feature

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Record is the classification of one source file. Optional fields are
// empty when absent and omitted from JSON.
type Record struct {
	Repo           string `json:"repo" bson:"repo"`
	Program        string `json:"program" bson:"program"`
	Bucket         string `json:"bucket,omitempty" bson:"bucket,omitempty"`
	Path           string `json:"path" bson:"path"`
	MatchedGlob    string `json:"matched_glob,omitempty" bson:"matched_glob,omitempty"`
	Notes          string `json:"notes,omitempty" bson:"notes,omitempty"`
	SourceArtifact string `json:"source_artifact" bson:"source_artifact"`
	Hash           string `json:"hash,omitempty" bson:"hash"`
	Lang           string `json:"lang,omitempty" bson:"lang,omitempty"`
}

// Classified reports whether a rule matched the record.
func (r Record) Classified() bool { return r.Bucket != "" }

// Key identifies a record for uniqueness. An absent hash is the empty string.
type Key struct {
	Repo string `json:"repo"`
	Path string `json:"path"`
	Hash string `json:"hash,omitempty"`
}

// Key returns the record's uniqueness key.
func (r Record) Key() Key {
	return Key{Repo: r.Repo, Path: r.Path, Hash: r.Hash}
}

func (k Key) String() string {
	if k.Hash == "" {
		return fmt.Sprintf("%s:%s", k.Repo, k.Path)
	}
	return fmt.Sprintf("%s:%s@%s", k.Repo, k.Path, k.Hash)
}

// ReadFile loads a JSON array of records.
func ReadFile(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading features %s: %w", path, err)
	}
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decoding features %s: %w", path, err)
	}
	return records, nil
}

// WriteFile writes records as an indented JSON array, creating parent dirs.
func WriteFile(path string, records []Record) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	if records == nil {
		records = []Record{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding features: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing features %s: %w", path, err)
	}
	return nil
}
