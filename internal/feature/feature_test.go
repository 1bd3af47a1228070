package feature

import (
	"path/filepath"
	"testing"
)

func TestDedupKeepsFirstOccurrence(t *testing.T) {
	records := []Record{
		{Repo: "shop", Path: "a/Home.cs", SourceArtifact: "one.json"},
		{Repo: "shop", Path: "a/Home.cs", SourceArtifact: "two.json"},
		{Repo: "shop", Path: "a/Home.cs", Hash: "abc", SourceArtifact: "three.json"},
		{Repo: "other", Path: "a/Home.cs", SourceArtifact: "four.json"},
	}

	kept, dups := Dedup(records)
	if len(kept) != 3 {
		t.Fatalf("kept %d records, want 3", len(kept))
	}
	if kept[0].SourceArtifact != "one.json" {
		t.Errorf("first kept record came from %q", kept[0].SourceArtifact)
	}
	if len(dups) != 1 {
		t.Fatalf("got %d duplicates, want 1", len(dups))
	}
	if dups[0].FirstSource != "one.json" || dups[0].Record.SourceArtifact != "two.json" {
		t.Errorf("unexpected duplicate report %+v", dups[0])
	}
}

func TestDedupEmpty(t *testing.T) {
	kept, dups := Dedup(nil)
	if len(kept) != 0 || len(dups) != 0 {
		t.Errorf("Dedup(nil) = %v, %v", kept, dups)
	}
}

func TestKeyString(t *testing.T) {
	k := Key{Repo: "r", Path: "p"}
	if k.String() != "r:p" {
		t.Errorf("got %q", k.String())
	}
	k.Hash = "h"
	if k.String() != "r:p@h" {
		t.Errorf("got %q", k.String())
	}
}

func TestWriteAndReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "features.json")
	in := []Record{
		{Repo: "shop", Program: "shop", Bucket: "Controller", Path: "Controllers/HomeController.cs", MatchedGlob: "*Controller.cs", SourceArtifact: "a.json"},
		{Repo: "shop", Program: "shop", Path: "README.md", SourceArtifact: "a.json"},
	}
	if err := WriteFile(path, in); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	out, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("read %d records", len(out))
	}
	if out[1].Classified() {
		t.Error("README record should be unclassified")
	}
	if !out[0].Classified() || out[0].Bucket != "Controller" {
		t.Errorf("unexpected first record %+v", out[0])
	}
}
