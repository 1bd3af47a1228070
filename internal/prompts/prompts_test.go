package prompts

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultHasAllPrompts(t *testing.T) {
	lib := Default()
	for _, name := range names {
		text := lib.Text(name)
		if text == "" {
			t.Errorf("prompt %s is empty", name)
		}
		if text != strings.TrimSpace(text) {
			t.Errorf("prompt %s is not trimmed", name)
		}
	}
	if lib.Text("nope") != "" {
		t.Error("unknown prompt should be empty")
	}
}

func TestRenderAnswer(t *testing.T) {
	out, err := Default().RenderAnswer(AnswerData{
		CodebaseNickname: "Storefront",
		ProductName:      "the shop",
		Question:         "Where are orders persisted?",
		PatternsJSON:     "[\n  \"*orderrepository.cs\"\n]",
		ContextSummary:   "- src/OrderRepository.cs",
	})
	if err != nil {
		t.Fatalf("RenderAnswer: %v", err)
	}
	for _, want := range []string{"Storefront", "the shop", "Where are orders persisted?", "*orderrepository.cs", "- src/OrderRepository.cs"} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered answer missing %q", want)
		}
	}
}

func TestLoadOverrides(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "mission_prefix.md"), []byte("  custom mission \n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "final_answer.md"), []byte("Q={{.Question}}"), 0o644); err != nil {
		t.Fatal(err)
	}

	lib, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if lib.Text(MissionPrefix) != "custom mission" {
		t.Errorf("mission = %q", lib.Text(MissionPrefix))
	}
	if lib.Text(SchemaStructure) != Default().Text(SchemaStructure) {
		t.Error("prompts without an override should fall back to the embedded text")
	}
	out, err := lib.RenderAnswer(AnswerData{Question: "why"})
	if err != nil || out != "Q=why" {
		t.Errorf("RenderAnswer = %q, %v", out, err)
	}
}

func TestLoadRejectsBadTemplate(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "final_answer.md"), []byte("{{.Question"), 0o644)
	if _, err := Load(dir); err == nil {
		t.Error("expected parse error")
	}

	os.WriteFile(filepath.Join(dir, "final_answer.md"), []byte("{{.Unknown}}"), 0o644)
	lib, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := lib.RenderAnswer(AnswerData{}); err == nil {
		t.Error("expected error for unknown field")
	}
}
