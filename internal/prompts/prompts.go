// Package prompts holds the prompt texts used by the retrieval pipeline.
// Built-in templates are embedded; a directory of same-named .md files
// overrides them one by one.
package prompts

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"text/template"
)

//go:embed templates/*.md
var builtin embed.FS

// Prompt names. Each maps to <name>.md.
const (
	MissionPrefix   = "mission_prefix"
	PatternsRequest = "dev_patterns_prompt"
	SchemaStructure = "schema_structure"
	FinalAnswer     = "final_answer"
)

var names = []string{MissionPrefix, PatternsRequest, SchemaStructure, FinalAnswer}

// AnswerData is substituted into the final answer template.
type AnswerData struct {
	CodebaseNickname string
	ProductName      string
	Question         string
	PatternsJSON     string
	ContextSummary   string
}

// Library is an immutable set of prompt texts.
type Library struct {
	texts  map[string]string
	answer *template.Template
}

// Default returns the embedded prompts.
func Default() *Library {
	lib, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("prompts: embedded templates: %v", err))
	}
	return lib
}

// Load reads the embedded prompts and replaces any that exist as <name>.md
// in dir. An empty dir loads the embedded prompts only.
func Load(dir string) (*Library, error) {
	lib := &Library{texts: make(map[string]string, len(names))}
	for _, name := range names {
		data, err := fs.ReadFile(builtin, "templates/"+name+".md")
		if err != nil {
			return nil, fmt.Errorf("reading embedded prompt %s: %w", name, err)
		}
		if dir != "" {
			override, err := os.ReadFile(filepath.Join(dir, name+".md"))
			switch {
			case err == nil:
				data = override
			case !errors.Is(err, fs.ErrNotExist):
				return nil, fmt.Errorf("reading prompt override %s: %w", name, err)
			}
		}
		lib.texts[name] = strings.TrimSpace(string(data))
	}

	tmpl, err := template.New(FinalAnswer).Option("missingkey=error").Parse(lib.texts[FinalAnswer])
	if err != nil {
		return nil, fmt.Errorf("parsing %s template: %w", FinalAnswer, err)
	}
	lib.answer = tmpl
	return lib, nil
}

// Text returns the trimmed text of the named prompt, or "" if unknown.
func (l *Library) Text(name string) string {
	return l.texts[name]
}

// RenderAnswer fills the final answer template.
func (l *Library) RenderAnswer(data AnswerData) (string, error) {
	var buf bytes.Buffer
	if err := l.answer.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering %s: %w", FinalAnswer, err)
	}
	return buf.String(), nil
}
