// Package patterns holds the ordered rule set used to assign files to buckets.
package patterns

import (
	_ "embed"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultRules []byte

// Rule assigns a bucket to files whose basename matches one of Globs and,
// when Dirs is non-empty, whose full path contains one of Dirs.
type Rule struct {
	Bucket string   `yaml:"bucket" json:"bucket"`
	Globs  []string `yaml:"globs" json:"globs"`
	Dirs   []string `yaml:"dirs,omitempty" json:"dirs,omitempty"`
	Notes  string   `yaml:"notes,omitempty" json:"notes,omitempty"`
}

// FirstGlob is the glob reported as matched_glob, regardless of which glob
// actually matched.
func (r Rule) FirstGlob() string {
	if len(r.Globs) == 0 {
		return ""
	}
	return r.Globs[0]
}

// matches applies the rule to a lower-cased basename and full path.
func (r Rule) matches(base, lowerPath string) bool {
	globHit := false
	for _, g := range r.Globs {
		ok, err := doublestar.Match(strings.ToLower(g), base)
		if err == nil && ok {
			globHit = true
			break
		}
	}
	if !globHit {
		return false
	}
	if len(r.Dirs) == 0 {
		return true
	}
	for _, d := range r.Dirs {
		if strings.Contains(lowerPath, strings.ToLower(d)) {
			return true
		}
	}
	return false
}

// Registry is an immutable, ordered list of rules.
type Registry struct {
	rules []Rule
}

// New builds a Registry from rules, preserving their order. Rules are copied
// so later mutation of the input has no effect.
func New(rules []Rule) (*Registry, error) {
	out := make([]Rule, 0, len(rules))
	for i, r := range rules {
		r.Bucket = strings.TrimSpace(r.Bucket)
		if r.Bucket == "" {
			return nil, fmt.Errorf("rule %d: bucket is required", i)
		}
		r.Globs = append([]string(nil), r.Globs...)
		r.Dirs = append([]string(nil), r.Dirs...)
		out = append(out, r)
	}
	return &Registry{rules: out}, nil
}

// Default returns the built-in rule set.
func Default() *Registry {
	reg, err := Parse(defaultRules)
	if err != nil {
		panic(fmt.Sprintf("patterns: built-in rules are invalid: %v", err))
	}
	return reg
}

// LoadFile reads rules from a YAML or JSON file.
func LoadFile(filename string) (*Registry, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("reading pattern file %s: %w", filename, err)
	}
	reg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing pattern file %s: %w", filename, err)
	}
	return reg, nil
}

// fileRule accepts both the current keys and the legacy
// keyword/file_patterns/directories spelling.
type fileRule struct {
	Bucket       string   `yaml:"bucket"`
	Keyword      string   `yaml:"keyword"`
	Globs        []string `yaml:"globs"`
	FilePatterns []string `yaml:"file_patterns"`
	Dirs         []string `yaml:"dirs"`
	Directories  []string `yaml:"directories"`
	Notes        string   `yaml:"notes"`
}

// Parse decodes a YAML (or JSON) list of rules.
func Parse(data []byte) (*Registry, error) {
	var raw []fileRule
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	rules := make([]Rule, 0, len(raw))
	for _, fr := range raw {
		r := Rule{Bucket: fr.Bucket, Globs: fr.Globs, Dirs: fr.Dirs, Notes: fr.Notes}
		if r.Bucket == "" {
			r.Bucket = fr.Keyword
		}
		if len(r.Globs) == 0 {
			r.Globs = fr.FilePatterns
		}
		if len(r.Dirs) == 0 {
			r.Dirs = fr.Directories
		}
		rules = append(rules, r)
	}
	return New(rules)
}

// Rules returns a copy of the rules in precedence order.
func (r *Registry) Rules() []Rule {
	out := make([]Rule, len(r.rules))
	for i, rule := range r.rules {
		rule.Globs = append([]string(nil), rule.Globs...)
		rule.Dirs = append([]string(nil), rule.Dirs...)
		out[i] = rule
	}
	return out
}

// Len returns the number of rules.
func (r *Registry) Len() int { return len(r.rules) }

// Match returns the first rule that accepts entryPath.
func (r *Registry) Match(entryPath string) (Rule, bool) {
	lowerPath := strings.ToLower(entryPath)
	base := Basename(entryPath)
	for _, rule := range r.rules {
		if rule.matches(base, lowerPath) {
			return rule, true
		}
	}
	return Rule{}, false
}

// Basename returns the lower-cased final path segment with a trailing
// ".json" removed. Both '/' and '\' count as separators.
func Basename(entryPath string) string {
	if entryPath == "" {
		return ""
	}
	base := path.Base(strings.ReplaceAll(entryPath, `\`, "/"))
	base = strings.ToLower(base)
	return strings.TrimSuffix(base, ".json")
}

// Export writes the registry as YAML.
func (r *Registry) Export(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r.rules); err != nil {
		return fmt.Errorf("encoding patterns: %w", err)
	}
	return enc.Close()
}
