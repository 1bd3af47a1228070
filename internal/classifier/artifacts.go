package classifier

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// skippedDirs are never descended into while discovering artifacts.
var skippedDirs = []string{".git", "node_modules", "__pycache__", ".venv", ".idea", ".vscode", ".sherpa"}

// DiscoverConfig controls artifact discovery.
type DiscoverConfig struct {
	RootDir string
	Include []string // doublestar globs relative to RootDir; default **/*.json
	Exclude []string
}

// DiscoverArtifacts returns the absolute paths of every regular file under
// RootDir that matches Include and not Exclude, in lexical order.
func DiscoverArtifacts(cfg DiscoverConfig) ([]string, error) {
	root, err := filepath.Abs(cfg.RootDir)
	if err != nil {
		return nil, fmt.Errorf("resolving artifact dir: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("artifact dir %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("artifact dir %s is not a directory", root)
	}

	include := cfg.Include
	if len(include) == 0 {
		include = []string{"**/*.json"}
	}

	var found []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil
		}
		if d.IsDir() {
			if path != root && isSkippedDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if !matchesAny(rel, include) || matchesAny(rel, cfg.Exclude) {
			return nil
		}
		found = append(found, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking artifact dir: %w", err)
	}
	return found, nil
}

func isSkippedDir(name string) bool {
	for _, s := range skippedDirs {
		if strings.EqualFold(name, s) {
			return true
		}
	}
	return false
}

// matchesAny tests the relative path, then its basename, against each glob.
func matchesAny(rel string, globs []string) bool {
	base := filepath.Base(rel)
	for _, g := range globs {
		g = filepath.ToSlash(g)
		if ok, err := doublestar.Match(g, rel); err == nil && ok {
			return true
		}
		if ok, err := doublestar.Match(g, base); err == nil && ok {
			return true
		}
	}
	return false
}

// ContentHasher fills in content hashes for entries whose artifact did not
// carry one, by hashing the file under Root.
type ContentHasher struct {
	Root string
}

// Hash returns the SHA-256 of the entry's file under Root, or "" when Root
// is unset or the file cannot be read.
func (h ContentHasher) Hash(entryPath string) string {
	if h.Root == "" || entryPath == "" {
		return ""
	}
	p := filepath.FromSlash(strings.ReplaceAll(entryPath, `\`, "/"))
	if !filepath.IsAbs(p) {
		p = filepath.Join(h.Root, p)
	}
	sum, err := hashFile(p)
	if err != nil {
		return ""
	}
	return sum
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
