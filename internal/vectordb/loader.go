package vectordb

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"
)

// ExportEntry is one source file in a snippet export produced by the AST
// extractor.
type ExportEntry struct {
	Filepath string `json:"filepath"`
	Source   string `json:"source"`
	Lang     string `json:"lang"`
	Group    string `json:"group"`
	Notes    string `json:"notes"`
}

// ChunkOptions controls how source text is split into snippets.
type ChunkOptions struct {
	MaxLines int
	Stride   int
}

// DefaultChunkOptions splits into 60 line windows overlapping by half.
var DefaultChunkOptions = ChunkOptions{MaxLines: 60, Stride: 30}

const chunkStartLen = 80

var pointIDModulus = big.NewInt(1_000_000_000_000)

// PointID derives a stable numeric id from a file path and the opening text
// of a chunk, so that ids line up with externally loaded Qdrant points.
func PointID(path, chunkStart string) string {
	sum := sha256.Sum256([]byte(path + chunkStart))
	n := new(big.Int).SetBytes(sum[:])
	return n.Mod(n, pointIDModulus).String()
}

// LoadExport reads a snippet export (a JSON array of entries or a single
// entry) and splits every entry into documents.
func LoadExport(exportPath string, opts ChunkOptions) ([]Document, error) {
	data, err := os.ReadFile(exportPath)
	if err != nil {
		return nil, fmt.Errorf("reading export %s: %w", exportPath, err)
	}

	var entries []ExportEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		var single ExportEntry
		if err2 := json.Unmarshal(data, &single); err2 != nil {
			return nil, fmt.Errorf("decoding export %s: %w", exportPath, err)
		}
		entries = []ExportEntry{single}
	}

	repo := repoFromExportPath(exportPath)
	seen := make(map[string]bool)
	var docs []Document
	for _, e := range entries {
		for _, chunk := range ChunkLines(e.Source, opts) {
			start := chunkStart(chunk)
			id := PointID(e.Filepath, start)
			if seen[id] {
				continue
			}
			seen[id] = true
			docs = append(docs, Document{
				ID:      id,
				Content: chunk,
				Metadata: DocumentMetadata{
					Repo:       repo,
					Path:       e.Filepath,
					Lang:       e.Lang,
					Group:      e.Group,
					Notes:      e.Notes,
					ChunkStart: start,
					Kind:       kindOf(e.Filepath),
				},
			})
		}
	}
	return docs, nil
}

// ChunkLines splits text into overlapping windows of whole lines. Empty text
// yields a single empty chunk so that every file gets a document.
func ChunkLines(text string, opts ChunkOptions) []string {
	if opts.MaxLines <= 0 {
		opts = DefaultChunkOptions
	}
	if opts.Stride <= 0 || opts.Stride > opts.MaxLines {
		opts.Stride = opts.MaxLines
	}
	if strings.TrimSpace(text) == "" {
		return []string{""}
	}

	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	var chunks []string
	for i := 0; i < len(lines); i += opts.Stride {
		end := i + opts.MaxLines
		if end > len(lines) {
			end = len(lines)
		}
		chunks = append(chunks, strings.Join(lines[i:end], "\n"))
		if end == len(lines) {
			break
		}
	}
	return chunks
}

func chunkStart(chunk string) string {
	runes := []rune(strings.TrimSpace(chunk))
	if len(runes) > chunkStartLen {
		runes = runes[:chunkStartLen]
	}
	return string(runes)
}

// repoFromExportPath returns the directory after an "output" segment, or
// the export's parent directory name.
func repoFromExportPath(p string) string {
	parts := strings.Split(filepath.ToSlash(p), "/")
	for i, part := range parts {
		if part == "output" && i+2 < len(parts) {
			return parts[i+1]
		}
	}
	return filepath.Base(filepath.Dir(p))
}

func kindOf(entryPath string) string {
	for _, part := range strings.Split(strings.ReplaceAll(entryPath, `\`, "/"), "/") {
		switch strings.ToLower(part) {
		case "test", "tests":
			return "test"
		}
	}
	return "source"
}
