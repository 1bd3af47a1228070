package classifier

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/Trail-HEAD-Outfitters/SourceSherpa/internal/apperr"
)

// Entry is a file path pulled from a raw artifact, with the content hash
// when the artifact supplied one.
type Entry struct {
	Path string
	Hash string
}

// Extraction is the result of decoding one artifact.
type Extraction struct {
	Shape   string
	Entries []Entry
	// Skipped counts values that were neither a path string nor a record
	// carrying a path.
	Skipped int
}

// decoder tries one artifact shape. ok is false when the input is not
// that shape, in which case the next decoder is tried.
type decoder struct {
	shape  string
	decode func(raw json.RawMessage) (ex Extraction, ok bool)
}

// decoders are tried in order; the first that accepts the input wins.
var decoders = []decoder{
	{shape: "string-sequence", decode: decodeStringSequence},
	{shape: "record-sequence", decode: decodeRecordSequence},
	{shape: "mapping", decode: decodeMapping},
}

// pathKeys are checked in order on record-shaped values.
var pathKeys = []string{"filepath", "path", "value"}

// hashKeys are checked in order on record-shaped values.
var hashKeys = []string{"hash", "sha256", "content_hash"}

// ExtractEntries decodes a raw artifact. Input that matches none of the
// supported shapes is a MalformedInput error.
func ExtractEntries(data []byte) (Extraction, error) {
	trimmed := bytes.TrimSpace(data)
	if !json.Valid(trimmed) {
		return Extraction{}, apperr.Newf(apperr.MalformedInput, "artifact is not valid JSON")
	}
	for _, d := range decoders {
		if ex, ok := d.decode(trimmed); ok {
			ex.Shape = d.shape
			return ex, nil
		}
	}
	return Extraction{}, apperr.Newf(apperr.MalformedInput, "unsupported artifact shape starting with %q", firstByte(trimmed))
}

func decodeStringSequence(raw json.RawMessage) (Extraction, bool) {
	var paths []string
	if err := json.Unmarshal(raw, &paths); err != nil || paths == nil {
		return Extraction{}, false
	}
	ex := Extraction{Entries: make([]Entry, 0, len(paths))}
	for _, p := range paths {
		ex.Entries = append(ex.Entries, Entry{Path: p})
	}
	return ex, true
}

// decodeRecordSequence accepts any array. String elements are kept so that
// mixed arrays of strings and records still yield every path.
func decodeRecordSequence(raw json.RawMessage) (Extraction, bool) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil || firstByte(raw) != '[' {
		return Extraction{}, false
	}
	var ex Extraction
	for _, item := range items {
		if e, ok := entryFromValue(item); ok {
			ex.Entries = append(ex.Entries, e)
		} else {
			ex.Skipped++
		}
	}
	return ex, true
}

// decodeMapping walks object values in document order. Values may be a
// path string, a record, or an array of those.
func decodeMapping(raw json.RawMessage) (Extraction, bool) {
	values, err := objectValues(raw)
	if err != nil {
		return Extraction{}, false
	}
	var ex Extraction
	for _, v := range values {
		if firstByte(v) == '[' {
			var items []json.RawMessage
			if err := json.Unmarshal(v, &items); err != nil {
				ex.Skipped++
				continue
			}
			for _, item := range items {
				if e, ok := entryFromValue(item); ok {
					ex.Entries = append(ex.Entries, e)
				} else {
					ex.Skipped++
				}
			}
			continue
		}
		if e, ok := entryFromValue(v); ok {
			ex.Entries = append(ex.Entries, e)
		} else {
			ex.Skipped++
		}
	}
	return ex, true
}

// entryFromValue accepts a JSON string or a record with a path key.
func entryFromValue(raw json.RawMessage) (Entry, bool) {
	switch firstByte(raw) {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return Entry{}, false
		}
		return Entry{Path: s}, true
	case '{':
		var rec map[string]any
		if err := json.Unmarshal(raw, &rec); err != nil {
			return Entry{}, false
		}
		var e Entry
		for _, k := range pathKeys {
			if s, ok := rec[k].(string); ok {
				e.Path = s
				break
			}
		}
		if e.Path == "" {
			return Entry{}, false
		}
		for _, k := range hashKeys {
			if s, ok := rec[k].(string); ok && s != "" {
				e.Hash = s
				break
			}
		}
		return e, true
	default:
		return Entry{}, false
	}
}

// objectValues returns the values of a JSON object in document order.
func objectValues(raw json.RawMessage) ([]json.RawMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("not an object")
	}
	var values []json.RawMessage
	for dec.More() {
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		var v json.RawMessage
		if err := dec.Decode(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	if _, err := dec.Token(); err != nil && err != io.EOF {
		return nil, err
	}
	return values, nil
}

func firstByte(raw []byte) byte {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return 0
	}
	return raw[0]
}
