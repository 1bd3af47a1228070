package retrieval

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// fencedJSON matches the first ```json fenced block and captures its body.
var fencedJSON = regexp.MustCompile("```json[ \\t]*\\r?\\n([\\s\\S]+?)\\r?\\n[ \\t]*```")

// ExtractJSON returns the contents of the first ```json fenced block in
// response, or response itself when there is none.
func ExtractJSON(response string) string {
	if m := fencedJSON.FindStringSubmatch(response); m != nil {
		return m[1]
	}
	return response
}

// ParseArray decodes the JSON array carried by an LLM response.
func ParseArray(response string) ([]any, error) {
	var v any
	if err := json.Unmarshal([]byte(strings.TrimSpace(ExtractJSON(response))), &v); err != nil {
		return nil, err
	}
	arr, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("expected a JSON array, got %s", jsonKind(v))
	}
	return arr, nil
}

// ParseObject decodes the JSON object carried by an LLM response.
func ParseObject(response string) (map[string]any, error) {
	var v any
	if err := json.Unmarshal([]byte(strings.TrimSpace(ExtractJSON(response))), &v); err != nil {
		return nil, err
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected a JSON object, got %s", jsonKind(v))
	}
	return obj, nil
}

func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case float64:
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	default:
		return "object"
	}
}
