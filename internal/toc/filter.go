package toc

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/Trail-HEAD-Outfitters/SourceSherpa/internal/apperr"
)

// Op is a comparison applied to one record field.
type Op string

const (
	OpEq       Op = "$eq"
	OpNe       Op = "$ne"
	OpIn       Op = "$in"
	OpNotIn    Op = "$nin"
	OpRegex    Op = "$regex"
	OpContains Op = "$contains"
	OpExists   Op = "$exists"
)

// Condition compares a record field against Values. Equality style
// operators compare case-insensitively.
type Condition struct {
	Field  string
	Op     Op
	Values []string
}

// Node is a boolean expression over conditions.
type Node struct {
	// Or joins Children with OR instead of AND.
	Or       bool
	Children []Node
	Cond     *Condition
}

// IsLeaf reports whether the node holds a single condition.
func (n Node) IsLeaf() bool { return n.Cond != nil }

// Filter is a validated structured filter over feature records.
type Filter struct {
	Root Node
	// Ignored lists top-level keys that are not record fields, such as the
	// codebase_nickname and product_name hints an LLM may add.
	Ignored []string
}

// Empty reports whether the filter matches every record.
func (f Filter) Empty() bool {
	return !f.Root.IsLeaf() && len(f.Root.Children) == 0
}

// fieldAliases maps accepted keys onto canonical record fields.
var fieldAliases = map[string]string{
	"repo":            "repo",
	"program":         "program",
	"bucket":          "bucket",
	"group":           "bucket",
	"keyword":         "bucket",
	"path":            "path",
	"value":           "path",
	"filepath":        "path",
	"matched_glob":    "matched_glob",
	"matched_pattern": "matched_glob",
	"notes":           "notes",
	"source_artifact": "source_artifact",
	"source_file":     "source_artifact",
	"hash":            "hash",
	"content_hash":    "hash",
	"lang":            "lang",
	"language":        "lang",
}

// Fields lists the canonical filterable fields.
var Fields = []string{"repo", "program", "bucket", "path", "matched_glob", "notes", "source_artifact", "hash", "lang"}

// CanonicalField resolves a key or alias to its canonical field name.
func CanonicalField(key string) (string, bool) {
	f, ok := fieldAliases[strings.ToLower(key)]
	return f, ok
}

const maxFilterDepth = 4

// ParseFilter validates a JSON-decoded filter object. Unknown plain keys are
// ignored and reported; unknown operators are an InvalidArgument error.
func ParseFilter(raw map[string]any) (Filter, error) {
	var f Filter
	root, err := parseObject(raw, 0, &f.Ignored)
	if err != nil {
		return Filter{}, err
	}
	f.Root = root
	return f, nil
}

func parseObject(obj map[string]any, depth int, ignored *[]string) (Node, error) {
	if depth > maxFilterDepth {
		return Node{}, apperr.Newf(apperr.InvalidArgument, "filter nesting deeper than %d levels", maxFilterDepth)
	}

	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var node Node
	for _, key := range keys {
		val := obj[key]
		if strings.HasPrefix(key, "$") {
			child, err := parseLogical(key, val, depth, ignored)
			if err != nil {
				return Node{}, err
			}
			node.Children = append(node.Children, child)
			continue
		}

		field, ok := CanonicalField(key)
		if !ok {
			if ignored != nil {
				*ignored = append(*ignored, key)
			}
			continue
		}
		conds, err := parseCondition(field, val)
		if err != nil {
			return Node{}, err
		}
		for i := range conds {
			node.Children = append(node.Children, Node{Cond: &conds[i]})
		}
	}
	return node, nil
}

func parseLogical(op string, val any, depth int, ignored *[]string) (Node, error) {
	if op != "$and" && op != "$or" {
		return Node{}, apperr.Newf(apperr.InvalidArgument, "unsupported filter operator %q", op)
	}
	items, ok := val.([]any)
	if !ok || len(items) == 0 {
		return Node{}, apperr.Newf(apperr.InvalidArgument, "%s expects a non-empty array of objects", op)
	}
	node := Node{Or: op == "$or"}
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return Node{}, apperr.Newf(apperr.InvalidArgument, "%s expects a non-empty array of objects", op)
		}
		child, err := parseObject(obj, depth+1, ignored)
		if err != nil {
			return Node{}, err
		}
		node.Children = append(node.Children, child)
	}
	return node, nil
}

func parseCondition(field string, val any) ([]Condition, error) {
	switch v := val.(type) {
	case []any:
		values, err := scalarList(field, v)
		if err != nil {
			return nil, err
		}
		return []Condition{{Field: field, Op: OpIn, Values: values}}, nil
	case map[string]any:
		return parseOperators(field, v)
	default:
		s, err := scalar(field, v)
		if err != nil {
			return nil, err
		}
		return []Condition{{Field: field, Op: OpEq, Values: []string{s}}}, nil
	}
}

func parseOperators(field string, ops map[string]any) ([]Condition, error) {
	keys := make([]string, 0, len(ops))
	for k := range ops {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var conds []Condition
	for _, k := range keys {
		v := ops[k]
		switch Op(k) {
		case OpEq, OpNe, OpContains:
			s, err := scalar(field, v)
			if err != nil {
				return nil, err
			}
			conds = append(conds, Condition{Field: field, Op: Op(k), Values: []string{s}})
		case OpIn, OpNotIn:
			list, ok := v.([]any)
			if !ok {
				return nil, apperr.Newf(apperr.InvalidArgument, "%s on %s expects an array", k, field)
			}
			values, err := scalarList(field, list)
			if err != nil {
				return nil, err
			}
			conds = append(conds, Condition{Field: field, Op: Op(k), Values: values})
		case OpRegex:
			pattern, ok := v.(string)
			if !ok {
				return nil, apperr.Newf(apperr.InvalidArgument, "$regex on %s expects a string", field)
			}
			if _, err := regexp.Compile("(?i)" + pattern); err != nil {
				return nil, apperr.New(apperr.InvalidArgument, fmt.Sprintf("invalid $regex on %s", field), err)
			}
			conds = append(conds, Condition{Field: field, Op: OpRegex, Values: []string{pattern}})
		case OpExists:
			b, ok := v.(bool)
			if !ok {
				return nil, apperr.Newf(apperr.InvalidArgument, "$exists on %s expects a boolean", field)
			}
			conds = append(conds, Condition{Field: field, Op: OpExists, Values: []string{strconv.FormatBool(b)}})
		case "$options":
			// Regex options are implied: matching is always case-insensitive.
		default:
			return nil, apperr.Newf(apperr.InvalidArgument, "unsupported filter operator %q on %s", k, field)
		}
	}
	if len(conds) == 0 {
		return nil, apperr.Newf(apperr.InvalidArgument, "empty condition on %s", field)
	}
	return conds, nil
}

// scalar renders a JSON scalar as the string stored in the record. null
// stands for an absent optional field.
func scalar(field string, v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "", nil
	case string:
		return x, nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(x), nil
	default:
		return "", apperr.Newf(apperr.InvalidArgument, "unsupported value of type %T for %s", v, field)
	}
}

func scalarList(field string, items []any) ([]string, error) {
	out := make([]string, 0, len(items))
	for _, it := range items {
		s, err := scalar(field, it)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}
