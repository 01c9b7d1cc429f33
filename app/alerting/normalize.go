package alerting

import "strings"

// Tree is a parsed XML or feed document: element names map to strings,
// nested trees, []any for repeated elements, or typed feed values.
type Tree map[string]any

// Keys produced by the XML decoder for attributes and mixed text content.
const (
	AttrKey = "$"
	TextKey = "#text"
)

// ReservedPrefixes lists key prefixes that mark parser artifacts. Checked in order.
var ReservedPrefixes = []string{"rss", "atom", "#", "@", "$", "Signature"}

// Normalize returns a copy of t without keys that start with a reserved
// prefix. Only the top level is filtered; surviving values are kept as is.
// A nil tree normalizes to an empty one.
func Normalize(t Tree) Tree {
	normalized := make(Tree, len(t))
	for key, value := range t {
		if isReserved(key) {
			continue
		}
		normalized[key] = value
	}
	return normalized
}

func isReserved(key string) bool {
	for _, prefix := range ReservedPrefixes {
		if strings.HasPrefix(key, prefix) {
			return true
		}
	}
	return false
}

// String returns the text value stored under key. Repeated elements yield
// their first value and elements with attributes yield their text content.
func (t Tree) String(key string) string {
	return textOf(t[key])
}

// Strings returns every text value stored under key.
func (t Tree) Strings(key string) []string {
	var values []string
	for _, v := range listOf(t[key]) {
		if s := textOf(v); s != "" {
			values = append(values, s)
		}
	}
	return values
}

// Trees returns every nested tree stored under key, in document order.
func (t Tree) Trees(key string) []Tree {
	var trees []Tree
	for _, v := range listOf(t[key]) {
		switch node := v.(type) {
		case Tree:
			trees = append(trees, node)
		case map[string]any:
			trees = append(trees, Tree(node))
		}
	}
	return trees
}

func listOf(v any) []any {
	switch value := v.(type) {
	case nil:
		return nil
	case []any:
		return value
	case []string:
		list := make([]any, 0, len(value))
		for _, s := range value {
			list = append(list, s)
		}
		return list
	default:
		return []any{value}
	}
}

func textOf(v any) string {
	switch value := v.(type) {
	case string:
		return value
	case []any:
		if len(value) > 0 {
			return textOf(value[0])
		}
	case []string:
		if len(value) > 0 {
			return value[0]
		}
	case Tree:
		return textOf(value[TextKey])
	case map[string]any:
		return textOf(value[TextKey])
	}
	return ""
}
