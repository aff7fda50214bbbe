package codechunk

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// LanguageExtractor is the per-language dispatcher contract. Adding a
// language means implementing this interface and registering it in
// registry.go against the extensions it owns -- no other package changes.
type LanguageExtractor interface {
	Extract(path string, source []byte, opts Options) ([]Chunk, error)
}

// nodeText returns the source text spanned by node.
func nodeText(node *sitter.Node, source []byte) string {
	if node == nil {
		return ""
	}
	return string(source[node.StartByte():node.EndByte()])
}

func startLine(node *sitter.Node) int { return int(node.StartPosition().Row) + 1 }
func endLine(node *sitter.Node) int   { return int(node.EndPosition().Row) + 1 }

// walk performs a depth-first traversal of the tree rooted at node, calling
// visit for every node. Returning false from visit skips that node's
// children (used to avoid descending into a handled impl/class body twice).
func walk(node *sitter.Node, visit func(*sitter.Node) bool) {
	if node == nil {
		return
	}
	if !visit(node) {
		return
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		walk(node.Child(i), visit)
	}
}

// precedingLineComments collects a contiguous run of line-comment siblings
// immediately above node (skipping none, since tree-sitter puts comments as
// ordinary siblings) whose text carries the given doc-comment marker, e.g.
// "///" for Rust. Comments are returned in source order with the marker and
// one following space stripped.
func precedingLineComments(node *sitter.Node, source []byte, commentKind, marker string) string {
	parent := node.Parent()
	if parent == nil {
		return ""
	}

	var idx = -1
	for i := uint(0); i < parent.ChildCount(); i++ {
		if parent.Child(i) == node {
			idx = int(i)
			break
		}
	}
	if idx <= 0 {
		return ""
	}

	var lines []string
	i := idx - 1
	for i >= 0 {
		child := parent.Child(uint(i))
		if child.Kind() != commentKind {
			break
		}
		text := strings.TrimSpace(nodeText(child, source))
		if !strings.HasPrefix(text, marker) {
			break
		}
		lines = append([]string{strings.TrimSpace(strings.TrimPrefix(text, marker))}, lines...)
		i--
	}

	return strings.Join(lines, "\n")
}

// leadingDocstring returns the text of a string-literal expression statement
// that is the first statement of body, Python's docstring convention. The
// triple-quote delimiters are stripped.
func leadingDocstring(body *sitter.Node, source []byte) string {
	if body == nil || body.ChildCount() == 0 {
		return ""
	}
	first := body.Child(0)
	if first.Kind() != "expression_statement" || first.ChildCount() == 0 {
		return ""
	}
	str := first.Child(0)
	if str.Kind() != "string" {
		return ""
	}
	text := nodeText(str, source)
	text = strings.TrimPrefix(text, "\"\"\"")
	text = strings.TrimSuffix(text, "\"\"\"")
	text = strings.TrimPrefix(text, "'''")
	text = strings.TrimSuffix(text, "'''")
	return strings.TrimSpace(text)
}
