package codechunk

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
	python "github.com/tree-sitter/tree-sitter-python/bindings/go"
)

// pythonExtractor extracts top-level functions, class declarations, and
// methods inside a class body, using a leading underscore as the
// convention-based visibility boundary.
type pythonExtractor struct {
	lang *sitter.Language
}

func newPythonExtractor() *pythonExtractor {
	return &pythonExtractor{lang: sitter.NewLanguage(python.Language())}
}

func (e *pythonExtractor) Extract(path string, source []byte, opts Options) ([]Chunk, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	if err := parser.SetLanguage(e.lang); err != nil {
		return nil, err
	}

	tree := parser.Parse(source, nil)
	if tree == nil {
		return nil, nil
	}
	defer tree.Close()

	var chunks []Chunk
	walk(tree.RootNode(), func(n *sitter.Node) bool {
		switch n.Kind() {
		case "class_definition":
			if c, ok := e.extractClass(n, source, opts); ok {
				chunks = append(chunks, c)
			}
			chunks = append(chunks, e.extractMethods(n, source, opts)...)
			return false
		case "function_definition":
			if isTopLevel(n) {
				if c, ok := e.extractFunction(n, source, "", opts); ok {
					chunks = append(chunks, c)
				}
			}
		}
		return true
	})

	return chunks, nil
}

func isTopLevel(node *sitter.Node) bool {
	parent := node.Parent()
	for parent != nil {
		switch parent.Kind() {
		case "class_definition", "function_definition":
			return false
		case "module":
			return true
		}
		parent = parent.Parent()
	}
	return true
}

func (e *pythonExtractor) extractClass(node *sitter.Node, source []byte, opts Options) (Chunk, bool) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return Chunk{}, false
	}

	name := nodeText(nameNode, source)
	vis := pythonVisibility(name)
	if vis == Private && !opts.IncludePrivate {
		return Chunk{}, false
	}

	sig := NormalizeSignature(name)
	body := node.ChildByFieldName("body")

	return Chunk{
		Language:      "python",
		Kind:          KindStructLike,
		QualifiedName: name,
		Signature:     sig,
		SignatureHash: SignatureHash(sig),
		DocComment:    leadingDocstring(body, source),
		BodyStart:     startLine(node),
		BodyEnd:       endLine(node),
		Visibility:    vis,
		ContentHash:   ContentHash(nodeText(node, source)),
	}, true
}

func (e *pythonExtractor) extractMethods(class *sitter.Node, source []byte, opts Options) []Chunk {
	nameNode := class.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	className := nodeText(nameNode, source)

	body := class.ChildByFieldName("body")
	if body == nil {
		return nil
	}

	var chunks []Chunk
	for i := uint(0); i < body.ChildCount(); i++ {
		child := body.Child(i)
		if child.Kind() != "function_definition" {
			continue
		}
		if c, ok := e.extractFunction(child, source, className, opts); ok {
			chunks = append(chunks, c)
		}
	}
	return chunks
}

func (e *pythonExtractor) extractFunction(node *sitter.Node, source []byte, className string, opts Options) (Chunk, bool) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return Chunk{}, false
	}

	name := nodeText(nameNode, source)
	vis := pythonVisibility(name)
	if vis == Private && !opts.IncludePrivate {
		return Chunk{}, false
	}

	qualified := name
	kind := KindFunction
	if className != "" {
		qualified = className + "." + name
		kind = KindMethod
	}

	sig := NormalizeSignature(buildPythonSignature(node, source))
	body := node.ChildByFieldName("body")

	return Chunk{
		Language:      "python",
		Kind:          kind,
		QualifiedName: qualified,
		Signature:     sig,
		SignatureHash: SignatureHash(sig),
		DocComment:    leadingDocstring(body, source),
		BodyStart:     startLine(node),
		BodyEnd:       endLine(node),
		Visibility:    vis,
		ContentHash:   ContentHash(nodeText(node, source)),
	}, true
}

func buildPythonSignature(node *sitter.Node, source []byte) string {
	nameNode := node.ChildByFieldName("name")
	name := nodeText(nameNode, source)
	params := node.ChildByFieldName("parameters")
	ret := node.ChildByFieldName("return_type")

	sig := name
	if params != nil {
		sig += nodeText(params, source)
	} else {
		sig += "()"
	}
	if ret != nil {
		sig += " -> " + nodeText(ret, source)
	}
	return sig
}

// pythonVisibility applies the dunder/leading-underscore convention: every
// dunder name (leading and trailing "__") is public, and any other name
// with a leading underscore is private.
func pythonVisibility(name string) Visibility {
	if strings.HasPrefix(name, "__") && strings.HasSuffix(name, "__") {
		return Public
	}
	if strings.HasPrefix(name, "_") {
		return Private
	}
	return Public
}
