package codechunk

import (
	sitter "github.com/tree-sitter/go-tree-sitter"
	rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"
)

// rustExtractor extracts functions, impl-block methods, structs, enums, and
// traits from a Rust source file, using `pub` as the visibility boundary.
type rustExtractor struct {
	lang *sitter.Language
}

func newRustExtractor() *rustExtractor {
	return &rustExtractor{lang: sitter.NewLanguage(rust.Language())}
}

func (e *rustExtractor) Extract(path string, source []byte, opts Options) ([]Chunk, error) {
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
		case "impl_item":
			chunks = append(chunks, e.extractImpl(n, source, opts)...)
			return false
		case "function_item":
			if c, ok := e.extractFunction(n, source, "", opts); ok {
				chunks = append(chunks, c)
			}
		case "struct_item":
			if c, ok := e.extractTypeDecl(n, source, KindStructLike, opts); ok {
				chunks = append(chunks, c)
			}
		case "enum_item":
			if c, ok := e.extractTypeDecl(n, source, KindStructLike, opts); ok {
				chunks = append(chunks, c)
			}
		case "trait_item":
			if c, ok := e.extractTypeDecl(n, source, KindTraitLike, opts); ok {
				chunks = append(chunks, c)
			}
		}
		return true
	})

	return chunks, nil
}

func (e *rustExtractor) extractImpl(node *sitter.Node, source []byte, opts Options) []Chunk {
	typeNode := node.ChildByFieldName("type")
	if typeNode == nil {
		return nil
	}
	typeName := nodeText(typeNode, source)

	body := node.ChildByFieldName("body")
	if body == nil {
		return nil
	}

	var chunks []Chunk
	for i := uint(0); i < body.ChildCount(); i++ {
		child := body.Child(i)
		if child.Kind() != "function_item" {
			continue
		}
		if c, ok := e.extractFunction(child, source, typeName, opts); ok {
			chunks = append(chunks, c)
		}
	}
	return chunks
}

func (e *rustExtractor) extractFunction(node *sitter.Node, source []byte, typeName string, opts Options) (Chunk, bool) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return Chunk{}, false
	}

	vis := visibilityOf(node)
	if vis == Private && !opts.IncludePrivate {
		return Chunk{}, false
	}

	name := nodeText(nameNode, source)
	qualified := name
	kind := KindFunction
	if typeName != "" {
		qualified = typeName + "::" + name
		kind = KindMethod
	}

	sig := buildRustSignature(node, source, typeName)
	normSig := NormalizeSignature(sig)

	return Chunk{
		Path:          "",
		Language:      "rust",
		Kind:          kind,
		QualifiedName: qualified,
		Signature:     normSig,
		SignatureHash: SignatureHash(normSig),
		DocComment:    precedingLineComments(node, source, "line_comment", "///"),
		BodyStart:     startLine(node),
		BodyEnd:       endLine(node),
		Visibility:    vis,
		ContentHash:   ContentHash(nodeText(node, source)),
	}, true
}

func (e *rustExtractor) extractTypeDecl(node *sitter.Node, source []byte, kind Kind, opts Options) (Chunk, bool) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return Chunk{}, false
	}

	vis := visibilityOf(node)
	if vis == Private && !opts.IncludePrivate {
		return Chunk{}, false
	}

	name := nodeText(nameNode, source)
	sig := NormalizeSignature(name)

	return Chunk{
		Language:      "rust",
		Kind:          kind,
		QualifiedName: name,
		Signature:     sig,
		SignatureHash: SignatureHash(sig),
		DocComment:    precedingLineComments(node, source, "line_comment", "///"),
		BodyStart:     startLine(node),
		BodyEnd:       endLine(node),
		Visibility:    vis,
		ContentHash:   ContentHash(nodeText(node, source)),
	}, true
}

// buildRustSignature reconstructs a qualified signature string from a
// function_item's name, parameter list, and return type fields, skipping the
// body so that reformatting the body never touches the signature hash.
func buildRustSignature(node *sitter.Node, source []byte, typeName string) string {
	nameNode := node.ChildByFieldName("name")
	name := nodeText(nameNode, source)
	params := node.ChildByFieldName("parameters")
	ret := node.ChildByFieldName("return_type")

	sig := ""
	if typeName != "" {
		sig = typeName + "::"
	}
	sig += name
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

// visibilityOf reports Public when any of node's direct children is a `pub`
// visibility_modifier, Private otherwise. Crate- and path-restricted
// visibility (pub(crate), pub(super)) still counts as Public: the spec's
// boundary is "would a consumer outside this file see it", and Rust module
// privacy finer than that is out of scope for a cross-language heuristic.
func visibilityOf(node *sitter.Node) Visibility {
	for i := uint(0); i < node.ChildCount(); i++ {
		if node.Child(i).Kind() == "visibility_modifier" {
			return Public
		}
	}
	return Private
}
