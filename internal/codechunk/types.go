// Package codechunk implements the Code Chunk Extractor: it parses a code
// blob into one chunk per exported top-level function, method, or
// struct/enum/trait-like declaration, dispatched by file extension to a
// tree-sitter grammar.
package codechunk

// Kind is the symbol kind a chunk represents.
type Kind string

const (
	KindFunction   Kind = "function"
	KindMethod     Kind = "method"
	KindStructLike Kind = "struct-like"
	KindTraitLike  Kind = "trait-like"
)

// Visibility is whether a symbol would be extracted without opting private
// symbols in.
type Visibility string

const (
	Public  Visibility = "public"
	Private Visibility = "private"
)

// Chunk is one extracted code symbol.
type Chunk struct {
	Path          string
	Language      string
	Kind          Kind
	QualifiedName string
	Signature     string
	SignatureHash string
	DocComment    string
	BodyStart     int
	BodyEnd       int
	Visibility    Visibility
	ContentHash   string
}

// Identity returns the (path, qualified_name, language) tuple the store uses
// as the chunk's primary key, joined in a form safe to use as a map key or
// SQL text column.
func (c Chunk) Identity() string {
	return c.Path + "\x00" + c.QualifiedName + "\x00" + c.Language
}

// Options controls extraction behavior.
type Options struct {
	// IncludePrivate opts private symbols into the result. Default false.
	IncludePrivate bool
}
