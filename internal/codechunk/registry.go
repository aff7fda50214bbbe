package codechunk

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/docsentinel/docsentinel/internal/driftcore"
)

// Registry dispatches a file path to the LanguageExtractor that owns its
// extension. Extraction never runs without a file in the registry knowing
// the extension: unrecognized extensions are the caller's problem to filter
// out (the repository walker's classifier is what decides "this is code").
type Registry struct {
	byExt map[string]LanguageExtractor
}

// languageExtensions maps each supported language's config name to the file
// extension its extractor owns. Adding a third language means adding one
// entry here and one branch to NewRegistryForLanguages.
var languageExtensions = map[string]string{
	"rust":   ".rs",
	"python": ".py",
}

// NewRegistry returns the default registry wired to every supported
// language. Adding a third language means adding one entry here.
func NewRegistry() *Registry {
	r := &Registry{byExt: map[string]LanguageExtractor{}}
	rust := newRustExtractor()
	py := newPythonExtractor()
	r.byExt[".rs"] = rust
	r.byExt[".py"] = py
	return r
}

// NewRegistryForLanguages returns a registry wired only to the given
// languages (matched case-insensitively against the names Languages uses in
// config). An empty list registers every supported language, same as
// NewRegistry.
func NewRegistryForLanguages(languages []string) *Registry {
	if len(languages) == 0 {
		return NewRegistry()
	}

	enabled := make(map[string]bool, len(languages))
	for _, l := range languages {
		enabled[strings.ToLower(l)] = true
	}

	r := &Registry{byExt: map[string]LanguageExtractor{}}
	if enabled["rust"] {
		r.byExt[".rs"] = newRustExtractor()
	}
	if enabled["python"] {
		r.byExt[".py"] = newPythonExtractor()
	}
	return r
}

// DisabledExtensions returns the file extensions of every supported
// language absent from languages, so a caller can route them to the
// Repository Walker's ignore patterns instead of its code patterns. An
// empty languages list disables nothing.
func DisabledExtensions(languages []string) []string {
	if len(languages) == 0 {
		return nil
	}
	enabled := make(map[string]bool, len(languages))
	for _, l := range languages {
		enabled[strings.ToLower(l)] = true
	}

	var disabled []string
	for lang, ext := range languageExtensions {
		if !enabled[lang] {
			disabled = append(disabled, ext)
		}
	}
	return disabled
}

// Extract dispatches path to its language extractor and stamps the
// resulting chunks with path. Returns an error wrapping ErrUnsupportedExt
// when no extractor is registered for the file's extension.
func (r *Registry) Extract(path string, source []byte, opts Options) ([]Chunk, error) {
	ext := strings.ToLower(filepath.Ext(path))
	extractor, ok := r.byExt[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %s", driftcore.ErrUnsupportedExt, ext)
	}

	chunks, err := extractor.Extract(path, source, opts)
	if err != nil {
		return nil, err
	}
	for i := range chunks {
		chunks[i].Path = path
	}
	return chunks, nil
}

// Supports reports whether path's extension has a registered extractor.
func (r *Registry) Supports(path string) bool {
	_, ok := r.byExt[strings.ToLower(filepath.Ext(path))]
	return ok
}
