package walker

import (
	"fmt"

	"github.com/gobwas/glob"
)

// Classifier classifies a repo-relative path as code, doc, or ignored, using
// three sets of compiled glob patterns evaluated in a fixed order so that an
// ignore pattern always wins over a doc or code pattern, and doc wins over
// code, matching the project's own file-discovery pattern (internal package
// historically compiled one []glob.Glob per category and walked them in
// order of precedence; see DESIGN.md).
type Classifier struct {
	ignore []glob.Glob
	doc    []glob.Glob
	code   []glob.Glob
}

// NewClassifier compiles the three pattern lists. Patterns use '/' as the
// path separator, so "**/*.md" matches at any depth.
func NewClassifier(codePatterns, docPatterns, ignorePatterns []string) (*Classifier, error) {
	c := &Classifier{}

	for _, p := range ignorePatterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("compile ignore pattern %q: %w", p, err)
		}
		c.ignore = append(c.ignore, g)
	}
	for _, p := range docPatterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("compile doc pattern %q: %w", p, err)
		}
		c.doc = append(c.doc, g)
	}
	for _, p := range codePatterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("compile code pattern %q: %w", p, err)
		}
		c.code = append(c.code, g)
	}

	return c, nil
}

// Classify returns the Class for path: ignore-patterns are checked first,
// then doc-patterns, then code-patterns; the first match wins, and an
// unmatched path is ignored. Each pattern is also tried against path with a
// leading '/', since a compiled "**/" prefix otherwise requires a slash and
// would never match a file at the repository root.
func (c *Classifier) Classify(path string) Class {
	for _, g := range c.ignore {
		if g.Match(path) || g.Match("/"+path) {
			return ClassIgnored
		}
	}
	for _, g := range c.doc {
		if g.Match(path) || g.Match("/"+path) {
			return ClassDoc
		}
	}
	for _, g := range c.code {
		if g.Match(path) || g.Match("/"+path) {
			return ClassCode
		}
	}
	return ClassIgnored
}
