package driftengine

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/docsentinel/docsentinel/internal/store"
)

// MentionIndex answers "does any doc chunk mention this qualified name" for
// the SignatureChanged, SymbolRemoved, and SymbolAdded hard rules. It is
// built fresh per scan from the doc chunks touched by that scan (plus
// whatever untouched doc chunks the engine chooses to carry forward) and
// discarded afterward -- it is a scan-scoped index, not a store.
//
// The store's obligation is substring matching ("does this qualified name
// appear in the section content or heading path"); bleve's wildcard query
// gives a fast first pass over documents that could possibly contain the
// name, and a literal strings.Contains on the matched documents confirms it
// so the analyzer never produces a false positive relative to the spec's
// substring rule. A name holding any rune other than a letter, digit or
// underscore (such as "Type::method") is split by the analyzer into several
// terms, none of which the wildcard matches, so such names skip bleve and
// are checked against every indexed chunk directly.
type MentionIndex struct {
	index bleve.Index
	byID  map[string]store.DocChunkRow
}

func docMentionMapping() *mapping.IndexMappingImpl {
	im := bleve.NewIndexMapping()

	content := bleve.NewTextFieldMapping()
	content.Analyzer = "standard"
	content.Store = false
	content.Index = true

	doc := bleve.NewDocumentMapping()
	doc.AddFieldMappingsAt("content", content)
	doc.AddFieldMappingsAt("heading_path", content)

	im.DefaultMapping = doc
	return im
}

// NewMentionIndex builds an in-memory bleve index over the given doc
// chunks (which should exclude chunks with a non-empty RevisionRemoved).
func NewMentionIndex(docChunks []store.DocChunkRow) (*MentionIndex, error) {
	idx, err := bleve.NewMemOnly(docMentionMapping())
	if err != nil {
		return nil, fmt.Errorf("driftengine: creating mention index: %w", err)
	}

	byID := make(map[string]store.DocChunkRow, len(docChunks))
	batch := idx.NewBatch()
	for _, d := range docChunks {
		byID[d.Identity] = d
		doc := map[string]any{
			"content":      d.Content,
			"heading_path": d.HeadingPath,
		}
		if err := batch.Index(d.Identity, doc); err != nil {
			return nil, fmt.Errorf("driftengine: indexing doc chunk %s: %w", d.Identity, err)
		}
	}
	if err := idx.Batch(batch); err != nil {
		return nil, fmt.Errorf("driftengine: batch-indexing doc chunks: %w", err)
	}

	return &MentionIndex{index: idx, byID: byID}, nil
}

// Mentions reports whether any indexed doc chunk's content or heading path
// contains qualifiedName as a substring, and returns the matching chunks as
// evidence.
func (m *MentionIndex) Mentions(qualifiedName string) (bool, []store.DocChunkRow) {
	if qualifiedName == "" {
		return false, nil
	}

	needle := strings.ToLower(qualifiedName)
	if strings.IndexFunc(needle, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	}) >= 0 {
		ids := make([]string, 0, len(m.byID))
		for id := range m.byID {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		var matches []store.DocChunkRow
		for _, id := range ids {
			d := m.byID[id]
			if strings.Contains(strings.ToLower(d.Content), needle) || strings.Contains(strings.ToLower(d.HeadingPath), needle) {
				matches = append(matches, d)
			}
		}
		return len(matches) > 0, matches
	}

	pattern := "*" + strings.ToLower(qualifiedName) + "*"

	contentQuery := bleve.NewWildcardQuery(pattern)
	contentQuery.SetField("content")
	headingQuery := bleve.NewWildcardQuery(pattern)
	headingQuery.SetField("heading_path")

	query := bleve.NewDisjunctionQuery(contentQuery, headingQuery)
	req := bleve.NewSearchRequest(query)
	req.Size = len(m.byID)

	result, err := m.index.Search(req)
	if err != nil {
		return false, nil
	}

	var matches []store.DocChunkRow
	for _, hit := range result.Hits {
		doc, ok := m.byID[hit.ID]
		if !ok {
			continue
		}
		if strings.Contains(strings.ToLower(doc.Content), needle) ||
			strings.Contains(strings.ToLower(doc.HeadingPath), needle) {
			matches = append(matches, doc)
		}
	}

	return len(matches) > 0, matches
}

// Close releases the in-memory index's resources.
func (m *MentionIndex) Close() error {
	return m.index.Close()
}
