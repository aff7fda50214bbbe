package docsentinel

import (
	"strings"

	"github.com/docsentinel/docsentinel/internal/driftengine"
	"github.com/docsentinel/docsentinel/internal/embedindex"
	"github.com/docsentinel/docsentinel/internal/store"
)

// AnalysisReport is the ad-hoc, no-diff view of a single target's current
// drift-relevant state: what it matched, what documentation mentions it, and
// (if requested) its nearest neighbors in the embedding index. Unlike Scan,
// Analyze never writes to the store -- it is a read-only query against
// whatever the last scan committed.
type AnalysisReport struct {
	Target      string
	CodeChunks  []store.CodeChunkRow
	RelatedDocs []store.DocChunkRow
	SimilarDocs map[string][]embedindex.Neighbor // keyed by code chunk identity
}

// Analyze matches target against every currently known code chunk's path or
// qualified name (substring, case-insensitive), then optionally collects the
// documentation that mentions each match and/or its nearest neighbors in the
// persisted embedding index.
func (s *Session) Analyze(target string, docs, similarity bool) (*AnalysisReport, error) {
	allCode, err := s.store.ListCodeChunks()
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(target)
	var matches []store.CodeChunkRow
	for _, c := range allCode {
		if strings.Contains(strings.ToLower(c.Path), needle) || strings.Contains(strings.ToLower(c.QualifiedName), needle) {
			matches = append(matches, c)
		}
	}

	report := &AnalysisReport{Target: target, CodeChunks: matches}

	if docs && len(matches) > 0 {
		allDocs, err := s.store.ListDocChunks()
		if err != nil {
			return nil, err
		}
		mentions, err := driftengine.NewMentionIndex(allDocs)
		if err != nil {
			return nil, err
		}
		defer mentions.Close()

		seen := map[string]bool{}
		for _, c := range matches {
			_, hits := mentions.Mentions(c.QualifiedName)
			for _, h := range hits {
				if seen[h.Identity] {
					continue
				}
				seen[h.Identity] = true
				report.RelatedDocs = append(report.RelatedDocs, h)
			}
		}
	}

	if similarity && len(matches) > 0 {
		report.SimilarDocs = map[string][]embedindex.Neighbor{}
		for _, c := range matches {
			vec, err := s.store.CodeChunkVector(c.Identity)
			if err != nil || vec == nil {
				continue
			}
			neighbors, err := s.store.TopK(vec, s.cfg.TopK, map[string]bool{c.Identity: true})
			if err != nil {
				continue
			}
			report.SimilarDocs[c.Identity] = neighbors
		}
	}

	return report, nil
}
