package driftengine

import (
	"fmt"

	"github.com/docsentinel/docsentinel/internal/embedindex"
	"github.com/docsentinel/docsentinel/internal/store"
)

// SimilarityIndex answers top-k nearest-doc-chunk queries for a query
// vector. embedindex.Index satisfies it directly (an in-memory index built
// for a single scan); the store also satisfies it by running its
// sqlite-vec-backed KNN query, so the engine can run soft rules against the
// full current doc corpus without the caller assembling an in-memory copy
// of every embedding.
type SimilarityIndex interface {
	TopK(query []float32, k int, exclude map[string]bool) ([]embedindex.Neighbor, error)
}

// evaluateSoftRules runs LowSimilarity and SimilarityDrop against docIndex
// (the doc chunks currently on file, keyed by doc chunk identity for
// evidence lookups) using each changed code chunk's current -- and where
// applicable, previous -- embedding.
//
// SimilarityDrop's "previously nearest doc chunk" is approximated by
// re-querying docIndex with the chunk's previous embedding: the doc chunk
// set itself may also have moved between scans, so this is nearest-by-old-
// vector-against-current-docs rather than a literally re-fetched historical
// neighbor, a deliberate simplification since the store keeps only current
// vectors, not a full embedding history.
func evaluateSoftRules(changes []CodeChunkChange, docIndex SimilarityIndex, docByID map[string]store.DocChunkRow, threshold float64, topK int) ([]Finding, error) {
	var findings []Finding

	for _, c := range changes {
		if c.Current == nil || c.Current.Embedding == nil {
			continue
		}

		if c.Changed() || c.Added() {
			neighbors, err := docIndex.TopK(c.Current.Embedding, topK, nil)
			if err != nil {
				return nil, fmt.Errorf("driftengine: querying top-%d for %s: %w", topK, c.Identity, err)
			}
			if len(neighbors) == 0 {
				continue
			}
			maxSim := neighbors[0].Similarity
			for _, n := range neighbors {
				if n.Similarity > maxSim {
					maxSim = n.Similarity
				}
			}
			if clampSimilarity(maxSim) < threshold {
				findings = append(findings, lowSimilarityFinding(c, clampSimilarity(maxSim), neighbors[0].ID, docByID))
			}
		}

		if c.Changed() && c.Previous != nil && c.Previous.Embedding != nil {
			prevNeighbors, err := docIndex.TopK(c.Previous.Embedding, 1, nil)
			if err != nil {
				return nil, fmt.Errorf("driftengine: querying previous top-1 for %s: %w", c.Identity, err)
			}
			newNeighbors, err := docIndex.TopK(c.Current.Embedding, 1, nil)
			if err != nil {
				return nil, fmt.Errorf("driftengine: querying current top-1 for %s: %w", c.Identity, err)
			}
			if len(prevNeighbors) == 0 || len(newNeighbors) == 0 {
				continue
			}

			prevSim := clampSimilarity(prevNeighbors[0].Similarity)
			newSim := clampSimilarity(newNeighbors[0].Similarity)
			drop := prevSim - newSim
			if drop >= 0.10 {
				findings = append(findings, similarityDropFinding(c, drop, newNeighbors[0].ID, docByID))
			}
		}
	}

	return findings, nil
}

func clampSimilarity(sim float64) float64 {
	if sim < 0 {
		return 0
	}
	if sim > 1 {
		return 1
	}
	return sim
}

func lowSimilarityFinding(c CodeChunkChange, maxSim float64, nearestID string, docByID map[string]store.DocChunkRow) Finding {
	related := relatedDocID(nearestID)
	return Finding{
		Rule:        RuleLowSimilarity,
		Severity:    SeverityLow,
		Confidence:  maxSim,
		Description: fmt.Sprintf("%s's nearest documentation is only %.2f similar", c.Current.QualifiedName, maxSim),
		Evidence:    fmt.Sprintf("max similarity across top-k doc chunks: %.4f\nnearest: %s", maxSim, describeDoc(nearestID, docByID)),
		RelatedCode: []string{c.Identity},
		RelatedDoc:  related,
	}
}

func similarityDropFinding(c CodeChunkChange, drop float64, nearestID string, docByID map[string]store.DocChunkRow) Finding {
	related := relatedDocID(nearestID)
	return Finding{
		Rule:        RuleSimilarityDrop,
		Severity:    SeverityMedium,
		Confidence:  clampSimilarity(drop),
		Description: fmt.Sprintf("%s drifted %.2f away from its previously nearest documentation", c.Current.QualifiedName, drop),
		Evidence:    fmt.Sprintf("similarity drop: %.4f\nnearest now: %s", drop, describeDoc(nearestID, docByID)),
		RelatedCode: []string{c.Identity},
		RelatedDoc:  related,
	}
}

func relatedDocID(id string) []string {
	if id == "" {
		return nil
	}
	return []string{id}
}

func describeDoc(id string, docByID map[string]store.DocChunkRow) string {
	d, ok := docByID[id]
	if !ok {
		return id
	}
	return fmt.Sprintf("%s (%s)", d.Path, d.HeadingPath)
}
