package embedindex

import (
	"math"

	"github.com/docsentinel/docsentinel/internal/driftcore"
)

// CosineSimilarity returns the cosine similarity of a and b in [-1, 1].
// It returns an error wrapping ErrDimensionMismatch when the vectors have
// different lengths, since comparing across embedding models (or a
// dimension change between scans) would otherwise silently produce
// meaningless scores.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, driftcore.ErrDimensionMismatch
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}

// Neighbor is one result of a top-k similarity query.
type Neighbor struct {
	ID         string
	Similarity float64
}

// Index is a brute-force in-memory cosine-similarity index, built per scan
// over the current doc vectors. Vectors are added with AddVector and
// queried with TopK.
type Index struct {
	ids     []string
	vectors [][]float32
}

// NewIndex returns an empty Index.
func NewIndex() *Index {
	return &Index{}
}

// AddVector inserts or replaces the vector for id.
func (idx *Index) AddVector(id string, vec []float32) {
	for i, existing := range idx.ids {
		if existing == id {
			idx.vectors[i] = vec
			return
		}
	}
	idx.ids = append(idx.ids, id)
	idx.vectors = append(idx.vectors, vec)
}

// Remove deletes id from the index, if present.
func (idx *Index) Remove(id string) {
	for i, existing := range idx.ids {
		if existing == id {
			idx.ids = append(idx.ids[:i], idx.ids[i+1:]...)
			idx.vectors = append(idx.vectors[:i], idx.vectors[i+1:]...)
			return
		}
	}
}

// Len returns the number of vectors currently indexed.
func (idx *Index) Len() int { return len(idx.ids) }

// TopK returns the k nearest neighbors to query by cosine similarity,
// sorted descending, skipping any id in exclude.
func (idx *Index) TopK(query []float32, k int, exclude map[string]bool) ([]Neighbor, error) {
	if k <= 0 {
		return nil, nil
	}

	var neighbors []Neighbor
	for i, id := range idx.ids {
		if exclude != nil && exclude[id] {
			continue
		}
		sim, err := CosineSimilarity(query, idx.vectors[i])
		if err != nil {
			return nil, err
		}
		neighbors = append(neighbors, Neighbor{ID: id, Similarity: sim})
	}

	sortNeighborsDesc(neighbors)
	if len(neighbors) > k {
		neighbors = neighbors[:k]
	}
	return neighbors, nil
}

// sortNeighborsDesc orders by similarity descending, breaking ties by
// ascending id so that topk results are deterministic across runs.
func sortNeighborsDesc(neighbors []Neighbor) {
	for i := 1; i < len(neighbors); i++ {
		for j := i; j > 0 && less(neighbors[j], neighbors[j-1]); j-- {
			neighbors[j], neighbors[j-1] = neighbors[j-1], neighbors[j]
		}
	}
}

func less(a, b Neighbor) bool {
	if a.Similarity != b.Similarity {
		return a.Similarity > b.Similarity
	}
	return a.ID < b.ID
}
