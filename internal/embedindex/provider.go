// Package embedindex implements the Embedding Index: it turns a chunk's
// composed input text into a vector via a pluggable Provider, and answers
// exact (brute-force) nearest-neighbor queries over the resulting vectors by
// cosine similarity.
package embedindex

import "context"

// Mode specifies which side of an asymmetric embedding model to use.
// Some providers encode queries and passages differently; providers that
// don't care are free to ignore it.
type Mode string

const (
	ModeQuery   Mode = "query"
	ModePassage Mode = "passage"
)

// Provider converts text into vectors. Implementations may call out to a
// local HTTP server, a hosted API, or (for tests) a deterministic mock --
// the drift engine never depends on which.
type Provider interface {
	Embed(ctx context.Context, texts []string, mode Mode) ([][]float32, error)
	Dimensions() int
	Close() error
}
