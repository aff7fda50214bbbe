package embedindex

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// EmbedBatched splits texts into chunks of batchSize and embeds each batch
// concurrently, bounded by parallelism in-flight batches at once, mirroring
// the concurrency shape of a bounded parallel sub-search fan-out. Results
// preserve input order regardless of which batch finishes first.
func EmbedBatched(ctx context.Context, provider Provider, texts []string, mode Mode, batchSize, parallelism int) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if batchSize <= 0 {
		batchSize = 50
	}
	if parallelism <= 0 {
		parallelism = 4
	}

	numBatches := (len(texts) + batchSize - 1) / batchSize
	results := make([][]float32, len(texts))

	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, parallelism)

	for b := 0; b < numBatches; b++ {
		start := b * batchSize
		end := start + batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batchIdx, start, end := b, start, end

		g.Go(func() error {
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-gctx.Done():
				return gctx.Err()
			}

			vecs, err := provider.Embed(gctx, texts[start:end], mode)
			if err != nil {
				return fmt.Errorf("embedindex: batch %d/%d: %w", batchIdx+1, numBatches, err)
			}
			copy(results[start:end], vecs)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
