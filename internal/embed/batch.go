package embed

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// DefaultParallelism bounds concurrent embedding calls for one batch.
// Chunks of a source are independent, so embedding them in parallel is the
// pipeline's main latency win, but unbounded fan-out would overwhelm the
// backend.
const DefaultParallelism = 4

// Batch embeds texts concurrently with bounded parallelism, preserving input
// order. It fails as a unit: any single failure aborts the batch and cancels
// in-flight calls, so a source is never left partially embedded.
func Batch(ctx context.Context, e Embedder, texts []string, parallelism int) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if parallelism <= 0 {
		parallelism = DefaultParallelism
	}

	vectors := make([][]float32, len(texts))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)

	for i, text := range texts {
		g.Go(func() error {
			vec, err := e.Embed(ctx, text)
			if err != nil {
				return fmt.Errorf("chunk %d: %w", i, err)
			}
			vectors[i] = vec
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}
