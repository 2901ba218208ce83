package reconcile

import (
	"context"
	"fmt"

	"chunk-mender/core/chunk"

	"golang.org/x/sync/errgroup"
)

// outcome is the buffered result of loading one chunk.
type outcome struct {
	coord chunk.Coord
	load  chunk.Load
}

// loadPlan enumerates store and loads every coordinate skip does not reject,
// running up to workers loads at once. Loads are read-only; outcomes come back
// in enumeration order so the caller can apply mutations sequentially.
// It returns the outcomes and the number of coordinates enumerated.
func loadPlan(ctx context.Context, store Store, workers int, skip func(chunk.Coord) bool) ([]outcome, int, error) {
	var (
		coords []chunk.Coord
		total  int
	)

	for coord, err := range store.AllChunks(ctx) {
		if err != nil {
			return nil, total, fmt.Errorf("failed to enumerate chunks in %s: %w", store.Name(), err)
		}
		total++
		if skip != nil && skip(coord) {
			continue
		}
		coords = append(coords, coord)
	}

	outcomes := make([]outcome, len(coords))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))

	for i, coord := range coords {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			load, err := store.LoadChunk(gctx, coord)
			if err != nil {
				return fmt.Errorf("failed to load chunk %s from %s: %w", coord, store.Name(), err)
			}
			outcomes[i] = outcome{coord: coord, load: load}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, total, err
	}

	return outcomes, total, nil
}
