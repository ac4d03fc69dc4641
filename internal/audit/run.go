package audit

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/example/violation-audit/internal/artifact"
	"github.com/example/violation-audit/internal/location"
)

// Run evaluates defs concurrently over the same snapshot, at most workers at a time.
// Results come back in definition order. A cancelled context aborts the run without
// partial results.
func Run(ctx context.Context, defs []Definition, snap *artifact.Snapshot, resolver *location.Resolver, workers int) ([]Result, error) {
	if len(defs) == 0 {
		return nil, nil
	}
	if workers < 1 {
		workers = 1
	}

	results := make([]Result, len(defs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, def := range defs {
		i, def := i, def
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = Evaluate(def, snap, resolver)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}
