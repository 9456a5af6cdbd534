package collectives

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// RunWorkers launches one goroutine per rank in a fresh Fabric of the
// given size, each running fn with its own Bus handle, and joins them —
// the same fan-out/join idiom used elsewhere in the corpus for per-target
// transfer goroutines and concurrent RPC fan-out, applied here to drive a
// bulk-synchronous round of workers against an in-process Bus. The first
// non-nil error from any rank cancels ctx for the others and is returned;
// RunWorkers itself never participates as a rank.
func RunWorkers(ctx context.Context, size int, fn func(ctx context.Context, bus Bus) error) error {
	fabric := NewFabric(size)
	g, gctx := errgroup.WithContext(ctx)
	for r := 0; r < size; r++ {
		rank := r
		g.Go(func() error {
			return fn(gctx, fabric.ForRank(rank))
		})
	}
	return g.Wait()
}
