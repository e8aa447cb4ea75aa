package services

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// DefaultBulkConcurrency bounds downstream calls of one bulk operation when
// no limit is configured.
const DefaultBulkConcurrency = 8

// fanOut calls fn for every index below n with at most limit calls in
// flight. The first error cancels ctx for the others, and calls not yet
// started are skipped. Calls that already succeeded stay done.
func fanOut(ctx context.Context, n, limit int, fn func(ctx context.Context, i int) error) error {
	if limit <= 0 {
		limit = DefaultBulkConcurrency
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return fn(gctx, i)
		})
	}
	return g.Wait()
}
