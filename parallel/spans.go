package parallel

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// SpanFunc processes the half-open row range [lo, hi).
type SpanFunc func(ctx context.Context, lo, hi int) error

// Spans splits [0, n) into contiguous ranges of at least minSpan rows and runs
// fn over them on up to numWorkers goroutines. The first error cancels the
// context passed to the remaining spans and is returned.
func Spans(ctx context.Context, numWorkers, n, minSpan int, fn SpanFunc) error {
	if n <= 0 {
		return nil
	}
	numWorkers = Workers(numWorkers)
	minSpan = max(minSpan, 1)

	span := max((n+numWorkers-1)/numWorkers, minSpan)
	if span >= n {
		return fn(ctx, 0, n)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(numWorkers)
	for lo := 0; lo < n; lo += span {
		hi := min(lo+span, n)
		g.Go(func() error {
			return fn(gctx, lo, hi)
		})
	}
	return g.Wait()
}
