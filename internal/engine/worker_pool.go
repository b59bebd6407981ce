package engine

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// loopPool runs a fixed number of identical worker loops. Each loop owns
// its control flow; the pool only starts them and collects the first error.
type loopPool struct {
	g *errgroup.Group
	n int
}

// newLoopPool starts n goroutines running fn. The context passed to fn is
// cancelled as soon as any loop returns an error.
func newLoopPool(ctx context.Context, n int, fn func(ctx context.Context, worker int) error) *loopPool {
	g, gctx := errgroup.WithContext(ctx)
	p := &loopPool{g: g, n: n}
	for i := 0; i < n; i++ {
		g.Go(func() error {
			return fn(gctx, i)
		})
	}
	return p
}

// Wait blocks until every loop has returned.
func (p *loopPool) Wait() error {
	return p.g.Wait()
}

// Size returns the number of loops.
func (p *loopPool) Size() int {
	return p.n
}
