package device

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Pool schedules work-groups onto a bounded set of workers. A zero limit
// means one worker per available CPU.
type Pool struct {
	limit int
}

// NewPool creates a pool that runs at most limit work-groups concurrently.
func NewPool(limit int) *Pool {
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}
	return &Pool{limit: limit}
}

// ForEachGroup runs fn once per group index in [0, groups). It returns after
// every group has finished (the host-side synchronisation point between
// pipeline stages) or with the first error, whichever comes first. When a
// group fails, remaining groups still drain; partial output buffers must be
// discarded by the caller.
func (p *Pool) ForEachGroup(ctx context.Context, groups int, fn func(group int) error) error {
	if groups <= 0 {
		return nil
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.limit)
	for i := 0; i < groups; i++ {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return fn(i)
		})
	}
	return g.Wait()
}

// BlockCount returns the number of fixed-size blocks needed to cover n items.
func BlockCount(n, blockSize int) int {
	if n <= 0 {
		return 0
	}
	return (n + blockSize - 1) / blockSize
}

// BlockRange returns the half-open item range [lo, hi) covered by a block.
func BlockRange(block, blockSize, n int) (lo, hi int) {
	lo = block * blockSize
	hi = lo + blockSize
	if hi > n {
		hi = n
	}
	return lo, hi
}
