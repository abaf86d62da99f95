// Package kernel provides the fixed-size, cooperatively cancellable
// worker pool used by the non-mutating read-path kernels (LSH signature
// computation and the exact and LSH SimilarPairs builds) described in
// spec.md §5. Slot gating is delegated to
// resource.Controller's background-worker semaphore; this package adds the
// chunked, errgroup-coordinated fan-out on top, since these kernels
// partition work by CellId range rather than acquiring/releasing a single
// background-job slot.
package kernel

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/scrnaseq/exprgraph/resource"
)

// Pool bounds the number of concurrently running chunk workers.
type Pool struct {
	ctrl *resource.Controller
	n    int64
}

// New creates a Pool allowing up to n concurrent chunk workers. n <= 0
// defaults to 1 (sequential execution), matching the teacher's
// MaxBackgroundWorkers default.
func New(n int) *Pool {
	if n <= 0 {
		n = 1
	}
	return &Pool{
		ctrl: resource.NewController(resource.Config{MaxBackgroundWorkers: int64(n)}),
		n:    int64(n),
	}
}

// ChunkRanges splits [0, total) into roughly equal [start, end) ranges,
// one per worker slot, for CellId-range partitioning.
func ChunkRanges(total, chunks int) [][2]int {
	if chunks <= 0 {
		chunks = 1
	}
	if chunks > total {
		chunks = total
	}
	if chunks == 0 {
		return nil
	}
	ranges := make([][2]int, 0, chunks)
	base := total / chunks
	rem := total % chunks
	start := 0
	for i := 0; i < chunks; i++ {
		size := base
		if i < rem {
			size++
		}
		end := start + size
		if size > 0 {
			ranges = append(ranges, [2]int{start, end})
		}
		start = end
	}
	return ranges
}

// Run partitions [0, total) into up to p.n chunks and runs fn on each
// range concurrently, bounded by the pool's slot count. fn must be safe
// to call concurrently for disjoint ranges. Cancellation via ctx aborts
// remaining and in-flight chunks at the next fn-observed check; Run
// returns the first non-nil error (including ctx.Err() on cancellation),
// per spec.md §5's "cooperatively cancellable at chunk granularity".
func (p *Pool) Run(ctx context.Context, total int, fn func(ctx context.Context, start, end int) error) error {
	ranges := ChunkRanges(total, int(p.n))
	g, gctx := errgroup.WithContext(ctx)
	for _, r := range ranges {
		start, end := r[0], r[1]
		if err := p.ctrl.AcquireBackground(gctx); err != nil {
			return err
		}
		g.Go(func() error {
			defer p.ctrl.ReleaseBackground()
			return fn(gctx, start, end)
		})
	}
	return g.Wait()
}
