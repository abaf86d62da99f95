// Package simpairs builds the per-cell capped top-k nearest-neighbor
// index described in spec.md §4.7, in either exact (all-pairs Pearson)
// or LSH (Hamming-distance-estimated correlation) mode. Results are
// stored with the originating gene-set's identity so callers can
// validate whether a previously built index may be reused.
package simpairs

import (
	"container/heap"
	"context"
	"math"
	"sort"
	"sync"

	"github.com/scrnaseq/exprgraph/internal/kernel"
	"github.com/scrnaseq/exprgraph/lsh"
	"github.com/scrnaseq/exprgraph/sets"
	"github.com/scrnaseq/exprgraph/similarity"
	"github.com/scrnaseq/exprgraph/store"
	"github.com/scrnaseq/exprgraph/subset"
)

// Neighbor is one entry of a cell's top-k list.
type Neighbor struct {
	CellID     store.CellID
	Similarity float64
}

// Index is the materialized SimilarPairs structure for one (G, C, k,
// threshold) combination.
type Index struct {
	GeneSetName string
	CellSetName string
	K           int
	Threshold   float64
	cellIDs     []store.CellID // local cell id -> originating CellID, for persistence round-trips
	neighbors   [][]Neighbor   // indexed by local cell id, sorted descending
}

// SourceGeneSet returns the name of the gene-set the index was built
// against; used by callers deciding whether to rebuild.
func (ix *Index) SourceGeneSet() string { return ix.GeneSetName }

// Len returns the number of cells the index was built over.
func (ix *Index) Len() int { return len(ix.neighbors) }

// CellID returns the CellID backing local position i.
func (ix *Index) CellID(i int) store.CellID { return ix.cellIDs[i] }

// Neighbors returns the sorted-by-decreasing-similarity top-k list for
// the cell at local position i.
func (ix *Index) Neighbors(i int) []Neighbor { return ix.neighbors[i] }

// heapEntry is an entry of a bounded top-k min-heap: the collector keeps
// the *smallest* of its current top-k at the root so it can be evicted
// cheaply when a better candidate arrives.
type heapEntry struct {
	cellID store.CellID
	sim    float64
}

type minHeap []heapEntry

func (h minHeap) Len() int            { return len(h) }
func (h minHeap) Less(i, j int) bool  { return h[i].sim < h[j].sim }
func (h minHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *minHeap) Push(x interface{}) { *h = append(*h, x.(heapEntry)) }
func (h *minHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

func offer(h *minHeap, k int, cellID store.CellID, sim float64) {
	if h.Len() < k {
		heap.Push(h, heapEntry{cellID, sim})
		return
	}
	if h.Len() > 0 && sim > (*h)[0].sim {
		heap.Pop(h)
		heap.Push(h, heapEntry{cellID, sim})
	}
}

// guardedHeaps pairs each cell's bounded top-k heap with its own mutex,
// so BuildExact/BuildLSH can fan the outer a-loop out across a worker
// pool: a given chunk owns writes to heaps[a] outright but must also
// write into heaps[b] for b > a, which another chunk may be touching
// concurrently as its own "a".
type guardedHeaps struct {
	mu    []sync.Mutex
	heaps []minHeap
}

func newGuardedHeaps(n int) *guardedHeaps {
	return &guardedHeaps{mu: make([]sync.Mutex, n), heaps: make([]minHeap, n)}
}

func (g *guardedHeaps) offer(i int, k int, cellID store.CellID, sim float64) {
	g.mu[i].Lock()
	offer(&g.heaps[i], k, cellID, sim)
	g.mu[i].Unlock()
}

func finalize(h *minHeap) []Neighbor {
	out := make([]Neighbor, h.Len())
	for i := range out {
		e := (*h)[i]
		out[i] = Neighbor{CellID: e.cellID, Similarity: e.sim}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Similarity != out[j].Similarity {
			return out[i].Similarity > out[j].Similarity
		}
		// Tie-break by ascending CellId, per spec.md §9 Open Question (b).
		return out[i].CellID < out[j].CellID
	})
	return out
}

// BuildExact builds the SimilarPairs index in exact mode: every unordered
// pair's Pearson correlation (§4.5) is computed directly. Equivalent to
// BuildExactPooled with a single-worker pool.
func BuildExact(v *subset.View, geneSetName string, k int, threshold float64) *Index {
	return BuildExactPooled(context.Background(), kernel.New(1), v, geneSetName, k, threshold)
}

// BuildExactPooled is BuildExact fanned out across pool, partitioned by
// CellId range over the outer pair-enumeration loop, per spec.md §5.
func BuildExactPooled(ctx context.Context, pool *kernel.Pool, v *subset.View, geneSetName string, k int, threshold float64) *Index {
	n := v.CellCount()
	gh := newGuardedHeaps(n)
	_ = pool.Run(ctx, n, func(ctx context.Context, start, end int) error {
		for a := start; a < end; a++ {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			for b := a + 1; b < n; b++ {
				sim := similarity.Pearson(v, a, b)
				if math.IsNaN(sim) || sim < threshold {
					continue
				}
				gh.offer(a, k, v.GlobalCellID(b), sim)
				gh.offer(b, k, v.GlobalCellID(a), sim)
			}
		}
		return nil
	})
	return finalizeIndex(v, geneSetName, k, threshold, gh.heaps)
}

// BuildLSH builds the SimilarPairs index in LSH mode: signatures are
// materialized once (§4.6), then Hamming distance between every
// unordered pair is converted to an estimated correlation (§4.6 step 3).
func BuildLSH(v *subset.View, model *lsh.Model, geneSetName string, k int, threshold float64) *Index {
	return BuildLSHPooled(context.Background(), kernel.New(1), v, model, geneSetName, k, threshold)
}

// BuildLSHPooled is BuildLSH fanned out across pool.
func BuildLSHPooled(ctx context.Context, pool *kernel.Pool, v *subset.View, model *lsh.Model, geneSetName string, k int, threshold float64) *Index {
	n := v.CellCount()
	arena := lsh.SignatureArenaPooled(ctx, pool, model, v)
	gh := newGuardedHeaps(n)
	_ = pool.Run(ctx, n, func(ctx context.Context, start, end int) error {
		for a := start; a < end; a++ {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			rowA := arena.Row(a)
			for b := a + 1; b < n; b++ {
				h := rowA.HammingDistance(arena.Row(b))
				sim := lsh.EstimatedCorrelation(h, model.L)
				if math.IsNaN(sim) || sim < threshold {
					continue
				}
				gh.offer(a, k, v.GlobalCellID(b), sim)
				gh.offer(b, k, v.GlobalCellID(a), sim)
			}
		}
		return nil
	})
	return finalizeIndex(v, geneSetName, k, threshold, gh.heaps)
}

func finalizeIndex(v *subset.View, geneSetName string, k int, threshold float64, heaps []minHeap) *Index {
	neighbors := make([][]Neighbor, len(heaps))
	cellIDs := make([]store.CellID, len(heaps))
	for i := range heaps {
		neighbors[i] = finalize(&heaps[i])
		cellIDs[i] = v.GlobalCellID(i)
	}
	return &Index{
		GeneSetName: geneSetName,
		CellSetName: v.CellSet().Name(),
		K:           k,
		Threshold:   threshold,
		cellIDs:     cellIDs,
		neighbors:   neighbors,
	}
}

// CanReuse reports whether an existing index may be reused for the
// gene-set g. It compares only the gene-set name recorded in the index
// with g.Name(); the index stores no copy of the gene-set's members, so
// membership is not compared.
func CanReuse(ix *Index, g *sets.GeneSet) bool {
	return ix.GeneSetName == g.Name()
}
