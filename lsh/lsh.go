// Package lsh builds random-hyperplane LSH signatures over a subset
// view, per spec.md §4.6. Signatures are bit-for-bit deterministic given
// (G, C, seed, L): the same seeded PRNG draw order and the same
// sparsity-exploiting centered scalar-product formula run identically
// on every invocation.
package lsh

import (
	"context"
	"math"

	"github.com/scrnaseq/exprgraph/internal/bitset"
	"github.com/scrnaseq/exprgraph/internal/kernel"
	"github.com/scrnaseq/exprgraph/subset"
	"github.com/scrnaseq/exprgraph/util"
)

// Model holds the L random hyperplanes drawn for a gene-space of
// dimension m = |G|, plus each hyperplane's component sum S_j used to
// center the scalar product without touching zero entries.
type Model struct {
	L       int
	M       int
	Seed    int64
	vectors [][]float64 // L vectors of length M, unit L2 norm
	sums    []float64   // S_j = Σ_g U_{j,g}
}

// Build draws L random unit vectors in an m-dimensional gene space,
// seeded by seed for reproducibility. Components are drawn N(0,1) via
// util.RNG's Gaussian sampler (the example pack carries no
// Mersenne-Twister implementation; a seeded generator with a fixed draw
// order gives the same bit-for-bit determinism contract since only the
// generator's seed and draw order — not its internal algorithm — are
// part of the spec's observable contract).
func Build(m, l int, seed int64) *Model {
	rng := util.NewRNG(seed)
	model := &Model{L: l, M: m, Seed: seed, vectors: make([][]float64, l), sums: make([]float64, l)}
	for j := 0; j < l; j++ {
		vec := rng.GaussianVector(m)
		var norm2 float64
		for g := 0; g < m; g++ {
			norm2 += vec[g] * vec[g]
		}
		norm := math.Sqrt(norm2)
		var sum float64
		if norm > 0 {
			for g := 0; g < m; g++ {
				vec[g] /= norm
				sum += vec[g]
			}
		}
		model.vectors[j] = vec
		model.sums[j] = sum
	}
	return model
}

// SignatureArena computes the LSH signature of every cell in v under
// model, returning a row-major bitset.Arena of width model.L. It runs on
// a single-worker pool; SignatureArenaPooled computes the independent
// rows across a caller-supplied pool, partitioned by CellId range.
func SignatureArena(model *Model, v *subset.View) *bitset.Arena {
	return SignatureArenaPooled(context.Background(), kernel.New(1), model, v)
}

// SignatureArenaPooled is SignatureArena with an explicit worker pool
// and cancellation context.
func SignatureArenaPooled(ctx context.Context, pool *kernel.Pool, model *Model, v *subset.View) *bitset.Arena {
	n := v.CellCount()
	arena := bitset.NewArena(n, model.L)
	_ = pool.Run(ctx, n, func(ctx context.Context, start, end int) error {
		for i := start; i < end; i++ {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			sig := Signature(model, v, i)
			arena.Row(i).CopyFrom(sig)
		}
		return nil
	})
	return arena
}

// Signature computes the LSH signature of a single cell at local
// position i within v, per spec.md §4.6 step 2: bit j is 1 iff the
// centered scalar product ⟨U_j, x_c − μ_c·𝟙⟩ is positive.
func Signature(model *Model, v *subset.View, i int) *bitset.BitSet {
	mu := v.Sums(i).Sum1 / float64(model.M)
	row := v.Row(i)
	sig := bitset.New(model.L)
	for j := 0; j < model.L; j++ {
		scalar := -mu * model.sums[j]
		u := model.vectors[j]
		for _, e := range row {
			scalar += float64(e.Count) * u[e.LocalGeneID]
		}
		if scalar > 0 {
			sig.Set(j)
		}
	}
	return sig
}

// EstimatedCorrelation converts a Hamming distance between two
// L-bit signatures into an estimated Pearson correlation, per spec.md
// §4.6 step 3: the estimated angle is π·h/L, and by the centered/unit
// equality this angle's cosine equals the correlation estimate.
func EstimatedCorrelation(hamming, l int) float64 {
	angle := math.Pi * float64(hamming) / float64(l)
	return math.Cos(angle)
}
