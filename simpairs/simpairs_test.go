package simpairs

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrnaseq/exprgraph/internal/kernel"
	"github.com/scrnaseq/exprgraph/lsh"
	"github.com/scrnaseq/exprgraph/sets"
	"github.com/scrnaseq/exprgraph/store"
	"github.com/scrnaseq/exprgraph/subset"
)

func TestSimilarPairsCapExample(t *testing.T) {
	// Five cells: the first has exactly four neighbors with the similarities
	// from spec.md §8 scenario 5; k=2, threshold=0.5 must keep only the
	// top two.
	heaps := make([]minHeap, 1)
	sims := []float64{0.9, 0.8, 0.7, 0.6}
	for i, s := range sims {
		offer(&heaps[0], 2, store.CellID(i+1), s)
	}
	out := finalize(&heaps[0])
	require.Len(t, out, 2)
	assert.Equal(t, 0.9, out[0].Similarity)
	assert.Equal(t, 0.8, out[1].Similarity)
}

func TestTieBreakByAscendingCellID(t *testing.T) {
	var h minHeap
	offer(&h, 3, store.CellID(5), 0.5)
	offer(&h, 3, store.CellID(2), 0.5)
	offer(&h, 3, store.CellID(9), 0.5)
	out := finalize(&h)
	require.Len(t, out, 3)
	assert.Equal(t, store.CellID(2), out[0].CellID)
	assert.Equal(t, store.CellID(5), out[1].CellID)
	assert.Equal(t, store.CellID(9), out[2].CellID)
}

func buildView(t *testing.T) (*store.Store, *subset.View) {
	t.Helper()
	dir := t.TempDir()
	s, err := store.Create(dir, store.WithGeneCapacity(16), store.WithCellCapacity(16))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	cells := [][2]string{{"c1", "A"}, {"c2", "A"}, {"c3", "B"}}
	for _, c := range cells {
		_, err := s.AddCell(
			[]store.MetaDatum{{Name: "CellName", Value: c[0]}},
			[]store.ExpressionInput{{GeneName: c[1], Count: 1}},
		)
		require.NoError(t, err)
	}

	r, err := sets.NewRegistry(filepath.Join(dir, "sets"), nil)
	require.NoError(t, err)
	_, err = r.SelectCellsByRegex(s, "all", ".*")
	require.NoError(t, err)
	c, _ := r.CellSet("all")
	g := sets.AllGenes(s)
	return s, subset.Build(s, g, c)
}

func buildViewWithZeroExpressionCell(t *testing.T) *subset.View {
	t.Helper()
	dir := t.TempDir()
	s, err := store.Create(dir, store.WithGeneCapacity(16), store.WithCellCapacity(16))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	cells := [][2]string{{"c1", "A"}, {"c2", "A"}}
	for _, c := range cells {
		_, err := s.AddCell(
			[]store.MetaDatum{{Name: "CellName", Value: c[0]}},
			[]store.ExpressionInput{{GeneName: c[1], Count: 1}},
		)
		require.NoError(t, err)
	}
	// c3 has no expression at all: constant (all-zero) across every gene,
	// so its Pearson correlation against any other cell is NaN.
	_, err = s.AddCell([]store.MetaDatum{{Name: "CellName", Value: "c3"}}, nil)
	require.NoError(t, err)

	r, err := sets.NewRegistry(filepath.Join(dir, "sets"), nil)
	require.NoError(t, err)
	_, err = r.SelectCellsByRegex(s, "all", ".*")
	require.NoError(t, err)
	c, _ := r.CellSet("all")
	g := sets.AllGenes(s)
	return subset.Build(s, g, c)
}

func TestBuildExactExcludesNaNSimilarityFromNeighbors(t *testing.T) {
	v := buildViewWithZeroExpressionCell(t)
	// threshold well below zero: a naive "sim < threshold" guard lets NaN
	// through too, since every IEEE-754 comparison against NaN is false.
	ix := BuildExact(v, "AllGenes", 3, -10.0)

	var zeroLocal int
	for i := 0; i < v.CellCount(); i++ {
		if v.GlobalCellID(i) == store.CellID(2) {
			zeroLocal = i
		}
	}
	for i := 0; i < v.CellCount(); i++ {
		for _, nb := range ix.Neighbors(i) {
			assert.NotEqual(t, v.GlobalCellID(zeroLocal), nb.CellID)
		}
	}
	assert.Empty(t, ix.Neighbors(zeroLocal))
}

func TestBuildLSHRunsWithZeroExpressionCellPresent(t *testing.T) {
	// lsh.EstimatedCorrelation can never produce NaN (Hamming distance is
	// always a finite integer in [0, L]), but the guard is added to both
	// builders for consistency; this exercises that path with a
	// zero-expression cell present and checks finalize's sort.Slice
	// doesn't misbehave.
	v := buildViewWithZeroExpressionCell(t)
	model := lsh.Build(v.GeneCount(), 8, 7)
	ix := BuildLSH(v, model, "AllGenes", 3, -10.0)
	for i := 0; i < v.CellCount(); i++ {
		assert.LessOrEqual(t, len(ix.Neighbors(i)), 3)
	}
}

func TestBuildExactFindsIdenticalNeighbors(t *testing.T) {
	_, v := buildView(t)
	ix := BuildExact(v, "AllGenes", 2, -1.0)
	n0 := ix.Neighbors(0)
	require.Len(t, n0, 2)
	assert.Equal(t, store.CellID(1), n0[0].CellID)
	assert.InDelta(t, 1.0, n0[0].Similarity, 1e-9)
}

func TestBuildExactPooledMatchesSequential(t *testing.T) {
	_, v := buildView(t)
	seq := BuildExact(v, "AllGenes", 2, -1.0)
	pooled := BuildExactPooled(context.Background(), kernel.New(4), v, "AllGenes", 2, -1.0)

	for i := 0; i < v.CellCount(); i++ {
		assert.Equal(t, seq.Neighbors(i), pooled.Neighbors(i))
	}
}

func TestCanReuseChecksGeneSetIdentity(t *testing.T) {
	s, v := buildView(t)
	ix := BuildExact(v, "AllGenes", 2, -1.0)
	assert.True(t, CanReuse(ix, sets.AllGenes(s)))

	other := &sets.GeneSet{}
	assert.False(t, CanReuse(ix, other))
}

func TestSaveLoadRoundTripUncompressed(t *testing.T) {
	_, v := buildView(t)
	ix := BuildExact(v, "AllGenes", 2, -1.0)

	dir := t.TempDir()
	require.NoError(t, Save(dir, "default", ix, false))

	loaded, ok, err := Load(dir, "default")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, ix.GeneSetName, loaded.GeneSetName)
	assert.Equal(t, ix.CellSetName, loaded.CellSetName)
	assert.Equal(t, ix.K, loaded.K)
	for i := 0; i < v.CellCount(); i++ {
		assert.Equal(t, ix.Neighbors(i), loaded.Neighbors(i))
		assert.Equal(t, ix.CellID(i), loaded.CellID(i))
	}
}

func TestSaveLoadRoundTripCompressed(t *testing.T) {
	_, v := buildView(t)
	ix := BuildExact(v, "AllGenes", 2, -1.0)

	dir := t.TempDir()
	require.NoError(t, Save(dir, "compressed", ix, true))

	loaded, ok, err := Load(dir, "compressed")
	require.NoError(t, err)
	require.True(t, ok)
	for i := 0; i < v.CellCount(); i++ {
		assert.Equal(t, ix.Neighbors(i), loaded.Neighbors(i))
	}
}

func TestLoadMissingReturnsNotFound(t *testing.T) {
	dir := t.TempDir()
	_, ok, err := Load(dir, "nonexistent")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRemoveReportsNotFoundAsFalse(t *testing.T) {
	dir := t.TempDir()
	ok, err := Remove(dir, "nonexistent")
	require.NoError(t, err)
	assert.False(t, ok)

	_, v := buildView(t)
	ix := BuildExact(v, "AllGenes", 2, -1.0)
	require.NoError(t, Save(dir, "present", ix, false))
	ok, err = Remove(dir, "present")
	require.NoError(t, err)
	assert.True(t, ok)

	_, ok, err = Load(dir, "present")
	require.NoError(t, err)
	assert.False(t, ok)
}
