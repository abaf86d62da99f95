package sets

import (
	"fmt"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrnaseq/exprgraph/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	dir := t.TempDir()
	s, err := store.Create(dir, store.WithGeneCapacity(64), store.WithCellCapacity(64))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedGenesAndCells(t *testing.T, s *store.Store) {
	t.Helper()
	names := []string{"Alpha1", "Alpha2", "Beta1", "Gamma1"}
	for i, n := range names {
		_, err := s.AddCell(
			[]store.MetaDatum{{Name: "CellName", Value: n}},
			[]store.ExpressionInput{{GeneName: "G1", Count: float32(i + 1)}},
		)
		require.NoError(t, err)
	}
}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	dir := t.TempDir()
	r, err := NewRegistry(filepath.Join(dir, "sets"), nil)
	require.NoError(t, err)
	return r
}

func TestSelectCellsByRegex(t *testing.T) {
	s := newTestStore(t)
	seedGenesAndCells(t, s)
	r := newTestRegistry(t)

	ok, err := r.SelectCellsByRegex(s, "alphas", "Alpha.*")
	require.NoError(t, err)
	require.True(t, ok)

	set, ok := r.CellSet("alphas")
	require.True(t, ok)
	assert.Equal(t, 2, set.Len())
}

func TestUnionIntersectDifferenceCells(t *testing.T) {
	s := newTestStore(t)
	seedGenesAndCells(t, s)
	r := newTestRegistry(t)

	_, err := r.SelectCellsByRegex(s, "alphas", "Alpha.*")
	require.NoError(t, err)
	_, err = r.SelectCellsByRegex(s, "beta_gamma", "Beta1|Gamma1")
	require.NoError(t, err)
	_, _, _, err = r.SelectCellsByNames(s, "alpha1only", []string{"Alpha1"})
	require.NoError(t, err)

	ok, err := r.UnionCells("all", "alphas", "beta_gamma")
	require.NoError(t, err)
	require.True(t, ok)
	all, _ := r.CellSet("all")
	assert.Equal(t, 4, all.Len())

	ok, err = r.IntersectCells("none", "alphas", "beta_gamma")
	require.NoError(t, err)
	require.True(t, ok)
	none, _ := r.CellSet("none")
	assert.Equal(t, 0, none.Len())

	ok, err = r.DifferenceCells("alpha2only", "alphas", "alpha1only")
	require.NoError(t, err)
	require.True(t, ok)
	alpha2, _ := r.CellSet("alpha2only")
	require.Equal(t, 1, alpha2.Len())
	assert.Equal(t, store.CellID(1), alpha2.GlobalIDs()[0])
}

func TestCombineReportsNotFoundAsFalse(t *testing.T) {
	r := newTestRegistry(t)
	ok, err := r.UnionCells("result", "missing-a", "missing-b")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSelectGenesByNamesCountsIgnoredAndDuplicates(t *testing.T) {
	s := newTestStore(t)
	seedGenesAndCells(t, s)
	r := newTestRegistry(t)

	ignored, duplicates, _, err := r.SelectGenesByNames(s, "genes", []string{"G1", "G1", "NoSuchGene"})
	require.NoError(t, err)
	assert.Equal(t, 1, ignored)
	assert.Equal(t, 1, duplicates)

	set, ok := r.GeneSet("genes")
	require.True(t, ok)
	assert.Equal(t, 1, set.Len())
}

func TestAllCellsVirtualSet(t *testing.T) {
	s := newTestStore(t)
	seedGenesAndCells(t, s)

	all := AllCells(s)
	assert.Equal(t, 4, all.Len())
	assert.True(t, all.Contains(store.CellID(0)))
	assert.True(t, all.Contains(store.CellID(3)))
	assert.False(t, all.Contains(store.CellID(4)))
}

func seedManyCells(t *testing.T, s *store.Store, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, err := s.AddCell(
			[]store.MetaDatum{{Name: "CellName", Value: fmt.Sprintf("c%d", i)}},
			[]store.ExpressionInput{{GeneName: "G1", Count: 1}},
		)
		require.NoError(t, err)
	}
}

func TestDownsampleCellsIsDeterministicGivenSeed(t *testing.T) {
	s := newTestStore(t)
	seedGenesAndCells(t, s)
	r := newTestRegistry(t)

	_, err := r.SelectCellsByRegex(s, "all", ".*")
	require.NoError(t, err)

	ok, err := r.DownsampleCells("sample1", "all", 0.5, 42)
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = r.DownsampleCells("sample2", "all", 0.5, 42)
	require.NoError(t, err)
	require.True(t, ok)

	set1, _ := r.CellSet("sample1")
	set2, _ := r.CellSet("sample2")
	assert.Equal(t, set1.GlobalIDs(), set2.GlobalIDs())

	ids := set1.GlobalIDs()
	for i := 1; i < len(ids); i++ {
		assert.Less(t, ids[i-1], ids[i])
	}
}

func TestDownsampleCellsProbabilityOneKeepsEveryCell(t *testing.T) {
	s := newTestStore(t)
	seedGenesAndCells(t, s)
	r := newTestRegistry(t)
	_, err := r.SelectCellsByRegex(s, "all", ".*")
	require.NoError(t, err)

	ok, err := r.DownsampleCells("sample", "all", 1, 7)
	require.NoError(t, err)
	require.True(t, ok)

	src, _ := r.CellSet("all")
	sample, _ := r.CellSet("sample")
	assert.Equal(t, src.GlobalIDs(), sample.GlobalIDs())
}

func TestDownsampleCellsProbabilityZeroKeepsNone(t *testing.T) {
	s := newTestStore(t)
	seedGenesAndCells(t, s)
	r := newTestRegistry(t)
	_, err := r.SelectCellsByRegex(s, "all", ".*")
	require.NoError(t, err)

	ok, err := r.DownsampleCells("sample", "all", 0, 7)
	require.NoError(t, err)
	require.True(t, ok)

	sample, _ := r.CellSet("sample")
	assert.Equal(t, 0, sample.Len())
}

func TestDownsampleCellsIntermediateProbabilityWithinThreeSigma(t *testing.T) {
	const n = 2000
	s, err := store.Create(t.TempDir(), store.WithGeneCapacity(64), store.WithCellCapacity(n))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	seedManyCells(t, s, n)
	r := newTestRegistry(t)
	_, err = r.SelectCellsByRegex(s, "all", ".*")
	require.NoError(t, err)

	const p = 0.3
	ok, err := r.DownsampleCells("sample", "all", p, 123)
	require.NoError(t, err)
	require.True(t, ok)

	sample, _ := r.CellSet("sample")
	mean := p * n
	sigma := math.Sqrt(float64(n) * p * (1 - p))
	assert.InDelta(t, mean, float64(sample.Len()), 3*sigma)
}

func TestDownsampleCellsRejectsProbabilityOutOfRange(t *testing.T) {
	s := newTestStore(t)
	seedGenesAndCells(t, s)
	r := newTestRegistry(t)
	_, err := r.SelectCellsByRegex(s, "all", ".*")
	require.NoError(t, err)

	_, err = r.DownsampleCells("sample", "all", 1.5, 7)
	assert.Error(t, err)
	_, err = r.DownsampleCells("sample", "all", -0.1, 7)
	assert.Error(t, err)
}

func TestRemoveGeneSetReportsNotFoundAsFalse(t *testing.T) {
	r := newTestRegistry(t)
	ok, err := r.RemoveGeneSet("nonexistent")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestInvalidSetNameRejected(t *testing.T) {
	s := newTestStore(t)
	seedGenesAndCells(t, s)
	r := newTestRegistry(t)

	_, err := r.SelectCellsByRegex(s, "bad/name", ".*")
	require.Error(t, err)
}

func TestRegistryRoundTripThroughReopen(t *testing.T) {
	s := newTestStore(t)
	seedGenesAndCells(t, s)
	dir := t.TempDir()
	r, err := NewRegistry(filepath.Join(dir, "sets"), nil)
	require.NoError(t, err)

	_, err = r.SelectCellsByRegex(s, "alphas", "Alpha.*")
	require.NoError(t, err)

	r2, err := NewRegistry(filepath.Join(dir, "sets"), nil)
	require.NoError(t, err)
	set, ok := r2.CellSet("alphas")
	require.True(t, ok)
	assert.Equal(t, 2, set.Len())
}
