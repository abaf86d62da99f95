package similarity

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrnaseq/exprgraph/sets"
	"github.com/scrnaseq/exprgraph/store"
	"github.com/scrnaseq/exprgraph/subset"
)

func buildAllView(t *testing.T, s *store.Store) *subset.View {
	t.Helper()
	r, err := sets.NewRegistry(filepath.Join(t.TempDir(), "sets"), nil)
	require.NoError(t, err)
	_, err = r.SelectCellsByRegex(s, "all", ".*")
	require.NoError(t, err)
	c, _ := r.CellSet("all")
	g := sets.AllGenes(s)
	return subset.Build(s, g, c)
}

func TestPearsonTinyExactExample(t *testing.T) {
	dir := t.TempDir()
	s, err := store.Create(dir, store.WithGeneCapacity(8), store.WithCellCapacity(8))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	_, err = s.AddCell(
		[]store.MetaDatum{{Name: "CellName", Value: "c1"}},
		[]store.ExpressionInput{{GeneName: "A", Count: 1}, {GeneName: "B", Count: 2}, {GeneName: "C", Count: 3}},
	)
	require.NoError(t, err)
	_, err = s.AddCell(
		[]store.MetaDatum{{Name: "CellName", Value: "c2"}},
		[]store.ExpressionInput{{GeneName: "A", Count: 2}, {GeneName: "B", Count: 4}, {GeneName: "C", Count: 6}},
	)
	require.NoError(t, err)

	v := buildAllView(t, s)
	sim := Pearson(v, 0, 1)
	assert.InDelta(t, 1.0, sim, 1e-9)
}

func TestPearsonOrthogonalCells(t *testing.T) {
	dir := t.TempDir()
	s, err := store.Create(dir, store.WithGeneCapacity(8), store.WithCellCapacity(8))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	_, err = s.AddCell(
		[]store.MetaDatum{{Name: "CellName", Value: "c1"}},
		[]store.ExpressionInput{{GeneName: "A", Count: 1}},
	)
	require.NoError(t, err)
	_, err = s.AddCell(
		[]store.MetaDatum{{Name: "CellName", Value: "c2"}},
		[]store.ExpressionInput{{GeneName: "B", Count: 1}},
	)
	require.NoError(t, err)

	v := buildAllView(t, s)
	sim := Pearson(v, 0, 1)
	assert.InDelta(t, -1.0, sim, 1e-9)
}

func TestPearsonZeroDenominatorIsNaN(t *testing.T) {
	dir := t.TempDir()
	s, err := store.Create(dir, store.WithGeneCapacity(8), store.WithCellCapacity(8))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	_, err = s.AddCell(
		[]store.MetaDatum{{Name: "CellName", Value: "c1"}},
		[]store.ExpressionInput{{GeneName: "A", Count: 1}},
	)
	require.NoError(t, err)
	_, err = s.AddCell(
		[]store.MetaDatum{{Name: "CellName", Value: "c2"}},
		[]store.ExpressionInput{{GeneName: "A", Count: 1}},
	)
	require.NoError(t, err)

	v := buildAllView(t, s)
	sim := Pearson(v, 0, 1)
	assert.True(t, math.IsNaN(sim))
}
