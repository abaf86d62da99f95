package infocontent

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrnaseq/exprgraph/sets"
	"github.com/scrnaseq/exprgraph/store"
	"github.com/scrnaseq/exprgraph/subset"
)

func buildView(t *testing.T) *subset.View {
	t.Helper()
	dir := t.TempDir()
	s, err := store.Create(dir, store.WithGeneCapacity(16), store.WithCellCapacity(16))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	// G1 is expressed uniformly across every cell (low information);
	// G2 is expressed in only one cell (high information).
	_, err = s.AddCell(
		[]store.MetaDatum{{Name: "CellName", Value: "c1"}},
		[]store.ExpressionInput{{GeneName: "G1", Count: 1}, {GeneName: "G2", Count: 5}},
	)
	require.NoError(t, err)
	_, err = s.AddCell(
		[]store.MetaDatum{{Name: "CellName", Value: "c2"}},
		[]store.ExpressionInput{{GeneName: "G1", Count: 1}},
	)
	require.NoError(t, err)
	_, err = s.AddCell(
		[]store.MetaDatum{{Name: "CellName", Value: "c3"}},
		[]store.ExpressionInput{{GeneName: "G1", Count: 1}},
	)
	require.NoError(t, err)

	r, err := sets.NewRegistry(filepath.Join(dir, "sets"), nil)
	require.NoError(t, err)
	_, err = r.SelectCellsByRegex(s, "all", ".*")
	require.NoError(t, err)
	c, _ := r.CellSet("all")
	g := sets.AllGenes(s)
	return subset.Build(s, g, c)
}

func TestUniformGeneHasZeroInformation(t *testing.T) {
	v := buildView(t)
	info := Compute(v, None)
	// G1 is interned first (by c1's AddCell), so it is local gene 0 of
	// AllGenes.
	assert.InDelta(t, 0.0, info[0], 1e-9)
}

func TestConcentratedGeneHasHigherInformationThanUniform(t *testing.T) {
	v := buildView(t)
	info := Compute(v, None)
	assert.Greater(t, info[1], info[0])
}

func TestFilterAboveThresholdPreservesSortedOrder(t *testing.T) {
	v := buildView(t)
	info := Compute(v, None)
	out := FilterAboveThreshold(info, 0.5)
	for i := 1; i < len(out); i++ {
		assert.Less(t, out[i-1], out[i])
	}
}
