package lsh

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrnaseq/exprgraph/internal/kernel"
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

	_, err = s.AddCell(
		[]store.MetaDatum{{Name: "CellName", Value: "c1"}},
		[]store.ExpressionInput{{GeneName: "A", Count: 1}, {GeneName: "B", Count: 2}},
	)
	require.NoError(t, err)
	_, err = s.AddCell(
		[]store.MetaDatum{{Name: "CellName", Value: "c2"}},
		[]store.ExpressionInput{{GeneName: "A", Count: 5}, {GeneName: "C", Count: 1}},
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

func TestSignatureDeterministicGivenSeed(t *testing.T) {
	v := buildView(t)
	m1 := Build(v.GeneCount(), 1024, 42)
	m2 := Build(v.GeneCount(), 1024, 42)

	arena1 := SignatureArena(m1, v)
	arena2 := SignatureArena(m2, v)

	for i := 0; i < v.CellCount(); i++ {
		assert.Equal(t, arena1.Row(i).Words(), arena2.Row(i).Words())
	}
}

func TestSignatureArenaPooledMatchesSequential(t *testing.T) {
	v := buildView(t)
	m := Build(v.GeneCount(), 256, 3)

	seq := SignatureArena(m, v)
	pooled := SignatureArenaPooled(context.Background(), kernel.New(4), m, v)

	for i := 0; i < v.CellCount(); i++ {
		assert.Equal(t, seq.Row(i).Words(), pooled.Row(i).Words())
	}
}

func TestSignatureWidthMatchesL(t *testing.T) {
	v := buildView(t)
	m := Build(v.GeneCount(), 128, 7)
	sig := Signature(m, v, 0)
	assert.Equal(t, 128, sig.Len())
}

func TestEstimatedCorrelationRangeAndEndpoints(t *testing.T) {
	assert.InDelta(t, 1.0, EstimatedCorrelation(0, 1024), 1e-9)
	assert.InDelta(t, -1.0, EstimatedCorrelation(1024, 1024), 1e-9)
	for h := 0; h <= 1024; h += 64 {
		c := EstimatedCorrelation(h, 1024)
		assert.GreaterOrEqual(t, c, -1.0)
		assert.LessOrEqual(t, c, 1.0)
	}
}
