package exprgraph

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrnaseq/exprgraph/sets"
	"github.com/scrnaseq/exprgraph/simpairs"
	"github.com/scrnaseq/exprgraph/store"
	"github.com/scrnaseq/exprgraph/subset"
)

func TestCreateThenOpenRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "db")
	db, err := Create(dir, store.WithGeneCapacity(64), store.WithCellCapacity(64))
	require.NoError(t, err)

	_, err = db.Store().AddCell(
		[]store.MetaDatum{{Name: "CellName", Value: "c1"}},
		[]store.ExpressionInput{{GeneName: "A", Count: 1}},
	)
	require.NoError(t, err)

	_, err = db.Sets().SelectCellsByRegex(db.Store(), "all", ".*")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db2, err := Open(dir, store.WithGeneCapacity(64), store.WithCellCapacity(64))
	require.NoError(t, err)
	defer db2.Close()

	assert.Equal(t, 1, db2.Store().CellCount())
	set, ok := db2.Sets().CellSet("all")
	require.True(t, ok)
	assert.Equal(t, 1, set.Len())
}

func TestSimilarPairsPersistenceThroughDB(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "db")
	db, err := Create(dir, store.WithGeneCapacity(16), store.WithCellCapacity(16))
	require.NoError(t, err)
	defer db.Close()

	cells := [][2]string{{"c1", "A"}, {"c2", "A"}}
	for _, c := range cells {
		_, err := db.Store().AddCell(
			[]store.MetaDatum{{Name: "CellName", Value: c[0]}},
			[]store.ExpressionInput{{GeneName: c[1], Count: 1}},
		)
		require.NoError(t, err)
	}
	_, err = db.Sets().SelectCellsByRegex(db.Store(), "all", ".*")
	require.NoError(t, err)
	cellSet, _ := db.Sets().CellSet("all")
	geneSet := sets.AllGenes(db.Store())
	v := subset.Build(db.Store(), geneSet, cellSet)

	ix := simpairs.BuildExact(v, geneSet.Name(), 1, -1.0)
	db.SetSimilarPairsCompression(true)
	require.NoError(t, db.SaveSimilarPairs("pairwise", ix))

	loaded, ok, err := db.LoadSimilarPairs("pairwise")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, ix.Neighbors(0), loaded.Neighbors(0))

	reused, ok := db.ReuseOrBuildSimilarPairs("pairwise", geneSet)
	require.True(t, ok)
	assert.Equal(t, loaded.Neighbors(0), reused.Neighbors(0))

	removed, err := db.RemoveSimilarPairs("pairwise")
	require.NoError(t, err)
	assert.True(t, removed)
}
