package mmvec

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVectorOfVectorsAppend(t *testing.T) {
	base := filepath.Join(t.TempDir(), "vov")
	v, err := CreateVectorOfVectors[uint32](base, 2, 8)
	require.NoError(t, err)
	defer v.Close()

	i0, err := v.AppendEmptyRow()
	require.NoError(t, err)
	require.NoError(t, v.AppendToLastRow(1))
	require.NoError(t, v.AppendToLastRow(2))

	i1, err := v.AppendEmptyRow()
	require.NoError(t, err)
	require.NoError(t, v.AppendToLastRow(3))

	assert.Equal(t, 2, v.RowCount())
	assert.Equal(t, []uint32{1, 2}, v.Row(i0))
	assert.Equal(t, []uint32{3}, v.Row(i1))
	assert.Equal(t, 2, v.RowLen(i0))
	assert.Equal(t, 1, v.RowLen(i1))
}

func TestVectorOfVectorsInsertIntoEarlierRow(t *testing.T) {
	base := filepath.Join(t.TempDir(), "vov")
	v, err := CreateVectorOfVectors[uint32](base, 3, 8)
	require.NoError(t, err)
	defer v.Close()

	for _, vals := range [][]uint32{{1}, {2, 3}, {4}} {
		_, err := v.AppendEmptyRow()
		require.NoError(t, err)
		for _, x := range vals {
			require.NoError(t, v.AppendToLastRow(x))
		}
	}

	require.NoError(t, v.InsertIntoRow(0, 99))
	assert.Equal(t, []uint32{1, 99}, v.Row(0))
	assert.Equal(t, []uint32{2, 3}, v.Row(1))
	assert.Equal(t, []uint32{4}, v.Row(2))
}

func TestBulkBuilderTwoPass(t *testing.T) {
	base := filepath.Join(t.TempDir(), "vov")
	rows := [][]uint32{{10, 20}, {}, {30}}

	b := NewBulkBuilder[uint32](base, len(rows))
	for i, r := range rows {
		b.SetCount(i, len(r))
	}
	v, err := b.Build()
	require.NoError(t, err)
	defer v.Close()

	for i, r := range rows {
		require.NoError(t, v.WriteRow(i, r))
	}
	for i, r := range rows {
		if len(r) == 0 {
			assert.Empty(t, v.Row(i))
		} else {
			assert.Equal(t, r, v.Row(i))
		}
	}
}

func TestVectorOfVectorsRoundTrip(t *testing.T) {
	base := filepath.Join(t.TempDir(), "vov")
	v, err := CreateVectorOfVectors[uint32](base, 2, 8)
	require.NoError(t, err)
	_, _ = v.AppendEmptyRow()
	require.NoError(t, v.AppendToLastRow(7))
	require.NoError(t, v.AppendToLastRow(8))
	require.NoError(t, v.Close())

	v2, err := AccessVectorOfVectors[uint32](base, true)
	require.NoError(t, err)
	defer v2.Close()
	assert.Equal(t, []uint32{7, 8}, v2.Row(0))
}
