package mmvec

import (
	"fmt"

	"github.com/scrnaseq/exprgraph/xerrors"
)

// VectorOfVectors is a jagged array stored as a flat data Vector plus a
// table-of-contents Vector of start offsets (size = outer_count + 1),
// per spec.md §4.1.
type VectorOfVectors[T any] struct {
	toc  *Vector[uint64]
	data *Vector[T]
}

func tocPath(basePath string) string { return basePath + ".toc" }
func dataPath(basePath string) string { return basePath + ".data" }

// CreateVectorOfVectors creates a new, empty VectorOfVectors at basePath.
func CreateVectorOfVectors[T any](basePath string, capacityRows, capacityEntries int) (*VectorOfVectors[T], error) {
	toc, err := CreateVector[uint64](tocPath(basePath), 1, capacityRows+1)
	if err != nil {
		return nil, err
	}
	toc.Set(0, 0)
	data, err := CreateVector[T](dataPath(basePath), 0, capacityEntries)
	if err != nil {
		toc.Remove()
		return nil, err
	}
	return &VectorOfVectors[T]{toc: toc, data: data}, nil
}

// AccessVectorOfVectors opens a previously created VectorOfVectors.
func AccessVectorOfVectors[T any](basePath string, writable bool) (*VectorOfVectors[T], error) {
	toc, err := AccessVector[uint64](tocPath(basePath), writable)
	if err != nil {
		return nil, err
	}
	data, err := AccessVector[T](dataPath(basePath), writable)
	if err != nil {
		toc.Close()
		return nil, err
	}
	if toc.Len() < 1 {
		toc.Close()
		data.Close()
		return nil, xerrors.New(xerrors.Corrupt, "VectorOfVectors.AccessExisting", "table of contents missing sentinel entry")
	}
	return &VectorOfVectors[T]{toc: toc, data: data}, nil
}

// RowCount returns the number of outer rows.
func (v *VectorOfVectors[T]) RowCount() int { return v.toc.Len() - 1 }

// Row returns a slice aliasing the entries of row i.
func (v *VectorOfVectors[T]) Row(i int) []T {
	start := v.toc.Get(i)
	end := v.toc.Get(i + 1)
	full := v.data.data()
	return full[start:end]
}

// RowLen returns the number of entries in row i.
func (v *VectorOfVectors[T]) RowLen(i int) int {
	return int(v.toc.Get(i+1) - v.toc.Get(i))
}

// AppendEmptyRow appends a new, empty row and returns its index.
func (v *VectorOfVectors[T]) AppendEmptyRow() (int, error) {
	last := v.toc.Get(v.toc.Len() - 1)
	if err := v.toc.PushBack(last); err != nil {
		return 0, err
	}
	return v.toc.Len() - 2, nil
}

// AppendToLastRow appends item to the most recently added row.
func (v *VectorOfVectors[T]) AppendToLastRow(item T) error {
	if v.toc.Len() < 2 {
		return xerrors.New(xerrors.InvalidInput, "VectorOfVectors.AppendToLastRow", "no row has been appended yet")
	}
	if err := v.data.PushBack(item); err != nil {
		return err
	}
	last := v.toc.Len() - 1
	v.toc.Set(last, v.toc.Get(last)+1)
	return nil
}

// InsertIntoRow appends item to the end of row i, which need not be the
// last row. Unlike AppendToLastRow this shifts every entry after row i's
// end by one slot and bumps every later row's TOC offset, so it costs
// O(total entries) rather than O(1); it exists for the rare case of
// growing a meta-data row for a cell that is not the most recently added
// one (see store.SetCellMetaData).
func (v *VectorOfVectors[T]) InsertIntoRow(i int, item T) error {
	if i < 0 || i >= v.RowCount() {
		return xerrors.New(xerrors.InvalidInput, "VectorOfVectors.InsertIntoRow", "row index out of range")
	}
	insertAt := int(v.toc.Get(i + 1))
	n := v.data.Len()
	if err := v.data.Resize(n + 1); err != nil {
		return err
	}
	full := v.data.data()
	copy(full[insertAt+1:n+1], full[insertAt:n])
	full[insertAt] = item
	for r := i + 1; r < v.toc.Len(); r++ {
		v.toc.Set(r, v.toc.Get(r)+1)
	}
	return nil
}

// BulkBuilder supports the two-pass build described in spec.md §4.1: a
// first pass records the entry count of each row, then Build prefix-sums
// those counts into the TOC once so shard writers can be lock-free during
// the scatter pass.
type BulkBuilder[T any] struct {
	basePath string
	counts   []uint64
}

// NewBulkBuilder starts a two-pass build for rowCount rows.
func NewBulkBuilder[T any](basePath string, rowCount int) *BulkBuilder[T] {
	return &BulkBuilder[T]{basePath: basePath, counts: make([]uint64, rowCount)}
}

// SetCount records the number of entries row i will receive. Safe to call
// concurrently for distinct i (pass 1, sharded).
func (b *BulkBuilder[T]) SetCount(row int, count int) { b.counts[row] = uint64(count) }

// Build allocates the backing files sized exactly to the recorded counts
// and returns the VectorOfVectors ready for the scatter pass; callers
// scatter with WriteRow after Build returns.
func (b *BulkBuilder[T]) Build() (*VectorOfVectors[T], error) {
	total := uint64(0)
	offsets := make([]uint64, len(b.counts)+1)
	for i, c := range b.counts {
		offsets[i] = total
		total += c
	}
	offsets[len(b.counts)] = total

	toc, err := CreateVector[uint64](tocPath(b.basePath), len(offsets), len(offsets))
	if err != nil {
		return nil, err
	}
	for i, off := range offsets {
		toc.Set(i, off)
	}
	data, err := CreateVector[T](dataPath(b.basePath), int(total), int(total))
	if err != nil {
		toc.Remove()
		return nil, err
	}
	return &VectorOfVectors[T]{toc: toc, data: data}, nil
}

// WriteRow scatters items into row i in place. i must have been sized via
// SetCount with len(items) entries before Build was called.
func (v *VectorOfVectors[T]) WriteRow(i int, items []T) error {
	dst := v.Row(i)
	if len(dst) != len(items) {
		return xerrors.New(xerrors.InvalidInput, "VectorOfVectors.WriteRow", fmt.Sprintf("row %d expects %d entries, got %d", i, len(dst), len(items)))
	}
	copy(dst, items)
	return nil
}

// SyncToDisk syncs both backing files.
func (v *VectorOfVectors[T]) SyncToDisk() error {
	if err := v.data.SyncToDisk(); err != nil {
		return err
	}
	return v.toc.SyncToDisk()
}

// Close closes both backing files.
func (v *VectorOfVectors[T]) Close() error {
	err1 := v.data.Close()
	err2 := v.toc.Close()
	if err1 != nil {
		return err1
	}
	return err2
}

// Remove removes both backing files.
func (v *VectorOfVectors[T]) Remove() error {
	err1 := v.data.Remove()
	err2 := v.toc.Remove()
	if err1 != nil {
		return err1
	}
	return err2
}
