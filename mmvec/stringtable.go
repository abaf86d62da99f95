package mmvec

import (
	"hash/fnv"

	"github.com/scrnaseq/exprgraph/xerrors"
)

// InvalidStringID is the sentinel returned when a name is absent.
const InvalidStringID uint32 = 0xFFFFFFFF

type bucketRecord struct {
	Hash     uint64
	ID       uint32
	Occupied uint32
}

// StringTable is a name-indexed, open-addressing interning map returning
// dense StringIds, per spec.md §4.1. Capacity (the bucket array size) is
// fixed at creation; callers must size for at least 2x the number of
// distinct strings they expect to intern, since insertion fails with
// CapacityExhausted once the table cannot find a free slot within one
// full probe of the table.
type StringTable struct {
	buckets *Vector[bucketRecord]
	names   *VectorOfVectors[byte]
}

func bucketPath(basePath string) string { return basePath + ".buckets" }
func namesPath(basePath string) string  { return basePath + ".names" }

// CreateStringTable creates a new, empty StringTable with room for
// bucketCapacity distinct entries.
func CreateStringTable(basePath string, bucketCapacity int) (*StringTable, error) {
	buckets, err := CreateVector[bucketRecord](bucketPath(basePath), bucketCapacity, bucketCapacity)
	if err != nil {
		return nil, err
	}
	names, err := CreateVectorOfVectors[byte](namesPath(basePath), bucketCapacity, bucketCapacity*16)
	if err != nil {
		buckets.Remove()
		return nil, err
	}
	return &StringTable{buckets: buckets, names: names}, nil
}

// AccessStringTable opens a previously created StringTable.
func AccessStringTable(basePath string, writable bool) (*StringTable, error) {
	buckets, err := AccessVector[bucketRecord](bucketPath(basePath), writable)
	if err != nil {
		return nil, err
	}
	names, err := AccessVectorOfVectors[byte](namesPath(basePath), writable)
	if err != nil {
		buckets.Close()
		return nil, err
	}
	return &StringTable{buckets: buckets, names: names}, nil
}

func hashName(name string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(name))
	return h.Sum64()
}

func bytesEqualString(b []byte, s string) bool {
	if len(b) != len(s) {
		return false
	}
	for i := range b {
		if b[i] != s[i] {
			return false
		}
	}
	return true
}

// Lookup returns the existing StringId for name, or InvalidStringID if
// name has not been interned.
func (t *StringTable) Lookup(name string) uint32 {
	cap := t.buckets.Cap()
	if cap == 0 {
		return InvalidStringID
	}
	h := hashName(name)
	start := int(h % uint64(cap))
	for probe := 0; probe < cap; probe++ {
		idx := (start + probe) % cap
		b := t.buckets.Get(idx)
		if b.Occupied == 0 {
			return InvalidStringID
		}
		if b.Hash == h && bytesEqualString(t.names.Row(int(b.ID)), name) {
			return b.ID
		}
	}
	return InvalidStringID
}

// Intern returns the existing StringId for name, inserting a new dense id
// if absent. Fails with CapacityExhausted if no free bucket slot can be
// found within one full probe of the table.
func (t *StringTable) Intern(name string) (uint32, error) {
	cap := t.buckets.Cap()
	if cap == 0 {
		return 0, xerrors.New(xerrors.CapacityExhausted, "StringTable.Intern", "zero-capacity table")
	}
	h := hashName(name)
	start := int(h % uint64(cap))
	for probe := 0; probe < cap; probe++ {
		idx := (start + probe) % cap
		b := t.buckets.Get(idx)
		if b.Occupied == 0 {
			id, err := t.appendName(name)
			if err != nil {
				return 0, err
			}
			t.buckets.Set(idx, bucketRecord{Hash: h, ID: id, Occupied: 1})
			return id, nil
		}
		if b.Hash == h && bytesEqualString(t.names.Row(int(b.ID)), name) {
			return b.ID, nil
		}
	}
	return 0, xerrors.New(xerrors.CapacityExhausted, "StringTable.Intern", "no free bucket slot")
}

func (t *StringTable) appendName(name string) (uint32, error) {
	id := t.names.RowCount()
	if _, err := t.names.AppendEmptyRow(); err != nil {
		return 0, err
	}
	for i := 0; i < len(name); i++ {
		if err := t.names.AppendToLastRow(name[i]); err != nil {
			return 0, err
		}
	}
	return uint32(id), nil
}

// Name returns the interned string for id.
func (t *StringTable) Name(id uint32) string {
	row := t.names.Row(int(id))
	return string(row)
}

// Count returns the number of distinct interned strings.
func (t *StringTable) Count() int { return t.names.RowCount() }

// SyncToDisk syncs both backing structures.
func (t *StringTable) SyncToDisk() error {
	if err := t.buckets.SyncToDisk(); err != nil {
		return err
	}
	return t.names.SyncToDisk()
}

// Close closes both backing structures.
func (t *StringTable) Close() error {
	err1 := t.buckets.Close()
	err2 := t.names.Close()
	if err1 != nil {
		return err1
	}
	return err2
}

// Remove removes both backing structures.
func (t *StringTable) Remove() error {
	err1 := t.buckets.Remove()
	err2 := t.names.Remove()
	if err1 != nil {
		return err1
	}
	return err2
}
