package mmvec

import (
	"unsafe"

	"github.com/scrnaseq/exprgraph/xerrors"
)

// Vector is a contiguous, file-backed array of fixed-layout T, following
// the memory-mapped-container design of spec.md §4.1. T must be a plain
// value type containing no pointers, slices, strings, or maps: its
// in-memory representation is written to disk verbatim.
type Vector[T any] struct {
	mf         *mappedFile
	objectSize uint64
}

// CreateVector creates path holding n zero-valued elements with room for
// capacity before the file must grow.
func CreateVector[T any](path string, n, capacity int) (*Vector[T], error) {
	if n < 0 || capacity < 0 || capacity < n {
		return nil, xerrors.New(xerrors.InvalidInput, "Vector.CreateNew", "capacity must be >= n >= 0")
	}
	var zero T
	objectSize := uint64(unsafe.Sizeof(zero))
	h := newHeader(objectSize, uint64(n), uint64(capacity))

	mf, err := createFile(path, h.FileSize)
	if err != nil {
		return nil, err
	}
	encodeHeader(h, mf.Bytes()[:HeaderSize])
	if err := mf.Sync(); err != nil {
		mf.Remove()
		return nil, err
	}
	return &Vector[T]{mf: mf, objectSize: objectSize}, nil
}

// AccessVector opens a previously created vector. writable is currently
// always honored as true: this store has exactly one writer per file, and
// mmvec always maps writable (see spec.md §5); readers coordinate at a
// higher level by quiescing during mutation.
func AccessVector[T any](path string, writable bool) (*Vector[T], error) {
	_ = writable
	var zero T
	objectSize := uint64(unsafe.Sizeof(zero))

	mf, err := openFile(path)
	if err != nil {
		return nil, err
	}
	h := decodeHeader(mf.Bytes()[:HeaderSize])
	if err := validateHeader(h, objectSize, "Vector.AccessExisting"); err != nil {
		mf.Close()
		return nil, err
	}
	if uint64(len(mf.Bytes())) != h.FileSize {
		mf.Close()
		return nil, xerrors.New(xerrors.Corrupt, "Vector.AccessExisting", "file size does not match header")
	}
	return &Vector[T]{mf: mf, objectSize: objectSize}, nil
}

func (v *Vector[T]) header() header {
	return decodeHeader(v.mf.Bytes()[:HeaderSize])
}

func (v *Vector[T]) setHeader(h header) {
	encodeHeader(h, v.mf.Bytes()[:HeaderSize])
}

// data returns a slice aliasing the mapped element storage. It is only
// valid until the next call that may remap the file (Resize, Reserve,
// PushBack past capacity) or Close.
func (v *Vector[T]) data() []T {
	b := v.mf.Bytes()
	if len(b) <= HeaderSize {
		return nil
	}
	capacity := v.header().Capacity
	if capacity == 0 {
		return nil
	}
	ptr := unsafe.Pointer(&b[HeaderSize])
	return unsafe.Slice((*T)(ptr), capacity)
}

// Len returns the number of stored elements.
func (v *Vector[T]) Len() int { return int(v.header().ObjectCount) }

// Cap returns the current capacity.
func (v *Vector[T]) Cap() int { return int(v.header().Capacity) }

// Get returns a copy of the element at i.
func (v *Vector[T]) Get(i int) T { return v.data()[i] }

// Set overwrites the element at i.
func (v *Vector[T]) Set(i int, val T) { v.data()[i] = val }

// At returns a pointer into the mapped storage for in-place mutation.
// The pointer is invalidated by any operation that may remap the file.
func (v *Vector[T]) At(i int) *T { return &v.data()[:v.Len()][i] }

// Slice returns a slice aliasing the live (in-use) elements. It is invalid
// after any mutating call.
func (v *Vector[T]) Slice() []T {
	n := v.Len()
	if n == 0 {
		return nil
	}
	return v.data()[:n]
}

// PushBack appends val, growing the backing file if necessary.
func (v *Vector[T]) PushBack(val T) error {
	n := v.Len()
	if err := v.Resize(n + 1); err != nil {
		return err
	}
	v.Set(n, val)
	return nil
}

// Resize changes the logical length to newSize, growing (remapping, if
// needed) or shrinking in place. Growth beyond current capacity remaps
// with a new capacity of 1.5*newSize, per spec.md §4.1.
func (v *Vector[T]) Resize(newSize int) error {
	if newSize < 0 {
		return xerrors.New(xerrors.InvalidInput, "Vector.Resize", "negative size")
	}
	h := v.header()
	if uint64(newSize) <= h.Capacity {
		if uint64(newSize) < h.ObjectCount {
			// Zero the elements that go away, mirroring a destructor call
			// on shrink so stale bytes never resurface after growth.
			d := v.data()
			var zero T
			for i := newSize; i < int(h.ObjectCount); i++ {
				d[i] = zero
			}
		}
		h.ObjectCount = uint64(newSize)
		v.setHeader(h)
		return nil
	}
	return v.growTo(uint64(newSize))
}

// Reserve ensures capacity for at least capacity elements without changing
// the logical length.
func (v *Vector[T]) Reserve(capacity int) error {
	if capacity < 0 {
		return xerrors.New(xerrors.InvalidInput, "Vector.Reserve", "negative capacity")
	}
	h := v.header()
	if uint64(capacity) <= h.Capacity {
		return nil
	}
	n := h.ObjectCount
	if err := v.growTo(n); err != nil {
		return err
	}
	// growTo(n) only sizes capacity to 1.5x the current length, so force
	// the requested capacity explicitly.
	return v.growCapacityTo(uint64(capacity))
}

func (v *Vector[T]) growTo(newSize uint64) error {
	return v.growCapacityTo(uint64(1.5 * float64(newSize)))
}

func (v *Vector[T]) growCapacityTo(requestedCapacity uint64) error {
	h := v.header()
	if requestedCapacity < h.ObjectCount {
		requestedCapacity = h.ObjectCount
	}
	newHdr := newHeader(v.objectSize, h.ObjectCount, requestedCapacity)
	if newHdr.Capacity < requestedCapacity {
		return xerrors.New(xerrors.CapacityExhausted, "Vector.grow", "unable to satisfy requested capacity")
	}
	if err := v.mf.remap(newHdr.FileSize); err != nil {
		return err
	}
	v.setHeader(newHdr)
	return nil
}

// SyncToDisk forces the mapped pages to durable storage.
func (v *Vector[T]) SyncToDisk() error { return v.mf.Sync() }

// Close syncs and unmaps the file.
func (v *Vector[T]) Close() error { return v.mf.Close() }

// Remove closes and deletes the backing file.
func (v *Vector[T]) Remove() error { return v.mf.Remove() }
