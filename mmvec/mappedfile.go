package mmvec

import (
	"os"
	"sync/atomic"

	"github.com/scrnaseq/exprgraph/xerrors"
)

// mappedFile owns a single writable memory mapping over an on-disk file.
// It is the sole owner of the mapping and is responsible for unmapping it
// on Close. Only one writable mapping per file is ever created, per
// spec.md's single-writer resource model.
type mappedFile struct {
	path   string
	f      *os.File
	data   []byte
	closed atomic.Bool
}

// createFile creates (or truncates) path to sizeBytes and maps it writable.
func createFile(path string, sizeBytes uint64) (*mappedFile, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.IOError, "createFile", "open failed", err)
	}
	if err := f.Truncate(int64(sizeBytes)); err != nil {
		f.Close()
		os.Remove(path)
		return nil, xerrors.Wrap(xerrors.IOError, "createFile", "truncate failed", err)
	}
	data, err := osMapWritable(f, int(sizeBytes))
	if err != nil {
		f.Close()
		os.Remove(path)
		return nil, xerrors.Wrap(xerrors.IOError, "createFile", "mmap failed", err)
	}
	return &mappedFile{path: path, f: f, data: data}, nil
}

// openFile maps an existing file writable.
func openFile(path string) (*mappedFile, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.IOError, "openFile", "open failed", err)
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, xerrors.Wrap(xerrors.IOError, "openFile", "stat failed", err)
	}
	size := fi.Size()
	if size <= 0 {
		f.Close()
		return nil, xerrors.New(xerrors.Corrupt, "openFile", "empty file")
	}
	data, err := osMapWritable(f, int(size))
	if err != nil {
		f.Close()
		return nil, xerrors.Wrap(xerrors.IOError, "openFile", "mmap failed", err)
	}
	return &mappedFile{path: path, f: f, data: data}, nil
}

// remap truncates the backing file to newSize and remaps it. Used when a
// Vector grows past its current capacity.
func (m *mappedFile) remap(newSize uint64) error {
	if err := m.unmapOnly(); err != nil {
		return err
	}
	if err := m.f.Truncate(int64(newSize)); err != nil {
		return xerrors.Wrap(xerrors.IOError, "remap", "truncate failed", err)
	}
	data, err := osMapWritable(m.f, int(newSize))
	if err != nil {
		return xerrors.Wrap(xerrors.IOError, "remap", "mmap failed", err)
	}
	m.data = data
	return nil
}

func (m *mappedFile) unmapOnly() error {
	if m.data == nil {
		return nil
	}
	err := osUnmap(m.data)
	m.data = nil
	if err != nil {
		return xerrors.Wrap(xerrors.IOError, "unmap", "munmap failed", err)
	}
	return nil
}

// Sync forces the mapped pages to disk (msync).
func (m *mappedFile) Sync() error {
	if m.closed.Load() {
		return nil
	}
	if err := osSync(m.data); err != nil {
		return xerrors.Wrap(xerrors.IOError, "Sync", "msync failed", err)
	}
	return nil
}

// Close syncs, unmaps, and closes the underlying file. Idempotent.
func (m *mappedFile) Close() error {
	if m.closed.Swap(true) {
		return nil
	}
	syncErr := m.Sync()
	unmapErr := m.unmapOnly()
	closeErr := m.f.Close()
	if syncErr != nil {
		return syncErr
	}
	if unmapErr != nil {
		return unmapErr
	}
	if closeErr != nil {
		return xerrors.Wrap(xerrors.IOError, "Close", "file close failed", closeErr)
	}
	return nil
}

// Remove closes the mapping and unlinks the backing file.
func (m *mappedFile) Remove() error {
	path := m.path
	m.closed.Store(true)
	_ = m.unmapOnly()
	_ = m.f.Close()
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return xerrors.Wrap(xerrors.IOError, "Remove", "unlink failed", err)
	}
	return nil
}

func (m *mappedFile) Bytes() []byte {
	if m.closed.Load() {
		return nil
	}
	return m.data
}
