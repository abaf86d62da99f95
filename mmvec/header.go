package mmvec

import (
	"encoding/binary"

	"github.com/scrnaseq/exprgraph/xerrors"
)

// Magic identifies a mmvec-backed file. Chosen to match the value carried
// over from the format this store's on-disk layout descends from.
const Magic uint64 = 0xA3756FD4B5D8BCC1

// HeaderSize is the fixed size, in bytes, of every file's header.
const HeaderSize = 256

// header is the 256-byte record at the start of every mmvec file.
// Field order is part of the on-disk contract; do not reorder.
type header struct {
	HeaderSize  uint64
	ObjectSize  uint64
	ObjectCount uint64
	PageCount   uint64
	FileSize    uint64
	Capacity    uint64
	Magic       uint64
}

const headerFieldBytes = 7 * 8

func encodeHeader(h header, buf []byte) {
	binary.LittleEndian.PutUint64(buf[0:8], h.HeaderSize)
	binary.LittleEndian.PutUint64(buf[8:16], h.ObjectSize)
	binary.LittleEndian.PutUint64(buf[16:24], h.ObjectCount)
	binary.LittleEndian.PutUint64(buf[24:32], h.PageCount)
	binary.LittleEndian.PutUint64(buf[32:40], h.FileSize)
	binary.LittleEndian.PutUint64(buf[40:48], h.Capacity)
	binary.LittleEndian.PutUint64(buf[48:56], h.Magic)
	for i := headerFieldBytes; i < HeaderSize; i++ {
		buf[i] = 0
	}
}

func decodeHeader(buf []byte) header {
	return header{
		HeaderSize:  binary.LittleEndian.Uint64(buf[0:8]),
		ObjectSize:  binary.LittleEndian.Uint64(buf[8:16]),
		ObjectCount: binary.LittleEndian.Uint64(buf[16:24]),
		PageCount:   binary.LittleEndian.Uint64(buf[24:32]),
		FileSize:    binary.LittleEndian.Uint64(buf[32:40]),
		Capacity:    binary.LittleEndian.Uint64(buf[40:48]),
		Magic:       binary.LittleEndian.Uint64(buf[48:56]),
	}
}

func computePageCount(nBytes uint64) uint64 {
	if nBytes == 0 {
		return 1
	}
	return (nBytes-1)/PageSize + 1
}

func newHeader(objectSize, n, requestedCapacity uint64) header {
	if requestedCapacity < n {
		requestedCapacity = n
	}
	h := header{
		HeaderSize:  HeaderSize,
		ObjectSize:  objectSize,
		ObjectCount: n,
	}
	h.PageCount = computePageCount(HeaderSize + objectSize*requestedCapacity)
	h.FileSize = h.PageCount * PageSize
	if objectSize > 0 {
		h.Capacity = (h.FileSize - HeaderSize) / objectSize
	}
	h.Magic = Magic
	return h
}

func validateHeader(h header, objectSize uint64, op string) error {
	if h.Magic != Magic {
		return xerrors.New(xerrors.Corrupt, op, "magic number mismatch")
	}
	if h.HeaderSize != HeaderSize {
		return xerrors.New(xerrors.Corrupt, op, "unexpected header size")
	}
	if h.ObjectSize != objectSize {
		return xerrors.New(xerrors.Corrupt, op, "object size mismatch for stored type")
	}
	if h.ObjectCount > h.Capacity {
		return xerrors.New(xerrors.Corrupt, op, "object count exceeds capacity")
	}
	return nil
}
