//go:build windows

package mmvec

import (
	"os"
	"unsafe"

	"golang.org/x/sys/windows"
)

func osMapWritable(f *os.File, size int) ([]byte, error) {
	if size == 0 {
		return nil, nil
	}

	h, err := windows.CreateFileMapping(windows.Handle(f.Fd()), nil, windows.PAGE_READWRITE, 0, 0, nil)
	if err != nil {
		return nil, err
	}
	defer windows.CloseHandle(h)

	addr, err := windows.MapViewOfFile(h, windows.FILE_MAP_WRITE|windows.FILE_MAP_READ, 0, 0, uintptr(size))
	if err != nil {
		return nil, err
	}

	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), size), nil
}

func osUnmap(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	addr := unsafe.Pointer(&data[0])
	return windows.UnmapViewOfFile(uintptr(addr))
}

func osSync(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	return windows.FlushViewOfFile(uintptr(unsafe.Pointer(&data[0])), uintptr(len(data)))
}
