//go:build windows

package serialization

import (
	"fmt"
	"os"
	"syscall"
	"unsafe"
)

// mmapFile memory-maps a file for reading (Windows implementation).
func mmapFile(f *os.File, size int64) ([]byte, error) {
	handle, err := syscall.CreateFileMapping(
		syscall.Handle(f.Fd()),
		nil,
		syscall.PAGE_READONLY,
		uint32(size>>32), //nolint:gosec // G115: high dword of the file size
		uint32(size),     //nolint:gosec // G115: low dword of the file size
		nil,
	)
	if err != nil {
		return nil, err
	}
	// The view keeps the mapping alive after the handle is closed.
	defer func() { _ = syscall.CloseHandle(handle) }()

	addr, err := syscall.MapViewOfFile(handle, syscall.FILE_MAP_READ, 0, 0, uintptr(size))
	if err != nil {
		return nil, err
	}
	//nolint:gosec // G103: addr is a PAGE_READONLY view of exactly size bytes
	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), int(size)), nil
}

// munmapFile unmaps a memory-mapped file (Windows implementation).
func munmapFile(data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("cannot unmap empty data")
	}
	return syscall.UnmapViewOfFile(uintptr(unsafe.Pointer(&data[0]))) //nolint:gosec // G103: base of the view
}
