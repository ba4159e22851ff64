package serialization

import (
	"fmt"
	"os"

	"github.com/born-ml/hpickle/internal/container"
)

// MmapReader provides memory-mapped access to .hpk files. Dataset
// payloads of the decoded tree point straight into the mapping, so large
// arrays are paged in on demand instead of being read up front.
//
// The tree is only valid until Close. Always call Close when done (use defer).
type MmapReader struct {
	file   *os.File
	data   []byte // mmap'd region (read-only)
	root   *container.Group
	header Header
	closed bool
}

// NewMmapReader maps path with default options (strict validation).
func NewMmapReader(path string) (*MmapReader, error) {
	return NewMmapReaderWithOptions(path, ReaderOptions{ValidationLevel: ValidationStrict})
}

// NewMmapReaderWithOptions maps path and decodes its tree. With
// opts.Writable the payloads are copied out of the mapping.
func NewMmapReaderWithOptions(path string, opts ReaderOptions) (*MmapReader, error) {
	//nolint:gosec // G304: File path comes from user input, which is expected for loading
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	stat, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if stat.Size() < FixedHeaderSize {
		_ = file.Close()
		return nil, fmt.Errorf("%w: %d bytes (minimum %d bytes required)", ErrTruncated, stat.Size(), FixedHeaderSize)
	}

	// Memory map the file (platform-specific implementation)
	data, err := mmapFile(file, stat.Size())
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("mmap failed: %w", err)
	}

	r := &MmapReader{file: file, data: data}
	if r.root, r.header, err = Decode(data, opts); err != nil {
		_ = r.Close()
		return nil, err
	}
	return r, nil
}

// Root returns the decoded tree.
func (r *MmapReader) Root() *container.Group {
	return r.root
}

// Header returns the file header.
func (r *MmapReader) Header() Header {
	return r.header
}

// Close unmaps and closes the file.
func (r *MmapReader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	r.root = nil

	var err error
	if r.data != nil {
		err = munmapFile(r.data)
		r.data = nil
	}

	if closeErr := r.file.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	return err
}
