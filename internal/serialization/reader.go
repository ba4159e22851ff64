package serialization

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/born-ml/hpickle/internal/container"
	"github.com/born-ml/hpickle/internal/tensor"
)

// ReaderOptions configures decoding.
type ReaderOptions struct {
	SkipChecksumValidation bool            // Skip checksum validation (faster but less safe)
	ValidationLevel        ValidationLevel // Validation strictness level
	Writable               bool            // Copy payloads and leave the tree writable
}

// Decode parses a complete .hpk image. Unless opts.Writable is set the
// returned tree is read-only and its payloads alias b.
func Decode(b []byte, opts ReaderOptions) (*container.Group, Header, error) {
	fixed, err := parseFixedHeader(b)
	if err != nil {
		return nil, Header{}, err
	}
	end := int64(FixedHeaderSize) + int64(fixed.headerSize) //nolint:gosec // G115: bounded by MaxHeaderSize
	if end > int64(len(b)) {
		return nil, Header{}, fmt.Errorf("%w: header extends beyond input: header_end=%d, size=%d", ErrTruncated, end, len(b))
	}
	header, err := parseHeader(b[FixedHeaderSize:end])
	if err != nil {
		return nil, Header{}, err
	}

	start := fixed.dataOffset()
	dataEnd := start + int64(fixed.dataSize) //nolint:gosec // G115: checked in parseFixedHeader
	if dataEnd > int64(len(b)) {
		return nil, Header{}, fmt.Errorf("%w: data section ends at %d, input is %d bytes", ErrTruncated, dataEnd, len(b))
	}
	data := b[start:dataEnd]

	if !opts.SkipChecksumValidation {
		if err := ValidateChecksum(ComputeChecksum(data), fixed.checksum); err != nil {
			return nil, Header{}, err
		}
	}
	if err := ValidateHeader(&header, int64(len(data)), opts.ValidationLevel); err != nil {
		return nil, Header{}, fmt.Errorf("validation failed: %w", err)
	}

	root, err := buildTree(&header, data, opts.Writable, !opts.Writable)
	if err != nil {
		return nil, Header{}, err
	}
	return root, header, nil
}

// ReadFrom reads a whole .hpk stream.
func ReadFrom(r io.Reader, opts ReaderOptions) (*container.Group, Header, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, Header{}, fmt.Errorf("failed to read stream: %w", err)
	}
	return Decode(b, opts)
}

func parseHeader(b []byte) (Header, error) {
	var h Header
	if err := json.Unmarshal(b, &h); err != nil {
		return Header{}, fmt.Errorf("%w: failed to parse header JSON: %w", container.ErrCorruptData, err)
	}
	if h.FormatVersion > FormatVersion {
		return Header{}, fmt.Errorf("%w: header version %d, expected %d", ErrUnsupportedVersion, h.FormatVersion, FormatVersion)
	}
	return h, nil
}

// buildTree materialises the node tree. Payload bounds are checked here
// whatever the validation level.
func buildTree(h *Header, data []byte, copyPayloads, readOnly bool) (*container.Group, error) {
	root := container.NewRoot()
	if err := restoreGroup(root, &h.Root, data, copyPayloads); err != nil {
		return nil, err
	}
	if readOnly {
		root.Freeze()
	}
	return root, nil
}

func restoreGroup(g *container.Group, meta *NodeMeta, data []byte, copyPayloads bool) error {
	for _, a := range meta.Attrs {
		v, err := decodeAttr(a)
		if err != nil {
			return container.WrapError("decode", g.Path(), "", err)
		}
		if err := g.SetAttr(a.Name, v); err != nil {
			return err
		}
	}

	for i := range meta.Children {
		c := &meta.Children[i]
		switch c.Kind {
		case KindGroup:
			sub, err := g.CreateGroup(c.Name)
			if err != nil {
				return err
			}
			if err := restoreGroup(sub, c, data, copyPayloads); err != nil {
				return err
			}
		case KindDataset:
			if err := restoreDataset(g, c, data, copyPayloads); err != nil {
				return err
			}
		default:
			return &ValidationError{Type: "invalid_kind", Node: g.Path(), Details: fmt.Sprintf("child %q has kind %q", c.Name, c.Kind)}
		}
	}
	return nil
}

func restoreDataset(g *container.Group, meta *NodeMeta, data []byte, copyPayloads bool) error {
	dt, err := tensor.ParseDataType(meta.DType)
	if err != nil {
		return container.WrapError("decode", g.Path(), "", fmt.Errorf("%w: %w", container.ErrCorruptData, err))
	}
	if meta.Offset < 0 || meta.Size < 0 || meta.Size > int64(len(data)) || meta.Offset > int64(len(data))-meta.Size {
		return fmt.Errorf("%w: %s/%s: offset %d + size %d > data_size %d",
			ErrOutOfBounds, g.Path(), meta.Name, meta.Offset, meta.Size, len(data))
	}

	payload := data[meta.Offset : meta.Offset+meta.Size : meta.Offset+meta.Size]
	if copyPayloads {
		payload = slices.Clone(payload)
	}
	raw, err := tensor.FromBytes(tensor.Shape(meta.Shape), dt, payload)
	if err != nil {
		return container.WrapError("decode", g.Path(), "", fmt.Errorf("%w: %w", container.ErrCorruptData, err))
	}
	_, err = g.AddDatasetWithOptions(meta.Name, raw, container.DatasetOptions(meta.Options))
	return err
}

// Reader reads .hpk files.
type Reader struct {
	file   *os.File
	header Header
	fixed  fixedHeader
	opts   ReaderOptions
	closed bool
}

// NewReader creates a new .hpk file reader with default options (strict validation).
func NewReader(path string) (*Reader, error) {
	return NewReaderWithOptions(path, ReaderOptions{ValidationLevel: ValidationStrict})
}

// NewReaderWithOptions opens a file and checks its header and, unless
// skipped, the checksum of its data section.
func NewReaderWithOptions(path string, opts ReaderOptions) (*Reader, error) {
	//nolint:gosec // G304: File path comes from user input, which is expected for loading
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	r := &Reader{file: file, opts: opts}
	if err := r.parse(); err != nil {
		_ = file.Close() // Best effort close on error
		return nil, err
	}
	return r, nil
}

func (r *Reader) parse() error {
	prefix := make([]byte, FixedHeaderSize)
	if n, err := io.ReadFull(r.file, prefix); err != nil {
		if _, magicErr := parseFixedHeader(prefix[:n]); magicErr != nil {
			return magicErr
		}
		return fmt.Errorf("failed to read fixed header: %w", err)
	}
	fixed, err := parseFixedHeader(prefix)
	if err != nil {
		return err
	}
	r.fixed = fixed

	headerBytes := make([]byte, fixed.headerSize)
	if _, err := io.ReadFull(r.file, headerBytes); err != nil {
		return fmt.Errorf("%w: failed to read header JSON: %w", ErrTruncated, err)
	}
	if r.header, err = parseHeader(headerBytes); err != nil {
		return err
	}

	info, err := r.file.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}
	dataEnd := fixed.dataOffset() + int64(fixed.dataSize) //nolint:gosec // G115: checked in parseFixedHeader
	if dataEnd > info.Size() {
		return fmt.Errorf("%w: data section ends at %d, file is %d bytes", ErrTruncated, dataEnd, info.Size())
	}

	if !r.opts.SkipChecksumValidation {
		computed, err := ComputeChecksumReader(r.section())
		if err != nil {
			return fmt.Errorf("failed to read data section for checksum: %w", err)
		}
		if err := ValidateChecksum(computed, fixed.checksum); err != nil {
			return err
		}
	}

	if err := ValidateHeader(&r.header, int64(fixed.dataSize), r.opts.ValidationLevel); err != nil { //nolint:gosec // G115: checked in parseFixedHeader
		return fmt.Errorf("validation failed: %w", err)
	}
	return nil
}

func (r *Reader) section() *io.SectionReader {
	return io.NewSectionReader(r.file, r.fixed.dataOffset(), int64(r.fixed.dataSize)) //nolint:gosec // G115: checked in parseFixedHeader
}

// Header returns the file header.
func (r *Reader) Header() Header {
	return r.header
}

// Version returns the format version.
func (r *Reader) Version() uint32 {
	return r.fixed.version
}

// Flags returns the flags bitfield.
func (r *Reader) Flags() uint32 {
	return r.fixed.flags
}

// Checksum returns the stored SHA-256 checksum.
func (r *Reader) Checksum() [32]byte {
	return r.fixed.checksum
}

// ReadTree reads the data section and builds the tree. The tree owns its
// payloads; it is read-only unless the reader was opened writable.
func (r *Reader) ReadTree() (*container.Group, error) {
	if r.closed {
		return nil, fmt.Errorf("reader is closed")
	}
	data := make([]byte, r.fixed.dataSize)
	if _, err := io.ReadFull(r.section(), data); err != nil {
		return nil, fmt.Errorf("failed to read data section: %w", err)
	}
	// data is private to this call, so payloads need no second copy.
	return buildTree(&r.header, data, false, !r.opts.Writable)
}

// Close closes the reader and the underlying file.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	return r.file.Close()
}
