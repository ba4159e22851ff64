package serialization

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/born-ml/hpickle/internal/container"
)

// Creator is recorded in the header of every file written by this package.
const Creator = "hpickle/1"

// WriterOptions configures encoding.
type WriterOptions struct {
	ID       uuid.UUID         // container id; a new random id when zero
	Metadata map[string]string // custom metadata stored in the header
}

// Writer writes container trees in .hpk format to a file.
type Writer struct {
	file   *os.File
	closed bool
}

// NewWriter creates a new .hpk file writer.
func NewWriter(path string) (*Writer, error) {
	//nolint:gosec // G304: File path comes from user input, which is expected for saving
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	return &Writer{file: file}, nil
}

// WriteTree encodes root into the file.
func (w *Writer) WriteTree(root *container.Group, opts WriterOptions) (Header, error) {
	if w.closed {
		return Header{}, fmt.Errorf("writer is closed")
	}
	return Encode(w.file, root, opts)
}

// Sync flushes the file to stable storage.
func (w *Writer) Sync() error {
	return w.file.Sync()
}

// Close closes the writer and the underlying file.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	return w.file.Close()
}

// Marshal encodes root into a new byte slice.
func Marshal(root *container.Group, opts WriterOptions) ([]byte, Header, error) {
	var buf bytes.Buffer
	h, err := Encode(&buf, root, opts)
	if err != nil {
		return nil, Header{}, err
	}
	return buf.Bytes(), h, nil
}

// Encode writes root and everything below it to w.
func Encode(w io.Writer, root *container.Group, opts WriterOptions) (Header, error) {
	id := opts.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	header := Header{
		FormatVersion: FormatVersion,
		Creator:       Creator,
		CreatedAt:     time.Now().UTC(),
		ID:            id.String(),
		Metadata:      opts.Metadata,
	}

	// Lay out the tree, collecting payloads in the data section.
	var data []byte
	var count int
	meta, err := describeNode(root, &data, &count)
	if err != nil {
		return Header{}, err
	}
	if count > MaxNodeCount {
		return Header{}, &ValidationError{
			Type:    "too_many_nodes",
			Details: fmt.Sprintf("got %d, max %d", count, MaxNodeCount),
		}
	}
	header.Root = meta

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return Header{}, fmt.Errorf("failed to marshal header: %w", err)
	}
	if len(headerJSON) > MaxHeaderSize {
		return Header{}, ErrHeaderTooLarge
	}

	flags := uint32(0)
	if len(data) > 0 {
		flags |= FlagHasDatasets
	}
	if len(opts.Metadata) > 0 {
		flags |= FlagHasMetadata
	}
	fixed := fixedHeader{
		version:    FormatVersion,
		flags:      flags,
		headerSize: uint64(len(headerJSON)),
		dataSize:   uint64(len(data)),
		checksum:   ComputeChecksum(data),
	}

	if _, err := w.Write(fixed.encode()); err != nil {
		return Header{}, fmt.Errorf("failed to write fixed header: %w", err)
	}
	if _, err := w.Write(headerJSON); err != nil {
		return Header{}, fmt.Errorf("failed to write header JSON: %w", err)
	}

	// Pad so that the data section starts on a 64-byte boundary.
	currentPos := int64(FixedHeaderSize + len(headerJSON))
	if padding := alignUp(currentPos) - currentPos; padding > 0 {
		if _, err := w.Write(make([]byte, padding)); err != nil {
			return Header{}, fmt.Errorf("failed to write padding: %w", err)
		}
	}

	if _, err := w.Write(data); err != nil {
		return Header{}, fmt.Errorf("failed to write data section: %w", err)
	}
	return header, nil
}

func describeNode(n container.Node, data *[]byte, count *int) (NodeMeta, error) {
	*count++
	meta := NodeMeta{Name: n.Name()}

	switch x := n.(type) {
	case *container.Dataset:
		// Each payload starts on an aligned offset.
		offset := alignUp(int64(len(*data)))
		*data = append(*data, make([]byte, offset-int64(len(*data)))...)
		*data = append(*data, x.Data()...)

		meta.Kind = KindDataset
		meta.DType = x.DType().String()
		meta.Shape = []int(x.Shape().Clone())
		meta.Offset = offset
		meta.Size = int64(len(x.Data()))
		if opts := x.Options(); len(opts) > 0 {
			meta.Options = opts.Clone()
		}
		return meta, nil

	case *container.Group:
		meta.Kind = KindGroup
		for _, name := range x.Attrs() {
			v, err := x.Attr(name)
			if err != nil {
				return NodeMeta{}, err
			}
			a, err := encodeAttr(name, v)
			if err != nil {
				return NodeMeta{}, container.WrapError("encode", x.Path(), "", err)
			}
			meta.Attrs = append(meta.Attrs, a)
		}
		for _, c := range x.Nodes() {
			cm, err := describeNode(c, data, count)
			if err != nil {
				return NodeMeta{}, err
			}
			meta.Children = append(meta.Children, cm)
		}
		return meta, nil

	default:
		return NodeMeta{}, fmt.Errorf("unknown node type %T", n)
	}
}
