package serialization

import (
	"encoding/binary"
	"fmt"
	"time"
)

// Format constants.
const (
	MagicBytes      = "HPKL"
	FormatVersion   = 1
	HeaderAlignment = 64   // Align dataset payloads to 64 bytes
	FixedHeaderSize = 64   // Fixed header size (0x40 bytes)
	ChecksumSize    = 32   // SHA-256 checksum size (32 bytes)
	ChecksumOffset  = 0x20 // Checksum offset in the fixed header
)

// Flags for the .hpk format.
const (
	FlagHasDatasets uint32 = 1 << 0 // bit 0: data section is non-empty
	FlagHasMetadata uint32 = 1 << 1 // bit 1: custom metadata included
)

// Node kinds in the JSON header.
const (
	KindGroup   = "group"
	KindDataset = "dataset"
)

// Header represents the JSON header in a .hpk file.
type Header struct {
	FormatVersion int               `json:"format_version"`     // Version of the .hpk format
	Creator       string            `json:"creator"`            // Library that wrote the file
	CreatedAt     time.Time         `json:"created_at"`         // When the file was created
	ID            string            `json:"id"`                 // Container UUID
	Metadata      map[string]string `json:"metadata,omitempty"` // Custom metadata
	Root          NodeMeta          `json:"root"`               // Node tree
}

// NodeMeta describes a group or a dataset.
type NodeMeta struct {
	Name     string         `json:"name"`
	Kind     string         `json:"kind"`
	Attrs    []AttrMeta     `json:"attrs,omitempty"`
	Children []NodeMeta     `json:"children,omitempty"`
	DType    string         `json:"dtype,omitempty"`   // datasets only
	Shape    []int          `json:"shape,omitempty"`   // datasets only
	Offset   int64          `json:"offset,omitempty"`  // in the data section
	Size     int64          `json:"size,omitempty"`    // in bytes
	Options  map[string]any `json:"options,omitempty"` // dataset creation hints
}

// fixedHeader holds the decoded 64-byte prefix.
type fixedHeader struct {
	version    uint32
	flags      uint32
	headerSize uint64
	dataSize   uint64
	checksum   [ChecksumSize]byte
}

// dataOffset returns where the data section starts.
func (f fixedHeader) dataOffset() int64 {
	return alignUp(int64(FixedHeaderSize) + int64(f.headerSize)) //nolint:gosec // G115: bounded by MaxHeaderSize
}

func (f fixedHeader) encode() []byte {
	b := make([]byte, FixedHeaderSize)
	copy(b[0:4], MagicBytes)
	binary.LittleEndian.PutUint32(b[4:8], f.version)
	binary.LittleEndian.PutUint32(b[8:12], f.flags)
	// 0x0C-0x0F: reserved
	binary.LittleEndian.PutUint64(b[16:24], f.headerSize)
	binary.LittleEndian.PutUint64(b[24:32], f.dataSize)
	copy(b[ChecksumOffset:ChecksumOffset+ChecksumSize], f.checksum[:])
	return b
}

func parseFixedHeader(b []byte) (fixedHeader, error) {
	var f fixedHeader
	if len(b) < 4 || string(b[0:4]) != MagicBytes {
		return f, ErrInvalidMagic
	}
	if len(b) < FixedHeaderSize {
		return f, fmt.Errorf("%w: %d bytes, fixed header needs %d", ErrTruncated, len(b), FixedHeaderSize)
	}

	f.version = binary.LittleEndian.Uint32(b[4:8])
	if f.version == 0 || f.version > FormatVersion {
		return f, fmt.Errorf("%w: got %d, expected %d", ErrUnsupportedVersion, f.version, FormatVersion)
	}
	f.flags = binary.LittleEndian.Uint32(b[8:12])
	f.headerSize = binary.LittleEndian.Uint64(b[16:24])
	f.dataSize = binary.LittleEndian.Uint64(b[24:32])
	copy(f.checksum[:], b[ChecksumOffset:ChecksumOffset+ChecksumSize])

	if f.headerSize > MaxHeaderSize {
		return f, ErrHeaderTooLarge
	}
	if f.dataSize > 1<<62 {
		return f, fmt.Errorf("%w: data size %d", ErrOutOfBounds, f.dataSize)
	}
	return f, nil
}

func alignUp(n int64) int64 {
	return (n + HeaderAlignment - 1) / HeaderAlignment * HeaderAlignment
}
