package serialization

import (
	"errors"
	"fmt"

	"github.com/born-ml/hpickle/internal/container"
)

// Common errors.
var (
	ErrChecksumMismatch   = errors.New("checksum mismatch: file may be corrupted")
	ErrOutOfBounds        = errors.New("dataset extends beyond data section")
	ErrHeaderTooLarge     = errors.New("header exceeds maximum size")
	ErrInvalidMagic       = errors.New("invalid magic bytes")
	ErrUnsupportedVersion = errors.New("unsupported format version")
	ErrTruncated          = errors.New("truncated file")
)

// ValidationError provides detailed information about validation failures.
// It matches container.ErrCorruptData under errors.Is.
type ValidationError struct {
	Type    string // Type of error (e.g., "offset_overlap", "out_of_bounds")
	Node    string // Primary node path involved
	Node2   string // Secondary node path (for overlap errors)
	Details string // Additional details
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Node2 != "" {
		return fmt.Sprintf("%s: nodes %q and %q: %s", e.Type, e.Node, e.Node2, e.Details)
	}
	if e.Node != "" {
		return fmt.Sprintf("%s: node %q: %s", e.Type, e.Node, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Details)
}

// Unwrap reports validation failures as corrupt data.
func (e *ValidationError) Unwrap() error {
	return container.ErrCorruptData
}
