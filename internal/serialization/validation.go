package serialization

import (
	"fmt"
	"sort"

	"github.com/born-ml/hpickle/internal/container"
	"github.com/born-ml/hpickle/internal/tensor"
)

// Validation limits for security and resource protection.
const (
	MaxHeaderSize = 100 * 1024 * 1024 // 100MB - maximum JSON header size
	MaxNodeCount  = 1_000_000         // Maximum number of nodes in a file
)

// ValidationLevel controls the strictness of validation.
type ValidationLevel int

const (
	// ValidationStrict performs all validation checks (default).
	ValidationStrict ValidationLevel = iota
	// ValidationNormal skips the dataset overlap check.
	ValidationNormal
	// ValidationNone skips validation. Payload bounds are still checked
	// while decoding.
	ValidationNone
)

// String returns the configuration name of the level.
func (l ValidationLevel) String() string {
	switch l {
	case ValidationStrict:
		return "strict"
	case ValidationNormal:
		return "normal"
	case ValidationNone:
		return "none"
	default:
		return fmt.Sprintf("ValidationLevel(%d)", int(l))
	}
}

// ParseValidationLevel parses "strict", "normal" or "none".
func ParseValidationLevel(s string) (ValidationLevel, error) {
	switch s {
	case "strict", "":
		return ValidationStrict, nil
	case "normal":
		return ValidationNormal, nil
	case "none":
		return ValidationNone, nil
	default:
		return 0, fmt.Errorf("unknown validation level %q", s)
	}
}

// DatasetRef locates one payload in the data section.
type DatasetRef struct {
	Path   string
	Offset int64
	Size   int64
}

// ValidateDatasetOffsets checks for overlapping payloads and out-of-bounds
// access. Malformed files could otherwise alias one payload into another.
func ValidateDatasetOffsets(refs []DatasetRef, dataSize int64) error {
	sorted := make([]DatasetRef, len(refs))
	copy(sorted, refs)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Offset < sorted[j].Offset
	})

	for i, d := range sorted {
		if d.Offset < 0 || d.Size < 0 {
			return &ValidationError{
				Type:    "negative_offset",
				Node:    d.Path,
				Details: fmt.Sprintf("offset=%d, size=%d (negative values not allowed)", d.Offset, d.Size),
			}
		}

		// Compared without summing so that huge offsets cannot overflow.
		if d.Size > dataSize || d.Offset > dataSize-d.Size {
			return &ValidationError{
				Type:    "out_of_bounds",
				Node:    d.Path,
				Details: fmt.Sprintf("offset %d + size %d > data_size %d", d.Offset, d.Size, dataSize),
			}
		}

		// Empty payloads cannot overlap anything.
		if i < len(sorted)-1 && d.Size > 0 {
			next := sorted[i+1]
			if d.Offset+d.Size > next.Offset {
				return &ValidationError{
					Type:    "offset_overlap",
					Node:    d.Path,
					Node2:   next.Path,
					Details: fmt.Sprintf("regions [%d-%d] and [%d-%d] overlap",
						d.Offset, d.Offset+d.Size, next.Offset, next.Offset+next.Size),
				}
			}
		}
	}

	return nil
}

// ValidateNodeName checks a node or attribute name.
func ValidateNodeName(path, name string) error {
	if err := container.ValidateName(name); err != nil {
		return &ValidationError{
			Type:    "invalid_name",
			Node:    path,
			Details: err.Error(),
		}
	}
	return nil
}

// ValidateHeader checks the node tree of a header against the size of the
// data section.
func ValidateHeader(h *Header, dataSize int64, level ValidationLevel) error {
	if level == ValidationNone {
		return nil
	}
	if h.Root.Kind != KindGroup || h.Root.Name != "" {
		return &ValidationError{Type: "invalid_root", Details: "root must be an unnamed group"}
	}

	v := validator{}
	if err := v.node(&h.Root, "/"); err != nil {
		return err
	}

	if level == ValidationStrict {
		if err := ValidateDatasetOffsets(v.refs, dataSize); err != nil {
			return err
		}
	}
	return nil
}

type validator struct {
	count int
	refs  []DatasetRef
}

func (v *validator) node(n *NodeMeta, path string) error {
	v.count++
	if v.count > MaxNodeCount {
		return &ValidationError{
			Type:    "too_many_nodes",
			Details: fmt.Sprintf("more than %d", MaxNodeCount),
		}
	}

	switch n.Kind {
	case KindDataset:
		return v.dataset(n, path)
	case KindGroup:
	default:
		return &ValidationError{Type: "invalid_kind", Node: path, Details: fmt.Sprintf("kind %q", n.Kind)}
	}

	attrs := make(map[string]struct{}, len(n.Attrs))
	for _, a := range n.Attrs {
		if err := ValidateNodeName(path, a.Name); err != nil {
			return err
		}
		if _, dup := attrs[a.Name]; dup {
			return &ValidationError{Type: "duplicate_name", Node: path, Details: fmt.Sprintf("attribute %q", a.Name)}
		}
		attrs[a.Name] = struct{}{}
	}

	children := make(map[string]struct{}, len(n.Children))
	for i := range n.Children {
		c := &n.Children[i]
		childPath := joinPath(path, c.Name)
		if err := ValidateNodeName(childPath, c.Name); err != nil {
			return err
		}
		if _, dup := children[c.Name]; dup {
			return &ValidationError{Type: "duplicate_name", Node: childPath, Details: "child defined twice"}
		}
		children[c.Name] = struct{}{}
		if err := v.node(c, childPath); err != nil {
			return err
		}
	}
	return nil
}

func (v *validator) dataset(n *NodeMeta, path string) error {
	dt, err := tensor.ParseDataType(n.DType)
	if err != nil || !dt.Flat() {
		return &ValidationError{Type: "invalid_dtype", Node: path, Details: fmt.Sprintf("dtype %q", n.DType)}
	}
	shape := tensor.Shape(n.Shape)
	if err := shape.Validate(); err != nil {
		return &ValidationError{Type: "invalid_shape", Node: path, Details: err.Error()}
	}
	if want := int64(shape.NumElements() * dt.Size()); n.Size != want {
		return &ValidationError{
			Type:    "size_mismatch",
			Node:    path,
			Details: fmt.Sprintf("payload is %d bytes, shape %v of %s needs %d", n.Size, n.Shape, dt, want),
		}
	}
	v.refs = append(v.refs, DatasetRef{Path: path, Offset: n.Offset, Size: n.Size})
	return nil
}

func joinPath(parent, name string) string {
	if parent == "/" {
		return "/" + name
	}
	return parent + "/" + name
}
