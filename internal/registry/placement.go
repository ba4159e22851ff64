package registry

import (
	"fmt"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/born-ml/hpickle/internal/container"
	"github.com/born-ml/hpickle/internal/observability"
	"github.com/born-ml/hpickle/internal/tensor"
	"github.com/born-ml/hpickle/internal/typetag"
)

// Member names used by the built-in layouts.
const (
	EntryName   = "entry"  // homogeneous sequence dataset
	EntryPrefix = "entry_" // per-element subgroups
	ValueName   = "value"  // boxed scalars, pointers, string-encoded numbers
	StateName   = "state"  // generic object payload
)

// IsDirect reports whether v is a builtin scalar that is written straight
// to an attribute.
func IsDirect(v any) bool {
	switch v.(type) {
	case bool, string, []byte,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return true
	default:
		return false
	}
}

// CreateTyped creates the named child group, or takes parent itself when
// name is empty, and tags it with the type of v.
func (r *Registry) CreateTyped(v any, parent *container.Group, name string) (*container.Group, error) {
	g := parent
	if name != "" {
		var err error
		if g, err = parent.CreateGroup(name); err != nil {
			return nil, err
		}
	}
	t := reflect.TypeOf(v)
	err := typetag.Write(g, typetag.Descriptor{
		Key:   TypeKey(t),
		Chain: r.Chain(t),
		Name:  TypeName(t),
	})
	if err != nil {
		return nil, err
	}
	return g, nil
}

// DumpElement dumps one element of a container. Unlike Dump, directly
// representable scalars are boxed into a typed subgroup so that the
// element keeps its type and position.
func (r *Registry) DumpElement(v any, parent *container.Group, name string) error {
	if !IsDirect(v) {
		return r.Dump(v, parent, name)
	}
	box, err := parent.CreateGroup(name)
	if err != nil {
		return err
	}
	return r.Dump(v, box, "")
}

// WriteBlob stores an opaque byte payload: an attribute below the
// threshold, a uint8 dataset at or above it.
func (r *Registry) WriteBlob(g *container.Group, name string, data []byte) error {
	if len(data) >= r.threshold {
		r.logger.Debug("blob stored as dataset",
			zap.String("path", joinPath(g, name)),
			zap.Int("size", len(data)),
			zap.Int("threshold", r.threshold))
		if _, err := g.CreateDataset(name, tensor.Shape{len(data)}, tensor.Uint8, slices.Clone(data)); err != nil {
			return err
		}
		observability.BlobBytes(observability.PlacementDataset, len(data))
		return nil
	}
	if err := g.SetAttr(name, container.Opaque(data)); err != nil {
		return err
	}
	observability.BlobBytes(observability.PlacementAttribute, len(data))
	return nil
}

// ReadBlob reads a payload written by WriteBlob, looking for a dataset
// first and an attribute second.
func (r *Registry) ReadBlob(g *container.Group, name string) ([]byte, error) {
	if g.Has(name) {
		ds, err := g.Dataset(name)
		if err != nil {
			return nil, corrupt("%s/%s is not a dataset", g.Path(), name)
		}
		if ds.DType() != tensor.Uint8 {
			return nil, corrupt("blob %s has dtype %s", ds.Path(), ds.DType())
		}
		return slices.Clone(ds.Data()), nil
	}
	if g.HasAttr(name) {
		v, _ := g.Attr(name)
		switch b := v.(type) {
		case container.Opaque:
			return slices.Clone([]byte(b)), nil
		case []byte:
			return slices.Clone(b), nil
		default:
			return nil, corrupt("blob attribute %q is %T", name, v)
		}
	}
	return nil, corrupt("missing blob %q in %s", name, g.Path())
}

// CheckMappingKey rejects keys that are not valid node names or that would
// shadow a reserved attribute.
func CheckMappingKey(key string) error {
	if err := container.ValidateName(key); err != nil {
		return fmt.Errorf("mapping key %q: %w", key, err)
	}
	if typetag.IsReserved(key) || strings.HasPrefix(key, typetag.ReservedPrefix) {
		return fmt.Errorf("%w: mapping key %q", ErrReservedName, key)
	}
	return nil
}

// ElementName returns the child name of sequence element i.
func ElementName(i int) string {
	return EntryPrefix + strconv.Itoa(i)
}

// Entries returns the entry_<i> children of g ordered by index. Children
// listed in skip are ignored; any other child, a gap or a malformed index
// is ErrCorruptData.
func Entries(g *container.Group, skip ...string) ([]container.Node, error) {
	type indexed struct {
		idx  int
		node container.Node
	}
	var found []indexed
	for _, n := range g.Nodes() {
		name := n.Name()
		if slices.Contains(skip, name) {
			continue
		}
		suffix, ok := strings.CutPrefix(name, EntryPrefix)
		if !ok {
			return nil, corrupt("unexpected child %q in %s", name, g.Path())
		}
		idx, err := strconv.Atoi(suffix)
		if err != nil || idx < 0 || strconv.Itoa(idx) != suffix {
			return nil, corrupt("malformed element name %q in %s", name, g.Path())
		}
		found = append(found, indexed{idx: idx, node: n})
	}

	slices.SortFunc(found, func(a, b indexed) int { return a.idx - b.idx })
	nodes := make([]container.Node, len(found))
	for i, e := range found {
		if e.idx != i {
			return nil, corrupt("element %d missing in %s", i, g.Path())
		}
		nodes[i] = e.node
	}
	return nodes, nil
}

// NumericDataset packs a slice or array into one flat tensor when every
// element has the same numeric or bool type. Interface elements qualify
// only when they all hold the same builtin type.
func NumericDataset(rv reflect.Value) (*tensor.RawTensor, bool) {
	n := rv.Len()
	elem := rv.Type().Elem()

	var dt tensor.DataType
	if elem.Kind() == reflect.Interface {
		if n == 0 {
			return nil, false
		}
		first := rv.Index(0).Elem()
		if !first.IsValid() {
			return nil, false
		}
		ft := first.Type()
		var ok bool
		if dt, ok = tensor.FromKind(ft.Kind()); !ok || dt.GoType() != ft {
			return nil, false
		}
		for i := 1; i < n; i++ {
			e := rv.Index(i).Elem()
			if !e.IsValid() || e.Type() != ft {
				return nil, false
			}
		}
	} else {
		var ok bool
		if dt, ok = tensor.FromKind(elem.Kind()); !ok {
			return nil, false
		}
	}

	raw, err := tensor.NewRaw(tensor.Shape{n}, dt)
	if err != nil {
		return nil, false
	}
	for i := 0; i < n; i++ {
		if err := raw.SetValue(i, rv.Index(i).Interface()); err != nil {
			return nil, false
		}
	}
	return raw, true
}
