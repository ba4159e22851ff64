// Package typetag reads and writes the type tag that marks a group as a
// typed record.
//
// A tag is three reserved attributes written together: a CBOR descriptor
// (type key plus the dispatch chain recorded at dump time), a readable
// type name and the format version. A fourth reserved attribute records
// the pickling method of generic objects.
package typetag

import (
	"fmt"
	"reflect"

	"github.com/born-ml/hpickle/internal/container"
)

// Reserved attribute names.
const (
	AttrType     = "__type"
	AttrTypeName = "__type_name"
	AttrPickle   = "__pickle"
	AttrVersion  = "__version"
)

// FormatVersion is stamped on every typed group.
const FormatVersion = 1

// ReservedPrefix starts every reserved name. Mapping keys may not use it.
const ReservedPrefix = "__"

var reserved = []string{AttrType, AttrTypeName, AttrPickle, AttrVersion}

// Reserved returns the reserved attribute names.
func Reserved() []string {
	return append([]string(nil), reserved...)
}

// IsReserved reports whether name is one of the reserved attribute names.
func IsReserved(name string) bool {
	for _, r := range reserved {
		if name == r {
			return true
		}
	}
	return false
}

// Descriptor identifies the type of a tagged group.
type Descriptor struct {
	Key   string   `cbor:"key"`
	Chain []string `cbor:"chain"`
	// Name is the readable type name. It is stored in its own attribute.
	Name string `cbor:"-"`
}

// Has reports whether g carries a type tag.
func Has(g *container.Group) bool {
	return g.HasAttr(AttrType)
}

// Write tags g with d.
func Write(g *container.Group, d Descriptor) error {
	for _, name := range []string{AttrType, AttrTypeName, AttrVersion} {
		if g.HasAttr(name) {
			return container.WrapError("write tag", g.Path(), d.Name, ErrAlreadyTagged)
		}
	}
	desc, err := encodeDescriptor(d)
	if err != nil {
		return container.WrapError("write tag", g.Path(), d.Name, err)
	}
	if err := g.SetAttr(AttrType, desc); err != nil {
		return err
	}
	if err := g.SetAttr(AttrTypeName, d.Name); err != nil {
		return err
	}
	return g.SetAttr(AttrVersion, int64(FormatVersion))
}

// Read decodes the tag of g.
func Read(g *container.Group) (Descriptor, error) {
	present := 0
	for _, name := range []string{AttrType, AttrTypeName, AttrVersion} {
		if g.HasAttr(name) {
			present++
		}
	}
	switch present {
	case 0:
		return Descriptor{}, container.WrapError("read tag", g.Path(), "", ErrMissingTag)
	case 3:
	default:
		return Descriptor{}, container.WrapError("read tag", g.Path(), "",
			fmt.Errorf("%w: partial type tag", container.ErrCorruptData))
	}

	name, _ := g.Attr(AttrTypeName)
	typeName, ok := name.(string)
	if !ok {
		return Descriptor{}, container.WrapError("read tag", g.Path(), "",
			fmt.Errorf("%w: %s is %T, not string", container.ErrCorruptData, AttrTypeName, name))
	}

	version, err := readVersion(g)
	if err != nil {
		return Descriptor{}, container.WrapError("read tag", g.Path(), typeName, err)
	}
	if version > FormatVersion {
		return Descriptor{}, container.WrapError("read tag", g.Path(), typeName,
			fmt.Errorf("%w: %d > %d", ErrIncompatibleVersion, version, FormatVersion))
	}

	raw, _ := g.Attr(AttrType)
	blob, ok := raw.(container.Opaque)
	if !ok {
		return Descriptor{}, container.WrapError("read tag", g.Path(), typeName,
			fmt.Errorf("%w: %s is %T, not opaque", container.ErrCorruptData, AttrType, raw))
	}
	d, err := decodeDescriptor(blob)
	if err != nil {
		return Descriptor{}, container.WrapError("read tag", g.Path(), typeName,
			fmt.Errorf("%w: %w", container.ErrCorruptData, err))
	}
	d.Name = typeName
	return d, nil
}

func readVersion(g *container.Group) (int64, error) {
	v, _ := g.Attr(AttrVersion)
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if rv.Int() < 1 {
			return 0, fmt.Errorf("%w: version %d", container.ErrCorruptData, rv.Int())
		}
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if rv.Uint() < 1 {
			return 0, fmt.Errorf("%w: version %d", container.ErrCorruptData, rv.Uint())
		}
		return int64(rv.Uint()), nil //nolint:gosec // versions are small
	default:
		return 0, fmt.Errorf("%w: %s is %T", container.ErrCorruptData, AttrVersion, v)
	}
}

// WriteMethod records the pickling method of a generic object.
func WriteMethod(g *container.Group, method string) error {
	return g.SetAttr(AttrPickle, method)
}

// ReadMethod returns the pickling method, ErrCorruptData if absent.
func ReadMethod(g *container.Group) (string, error) {
	v, err := g.Attr(AttrPickle)
	if err != nil {
		return "", container.WrapError("read method", g.Path(), "", fmt.Errorf("%w: no %s", container.ErrCorruptData, AttrPickle))
	}
	m, ok := v.(string)
	if !ok {
		return "", container.WrapError("read method", g.Path(), "", fmt.Errorf("%w: %s is %T", container.ErrCorruptData, AttrPickle, v))
	}
	return m, nil
}
