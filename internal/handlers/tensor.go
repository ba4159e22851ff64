package handlers

import (
	"fmt"

	"github.com/born-ml/hpickle/internal/container"
	"github.com/born-ml/hpickle/internal/registry"
	"github.com/born-ml/hpickle/internal/tensor"
	"github.com/born-ml/hpickle/internal/typetag"
)

const (
	dtypeName = "dtype"
	shapeName = "shape"
)

// dumpDataType writes the dtype name as an attribute of parent when name
// is empty, otherwise as a typed descriptor group.
func dumpDataType(r *registry.Registry, v any, parent *container.Group, name string) error {
	dt := v.(tensor.DataType) //nolint:forcetypeassert // registered for DataType only
	if !dt.Valid() {
		return fmt.Errorf("%w: data type %d", registry.ErrUnserializable, int(dt))
	}
	if name == "" {
		return parent.SetAttr(dtypeName, dt.String())
	}
	g, err := r.CreateTyped(v, parent, name)
	if err != nil {
		return err
	}
	return g.SetAttr(dtypeName, dt.String())
}

func loadDataType(_ *registry.Registry, g *container.Group, _ typetag.Type) (any, error) {
	s, err := stringAttr(g, dtypeName)
	if err != nil {
		return nil, err
	}
	dt, err := tensor.ParseDataType(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", container.ErrCorruptData, err)
	}
	return dt, nil
}

// readDType loads the descriptor subgroup of an array group.
func readDType(r *registry.Registry, g *container.Group) (tensor.DataType, error) {
	sub, err := g.Group(dtypeName)
	if err != nil {
		return 0, fmt.Errorf("%w: missing dtype descriptor", container.ErrCorruptData)
	}
	v, err := r.Load(sub)
	if err != nil {
		return 0, err
	}
	dt, ok := v.(tensor.DataType)
	if !ok {
		return 0, fmt.Errorf("%w: dtype descriptor holds %T", container.ErrCorruptData, v)
	}
	return dt, nil
}

func dumpRawTensor(r *registry.Registry, v any, parent *container.Group, name string) error {
	raw := v.(*tensor.RawTensor) //nolint:forcetypeassert // registered for *RawTensor only
	g, err := r.CreateTyped(v, parent, name)
	if err != nil {
		return err
	}
	if raw == nil {
		return g.SetAttr(nilName, true)
	}
	if err := r.Dump(raw.DType(), g, dtypeName); err != nil {
		return err
	}
	_, err = g.AddDataset(registry.EntryName, raw.Clone())
	return err
}

func loadRawTensor(r *registry.Registry, g *container.Group, _ typetag.Type) (any, error) {
	if g.HasAttr(nilName) {
		return (*tensor.RawTensor)(nil), nil
	}
	dt, err := readDType(r, g)
	if err != nil {
		return nil, err
	}
	ds, err := g.Dataset(registry.EntryName)
	if err != nil {
		return nil, fmt.Errorf("%w: missing %q dataset", container.ErrCorruptData, registry.EntryName)
	}
	if ds.DType() != dt {
		return nil, fmt.Errorf("%w: dataset is %s, descriptor says %s", container.ErrCorruptData, ds.DType(), dt)
	}
	return ds.Raw().Clone(), nil
}

func dumpObjectArray(r *registry.Registry, v any, parent *container.Group, name string) error {
	arr := v.(tensor.ObjectArray) //nolint:forcetypeassert // registered for ObjectArray only
	if arr.Shape.NumElements() != len(arr.Elems) {
		return fmt.Errorf("%w: shape %v holds %d elements, got %d",
			registry.ErrUnserializable, []int(arr.Shape), arr.Shape.NumElements(), len(arr.Elems))
	}
	g, err := r.CreateTyped(v, parent, name)
	if err != nil {
		return err
	}
	if err := r.Dump(tensor.Object, g, dtypeName); err != nil {
		return err
	}
	if err := g.SetAttr(shapeName, arr.Shape.Int64s()); err != nil {
		return err
	}
	for i, e := range arr.Elems {
		if err := r.DumpElement(e, g, registry.ElementName(i)); err != nil {
			return err
		}
	}
	return nil
}

func loadObjectArray(r *registry.Registry, g *container.Group, _ typetag.Type) (any, error) {
	dt, err := readDType(r, g)
	if err != nil {
		return nil, err
	}
	if dt != tensor.Object {
		return nil, fmt.Errorf("%w: object array with dtype %s", container.ErrCorruptData, dt)
	}
	if !g.HasAttr(shapeName) {
		return nil, fmt.Errorf("%w: missing %q attribute", container.ErrCorruptData, shapeName)
	}
	v, _ := g.Attr(shapeName)
	dims, ok := v.([]int64)
	if !ok {
		return nil, fmt.Errorf("%w: shape is %T", container.ErrCorruptData, v)
	}
	elems, err := loadElements(r, g, dtypeName)
	if err != nil {
		return nil, err
	}
	arr, err := tensor.NewObjectArray(tensor.ShapeFromInt64s(dims), elems)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", container.ErrCorruptData, err)
	}
	return arr, nil
}
