package handlers

import (
	"fmt"
	"reflect"
	"strconv"

	"github.com/born-ml/hpickle/internal/container"
	"github.com/born-ml/hpickle/internal/registry"
	"github.com/born-ml/hpickle/internal/tensor"
	"github.com/born-ml/hpickle/internal/typetag"
)

// dumpScalar writes builtin scalars as plain attributes. Named scalar
// types, boxed elements and values merged into their parent get a typed
// group holding a value attribute.
func dumpScalar(r *registry.Registry, v any, parent *container.Group, name string) error {
	if name != "" && registry.IsDirect(v) {
		return parent.SetAttr(name, v)
	}
	g, err := r.CreateTyped(v, parent, name)
	if err != nil {
		return err
	}
	return g.SetAttr(registry.ValueName, underlying(reflect.ValueOf(v)))
}

// underlying converts a scalar of a named type to its builtin type.
func underlying(rv reflect.Value) any {
	if dt, ok := tensor.FromKind(rv.Kind()); ok {
		return rv.Convert(dt.GoType()).Interface()
	}
	switch rv.Kind() {
	case reflect.String:
		return rv.String()
	case reflect.Slice:
		return rv.Bytes()
	default:
		return rv.Interface()
	}
}

func loadScalar(_ *registry.Registry, g *container.Group, t typetag.Type) (any, error) {
	v, err := valueAttr(g)
	if err != nil {
		return nil, err
	}
	goType, err := registry.Require(t)
	if err != nil {
		return nil, err
	}
	out, err := registry.Assign(v, goType)
	if err != nil {
		return nil, err
	}
	return out.Interface(), nil
}

func valueAttr(g *container.Group) (any, error) {
	if !g.HasAttr(registry.ValueName) {
		return nil, fmt.Errorf("%w: missing %q attribute", container.ErrCorruptData, registry.ValueName)
	}
	return g.Attr(registry.ValueName)
}

func stringAttr(g *container.Group, name string) (string, error) {
	if !g.HasAttr(name) {
		return "", fmt.Errorf("%w: missing %q attribute", container.ErrCorruptData, name)
	}
	v, _ := g.Attr(name)
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: attribute %q is %T, not string", container.ErrCorruptData, name, v)
	}
	return s, nil
}

func dumpComplex(r *registry.Registry, v any, parent *container.Group, name string) error {
	rv := reflect.ValueOf(v)
	g, err := r.CreateTyped(v, parent, name)
	if err != nil {
		return err
	}
	return g.SetAttr(registry.ValueName, strconv.FormatComplex(rv.Complex(), 'g', -1, rv.Type().Bits()))
}

func loadComplex(_ *registry.Registry, g *container.Group, t typetag.Type) (any, error) {
	s, err := stringAttr(g, registry.ValueName)
	if err != nil {
		return nil, err
	}
	goType, err := registry.Require(t)
	if err != nil {
		return nil, err
	}
	c, err := strconv.ParseComplex(s, goType.Bits())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", container.ErrCorruptData, err)
	}
	return reflect.ValueOf(c).Convert(goType).Interface(), nil
}
