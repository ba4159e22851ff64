package handlers

import (
	"reflect"

	"github.com/born-ml/hpickle/internal/container"
	"github.com/born-ml/hpickle/internal/registry"
	"github.com/born-ml/hpickle/internal/typetag"
)

// nilName marks a typed group holding a nil pointer.
const nilName = "nil"

func dumpPointer(r *registry.Registry, v any, parent *container.Group, name string) error {
	rv := reflect.ValueOf(v)
	g, err := r.CreateTyped(v, parent, name)
	if err != nil {
		return err
	}
	if rv.IsNil() {
		return g.SetAttr(nilName, true)
	}
	return r.Dump(rv.Elem().Interface(), g, registry.ValueName)
}

func loadPointer(r *registry.Registry, g *container.Group, t typetag.Type) (any, error) {
	goType, err := registry.Require(t)
	if err != nil {
		return nil, err
	}
	if g.HasAttr(nilName) {
		return reflect.Zero(goType).Interface(), nil
	}
	v, err := r.LoadMember(g, registry.ValueName)
	if err != nil {
		return nil, err
	}
	elem, err := registry.Assign(v, goType.Elem())
	if err != nil {
		return nil, err
	}
	p := reflect.New(goType.Elem())
	p.Elem().Set(elem)
	return p.Interface(), nil
}

func dumpNone(r *registry.Registry, v any, parent *container.Group, name string) error {
	_, err := r.CreateTyped(v, parent, name)
	return err
}

func loadNone(*registry.Registry, *container.Group, typetag.Type) (any, error) {
	return nil, nil
}
