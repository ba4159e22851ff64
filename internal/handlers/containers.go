package handlers

import (
	"cmp"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/born-ml/hpickle/internal/container"
	"github.com/born-ml/hpickle/internal/registry"
	"github.com/born-ml/hpickle/internal/typetag"
)

// dumpMapping writes each entry of a string-keyed map under its own key,
// in sorted key order.
func dumpMapping(r *registry.Registry, v any, parent *container.Group, name string) error {
	rv := reflect.ValueOf(v)
	keys := rv.MapKeys()
	sortValues(keys)
	for _, k := range keys {
		if err := registry.CheckMappingKey(k.String()); err != nil {
			return err
		}
	}

	g, err := r.CreateTyped(v, parent, name)
	if err != nil {
		return err
	}
	for _, k := range keys {
		if err := r.Dump(rv.MapIndex(k).Interface(), g, k.String()); err != nil {
			return err
		}
	}
	return nil
}

func loadMapping(r *registry.Registry, g *container.Group, t typetag.Type) (any, error) {
	goType, err := registry.Require(t)
	if err != nil {
		return nil, err
	}
	m, err := r.LoadGroupAsMapping(g, nil)
	if err != nil {
		return nil, err
	}
	out, err := registry.Assign(m, goType)
	if err != nil {
		return nil, err
	}
	return out.Interface(), nil
}

// dumpPlainMapping writes a Mapping as an untagged group, so that it
// loads back as a Mapping.
func dumpPlainMapping(r *registry.Registry, v any, parent *container.Group, name string) error {
	m := v.(*registry.Mapping) //nolint:forcetypeassert // registered for *Mapping only
	if m == nil {
		return fmt.Errorf("%w: nil mapping", registry.ErrUnserializable)
	}
	for _, k := range m.Keys() {
		if err := registry.CheckMappingKey(k); err != nil {
			return err
		}
	}
	g := parent
	if name != "" {
		var err error
		if g, err = parent.CreateGroup(name); err != nil {
			return err
		}
	}
	for _, k := range m.Keys() {
		val, _ := m.Get(k)
		if err := r.Dump(val, g, k); err != nil {
			return err
		}
	}
	return nil
}

// dumpSequence stores slices and arrays: one entry dataset when the
// elements are homogeneous numbers, entry_<i> subgroups otherwise.
func dumpSequence(r *registry.Registry, v any, parent *container.Group, name string) error {
	return dumpElements(r, v, reflect.ValueOf(v), parent, name)
}

func dumpElements(r *registry.Registry, v any, elems reflect.Value, parent *container.Group, name string) error {
	g, err := r.CreateTyped(v, parent, name)
	if err != nil {
		return err
	}
	if raw, ok := registry.NumericDataset(elems); ok {
		_, err := g.AddDataset(registry.EntryName, raw)
		return err
	}
	for i := 0; i < elems.Len(); i++ {
		if err := r.DumpElement(elems.Index(i).Interface(), g, registry.ElementName(i)); err != nil {
			return err
		}
	}
	return nil
}

// loadElements returns the elements of a sequence-like group in order.
func loadElements(r *registry.Registry, g *container.Group, skip ...string) ([]any, error) {
	if g.Has(registry.EntryName) {
		ds, err := g.Dataset(registry.EntryName)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", container.ErrCorruptData, err)
		}
		raw := ds.Raw()
		values := make([]any, raw.NumElements())
		for i := range values {
			values[i] = raw.Value(i)
		}
		return values, nil
	}

	nodes, err := registry.Entries(g, skip...)
	if err != nil {
		return nil, err
	}
	values := make([]any, len(nodes))
	for i, n := range nodes {
		if values[i], err = r.LoadNode(n); err != nil {
			return nil, err
		}
	}
	return values, nil
}

func loadSequence(r *registry.Registry, g *container.Group, t typetag.Type) (any, error) {
	goType, err := registry.Require(t)
	if err != nil {
		return nil, err
	}
	values, err := loadElements(r, g)
	if err != nil {
		return nil, err
	}
	out, err := registry.Assign(values, goType)
	if err != nil {
		return nil, err
	}
	return out.Interface(), nil
}

// dumpSet stores the keys of a map[K]struct{} in sorted order, with the
// same layout as a sequence.
func dumpSet(r *registry.Registry, v any, parent *container.Group, name string) error {
	rv := reflect.ValueOf(v)
	keys := rv.MapKeys()
	sortValues(keys)
	elems := reflect.MakeSlice(reflect.SliceOf(rv.Type().Key()), len(keys), len(keys))
	for i, k := range keys {
		elems.Index(i).Set(k)
	}
	return dumpElements(r, v, elems, parent, name)
}

func loadSet(r *registry.Registry, g *container.Group, t typetag.Type) (any, error) {
	goType, err := registry.Require(t)
	if err != nil {
		return nil, err
	}
	values, err := loadElements(r, g)
	if err != nil {
		return nil, err
	}
	out := reflect.MakeMapWithSize(goType, len(values))
	member := reflect.Zero(goType.Elem())
	for i, v := range values {
		k, err := registry.Assign(v, goType.Key())
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		out.SetMapIndex(k, member)
	}
	return out.Interface(), nil
}

// sortValues orders map keys deterministically.
func sortValues(keys []reflect.Value) {
	slices.SortFunc(keys, func(a, b reflect.Value) int {
		switch a.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return cmp.Compare(a.Int(), b.Int())
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
			return cmp.Compare(a.Uint(), b.Uint())
		case reflect.Float32, reflect.Float64:
			return cmp.Compare(a.Float(), b.Float())
		case reflect.String:
			return strings.Compare(a.String(), b.String())
		default:
			return strings.Compare(fmt.Sprint(a.Interface()), fmt.Sprint(b.Interface()))
		}
	})
}
