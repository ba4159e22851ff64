package registry

import (
	"encoding"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/born-ml/hpickle/internal/container"
	"github.com/born-ml/hpickle/internal/typetag"
)

// LoadNode loads any node: a tagged group through the registry, an
// untagged group as a Mapping and a dataset as a copy of its tensor.
func (r *Registry) LoadNode(n container.Node) (any, error) {
	switch x := n.(type) {
	case *container.Dataset:
		return x.Raw().Clone(), nil
	case *container.Group:
		return r.LoadFrom(x)
	default:
		return nil, fmt.Errorf("%w: unknown node %T", container.ErrCorruptData, n)
	}
}

// LoadMember loads the child or attribute called name.
func (r *Registry) LoadMember(g *container.Group, name string) (any, error) {
	if g.Has(name) {
		n, err := g.Child(name)
		if err != nil {
			return nil, err
		}
		return r.LoadNode(n)
	}
	if g.HasAttr(name) {
		return r.LoadAttribute(g, name)
	}
	return nil, corrupt("missing member %q in %s", name, g.Path())
}

// LoadGroupAsMapping materialises the children and attributes of g.
// Reserved attributes are always left out; exclude drops every child or
// attribute whose name contains one of its patterns. Children come first,
// then attributes, each in creation order.
func (r *Registry) LoadGroupAsMapping(g *container.Group, exclude []string) (*Mapping, error) {
	excluded := func(name string) bool {
		return slices.ContainsFunc(exclude, func(p string) bool {
			return p != "" && strings.Contains(name, p)
		})
	}

	m := NewMapping()
	for _, n := range g.Nodes() {
		if excluded(n.Name()) {
			continue
		}
		v, err := r.LoadNode(n)
		if err != nil {
			return nil, err
		}
		m.Set(n.Name(), v)
	}
	for _, name := range g.Attrs() {
		if typetag.IsReserved(name) || excluded(name) {
			continue
		}
		v, err := r.LoadAttribute(g, name)
		if err != nil {
			return nil, err
		}
		m.Set(name, v)
	}
	return m, nil
}

// LoadAttribute returns an attribute value. An Opaque value holding an
// envelope written by DumpToAttribute is turned back into its value; any
// other Opaque value is returned as stored.
func (r *Registry) LoadAttribute(g *container.Group, name string) (any, error) {
	v, err := g.Attr(name)
	if err != nil {
		return nil, err
	}
	blob, ok := v.(container.Opaque)
	if !ok {
		return v, nil
	}
	if decoded, ok := r.decodeEnvelope(blob); ok {
		return decoded, nil
	}
	return blob, nil
}

func (r *Registry) decodeEnvelope(blob []byte) (any, bool) {
	env, err := typetag.DecodeEnvelope(blob)
	if err != nil {
		return nil, false
	}
	t, ok := r.ResolveType(env.Key)
	if !ok {
		return nil, false
	}
	ptr, result := newInstance(t)
	u, ok := ptr.Interface().(encoding.BinaryUnmarshaler)
	if !ok {
		return nil, false
	}
	if err := u.UnmarshalBinary(env.Data); err != nil {
		return nil, false
	}
	return result(), true
}

// DumpToAttribute writes v as an attribute of g. nil is skipped, valid
// attribute values are written as they are and binary marshalers are
// wrapped in an envelope.
func (r *Registry) DumpToAttribute(v any, g *container.Group, name string) error {
	if isNil(v) {
		return nil
	}
	if container.ValidAttrValue(v) {
		return g.SetAttr(name, v)
	}
	t := reflect.TypeOf(v)
	m, ok := v.(encoding.BinaryMarshaler)
	if !ok {
		return container.WrapError("dump attribute", joinPath(g, name), TypeName(t), ErrUnserializable)
	}
	data, err := m.MarshalBinary()
	if err != nil {
		return container.WrapError("dump attribute", joinPath(g, name), TypeName(t), err)
	}
	r.RegisterType(t)
	env, err := typetag.EncodeEnvelope(TypeKey(t), TypeName(t), data)
	if err != nil {
		return container.WrapError("dump attribute", joinPath(g, name), TypeName(t), err)
	}
	return g.SetAttr(name, env)
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Interface:
		return rv.IsNil()
	default:
		return false
	}
}

// newInstance allocates a zero value of t behind a pointer so that
// pointer-receiver hooks can be called, and returns a function yielding
// the value as type t.
func newInstance(t reflect.Type) (reflect.Value, func() any) {
	if t.Kind() == reflect.Pointer {
		p := reflect.New(t.Elem())
		return p, p.Interface
	}
	p := reflect.New(t)
	return p, func() any { return p.Elem().Interface() }
}

// Assign converts a loaded value to t. Mappings become maps, slices are
// converted element by element and scalars are converted within their
// kind family.
func Assign(v any, t reflect.Type) (reflect.Value, error) {
	if v == nil {
		return reflect.Zero(t), nil
	}
	rv := reflect.ValueOf(v)
	if rv.Type().AssignableTo(t) {
		return rv, nil
	}

	if m, ok := v.(*Mapping); ok && t.Kind() == reflect.Map && t.Key().Kind() == reflect.String {
		out := reflect.MakeMapWithSize(t, m.Len())
		for _, k := range m.Keys() {
			val, _ := m.Get(k)
			ev, err := Assign(val, t.Elem())
			if err != nil {
				return reflect.Value{}, fmt.Errorf("key %q: %w", k, err)
			}
			out.SetMapIndex(reflect.ValueOf(k).Convert(t.Key()), ev)
		}
		return out, nil
	}

	if sameFamily(rv.Type(), t) && rv.Type().ConvertibleTo(t) {
		return rv.Convert(t), nil
	}

	if rv.Kind() == reflect.Slice && (t.Kind() == reflect.Slice || t.Kind() == reflect.Array) {
		var out reflect.Value
		if t.Kind() == reflect.Slice {
			out = reflect.MakeSlice(t, rv.Len(), rv.Len())
		} else {
			if rv.Len() != t.Len() {
				return reflect.Value{}, corrupt("%d elements for %s", rv.Len(), t)
			}
			out = reflect.New(t).Elem()
		}
		for i := 0; i < rv.Len(); i++ {
			ev, err := Assign(rv.Index(i).Interface(), t.Elem())
			if err != nil {
				return reflect.Value{}, fmt.Errorf("element %d: %w", i, err)
			}
			out.Index(i).Set(ev)
		}
		return out, nil
	}

	return reflect.Value{}, corrupt("cannot use %s as %s", rv.Type(), t)
}

// sameFamily keeps Assign from performing conversions reflect allows but
// that change meaning, such as int to string.
func sameFamily(a, b reflect.Type) bool {
	fa, fb := FamilyOf(a), FamilyOf(b)
	numeric := func(f Family) bool {
		return f == FamilyInt || f == FamilyUint || f == FamilyFloat
	}
	return fa == fb || (numeric(fa) && numeric(fb))
}
