// Package record registers dumpers and loaders for plain struct types.
//
// A registered struct is written as a typed group. Exported fields become
// attributes when they hold builtin scalars and child nodes otherwise.
// The member name is the field name unless overridden with a tag:
//
//	type Run struct {
//		ID     string    `hpickle:"id"`
//		Loss   []float64 `hpickle:"loss,omitempty"`
//		Scratch []byte   `hpickle:"-"`
//	}
//
// Loading fills the fields found in the group; missing members leave the
// field at its zero value.
package record

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/born-ml/hpickle/internal/container"
	"github.com/born-ml/hpickle/internal/registry"
	"github.com/born-ml/hpickle/internal/typetag"
)

const tagKey = "hpickle"

// ErrNotStruct is returned when a non-struct type is registered.
var ErrNotStruct = errors.New("record: type is not a struct")

type field struct {
	name      string
	index     []int
	typ       reflect.Type
	omitempty bool
}

type layout struct {
	typ    reflect.Type
	fields []field
}

var layouts = xsync.NewMapOf[reflect.Type, *layout]()

// Register installs a dumper, a loader and the type entry for T.
func Register[T any](r *registry.Registry) error {
	return RegisterType(r, reflect.TypeFor[T]())
}

// RegisterType is Register for a reflect.Type.
func RegisterType(r *registry.Registry, t reflect.Type) error {
	l, err := describe(t)
	if err != nil {
		return err
	}
	r.RegisterDumper(t, l.dump)
	r.RegisterLoader(t, l.load)
	r.RegisterType(t)
	return nil
}

func describe(t reflect.Type) (*layout, error) {
	if t == nil || t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %v", ErrNotStruct, t)
	}
	if l, ok := layouts.Load(t); ok {
		return l, nil
	}

	l := &layout{typ: t}
	seen := make(map[string]string)
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		tag := sf.Tag.Get(tagKey)
		if tag == "-" {
			continue
		}

		f := field{name: sf.Name, index: sf.Index, typ: sf.Type}
		parts := strings.Split(tag, ",")
		if name := strings.TrimSpace(parts[0]); name != "" {
			f.name = name
		}
		for _, opt := range parts[1:] {
			if strings.TrimSpace(opt) == "omitempty" {
				f.omitempty = true
			}
		}

		if err := container.ValidateName(f.name); err != nil {
			return nil, fmt.Errorf("record: field %s.%s: %w", t, sf.Name, err)
		}
		if err := registry.CheckMappingKey(f.name); err != nil {
			return nil, fmt.Errorf("record: field %s.%s: %w", t, sf.Name, err)
		}
		if prev, dup := seen[f.name]; dup {
			return nil, fmt.Errorf("record: fields %s and %s of %s share the name %q: %w",
				prev, sf.Name, t, f.name, container.ErrNameCollision)
		}
		seen[f.name] = sf.Name
		l.fields = append(l.fields, f)
	}

	l, _ = layouts.LoadOrStore(t, l)
	return l, nil
}

func (l *layout) dump(r *registry.Registry, v any, parent *container.Group, name string) error {
	rv := reflect.ValueOf(v)
	g, err := r.CreateTyped(v, parent, name)
	if err != nil {
		return err
	}
	for _, f := range l.fields {
		fv := rv.FieldByIndex(f.index)
		if f.omitempty && fv.IsZero() {
			continue
		}
		x := fv.Interface()
		if registry.IsDirect(x) {
			err = r.DumpToAttribute(x, g, f.name)
		} else {
			err = r.Dump(x, g, f.name)
		}
		if err != nil {
			return fmt.Errorf("field %s: %w", f.name, err)
		}
	}
	return nil
}

func (l *layout) load(r *registry.Registry, g *container.Group, _ typetag.Type) (any, error) {
	out := reflect.New(l.typ).Elem()
	for _, f := range l.fields {
		if !g.Has(f.name) && !g.HasAttr(f.name) {
			continue
		}
		v, err := r.LoadMember(g, f.name)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.name, err)
		}
		fv, err := registry.Assign(v, f.typ)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.name, err)
		}
		out.FieldByIndex(f.index).Set(fv)
	}
	return out.Interface(), nil
}
