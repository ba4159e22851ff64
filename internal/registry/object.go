package registry

import (
	"encoding"
	"fmt"
	"reflect"

	"github.com/born-ml/hpickle/internal/container"
	"github.com/born-ml/hpickle/internal/typetag"
)

// Stater is implemented by values that pickle through an explicit state.
// The state is dumped through the registry like any other value.
type Stater interface {
	PickleState() (any, error)
}

// Restorer restores a value from the state returned by PickleState.
type Restorer interface {
	RestoreState(state any) error
}

// Pickling methods recorded on generic objects.
const (
	MethodState  = "state"
	MethodBinary = "binary"
)

func (r *Registry) installObject() {
	r.RegisterFamilyDumper(FamilyObject, dumpObject)
	r.RegisterFamilyLoader(FamilyObject, loadObject)

	// Hooked values take the object path ahead of their kind family.
	for _, iface := range []reflect.Type{
		reflect.TypeFor[Stater](),
		reflect.TypeFor[encoding.BinaryMarshaler](),
	} {
		r.RegisterDumper(iface, dumpObject)
		r.RegisterLoader(iface, loadObject)
	}
}

func dumpObject(r *Registry, v any, parent *container.Group, name string) error {
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Pointer && rv.IsNil() {
		if fn, ok := r.dumpers.Load(string(FamilyPointer)); ok {
			return fn(r, v, parent, name)
		}
	}

	switch x := v.(type) {
	case Stater:
		state, err := x.PickleState()
		if err != nil {
			return fmt.Errorf("pickle state: %w", err)
		}
		g, err := r.CreateTyped(v, parent, name)
		if err != nil {
			return err
		}
		if err := typetag.WriteMethod(g, MethodState); err != nil {
			return err
		}
		return r.Dump(state, g, StateName)

	case encoding.BinaryMarshaler:
		data, err := x.MarshalBinary()
		if err != nil {
			return fmt.Errorf("marshal binary: %w", err)
		}
		g, err := r.CreateTyped(v, parent, name)
		if err != nil {
			return err
		}
		if err := typetag.WriteMethod(g, MethodBinary); err != nil {
			return err
		}
		return r.WriteBlob(g, StateName, data)

	default:
		return fmt.Errorf("%w: %s", ErrUnserializable, TypeName(reflect.TypeOf(v)))
	}
}

func loadObject(r *Registry, g *container.Group, t typetag.Type) (any, error) {
	method, err := typetag.ReadMethod(g)
	if err != nil {
		return nil, err
	}
	goType, err := Require(t)
	if err != nil {
		return nil, err
	}
	ptr, result := newInstance(goType)

	switch method {
	case MethodState:
		restorer, ok := ptr.Interface().(Restorer)
		if !ok {
			return nil, fmt.Errorf("%w: %s has no RestoreState", ErrUnsupportedType, t)
		}
		state, err := r.LoadMember(g, StateName)
		if err != nil {
			return nil, err
		}
		if err := restorer.RestoreState(state); err != nil {
			return nil, fmt.Errorf("restore state: %w", err)
		}
		return result(), nil

	case MethodBinary:
		u, ok := ptr.Interface().(encoding.BinaryUnmarshaler)
		if !ok {
			return nil, fmt.Errorf("%w: %s has no UnmarshalBinary", ErrUnsupportedType, t)
		}
		data, err := r.ReadBlob(g, StateName)
		if err != nil {
			return nil, err
		}
		if err := u.UnmarshalBinary(data); err != nil {
			return nil, fmt.Errorf("unmarshal binary: %w", err)
		}
		return result(), nil

	default:
		return nil, corrupt("unknown pickling method %q", method)
	}
}
