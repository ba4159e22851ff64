package registry

import "reflect"

// Family is a category key shared by all types of one kind. Family keys
// are bracketed so they never collide with a Go type key.
type Family string

// Families, in the order dispatch falls back through them.
const (
	FamilyNone     Family = "<none>"
	FamilyBool     Family = "<bool>"
	FamilyInt      Family = "<int>"
	FamilyUint     Family = "<uint>"
	FamilyFloat    Family = "<float>"
	FamilyComplex  Family = "<complex>"
	FamilyString   Family = "<string>"
	FamilyBytes    Family = "<bytes>"
	FamilyMapping  Family = "<mapping>"
	FamilySequence Family = "<sequence>"
	FamilyTuple    Family = "<tuple>"
	FamilySet      Family = "<set>"
	FamilyPointer  Family = "<pointer>"
	FamilyObject   Family = "<object>"
)

// TypeKey returns the stable identifier of t: "<pkgpath>.<Name>" for named
// types, "*" + element key for unnamed pointers and t.String() otherwise.
// A nil type is the none family.
func TypeKey(t reflect.Type) string {
	switch {
	case t == nil:
		return string(FamilyNone)
	case t.Name() != "" && t.PkgPath() != "":
		return t.PkgPath() + "." + t.Name()
	case t.Kind() == reflect.Pointer && t.Name() == "":
		return "*" + TypeKey(t.Elem())
	default:
		return t.String()
	}
}

// TypeName returns the readable name recorded next to a type key.
func TypeName(t reflect.Type) string {
	if t == nil {
		return "nil"
	}
	return t.String()
}

// FamilyOf returns the kind family of t.
func FamilyOf(t reflect.Type) Family {
	if t == nil {
		return FamilyNone
	}
	switch t.Kind() {
	case reflect.Bool:
		return FamilyBool
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return FamilyInt
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return FamilyUint
	case reflect.Float32, reflect.Float64:
		return FamilyFloat
	case reflect.Complex64, reflect.Complex128:
		return FamilyComplex
	case reflect.String:
		return FamilyString
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return FamilyBytes
		}
		return FamilySequence
	case reflect.Array:
		return FamilyTuple
	case reflect.Map:
		if isEmptyStruct(t.Elem()) {
			return FamilySet
		}
		if t.Key().Kind() == reflect.String {
			return FamilyMapping
		}
		return FamilyObject
	case reflect.Pointer:
		return FamilyPointer
	default:
		return FamilyObject
	}
}

func isEmptyStruct(t reflect.Type) bool {
	return t.Kind() == reflect.Struct && t.NumField() == 0
}

// Chain returns the dispatch chain of t: its exact key, the keys of the
// registered interfaces it implements in registration order, its family
// and the object catch-all.
func (r *Registry) Chain(t reflect.Type) []string {
	chain := []string{TypeKey(t)}
	add := func(key string) {
		for _, k := range chain {
			if k == key {
				return
			}
		}
		chain = append(chain, key)
	}

	if t != nil {
		r.mu.RLock()
		for _, iface := range r.ifaces {
			if t.Implements(iface) {
				add(TypeKey(iface))
			}
		}
		r.mu.RUnlock()
	}
	add(string(FamilyOf(t)))
	add(string(FamilyObject))
	return chain
}
