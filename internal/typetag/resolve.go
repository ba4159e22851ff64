package typetag

import "reflect"

// Resolver maps a type key onto a Go type.
type Resolver interface {
	ResolveType(key string) (reflect.Type, bool)
}

// Type is a descriptor resolved against a Resolver. When the key is
// unknown in this process, Go is nil and Placeholder is set; the readable
// name survives for error reporting.
type Type struct {
	Descriptor
	Go          reflect.Type
	Placeholder bool
}

// Resolve looks d.Key up in r.
func Resolve(d Descriptor, r Resolver) Type {
	if r != nil {
		if t, ok := r.ResolveType(d.Key); ok {
			return Type{Descriptor: d, Go: t}
		}
	}
	return Type{Descriptor: d, Placeholder: true}
}

// String returns the readable type name.
func (t Type) String() string {
	if t.Name != "" {
		return t.Name
	}
	return t.Key
}
