// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package hpickle

import (
	"fmt"
	"reflect"

	"github.com/born-ml/hpickle/internal/record"
	"github.com/born-ml/hpickle/internal/registry"
)

// RegisterDumper registers fn for values of type T. T may be an
// interface, in which case fn applies to every type implementing it that
// has no dumper of its own. A later registration for T replaces an earlier
// one.
func RegisterDumper[T any](r *Registry, fn func(r *Registry, v T, parent *Group, name string) error) {
	r.RegisterDumper(reflect.TypeFor[T](), func(r *Registry, v any, parent *Group, name string) error {
		x, ok := v.(T)
		if !ok {
			return fmt.Errorf("%w: dumper for %s got %T", registry.ErrUnsupportedType, reflect.TypeFor[T](), v)
		}
		return fn(r, x, parent, name)
	})
}

// RegisterLoader registers fn to rebuild values tagged with type T.
func RegisterLoader[T any](r *Registry, fn func(r *Registry, g *Group) (T, error)) {
	r.RegisterLoader(reflect.TypeFor[T](), func(r *Registry, g *Group, _ Type) (any, error) {
		return fn(r, g)
	})
}

// RegisterType makes T resolvable by loaders in a process that has not
// dumped a value of that type.
func RegisterType[T any](r *Registry) {
	r.RegisterType(reflect.TypeFor[T]())
}

// RegisterStruct registers a dumper and loader for the struct type T that
// store each exported field as a member named by its hpickle tag, or by
// the field name when untagged. Fields tagged "-" are skipped and
// ",omitempty" leaves zero values out.
func RegisterStruct[T any](r *Registry) error {
	return record.Register[T](r)
}
