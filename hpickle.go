// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package hpickle

import (
	"context"
	"errors"
	"reflect"
	"regexp"
	"sync"

	"github.com/born-ml/hpickle/internal/handlers"
	"github.com/born-ml/hpickle/internal/query"
	"github.com/born-ml/hpickle/internal/registry"
)

// NewRegistry returns a registry with every built-in handler installed.
func NewRegistry() *Registry {
	r := registry.New()
	handlers.Install(r)
	return r
}

var defaultRegistry = sync.OnceValue(NewRegistry)

// Default returns the process-wide registry used when no WithRegistry
// option is given. Register custom handlers on it at start-up.
func Default() *Registry {
	return defaultRegistry()
}

// Dump pickles v into backend. By default the stored container is replaced
// and v is merged into its root; see WithMode and WithName. Nothing is
// committed when dumping fails.
func Dump(ctx context.Context, v any, b Backend, opts ...Option) error {
	s := newSettings(opts)
	r := s.resolve()

	h := s.handle(b, s.dumpMode())
	root, err := h.Open(ctx)
	if err != nil {
		return err
	}
	if err := r.Dump(v, root, s.name); err != nil {
		return errors.Join(err, h.Discard())
	}
	return h.Close(ctx)
}

// Load rebuilds the value pickled into backend. An untagged root, such as
// one written by several named dumps, loads as a *Mapping.
func Load(ctx context.Context, b Backend, opts ...Option) (any, error) {
	s := newSettings(opts)
	r := s.resolve()

	h := s.handle(b, ModeRead)
	root, err := h.Open(ctx)
	if err != nil {
		return nil, err
	}
	var v any
	if s.name != "" {
		v, err = r.LoadMember(root, s.name)
	} else {
		v, err = r.LoadFrom(root)
	}
	if err != nil {
		return nil, errors.Join(err, h.Discard())
	}
	return v, h.Close(ctx)
}

// LoadAs is Load followed by a conversion to T.
func LoadAs[T any](ctx context.Context, b Backend, opts ...Option) (T, error) {
	v, err := Load(ctx, b, opts...)
	if err != nil {
		var zero T
		return zero, err
	}
	return As[T](v)
}

// DumpFile pickles v into the .hpk file at path.
func DumpFile(v any, path string, opts ...Option) error {
	return Dump(context.Background(), v, newSettings(opts).fileBackend(path), opts...)
}

// LoadFile rebuilds the value pickled into the .hpk file at path.
func LoadFile(path string, opts ...Option) (any, error) {
	return Load(context.Background(), newSettings(opts).fileBackend(path), opts...)
}

// LoadFileAs is LoadFile followed by a conversion to T.
func LoadFileAs[T any](path string, opts ...Option) (T, error) {
	return LoadAs[T](context.Background(), newSettings(opts).fileBackend(path), opts...)
}

// DumpInto pickles v as the child or attribute name of parent. An empty
// name merges v into parent itself.
func DumpInto(v any, parent *Group, name string, opts ...Option) error {
	return newSettings(opts).resolve().Dump(v, parent, name)
}

// LoadFrom rebuilds the value stored in g. Untagged groups load as a
// *Mapping.
func LoadFrom(g *Group, opts ...Option) (any, error) {
	return newSettings(opts).resolve().LoadFrom(g)
}

// LoadSubtreeAsMapping loads the children and attributes of g into a
// Mapping, leaving out reserved attributes and every name containing one
// of the exclude patterns.
func LoadSubtreeAsMapping(g *Group, exclude []string, opts ...Option) (*Mapping, error) {
	return newSettings(opts).resolve().LoadGroupAsMapping(g, exclude)
}

// FindByPattern loads the first node or attribute below root whose
// relative path contains pattern. Nodes are visited in pre-order and a
// node's path is tried before its attributes. root itself is not a
// candidate, so attributes merged onto root (a value dumped without a
// name) are not found; search them with root.Attr or LoadSubtreeAsMapping.
// It fails with ErrNotFound when nothing matches.
func FindByPattern(root *Group, pattern string, opts ...Option) (any, error) {
	return query.FindByPattern(newSettings(opts).resolve(), root, pattern)
}

// FindByRegexp is FindByPattern with a regular expression.
func FindByRegexp(root *Group, re *regexp.Regexp, opts ...Option) (any, error) {
	return query.FindByRegexp(newSettings(opts).resolve(), root, re)
}

// FindByExpr loads the first node below root for which the boolean
// expression holds. The expression sees the fields of Entry-like
// variables path, name, kind, depth, typed, type, dtype, shape and attrs,
// for example:
//
//	kind == "dataset" && dtype == "float32" && depth > 1
func FindByExpr(root *Group, expression string, opts ...Option) (any, error) {
	return query.FindByExpr(newSettings(opts).resolve(), root, expression)
}

// As converts a loaded value to T: mappings become maps, loaded slices are
// converted element by element and numbers within their family.
func As[T any](v any) (T, error) {
	var zero T
	rv, err := registry.Assign(v, reflect.TypeFor[T]())
	if err != nil {
		return zero, err
	}
	out, _ := rv.Interface().(T)
	return out, nil
}
