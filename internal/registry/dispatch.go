package registry

import (
	"fmt"
	"reflect"
	"strings"

	"go.uber.org/zap"

	"github.com/born-ml/hpickle/internal/container"
	"github.com/born-ml/hpickle/internal/observability"
	"github.com/born-ml/hpickle/internal/typetag"
)

// Dump writes v under parent using the most specific registered dumper.
// With an empty name v is merged into parent itself.
func (r *Registry) Dump(v any, parent *container.Group, name string) error {
	t := reflect.TypeOf(v)
	r.RegisterType(t)

	for _, key := range r.Chain(t) {
		fn, ok := r.dumpers.Load(key)
		if !ok {
			continue
		}
		r.logger.Debug("dump",
			zap.String("path", joinPath(parent, name)),
			zap.String("type", TypeName(t)),
			zap.String("handler", key))
		observability.CountDump(familyLabel(key, t))

		if err := fn(r, v, parent, name); err != nil {
			return container.WrapError("dump", joinPath(parent, name), TypeName(t), err)
		}
		return nil
	}
	// Unreachable while installObject has run.
	return container.WrapError("dump", joinPath(parent, name), TypeName(t),
		fmt.Errorf("%w: no dumper", ErrUnsupportedType))
}

// Load rebuilds the value stored in a tagged group.
func (r *Registry) Load(g *container.Group) (any, error) {
	d, err := typetag.Read(g)
	if err != nil {
		return nil, err
	}
	typ := typetag.Resolve(d, r)

	chain := d.Chain
	if len(chain) == 0 {
		chain = []string{d.Key, string(FamilyObject)}
	}
	for _, key := range chain {
		fn, ok := r.loaders.Load(key)
		if !ok {
			continue
		}
		r.logger.Debug("load",
			zap.String("path", g.Path()),
			zap.String("type", typ.String()),
			zap.String("handler", key),
			zap.Bool("placeholder", typ.Placeholder))
		observability.CountLoad(familyLabel(key, typ.Go))

		v, err := fn(r, g, typ)
		if err != nil {
			return nil, container.WrapError("load", g.Path(), typ.String(), err)
		}
		return v, nil
	}
	return nil, container.WrapError("load", g.Path(), typ.String(),
		fmt.Errorf("%w: no loader for %s", ErrUnsupportedType, typ))
}

// LoadFrom loads a tagged group through the registry and any other group
// as a Mapping.
func (r *Registry) LoadFrom(g *container.Group) (any, error) {
	if typetag.Has(g) {
		return r.Load(g)
	}
	return r.LoadGroupAsMapping(g, nil)
}

// Require returns the resolved Go type or ErrUnsupportedType naming the
// recorded type when it could not be resolved in this process.
func Require(t typetag.Type) (reflect.Type, error) {
	if t.Placeholder || t.Go == nil {
		return nil, fmt.Errorf("%w: %s is not registered in this process", ErrUnsupportedType, t)
	}
	return t.Go, nil
}

func familyLabel(key string, t reflect.Type) string {
	if strings.HasPrefix(key, "<") {
		return key
	}
	return string(FamilyOf(t))
}

func joinPath(parent *container.Group, name string) string {
	switch {
	case name == "":
		return parent.Path()
	case parent.Path() == "/":
		return "/" + name
	default:
		return parent.Path() + "/" + name
	}
}
