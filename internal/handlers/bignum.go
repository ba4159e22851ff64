package handlers

import (
	"fmt"
	"math/big"

	"github.com/born-ml/hpickle/internal/container"
	"github.com/born-ml/hpickle/internal/registry"
	"github.com/born-ml/hpickle/internal/typetag"
)

// Arbitrary-precision numbers are stored as a typed group with a
// string-encoded value attribute.

const (
	precName = "prec"
	modeName = "mode"
)

func dumpBigText(r *registry.Registry, v any, isNil bool, text func() string, parent *container.Group, name string) (*container.Group, error) {
	g, err := r.CreateTyped(v, parent, name)
	if err != nil {
		return nil, err
	}
	if isNil {
		return g, g.SetAttr(nilName, true)
	}
	return g, g.SetAttr(registry.ValueName, text())
}

func dumpBigInt(r *registry.Registry, v any, parent *container.Group, name string) error {
	x := v.(*big.Int) //nolint:forcetypeassert // registered for *big.Int only
	_, err := dumpBigText(r, v, x == nil, x.String, parent, name)
	return err
}

func loadBigInt(_ *registry.Registry, g *container.Group, _ typetag.Type) (any, error) {
	if g.HasAttr(nilName) {
		return (*big.Int)(nil), nil
	}
	s, err := stringAttr(g, registry.ValueName)
	if err != nil {
		return nil, err
	}
	x, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("%w: invalid integer %q", container.ErrCorruptData, s)
	}
	return x, nil
}

func dumpBigFloat(r *registry.Registry, v any, parent *container.Group, name string) error {
	x := v.(*big.Float) //nolint:forcetypeassert // registered for *big.Float only
	text := func() string { return x.Text('g', -1) }
	g, err := dumpBigText(r, v, x == nil, text, parent, name)
	if err != nil || x == nil {
		return err
	}
	if err := g.SetAttr(precName, uint64(x.Prec())); err != nil {
		return err
	}
	return g.SetAttr(modeName, int64(x.Mode()))
}

func loadBigFloat(_ *registry.Registry, g *container.Group, _ typetag.Type) (any, error) {
	if g.HasAttr(nilName) {
		return (*big.Float)(nil), nil
	}
	s, err := stringAttr(g, registry.ValueName)
	if err != nil {
		return nil, err
	}
	x := new(big.Float)
	if v, err := g.Attr(precName); err == nil {
		if prec, ok := v.(uint64); ok {
			x.SetPrec(uint(prec))
		}
	}
	if v, err := g.Attr(modeName); err == nil {
		if mode, ok := v.(int64); ok {
			x.SetMode(big.RoundingMode(mode)) //nolint:gosec // written from RoundingMode
		}
	}
	if _, ok := x.SetString(s); !ok {
		return nil, fmt.Errorf("%w: invalid float %q", container.ErrCorruptData, s)
	}
	return x, nil
}

func dumpBigRat(r *registry.Registry, v any, parent *container.Group, name string) error {
	x := v.(*big.Rat) //nolint:forcetypeassert // registered for *big.Rat only
	_, err := dumpBigText(r, v, x == nil, x.RatString, parent, name)
	return err
}

func loadBigRat(_ *registry.Registry, g *container.Group, _ typetag.Type) (any, error) {
	if g.HasAttr(nilName) {
		return (*big.Rat)(nil), nil
	}
	s, err := stringAttr(g, registry.ValueName)
	if err != nil {
		return nil, err
	}
	x, ok := new(big.Rat).SetString(s)
	if !ok {
		return nil, fmt.Errorf("%w: invalid rational %q", container.ErrCorruptData, s)
	}
	return x, nil
}
