package container

import (
	"fmt"
	"slices"
)

// Opaque is a binary-void attribute value: bytes with no declared
// structure, as opposed to a []byte attribute holding plain data.
type Opaque []byte

type attr struct {
	name  string
	value any
}

// ValidAttrValue reports whether v may be stored as an attribute.
func ValidAttrValue(v any) bool {
	switch v.(type) {
	case bool, string,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64,
		[]byte, Opaque,
		[]bool, []int64, []float64, []string:
		return true
	default:
		return false
	}
}

// copyAttrValue validates v and copies slice values so that callers
// cannot mutate a stored attribute.
func copyAttrValue(v any) (any, error) {
	if !ValidAttrValue(v) {
		return nil, fmt.Errorf("%w: unsupported type %T", ErrInvalidAttribute, v)
	}
	switch x := v.(type) {
	case []byte:
		return slices.Clone(x), nil
	case Opaque:
		return Opaque(slices.Clone([]byte(x))), nil
	case []bool:
		return slices.Clone(x), nil
	case []int64:
		return slices.Clone(x), nil
	case []float64:
		return slices.Clone(x), nil
	case []string:
		return slices.Clone(x), nil
	default:
		return v, nil
	}
}

// SetAttr stores an attribute. Attributes are write-once: setting an
// existing name fails with ErrNameCollision.
func (g *Group) SetAttr(name string, v any) error {
	if g.tree.readOnly {
		return nodeErr("set attribute", g.path, ErrReadOnly)
	}
	if err := validateName(name); err != nil {
		return nodeErr("set attribute", g.path, err)
	}
	if _, ok := g.attrIdx[name]; ok {
		return nodeErr("set attribute", g.path, fmt.Errorf("%w: attribute %q", ErrNameCollision, name))
	}
	stored, err := copyAttrValue(v)
	if err != nil {
		return nodeErr("set attribute", g.path, fmt.Errorf("attribute %q: %w", name, err))
	}
	g.attrIdx[name] = len(g.attrs)
	g.attrs = append(g.attrs, attr{name: name, value: stored})
	return nil
}

// Attr returns the attribute value or ErrNotFound.
func (g *Group) Attr(name string) (any, error) {
	i, ok := g.attrIdx[name]
	if !ok {
		return nil, nodeErr("get attribute", g.path, fmt.Errorf("%w: attribute %q", ErrNotFound, name))
	}
	return g.attrs[i].value, nil
}

// HasAttr reports whether the attribute exists.
func (g *Group) HasAttr(name string) bool {
	_, ok := g.attrIdx[name]
	return ok
}

// Attrs returns attribute names in creation order.
func (g *Group) Attrs() []string {
	names := make([]string, len(g.attrs))
	for i, a := range g.attrs {
		names[i] = a.name
	}
	return names
}
