package query

import (
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/born-ml/hpickle/internal/container"
	"github.com/born-ml/hpickle/internal/registry"
	"github.com/born-ml/hpickle/internal/typetag"
)

type match struct {
	rel  string
	node container.Node
	attr string // empty for a path match
}

// FindByPattern loads the first node or attribute whose relative path or
// key contains pattern. The attributes of root itself are never searched.
func FindByPattern(r *registry.Registry, root *container.Group, pattern string) (any, error) {
	if pattern == "" {
		return nil, fmt.Errorf("%w: empty pattern", container.ErrInvalidName)
	}
	return find(r, root, pattern, func(s string) bool {
		return strings.Contains(s, pattern)
	})
}

// FindByRegexp is FindByPattern with a regular expression.
func FindByRegexp(r *registry.Registry, root *container.Group, re *regexp.Regexp) (any, error) {
	if re == nil {
		return nil, fmt.Errorf("%w: nil regexp", container.ErrInvalidName)
	}
	return find(r, root, re.String(), re.MatchString)
}

func find(r *registry.Registry, root *container.Group, label string, matches func(string) bool) (any, error) {
	res := container.Visit(root, func(rel string, n container.Node) any {
		if rel == "" {
			return nil
		}
		if matches(rel) {
			return &match{rel: rel, node: n}
		}
		g, ok := n.(*container.Group)
		if !ok {
			return nil
		}
		for _, key := range g.Attrs() {
			if !typetag.IsReserved(key) && matches(key) {
				return &match{rel: rel, node: n, attr: key}
			}
		}
		return nil
	})
	if res == nil {
		return nil, fmt.Errorf("%w: no match for %q under %s", container.ErrNotFound, label, root.Path())
	}
	return load(r, res.(*match)) //nolint:forcetypeassert // visit callback only returns *match
}

func load(r *registry.Registry, m *match) (any, error) {
	r.Logger().Debug("query match",
		zap.String("path", m.node.Path()),
		zap.String("attribute", m.attr))

	if m.attr == "" {
		return r.LoadNode(m.node)
	}
	return r.LoadAttribute(m.node.(*container.Group), m.attr) //nolint:forcetypeassert // attributes live on groups
}
