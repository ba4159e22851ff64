package container

// VisitFunc is called for every node with its path relative to the visit
// root ("" for the root itself). A non-nil result stops the traversal.
type VisitFunc func(rel string, n Node) any

// Visit walks the tree depth-first in pre-order, children in creation
// order, and returns the first non-nil callback result.
func Visit(root *Group, fn VisitFunc) any {
	return visit(root, "", fn)
}

func visit(n Node, rel string, fn VisitFunc) any {
	if res := fn(rel, n); res != nil {
		return res
	}
	g, ok := n.(*Group)
	if !ok {
		return nil
	}
	for _, c := range g.children {
		childRel := c.Name()
		if rel != "" {
			childRel = rel + "/" + childRel
		}
		if res := visit(c, childRel, fn); res != nil {
			return res
		}
	}
	return nil
}

// Walk calls fn for every node in pre-order and stops at the first error.
func Walk(root *Group, fn func(rel string, n Node) error) error {
	res := Visit(root, func(rel string, n Node) any {
		if err := fn(rel, n); err != nil {
			return err
		}
		return nil
	})
	if res == nil {
		return nil
	}
	return res.(error)
}

// Lookup resolves a slash-separated path relative to g.
func (g *Group) Lookup(rel string) (Node, error) {
	var cur Node = g
	start := 0
	for i := 0; i <= len(rel); i++ {
		if i < len(rel) && rel[i] != '/' {
			continue
		}
		part := rel[start:i]
		start = i + 1
		if part == "" {
			continue
		}
		grp, ok := cur.(*Group)
		if !ok {
			return nil, nodeErr("lookup", cur.Path(), ErrNotFound)
		}
		next, err := grp.Child(part)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}
