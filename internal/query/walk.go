package query

import (
	"github.com/born-ml/hpickle/internal/container"
	"github.com/born-ml/hpickle/internal/typetag"
)

// Entry describes one node of a tree listing.
type Entry struct {
	Path  string
	Kind  container.Kind
	Type  string   // recorded type name, empty for untagged groups and datasets
	DType string   // datasets only
	Shape []int    // datasets only
	Attrs []string // non-reserved attribute names in creation order
}

// Walk lists every node below and including root in pre-order.
func Walk(root *container.Group) []Entry {
	var entries []Entry
	_ = container.Walk(root, func(_ string, n container.Node) error {
		entries = append(entries, entryOf(n))
		return nil
	})
	return entries
}

func entryOf(n container.Node) Entry {
	e := Entry{Path: n.Path(), Kind: n.Kind()}
	switch x := n.(type) {
	case *container.Dataset:
		e.DType = x.DType().String()
		e.Shape = []int(x.Shape().Clone())
	case *container.Group:
		if d, err := typetag.Read(x); err == nil {
			e.Type = d.Name
			if e.Type == "" {
				e.Type = d.Key
			}
		}
		for _, key := range x.Attrs() {
			if !typetag.IsReserved(key) {
				e.Attrs = append(e.Attrs, key)
			}
		}
	}
	return e
}
