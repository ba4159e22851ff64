// Package container provides the hierarchical node tree that values are
// pickled into: named groups carrying attributes and children, and flat
// typed datasets.
//
// A tree is write-once. Children and attributes are never renamed or
// removed, and a tree produced by a reader is frozen so that any mutation
// fails with ErrReadOnly.
//
//	root := container.NewRoot()
//	g, _ := root.CreateGroup("weights")
//	_ = g.SetAttr("epoch", int64(3))
//	_, _ = g.CreateDataset("entry", tensor.Shape{2}, tensor.Float32, payload)
package container
