// Package store persists container trees.
//
// A Backend holds one encoded container: a file on disk, an in-memory
// buffer or a Redis hash. A Handle opens the container in read, write or
// append mode, hands out its root group and commits it again on Close.
//
//	b := store.NewFileBackend("run.hpk", store.WithMmap(true))
//	h := store.NewHandle(b, store.ModeRead)
//	root, err := h.Open(ctx)
//	...
//	err = h.Close(ctx)
package store
