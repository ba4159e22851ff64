package container

import "maps"

// DatasetOptions are backend creation hints (chunking, compression, ...)
// attached to every dataset of a tree. They are stored verbatim and never
// interpreted.
type DatasetOptions map[string]any

// Clone returns a shallow copy.
func (o DatasetOptions) Clone() DatasetOptions {
	if o == nil {
		return nil
	}
	return maps.Clone(o)
}

// Option configures a new root.
type Option func(*tree)

// WithDatasetOptions sets the options inherited by every dataset of the tree.
func WithDatasetOptions(opts DatasetOptions) Option {
	return func(t *tree) {
		t.options = opts.Clone()
	}
}

type tree struct {
	readOnly bool
	options  DatasetOptions
}
