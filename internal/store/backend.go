package store

import (
	"context"

	"go.uber.org/zap"

	"github.com/born-ml/hpickle/internal/container"
	"github.com/born-ml/hpickle/internal/serialization"
)

// Backend stores a single encoded container.
type Backend interface {
	// Name identifies the backend kind in logs and metrics.
	Name() string
	// Location identifies the stored container. Two backends with the
	// same location address the same data.
	Location() string
	// Commit encodes root and replaces the stored container.
	Commit(ctx context.Context, root *container.Group) error
	// Fetch decodes the stored container. Unless writable is set the
	// returned tree is read-only. A missing container yields an error
	// matching container.ErrNotFound.
	Fetch(ctx context.Context, writable bool) (*container.Group, error)
	// Exists reports whether a container has been stored.
	Exists(ctx context.Context) (bool, error)
}

// releaser is implemented by backends that hold resources for the tree
// returned by the last read-only Fetch.
type releaser interface {
	Release() error
}

// Option configures a backend.
type Option func(*options)

type options struct {
	mmap     bool
	reader   serialization.ReaderOptions
	metadata map[string]string
	logger   *zap.Logger
}

func newOptions(opts []Option) options {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o options) readerOptions(writable bool) serialization.ReaderOptions {
	r := o.reader
	r.Writable = writable
	return r
}

func (o options) writerOptions() serialization.WriterOptions {
	return serialization.WriterOptions{Metadata: o.metadata}
}

// WithMmap maps files for read-only fetches. Only the file backend uses it.
func WithMmap(enabled bool) Option {
	return func(o *options) {
		o.mmap = enabled
	}
}

// WithValidation sets the validation level used when decoding.
func WithValidation(level serialization.ValidationLevel) Option {
	return func(o *options) {
		o.reader.ValidationLevel = level
	}
}

// WithSkipChecksum disables checksum verification when decoding.
func WithSkipChecksum(skip bool) Option {
	return func(o *options) {
		o.reader.SkipChecksumValidation = skip
	}
}

// WithMetadata attaches custom key/value metadata to every commit.
func WithMetadata(md map[string]string) Option {
	return func(o *options) {
		o.metadata = md
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}
