package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/born-ml/hpickle/internal/container"
	"github.com/born-ml/hpickle/internal/serialization"
)

// FileBackend stores the container in a .hpk file. Commits write a
// temporary file next to the target and rename it into place.
type FileBackend struct {
	path   string
	loc    string
	opts   options
	mapped *serialization.MmapReader
}

// NewFileBackend returns a backend for path.
func NewFileBackend(path string, opts ...Option) *FileBackend {
	loc, err := filepath.Abs(path)
	if err != nil {
		loc = filepath.Clean(path)
	}
	return &FileBackend{path: path, loc: "file:" + loc, opts: newOptions(opts)}
}

// Name implements Backend.
func (b *FileBackend) Name() string { return "file" }

// Location implements Backend. It is built from the absolute file path.
func (b *FileBackend) Location() string { return b.loc }

// Path returns the container file path.
func (b *FileBackend) Path() string { return b.path }

// Commit implements Backend.
func (b *FileBackend) Commit(ctx context.Context, root *container.Group) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tmp := filepath.Join(filepath.Dir(b.path), "."+filepath.Base(b.path)+".tmp-"+uuid.NewString())
	w, err := serialization.NewWriter(tmp)
	if err != nil {
		return err
	}
	header, err := w.WriteTree(root, b.opts.writerOptions())
	if err == nil {
		err = w.Sync()
	}
	if cerr := w.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("commit %s: %w", b.path, err)
	}

	if err := os.Rename(tmp, b.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("commit %s: %w", b.path, err)
	}
	b.opts.logger.Debug("committed container",
		zap.String("path", b.path),
		zap.String("id", header.ID))
	return nil
}

// Fetch implements Backend. Read-only fetches are memory-mapped when
// WithMmap is set; the mapping stays valid until Release or the next Fetch.
func (b *FileBackend) Fetch(ctx context.Context, writable bool) (*container.Group, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := b.Release(); err != nil {
		return nil, err
	}

	if b.opts.mmap && !writable {
		r, err := serialization.NewMmapReaderWithOptions(b.path, b.opts.readerOptions(false))
		if err != nil {
			return nil, b.fetchError(err)
		}
		b.mapped = r
		return r.Root(), nil
	}

	r, err := serialization.NewReaderWithOptions(b.path, b.opts.readerOptions(writable))
	if err != nil {
		return nil, b.fetchError(err)
	}
	defer r.Close()
	root, err := r.ReadTree()
	if err != nil {
		return nil, b.fetchError(err)
	}
	return root, nil
}

func (b *FileBackend) fetchError(err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("fetch %s: %w", b.path, container.ErrNotFound)
	}
	return fmt.Errorf("fetch %s: %w", b.path, err)
}

// Exists implements Backend.
func (b *FileBackend) Exists(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	_, err := os.Stat(b.path)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, err
	}
}

// Release unmaps the tree returned by the last mapped Fetch. Nodes of that
// tree must not be used afterwards.
func (b *FileBackend) Release() error {
	if b.mapped == nil {
		return nil
	}
	err := b.mapped.Close()
	b.mapped = nil
	return err
}
