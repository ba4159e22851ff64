package store

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/born-ml/hpickle/internal/container"
	"github.com/born-ml/hpickle/internal/serialization"
)

// MemoryBackend keeps the encoded container in memory. It is also the
// stream adapter: WriteTo and ReadFrom move the encoded bytes through any
// io.Writer or io.Reader.
type MemoryBackend struct {
	mu   sync.RWMutex
	data []byte
	opts options
}

var (
	_ io.WriterTo   = (*MemoryBackend)(nil)
	_ io.ReaderFrom = (*MemoryBackend)(nil)
)

// NewMemoryBackend returns an empty backend.
func NewMemoryBackend(opts ...Option) *MemoryBackend {
	return &MemoryBackend{opts: newOptions(opts)}
}

// Name implements Backend.
func (b *MemoryBackend) Name() string { return "memory" }

// Location implements Backend. Every MemoryBackend is its own location.
func (b *MemoryBackend) Location() string { return fmt.Sprintf("memory:%p", b) }

// Commit implements Backend.
func (b *MemoryBackend) Commit(ctx context.Context, root *container.Group) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, _, err := serialization.Marshal(root, b.opts.writerOptions())
	if err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	b.mu.Lock()
	b.data = data
	b.mu.Unlock()
	return nil
}

// Fetch implements Backend. Read-only trees share the stored bytes.
func (b *MemoryBackend) Fetch(ctx context.Context, writable bool) (*container.Group, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.RLock()
	data := b.data
	b.mu.RUnlock()
	if data == nil {
		return nil, fmt.Errorf("fetch: %w", container.ErrNotFound)
	}

	root, _, err := serialization.Decode(data, b.opts.readerOptions(writable))
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	return root, nil
}

// Exists implements Backend.
func (b *MemoryBackend) Exists(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.data != nil, nil
}

// Bytes returns the encoded container, or nil if nothing was committed.
func (b *MemoryBackend) Bytes() []byte {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.data
}

// WriteTo writes the encoded container to w.
func (b *MemoryBackend) WriteTo(w io.Writer) (int64, error) {
	b.mu.RLock()
	data := b.data
	b.mu.RUnlock()
	if data == nil {
		return 0, fmt.Errorf("write: %w", container.ErrNotFound)
	}
	n, err := w.Write(data)
	return int64(n), err
}

// ReadFrom replaces the stored container with the encoded bytes read from
// r. The bytes are checked when they are next fetched.
func (b *MemoryBackend) ReadFrom(r io.Reader) (int64, error) {
	var buf bytes.Buffer
	n, err := buf.ReadFrom(r)
	if err != nil {
		return n, err
	}
	b.mu.Lock()
	b.data = buf.Bytes()
	b.mu.Unlock()
	return n, nil
}
