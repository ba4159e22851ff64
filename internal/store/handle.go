package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/puzpuzpuz/xsync/v3"
	"go.uber.org/zap"

	"github.com/born-ml/hpickle/internal/container"
	"github.com/born-ml/hpickle/internal/observability"
)

// Mode selects how a handle opens its container.
type Mode int

const (
	// ModeRead opens the stored container read-only.
	ModeRead Mode = iota
	// ModeWrite starts from an empty root and replaces the stored
	// container on Close.
	ModeWrite
	// ModeAppend opens a writable copy of the stored container, or an
	// empty root if there is none, and commits it on Close.
	ModeAppend
)

// String returns the short mode name.
func (m Mode) String() string {
	switch m {
	case ModeRead:
		return "r"
	case ModeWrite:
		return "w"
	case ModeAppend:
		return "a"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode parses "r", "w" or "a".
func ParseMode(s string) (Mode, error) {
	switch s {
	case "r", "read":
		return ModeRead, nil
	case "w", "write":
		return ModeWrite, nil
	case "a", "append":
		return ModeAppend, nil
	default:
		return 0, fmt.Errorf("unknown mode %q", s)
	}
}

// opened holds the location of every backend with an open handle.
var opened = xsync.NewMapOf[string, struct{}]()

// Handle guards a backend for the duration of one top-level operation.
// At most one handle per backend is open at a time.
type Handle struct {
	backend  Backend
	mode     Mode
	rootOpts []container.Option
	logger   *zap.Logger

	mu   sync.Mutex
	root *container.Group
	open bool
}

// HandleOption configures a Handle.
type HandleOption func(*Handle)

// WithRootOptions sets the options of roots created in write and append
// modes.
func WithRootOptions(opts ...container.Option) HandleOption {
	return func(h *Handle) {
		h.rootOpts = opts
	}
}

// WithHandleLogger sets the handle logger.
func WithHandleLogger(l *zap.Logger) HandleOption {
	return func(h *Handle) {
		if l != nil {
			h.logger = l
		}
	}
}

// NewHandle returns a closed handle on b.
func NewHandle(b Backend, mode Mode, opts ...HandleOption) *Handle {
	h := &Handle{backend: b, mode: mode, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Mode returns the open mode.
func (h *Handle) Mode() Mode { return h.mode }

// Backend returns the underlying backend.
func (h *Handle) Backend() Backend { return h.backend }

// Open returns the root group. It fails with ErrAlreadyOpen while this or
// any other handle on a backend with the same location is open.
func (h *Handle) Open(ctx context.Context) (*container.Group, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.open {
		return nil, ErrAlreadyOpen
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, loaded := opened.LoadOrStore(h.backend.Location(), struct{}{}); loaded {
		return nil, ErrAlreadyOpen
	}

	root, err := h.openRoot(ctx)
	if err != nil {
		opened.Delete(h.backend.Location())
		return nil, err
	}
	h.logger.Debug("open container",
		zap.String("backend", h.backend.Name()),
		zap.Stringer("mode", h.mode))
	h.root = root
	h.open = true
	return root, nil
}

func (h *Handle) openRoot(ctx context.Context) (*container.Group, error) {
	switch h.mode {
	case ModeWrite:
		return container.NewRoot(h.rootOpts...), nil
	case ModeAppend:
		root, err := h.backend.Fetch(ctx, true)
		if errors.Is(err, container.ErrNotFound) {
			return container.NewRoot(h.rootOpts...), nil
		}
		return root, err
	case ModeRead:
		return h.backend.Fetch(ctx, false)
	default:
		return nil, fmt.Errorf("open: unknown mode %v", h.mode)
	}
}

// Close commits the tree in write and append modes and releases the
// handle. The handle is closed even when the commit fails.
func (h *Handle) Close(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.open {
		return ErrNotOpen
	}
	root := h.root
	h.root = nil
	h.open = false
	defer opened.Delete(h.backend.Location())

	if h.mode == ModeRead {
		return h.release()
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := h.backend.Commit(ctx, root); err != nil {
		return err
	}
	observability.CountCommit(h.backend.Name())
	h.logger.Debug("commit container", zap.String("backend", h.backend.Name()))
	return nil
}

// Discard closes the handle without committing. It is a no-op on a
// closed handle.
func (h *Handle) Discard() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.open {
		return nil
	}
	h.root = nil
	h.open = false
	defer opened.Delete(h.backend.Location())
	return h.release()
}

func (h *Handle) release() error {
	if r, ok := h.backend.(releaser); ok {
		return r.Release()
	}
	return nil
}

// IsOpen reports whether Open has been called without a matching Close.
func (h *Handle) IsOpen() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.open
}
