// Package storetest is a conformance suite for store backends.
package storetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/hpickle/internal/container"
	"github.com/born-ml/hpickle/internal/store"
	"github.com/born-ml/hpickle/internal/tensor"
)

// Factory returns an empty backend. It is called once per subtest.
type Factory func(t *testing.T) store.Backend

// Run runs the conformance suite against backends made by newBackend.
func Run(t *testing.T, newBackend Factory) {
	t.Helper()
	tests := []struct {
		name string
		fn   func(t *testing.T, b store.Backend)
	}{
		{"Empty", testEmpty},
		{"CommitFetch", testCommitFetch},
		{"WritableFetch", testWritableFetch},
		{"Overwrite", testOverwrite},
		{"CanceledContext", testCanceledContext},
		{"HandleWriteRead", testHandleWriteRead},
		{"HandleAppend", testHandleAppend},
		{"HandleAlreadyOpen", testHandleAlreadyOpen},
		{"HandleDiscard", testHandleDiscard},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newBackend(t)
			t.Cleanup(func() { release(b) })
			tt.fn(t, b)
		})
	}
}

func release(b store.Backend) {
	if r, ok := b.(interface{ Release() error }); ok {
		_ = r.Release()
	}
}

// sample builds a small tree:
//
//	/        attrs title, step
//	/params  float32 [2 2]
//	/meta    group, attr note
func sample(t *testing.T, title string) *container.Group {
	t.Helper()
	root := container.NewRoot()
	require.NoError(t, root.SetAttr("title", title))
	require.NoError(t, root.SetAttr("step", int64(3)))
	params, err := tensor.FromSliceShape([]float32{1, 2, 3, 4}, tensor.Shape{2, 2})
	require.NoError(t, err)
	_, err = root.AddDataset("params", params)
	require.NoError(t, err)
	meta, err := root.CreateGroup("meta")
	require.NoError(t, err)
	require.NoError(t, meta.SetAttr("note", container.Opaque("x")))
	return root
}

func checkSample(t *testing.T, root *container.Group, title string) {
	t.Helper()
	got, err := root.Attr("title")
	require.NoError(t, err)
	assert.Equal(t, title, got)
	step, err := root.Attr("step")
	require.NoError(t, err)
	assert.Equal(t, int64(3), step)

	ds, err := root.Dataset("params")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2, 3, 4}, ds.Raw().AsFloat32())
	assert.Equal(t, tensor.Shape{2, 2}, ds.Shape())

	meta, err := root.Group("meta")
	require.NoError(t, err)
	note, err := meta.Attr("note")
	require.NoError(t, err)
	assert.Equal(t, container.Opaque("x"), note)
}

func testEmpty(t *testing.T, b store.Backend) {
	ctx := context.Background()
	ok, err := b.Exists(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = b.Fetch(ctx, false)
	assert.ErrorIs(t, err, container.ErrNotFound)

	h := store.NewHandle(b, store.ModeRead)
	_, err = h.Open(ctx)
	assert.ErrorIs(t, err, container.ErrNotFound)
	assert.False(t, h.IsOpen())
}

func testCommitFetch(t *testing.T, b store.Backend) {
	ctx := context.Background()
	require.NoError(t, b.Commit(ctx, sample(t, "first")))

	ok, err := b.Exists(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	root, err := b.Fetch(ctx, false)
	require.NoError(t, err)
	checkSample(t, root, "first")
	assert.True(t, root.ReadOnly())
	_, err = root.CreateGroup("extra")
	assert.ErrorIs(t, err, container.ErrReadOnly)
}

func testWritableFetch(t *testing.T, b store.Backend) {
	ctx := context.Background()
	require.NoError(t, b.Commit(ctx, sample(t, "first")))

	root, err := b.Fetch(ctx, true)
	require.NoError(t, err)
	assert.False(t, root.ReadOnly())
	ds, err := root.Dataset("params")
	require.NoError(t, err)
	ds.Raw().AsFloat32()[0] = 42

	again, err := b.Fetch(ctx, false)
	require.NoError(t, err)
	checkSample(t, again, "first")
}

func testOverwrite(t *testing.T, b store.Backend) {
	ctx := context.Background()
	require.NoError(t, b.Commit(ctx, sample(t, "first")))
	require.NoError(t, b.Commit(ctx, sample(t, "second")))

	root, err := b.Fetch(ctx, false)
	require.NoError(t, err)
	checkSample(t, root, "second")
}

func testCanceledContext(t *testing.T, b store.Backend) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, b.Commit(ctx, sample(t, "first")), context.Canceled)
	_, err := b.Fetch(ctx, false)
	assert.ErrorIs(t, err, context.Canceled)

	ok, err := b.Exists(context.Background())
	require.NoError(t, err)
	assert.False(t, ok, "a canceled commit must not store anything")
}

func testHandleWriteRead(t *testing.T, b store.Backend) {
	ctx := context.Background()

	w := store.NewHandle(b, store.ModeWrite)
	root, err := w.Open(ctx)
	require.NoError(t, err)
	require.NoError(t, root.SetAttr("title", "written"))
	require.NoError(t, w.Close(ctx))
	assert.ErrorIs(t, w.Close(ctx), store.ErrNotOpen)

	r := store.NewHandle(b, store.ModeRead)
	root, err = r.Open(ctx)
	require.NoError(t, err)
	got, err := root.Attr("title")
	require.NoError(t, err)
	assert.Equal(t, "written", got)
	assert.True(t, root.ReadOnly())
	require.NoError(t, r.Close(ctx))
}

func testHandleAppend(t *testing.T, b store.Backend) {
	ctx := context.Background()

	// Append on an empty backend starts from an empty root.
	a := store.NewHandle(b, store.ModeAppend)
	root, err := a.Open(ctx)
	require.NoError(t, err)
	_, err = root.CreateGroup("one")
	require.NoError(t, err)
	require.NoError(t, a.Close(ctx))

	root, err = a.Open(ctx)
	require.NoError(t, err)
	assert.True(t, root.Has("one"))
	_, err = root.CreateGroup("two")
	require.NoError(t, err)
	require.NoError(t, a.Close(ctx))

	root, err = b.Fetch(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two"}, root.Children())
}

func testHandleAlreadyOpen(t *testing.T, b store.Backend) {
	ctx := context.Background()
	h := store.NewHandle(b, store.ModeWrite)
	_, err := h.Open(ctx)
	require.NoError(t, err)

	_, err = h.Open(ctx)
	assert.ErrorIs(t, err, store.ErrAlreadyOpen)
	other := store.NewHandle(b, store.ModeRead)
	_, err = other.Open(ctx)
	assert.ErrorIs(t, err, store.ErrAlreadyOpen, "a second handle on the same backend")
	require.NoError(t, h.Close(ctx))

	_, err = h.Open(ctx)
	require.NoError(t, err, "a closed handle can be opened again")
	require.NoError(t, h.Close(ctx))
}

func testHandleDiscard(t *testing.T, b store.Backend) {
	ctx := context.Background()
	h := store.NewHandle(b, store.ModeWrite)
	root, err := h.Open(ctx)
	require.NoError(t, err)
	require.NoError(t, root.SetAttr("title", "discarded"))
	require.NoError(t, h.Discard())
	assert.False(t, h.IsOpen())
	require.NoError(t, h.Discard())

	ok, err := b.Exists(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "a discarded handle must not commit")

	again := store.NewHandle(b, store.ModeWrite)
	_, err = again.Open(ctx)
	require.NoError(t, err, "discard releases the backend")
	require.NoError(t, again.Discard())
}
