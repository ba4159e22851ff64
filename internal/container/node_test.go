package container

import (
	"errors"
	"strings"
	"testing"

	"github.com/born-ml/hpickle/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateGroup(t *testing.T) {
	root := NewRoot()
	assert.Equal(t, "/", root.Path())
	assert.Equal(t, "", root.Name())

	a, err := root.CreateGroup("a")
	require.NoError(t, err)
	assert.Equal(t, "/a", a.Path())
	assert.Same(t, root, a.Parent())

	b, err := a.CreateGroup("b")
	require.NoError(t, err)
	assert.Equal(t, "/a/b", b.Path())

	_, err = root.CreateGroup("a")
	require.ErrorIs(t, err, ErrNameCollision)

	var ne *NodeError
	require.ErrorAs(t, err, &ne)
	assert.Equal(t, "/a", ne.Path)
}

func TestInvalidNames(t *testing.T) {
	root := NewRoot()
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"separator", "a/b"},
		{"nul", "a\x00b"},
		{"too long", strings.Repeat("x", MaxNameLength+1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := root.CreateGroup(tt.input)
			assert.ErrorIs(t, err, ErrInvalidName)
			_, err = root.CreateDataset(tt.input, tensor.Shape{1}, tensor.Uint8, []byte{1})
			assert.ErrorIs(t, err, ErrInvalidName)
			assert.ErrorIs(t, root.SetAttr(tt.input, 1), ErrInvalidName)
		})
	}

	_, err := root.CreateGroup(strings.Repeat("x", MaxNameLength))
	assert.NoError(t, err)
}

func TestCreateDataset(t *testing.T) {
	root := NewRoot(WithDatasetOptions(DatasetOptions{"compression": "gzip"}))

	ds, err := root.CreateDataset("entry", tensor.Shape{2, 2}, tensor.Float32, make([]byte, 16))
	require.NoError(t, err)
	assert.Equal(t, KindDataset, ds.Kind())
	assert.Equal(t, tensor.Shape{2, 2}, ds.Shape())
	assert.Equal(t, tensor.Float32, ds.DType())
	assert.Equal(t, "gzip", ds.Options()["compression"])

	_, err = root.CreateDataset("entry", tensor.Shape{1}, tensor.Uint8, []byte{0})
	assert.ErrorIs(t, err, ErrNameCollision)

	_, err = root.CreateDataset("bad", tensor.Shape{3}, tensor.Int64, make([]byte, 8))
	assert.ErrorIs(t, err, ErrInvalidDataset)

	_, err = root.CreateDataset("empty", tensor.Shape{0}, tensor.Int64, nil)
	assert.NoError(t, err)

	_, err = root.AddDataset("nil", nil)
	assert.ErrorIs(t, err, ErrInvalidDataset)
}

func TestChildLookup(t *testing.T) {
	root := NewRoot()
	_, err := root.CreateGroup("g")
	require.NoError(t, err)
	_, err = root.AddDataset("d", tensor.FromSlice([]int32{1, 2}))
	require.NoError(t, err)

	assert.True(t, root.Has("g"))
	assert.False(t, root.Has("x"))
	assert.Equal(t, []string{"g", "d"}, root.Children())
	assert.Equal(t, 2, root.NumChildren())

	_, err = root.Child("x")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = root.Group("d")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = root.Dataset("g")
	assert.ErrorIs(t, err, ErrNotFound)

	ds, err := root.Dataset("d")
	require.NoError(t, err)
	assert.Equal(t, []int32{1, 2}, ds.Raw().AsInt32())
}

func TestAttributes(t *testing.T) {
	root := NewRoot()
	require.NoError(t, root.SetAttr("b", true))
	require.NoError(t, root.SetAttr("a", int64(1)))
	require.NoError(t, root.SetAttr("blob", Opaque{1, 2}))

	assert.Equal(t, []string{"b", "a", "blob"}, root.Attrs())
	assert.True(t, root.HasAttr("a"))

	v, err := root.Attr("a")
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)

	_, err = root.Attr("missing")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, root.SetAttr("a", int64(2)), ErrNameCollision)
	assert.ErrorIs(t, root.SetAttr("m", map[string]int{}), ErrInvalidAttribute)
	assert.ErrorIs(t, root.SetAttr("c", complex(1, 2)), ErrInvalidAttribute)
}

func TestAttributeCopied(t *testing.T) {
	root := NewRoot()
	buf := []byte{1, 2, 3}
	require.NoError(t, root.SetAttr("raw", buf))
	buf[0] = 9

	v, err := root.Attr("raw")
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, v)
}

func TestFreeze(t *testing.T) {
	root := NewRoot()
	g, err := root.CreateGroup("g")
	require.NoError(t, err)
	root.Freeze()

	assert.True(t, g.ReadOnly())
	_, err = g.CreateGroup("x")
	assert.ErrorIs(t, err, ErrReadOnly)
	_, err = root.CreateDataset("x", tensor.Shape{1}, tensor.Uint8, []byte{1})
	assert.ErrorIs(t, err, ErrReadOnly)
	assert.ErrorIs(t, g.SetAttr("x", 1), ErrReadOnly)
}

func TestWrapError(t *testing.T) {
	inner := &NodeError{Op: "load", Path: "/deep", Err: ErrCorruptData}
	err := WrapError("load", "/", "x", inner)
	assert.Same(t, inner, err)

	err = WrapError("load", "/a", "math/big.Int", ErrCorruptData)
	assert.ErrorIs(t, err, ErrCorruptData)
	assert.Contains(t, err.Error(), "math/big.Int")
	assert.Contains(t, err.Error(), "/a")

	assert.NoError(t, WrapError("load", "/", "", nil))
	assert.False(t, errors.Is(WrapError("x", "/", "", ErrNotFound), ErrCorruptData))
}
