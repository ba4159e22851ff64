package record

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/hpickle/internal/container"
	"github.com/born-ml/hpickle/internal/handlers"
	"github.com/born-ml/hpickle/internal/registry"
	"github.com/born-ml/hpickle/internal/typetag"
)

type point struct {
	X, Y float64
}

type run struct {
	ID      string            `hpickle:"id"`
	Epochs  int               `hpickle:"epochs"`
	Loss    []float64         `hpickle:"loss"`
	Tags    map[string]string `hpickle:"tags,omitempty"`
	Origin  point             `hpickle:"origin"`
	Best    *point            `hpickle:"best"`
	Scratch []byte            `hpickle:"-"`
	hidden  int
}

func newRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	r := registry.New()
	handlers.Install(r)
	require.NoError(t, Register[point](r))
	require.NoError(t, Register[run](r))
	return r
}

func TestRoundTrip(t *testing.T) {
	r := newRegistry(t)
	in := run{
		ID:      "r-1",
		Epochs:  3,
		Loss:    []float64{0.9, 0.5, 0.25},
		Tags:    map[string]string{"lr": "1e-3"},
		Origin:  point{X: 1, Y: 2},
		Best:    &point{X: 3, Y: 4},
		Scratch: []byte("dropped"),
		hidden:  7,
	}

	root := container.NewRoot()
	require.NoError(t, r.Dump(in, root, "run"))

	g, err := root.Group("run")
	require.NoError(t, err)
	assert.True(t, typetag.Has(g))
	assert.True(t, g.HasAttr("id"))
	assert.True(t, g.HasAttr("epochs"))
	assert.False(t, g.HasAttr("Scratch"))
	assert.False(t, g.Has("Scratch"))
	assert.Equal(t, []string{"loss", "tags", "origin", "best"}, g.Children())

	out, err := r.Load(g)
	require.NoError(t, err)

	want := in
	want.Scratch = nil
	want.hidden = 0
	assert.Equal(t, want, out)
}

func TestOmitEmpty(t *testing.T) {
	r := newRegistry(t)
	root := container.NewRoot()
	require.NoError(t, r.Dump(run{ID: "x"}, root, "run"))

	g, err := root.Group("run")
	require.NoError(t, err)
	assert.False(t, g.Has("tags"))

	out, err := r.Load(g)
	require.NoError(t, err)
	assert.Nil(t, out.(run).Tags)
}

func TestMissingFieldsStayZero(t *testing.T) {
	r := newRegistry(t)
	root := container.NewRoot()
	g, err := r.CreateTyped(run{}, root, "partial")
	require.NoError(t, err)
	require.NoError(t, g.SetAttr("id", "only-id"))

	out, err := r.Load(g)
	require.NoError(t, err)
	assert.Equal(t, run{ID: "only-id"}, out)
}

func TestPointerToRecord(t *testing.T) {
	r := newRegistry(t)
	p := &point{X: -1, Y: 0.5}

	root := container.NewRoot()
	require.NoError(t, r.Dump(p, root, "p"))
	out, err := r.LoadMember(root, "p")
	require.NoError(t, err)
	assert.Equal(t, p, out)
}

func TestRegisterRejects(t *testing.T) {
	r := registry.New()

	err := Register[int](r)
	assert.ErrorIs(t, err, ErrNotStruct)

	type reserved struct {
		T string `hpickle:"__type"`
	}
	assert.ErrorIs(t, Register[reserved](r), registry.ErrReservedName)

	type duplicate struct {
		A int `hpickle:"x"`
		B int `hpickle:"x"`
	}
	assert.ErrorIs(t, Register[duplicate](r), container.ErrNameCollision)

	type slash struct {
		A int `hpickle:"a/b"`
	}
	assert.ErrorIs(t, Register[slash](r), container.ErrInvalidName)

	assert.False(t, r.HasDumper(registry.TypeKey(reflect.TypeFor[duplicate]())))
}
