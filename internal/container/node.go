package container

import (
	"fmt"
	"strings"

	"github.com/born-ml/hpickle/internal/tensor"
)

// MaxNameLength is the longest allowed child or attribute name in bytes.
const MaxNameLength = 4096

// Kind distinguishes groups from datasets.
type Kind int

// Node kinds.
const (
	KindGroup Kind = iota
	KindDataset
)

// String returns "group" or "dataset".
func (k Kind) String() string {
	if k == KindDataset {
		return "dataset"
	}
	return "group"
}

// Node is a group or a dataset.
type Node interface {
	Name() string
	Path() string
	Kind() Kind
	Parent() *Group
}

// Group is a named node holding attributes and children.
type Group struct {
	tree     *tree
	parent   *Group
	name     string
	path     string
	attrs    []attr
	attrIdx  map[string]int
	children []Node
	childIdx map[string]int
}

// Dataset is a named node holding a flat typed payload.
type Dataset struct {
	parent  *Group
	name    string
	path    string
	raw     *tensor.RawTensor
	options DatasetOptions
}

// NewRoot creates an empty writable tree and returns its root group.
func NewRoot(opts ...Option) *Group {
	t := &tree{}
	for _, opt := range opts {
		opt(t)
	}
	return newGroup(t, nil, "", "/")
}

func newGroup(t *tree, parent *Group, name, path string) *Group {
	return &Group{
		tree:     t,
		parent:   parent,
		name:     name,
		path:     path,
		attrIdx:  make(map[string]int),
		childIdx: make(map[string]int),
	}
}

func validateName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: empty", ErrInvalidName)
	case len(name) > MaxNameLength:
		return fmt.Errorf("%w: %d bytes exceeds %d", ErrInvalidName, len(name), MaxNameLength)
	case strings.ContainsRune(name, '/'):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidName, name)
	case strings.ContainsRune(name, 0):
		return fmt.Errorf("%w: %q contains NUL", ErrInvalidName, name)
	}
	return nil
}

// ValidateName reports whether name is usable as a child or attribute name.
func ValidateName(name string) error {
	return validateName(name)
}

func (g *Group) childPath(name string) string {
	if g.path == "/" {
		return "/" + name
	}
	return g.path + "/" + name
}

func (g *Group) checkNewChild(op, name string) error {
	if g.tree.readOnly {
		return nodeErr(op, g.path, ErrReadOnly)
	}
	if err := validateName(name); err != nil {
		return nodeErr(op, g.path, err)
	}
	if _, ok := g.childIdx[name]; ok {
		return nodeErr(op, g.childPath(name), ErrNameCollision)
	}
	return nil
}

func (g *Group) addChild(n Node) {
	g.childIdx[n.Name()] = len(g.children)
	g.children = append(g.children, n)
}

// Name returns the group name; empty for the root.
func (g *Group) Name() string { return g.name }

// Path returns the absolute path, "/" for the root.
func (g *Group) Path() string { return g.path }

// Kind returns KindGroup.
func (g *Group) Kind() Kind { return KindGroup }

// Parent returns the parent group, nil for the root.
func (g *Group) Parent() *Group { return g.parent }

// ReadOnly reports whether the tree has been frozen.
func (g *Group) ReadOnly() bool { return g.tree.readOnly }

// Freeze makes the whole tree read-only.
func (g *Group) Freeze() { g.tree.readOnly = true }

// Options returns the dataset options of the tree.
func (g *Group) Options() DatasetOptions { return g.tree.options }

// CreateGroup creates a new child group.
func (g *Group) CreateGroup(name string) (*Group, error) {
	if err := g.checkNewChild("create group", name); err != nil {
		return nil, err
	}
	child := newGroup(g.tree, g, name, g.childPath(name))
	g.addChild(child)
	return child, nil
}

// CreateDataset creates a flat child dataset. The payload length must be
// shape.NumElements()*dtype.Size(); data is not copied.
func (g *Group) CreateDataset(name string, shape tensor.Shape, dtype tensor.DataType, data []byte) (*Dataset, error) {
	if err := g.checkNewChild("create dataset", name); err != nil {
		return nil, err
	}
	raw, err := tensor.FromBytes(shape, dtype, data)
	if err != nil {
		return nil, nodeErr("create dataset", g.childPath(name), fmt.Errorf("%w: %w", ErrInvalidDataset, err))
	}
	return g.attachDataset(name, raw, g.tree.options.Clone()), nil
}

// AddDataset creates a child dataset backed by raw.
func (g *Group) AddDataset(name string, raw *tensor.RawTensor) (*Dataset, error) {
	return g.AddDatasetWithOptions(name, raw, g.tree.options.Clone())
}

// AddDatasetWithOptions creates a child dataset with explicit options,
// used by readers restoring a persisted tree.
func (g *Group) AddDatasetWithOptions(name string, raw *tensor.RawTensor, opts DatasetOptions) (*Dataset, error) {
	if err := g.checkNewChild("create dataset", name); err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nodeErr("create dataset", g.childPath(name), fmt.Errorf("%w: nil payload", ErrInvalidDataset))
	}
	return g.attachDataset(name, raw, opts), nil
}

func (g *Group) attachDataset(name string, raw *tensor.RawTensor, opts DatasetOptions) *Dataset {
	ds := &Dataset{parent: g, name: name, path: g.childPath(name), raw: raw, options: opts}
	g.addChild(ds)
	return ds
}

// Child returns the named group or dataset.
func (g *Group) Child(name string) (Node, error) {
	i, ok := g.childIdx[name]
	if !ok {
		return nil, nodeErr("get child", g.childPath(name), ErrNotFound)
	}
	return g.children[i], nil
}

// Group returns the named child group. A dataset of that name is reported
// as ErrNotFound.
func (g *Group) Group(name string) (*Group, error) {
	n, err := g.Child(name)
	if err != nil {
		return nil, err
	}
	sub, ok := n.(*Group)
	if !ok {
		return nil, nodeErr("get group", n.Path(), fmt.Errorf("%w: node is a dataset", ErrNotFound))
	}
	return sub, nil
}

// Dataset returns the named child dataset. A group of that name is
// reported as ErrNotFound.
func (g *Group) Dataset(name string) (*Dataset, error) {
	n, err := g.Child(name)
	if err != nil {
		return nil, err
	}
	ds, ok := n.(*Dataset)
	if !ok {
		return nil, nodeErr("get dataset", n.Path(), fmt.Errorf("%w: node is a group", ErrNotFound))
	}
	return ds, nil
}

// Has reports whether a child of that name exists.
func (g *Group) Has(name string) bool {
	_, ok := g.childIdx[name]
	return ok
}

// Children returns child names in creation order.
func (g *Group) Children() []string {
	names := make([]string, len(g.children))
	for i, c := range g.children {
		names[i] = c.Name()
	}
	return names
}

// Nodes returns children in creation order.
func (g *Group) Nodes() []Node {
	return append([]Node(nil), g.children...)
}

// NumChildren returns the number of children.
func (g *Group) NumChildren() int {
	return len(g.children)
}

// Name returns the dataset name.
func (d *Dataset) Name() string { return d.name }

// Path returns the absolute path.
func (d *Dataset) Path() string { return d.path }

// Kind returns KindDataset.
func (d *Dataset) Kind() Kind { return KindDataset }

// Parent returns the owning group.
func (d *Dataset) Parent() *Group { return d.parent }

// Shape returns the dataset shape.
func (d *Dataset) Shape() tensor.Shape { return d.raw.Shape() }

// DType returns the element type.
func (d *Dataset) DType() tensor.DataType { return d.raw.DType() }

// Data returns the payload bytes. The slice must not be modified.
func (d *Dataset) Data() []byte { return d.raw.Data() }

// Raw returns the payload as a RawTensor.
func (d *Dataset) Raw() *tensor.RawTensor { return d.raw }

// Options returns the creation options stored with the dataset.
func (d *Dataset) Options() DatasetOptions { return d.options }
