package container

import (
	"errors"
	"fmt"
)

// Structural errors. Every error returned by a node method is a *NodeError
// wrapping one of these.
var (
	ErrNameCollision    = errors.New("name already exists")
	ErrInvalidName      = errors.New("invalid name")
	ErrNotFound         = errors.New("not found")
	ErrReadOnly         = errors.New("container is read-only")
	ErrInvalidAttribute = errors.New("invalid attribute value")
	ErrInvalidDataset   = errors.New("invalid dataset")
	ErrCorruptData      = errors.New("corrupt data")
)

// NodeError records the failing operation, node path and, where known,
// the type name involved.
type NodeError struct {
	Op   string // Operation (e.g. "create group", "load")
	Path string // Path of the node the operation ran on
	Type string // Type name involved, if any
	Err  error
}

// Error implements the error interface.
func (e *NodeError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("%s %s (type %s): %v", e.Op, e.Path, e.Type, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *NodeError) Unwrap() error {
	return e.Err
}

// WrapError attaches op, path and type to err. An error that already
// carries a *NodeError is returned unchanged so that the deepest failing
// node is the one reported.
func WrapError(op, path, typ string, err error) error {
	if err == nil {
		return nil
	}
	var ne *NodeError
	if errors.As(err, &ne) {
		return err
	}
	return &NodeError{Op: op, Path: path, Type: typ, Err: err}
}

func nodeErr(op, path string, err error) error {
	return &NodeError{Op: op, Path: path, Err: err}
}
