package store

import "errors"

var (
	// ErrAlreadyOpen is returned when a handle is opened again before it
	// was closed, e.g. by a nested top-level dump.
	ErrAlreadyOpen = errors.New("container is already open")

	// ErrNotOpen is returned by Close on a handle that is not open.
	ErrNotOpen = errors.New("container is not open")
)
