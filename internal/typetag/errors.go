package typetag

import "errors"

// Tag protocol errors.
var (
	ErrMissingTag          = errors.New("group has no type tag")
	ErrAlreadyTagged       = errors.New("group already carries a type tag")
	ErrIncompatibleVersion = errors.New("format version is newer than supported")
)
