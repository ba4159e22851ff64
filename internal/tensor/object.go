package tensor

import "fmt"

// ObjectArray is a shaped array of arbitrary values, the Object-dtype
// counterpart of RawTensor. Elements are stored in row-major order.
type ObjectArray struct {
	Shape Shape
	Elems []any
}

// NewObjectArray checks that elems fills shape exactly.
func NewObjectArray(shape Shape, elems []any) (ObjectArray, error) {
	if err := shape.Validate(); err != nil {
		return ObjectArray{}, fmt.Errorf("invalid shape: %w", err)
	}
	if shape.NumElements() != len(elems) {
		return ObjectArray{}, fmt.Errorf("shape %v holds %d elements, got %d", []int(shape), shape.NumElements(), len(elems))
	}
	return ObjectArray{Shape: shape.Clone(), Elems: elems}, nil
}

// DType always reports Object.
func (a ObjectArray) DType() DataType {
	return Object
}

// NumElements returns the number of elements.
func (a ObjectArray) NumElements() int {
	return len(a.Elems)
}
