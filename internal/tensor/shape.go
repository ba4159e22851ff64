package tensor

import "fmt"

// Shape represents the dimensions of a dataset.
type Shape []int

// NumElements returns the total number of elements.
func (s Shape) NumElements() int {
	if len(s) == 0 {
		return 1 // Scalar has 1 element
	}
	n := 1
	for _, dim := range s {
		n *= dim
	}
	return n
}

// Validate checks that no dimension is negative. Zero-length dimensions
// are allowed so that empty sequences keep their element type.
func (s Shape) Validate() error {
	for i, dim := range s {
		if dim < 0 {
			return fmt.Errorf("invalid dimension at index %d: %d (must be >= 0)", i, dim)
		}
	}
	return nil
}

// Equal checks if two shapes are equal.
func (s Shape) Equal(other Shape) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Clone returns a copy of the shape.
func (s Shape) Clone() Shape {
	clone := make(Shape, len(s))
	copy(clone, s)
	return clone
}

// Int64s converts the shape to the attribute-friendly []int64 form.
func (s Shape) Int64s() []int64 {
	out := make([]int64, len(s))
	for i, d := range s {
		out[i] = int64(d)
	}
	return out
}

// ShapeFromInt64s is the inverse of Shape.Int64s.
func ShapeFromInt64s(dims []int64) Shape {
	s := make(Shape, len(dims))
	for i, d := range dims {
		s[i] = int(d)
	}
	return s
}
