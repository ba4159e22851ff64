// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import (
	"github.com/born-ml/hpickle/internal/tensor"
)

// RawTensor is a typed, shaped, flat little-endian buffer.
//
// RawTensor provides:
//   - Shape and type information via Shape(), DType(), NumElements()
//   - Zero-copy typed views via AsFloat32(), AsInt64(), etc.
//   - Per-element access via Value() and SetValue()
//   - Deep copies via Clone()
//
// Example:
//
//	raw, _ := tensor.NewRaw(tensor.Shape{2, 3}, tensor.Float32)
//	data := raw.AsFloat32()
//	clone := raw.Clone()
type RawTensor = tensor.RawTensor

// ObjectArray is a shaped array of arbitrary values.
type ObjectArray = tensor.ObjectArray

// NewRaw creates a zero-filled RawTensor.
func NewRaw(shape Shape, dtype DataType) (*RawTensor, error) {
	return tensor.NewRaw(shape, dtype)
}

// FromBytes wraps data without copying.
func FromBytes(shape Shape, dtype DataType, data []byte) (*RawTensor, error) {
	return tensor.FromBytes(shape, dtype, data)
}

// FromSlice builds a 1-D RawTensor holding a copy of values.
func FromSlice[T DType](values []T) *RawTensor {
	return tensor.FromSlice(values)
}

// FromSliceShape builds a RawTensor of the given shape from values.
func FromSliceShape[T DType](values []T, shape Shape) (*RawTensor, error) {
	return tensor.FromSliceShape(values, shape)
}

// ToSlice decodes all elements of r into a new []T.
func ToSlice[T DType](r *RawTensor) ([]T, error) {
	return tensor.ToSlice[T](r)
}

// NewObjectArray checks that elems fills shape exactly.
func NewObjectArray(shape Shape, elems []any) (ObjectArray, error) {
	return tensor.NewObjectArray(shape, elems)
}
