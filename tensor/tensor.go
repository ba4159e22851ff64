// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import (
	"github.com/born-ml/hpickle/internal/tensor"
)

// DType is a constraint for element types that can back a dataset.
type DType = tensor.DType

// DataType represents runtime element type information.
type DataType = tensor.DataType

// Supported data types.
const (
	Float32 = tensor.Float32
	Float64 = tensor.Float64
	Int8    = tensor.Int8
	Int16   = tensor.Int16
	Int32   = tensor.Int32
	Int64   = tensor.Int64
	Int     = tensor.Int
	Uint8   = tensor.Uint8
	Uint16  = tensor.Uint16
	Uint32  = tensor.Uint32
	Uint64  = tensor.Uint64
	Uint    = tensor.Uint
	Bool    = tensor.Bool
	Object  = tensor.Object
)

// Shape represents tensor dimensions.
//
// Example:
//
//	shape := tensor.Shape{2, 3, 4}  // 3D tensor: 2×3×4
//	numElements := shape.NumElements()  // 24
type Shape = tensor.Shape

// ParseDataType parses a dtype name such as "float32".
func ParseDataType(s string) (DataType, error) {
	return tensor.ParseDataType(s)
}
