// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor exposes the typed flat buffers that hpickle stores as
// container datasets.
//
// # Overview
//
// A RawTensor is a shaped, little-endian byte buffer with a runtime
// DataType. Homogeneous numeric slices are pickled as RawTensors, and a
// RawTensor dumped directly round-trips with its dtype and shape intact.
// ObjectArray is the Object-dtype counterpart: a shaped array of arbitrary
// values, pickled element by element.
//
// # Basic Usage
//
//	import "github.com/born-ml/hpickle/tensor"
//
//	raw, _ := tensor.FromSliceShape([]float32{1, 2, 3, 4}, tensor.Shape{2, 2})
//	data := raw.AsFloat32() // zero-copy view
//	values, _ := tensor.ToSlice[float32](raw)
//
// # Supported Data Types
//
// Every Go bool and fixed or platform-width numeric type:
//   - float32, float64
//   - int8, int16, int32, int64, int (stored as 64-bit)
//   - uint8, uint16, uint32, uint64, uint (stored as 64-bit)
//   - bool
//
// Named types whose underlying type is one of these are accepted wherever
// a DType is.
package tensor
