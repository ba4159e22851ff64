package tensor

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"reflect"
	"unsafe"
)

// RawTensor is a typed, shaped, flat little-endian buffer. It is the
// in-memory form of a dataset payload.
type RawTensor struct {
	data  []byte
	shape Shape
	dtype DataType
}

// NewRaw creates a zero-filled RawTensor with the given shape and type.
func NewRaw(shape Shape, dtype DataType) (*RawTensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}
	if !dtype.Flat() {
		return nil, fmt.Errorf("data type %s has no flat encoding", dtype)
	}

	return &RawTensor{
		data:  make([]byte, shape.NumElements()*dtype.Size()),
		shape: shape.Clone(),
		dtype: dtype,
	}, nil
}

// FromBytes wraps data without copying. The length must match shape and dtype.
func FromBytes(shape Shape, dtype DataType, data []byte) (*RawTensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}
	if !dtype.Flat() {
		return nil, fmt.Errorf("data type %s has no flat encoding", dtype)
	}
	if want := shape.NumElements() * dtype.Size(); len(data) != want {
		return nil, fmt.Errorf("payload is %d bytes, shape %v of %s needs %d", len(data), []int(shape), dtype, want)
	}
	return &RawTensor{data: data, shape: shape.Clone(), dtype: dtype}, nil
}

// FromSlice builds a 1-D RawTensor holding a copy of values.
func FromSlice[T DType](values []T) *RawTensor {
	raw, err := FromSliceShape(values, Shape{len(values)})
	if err != nil {
		panic(err) // shape is derived from len(values)
	}
	return raw
}

// FromSliceShape builds a RawTensor of the given shape from values.
func FromSliceShape[T DType](values []T, shape Shape) (*RawTensor, error) {
	if shape.NumElements() != len(values) {
		return nil, fmt.Errorf("shape %v holds %d elements, got %d values", []int(shape), shape.NumElements(), len(values))
	}
	raw, err := NewRaw(shape, inferDataType[T]())
	if err != nil {
		return nil, err
	}
	for i, v := range values {
		if err := raw.SetValue(i, v); err != nil {
			return nil, err
		}
	}
	return raw, nil
}

// Shape returns the tensor's shape.
func (r *RawTensor) Shape() Shape {
	return r.shape
}

// DType returns the tensor's data type.
func (r *RawTensor) DType() DataType {
	return r.dtype
}

// NumElements returns the total number of elements.
func (r *RawTensor) NumElements() int {
	return r.shape.NumElements()
}

// ByteSize returns the total payload size in bytes.
func (r *RawTensor) ByteSize() int {
	return len(r.data)
}

// Data returns the raw byte slice.
// WARNING: Direct access to underlying memory. Use with caution.
func (r *RawTensor) Data() []byte {
	return r.data
}

// AsFloat32 interprets the data as []float32.
// Panics if the tensor's dtype is not Float32.
func (r *RawTensor) AsFloat32() []float32 {
	r.mustBe(Float32)
	if len(r.data) == 0 {
		return []float32{}
	}
	//nolint:gosec // unsafe.Slice for zero-copy access, bounds checked by NumElements()
	return unsafe.Slice((*float32)(unsafe.Pointer(&r.data[0])), r.NumElements())
}

// AsFloat64 interprets the data as []float64.
// Panics if the tensor's dtype is not Float64.
func (r *RawTensor) AsFloat64() []float64 {
	r.mustBe(Float64)
	if len(r.data) == 0 {
		return []float64{}
	}
	//nolint:gosec // unsafe.Slice for zero-copy access, bounds checked by NumElements()
	return unsafe.Slice((*float64)(unsafe.Pointer(&r.data[0])), r.NumElements())
}

// AsInt32 interprets the data as []int32.
// Panics if the tensor's dtype is not Int32.
func (r *RawTensor) AsInt32() []int32 {
	r.mustBe(Int32)
	if len(r.data) == 0 {
		return []int32{}
	}
	//nolint:gosec // unsafe.Slice for zero-copy access, bounds checked by NumElements()
	return unsafe.Slice((*int32)(unsafe.Pointer(&r.data[0])), r.NumElements())
}

// AsInt64 interprets the data as []int64.
// Panics if the tensor's dtype is not Int64.
func (r *RawTensor) AsInt64() []int64 {
	r.mustBe(Int64)
	if len(r.data) == 0 {
		return []int64{}
	}
	//nolint:gosec // unsafe.Slice for zero-copy access, bounds checked by NumElements()
	return unsafe.Slice((*int64)(unsafe.Pointer(&r.data[0])), r.NumElements())
}

// AsUint8 interprets the data as []uint8.
// Panics if the tensor's dtype is not Uint8.
func (r *RawTensor) AsUint8() []uint8 {
	r.mustBe(Uint8)
	return r.data
}

// AsBool interprets the data as []bool.
// Panics if the tensor's dtype is not Bool.
func (r *RawTensor) AsBool() []bool {
	r.mustBe(Bool)
	if len(r.data) == 0 {
		return []bool{}
	}
	//nolint:gosec // unsafe.Slice for zero-copy access, bounds checked by NumElements()
	return unsafe.Slice((*bool)(unsafe.Pointer(&r.data[0])), r.NumElements())
}

func (r *RawTensor) mustBe(dt DataType) {
	if r.dtype != dt {
		panic(fmt.Sprintf("tensor dtype is %s, not %s", r.dtype, dt))
	}
}

// Value decodes element i into its builtin Go type.
func (r *RawTensor) Value(i int) any {
	sz := r.dtype.Size()
	b := r.data[i*sz : (i+1)*sz]
	le := binary.LittleEndian
	switch r.dtype {
	case Float32:
		return math.Float32frombits(le.Uint32(b))
	case Float64:
		return math.Float64frombits(le.Uint64(b))
	case Int8:
		return int8(b[0])
	case Int16:
		return int16(le.Uint16(b))
	case Int32:
		return int32(le.Uint32(b))
	case Int64:
		return int64(le.Uint64(b))
	case Int:
		return int(int64(le.Uint64(b)))
	case Uint8:
		return b[0]
	case Uint16:
		return le.Uint16(b)
	case Uint32:
		return le.Uint32(b)
	case Uint64:
		return le.Uint64(b)
	case Uint:
		return uint(le.Uint64(b))
	case Bool:
		return b[0] != 0
	default:
		panic("unknown data type")
	}
}

// SetValue encodes v at element i. v may be any bool or numeric value,
// including named types; it is converted to the tensor's element type.
func (r *RawTensor) SetValue(i int, v any) error {
	if i < 0 || i >= r.NumElements() {
		return fmt.Errorf("index %d out of range [0, %d)", i, r.NumElements())
	}
	rv := reflect.ValueOf(v)
	goType := r.dtype.GoType()
	if !rv.IsValid() || !rv.Type().ConvertibleTo(goType) || (rv.Kind() == reflect.Bool) != (r.dtype == Bool) {
		return fmt.Errorf("cannot store %T in %s tensor", v, r.dtype)
	}
	rv = rv.Convert(goType)

	sz := r.dtype.Size()
	b := r.data[i*sz : (i+1)*sz]
	le := binary.LittleEndian
	switch r.dtype {
	case Float32:
		le.PutUint32(b, math.Float32bits(float32(rv.Float())))
	case Float64:
		le.PutUint64(b, math.Float64bits(rv.Float()))
	case Int8:
		b[0] = byte(rv.Int())
	case Int16:
		le.PutUint16(b, uint16(rv.Int()))
	case Int32:
		le.PutUint32(b, uint32(rv.Int()))
	case Int64, Int:
		le.PutUint64(b, uint64(rv.Int()))
	case Uint8:
		b[0] = byte(rv.Uint())
	case Uint16:
		le.PutUint16(b, uint16(rv.Uint()))
	case Uint32:
		le.PutUint32(b, uint32(rv.Uint()))
	case Uint64, Uint:
		le.PutUint64(b, rv.Uint())
	case Bool:
		b[0] = 0
		if rv.Bool() {
			b[0] = 1
		}
	}
	return nil
}

// ToSlice decodes all elements into a new []T.
func ToSlice[T DType](r *RawTensor) ([]T, error) {
	if want := inferDataType[T](); want != r.dtype {
		return nil, fmt.Errorf("tensor dtype is %s, not %s", r.dtype, want)
	}
	out := make([]T, r.NumElements())
	target := reflect.TypeFor[T]()
	for i := range out {
		out[i] = reflect.ValueOf(r.Value(i)).Convert(target).Interface().(T)
	}
	return out, nil
}

// Clone returns a deep copy of the tensor.
func (r *RawTensor) Clone() *RawTensor {
	return &RawTensor{
		data:  append([]byte(nil), r.data...),
		shape: r.shape.Clone(),
		dtype: r.dtype,
	}
}

// Equal reports whether both tensors have the same dtype, shape and bytes.
func (r *RawTensor) Equal(other *RawTensor) bool {
	if r == nil || other == nil {
		return r == other
	}
	return r.dtype == other.dtype && r.shape.Equal(other.shape) && bytes.Equal(r.data, other.data)
}

// String returns a short description of the tensor.
func (r *RawTensor) String() string {
	return fmt.Sprintf("RawTensor(%s, shape=%v)", r.dtype, []int(r.shape))
}
