// Package tensor provides the typed flat buffers stored as container datasets.
package tensor

import (
	"fmt"
	"reflect"
)

// DType is a constraint for element types that can back a dataset.
type DType interface {
	~float32 | ~float64 | ~int32 | ~int64 | ~uint8 | ~bool |
		~int8 | ~int16 | ~uint16 | ~uint32 | ~uint64 | ~int | ~uint
}

// DataType represents runtime element type information for datasets.
type DataType int

// Supported data types. The first six keep their historical values.
const (
	Float32 DataType = iota
	Float64
	Int32
	Int64
	Uint8
	Bool
	Int8
	Int16
	Uint16
	Uint32
	Uint64
	Int  // platform int, stored as 64-bit
	Uint // platform uint, stored as 64-bit

	// Object marks arrays of arbitrary values. It has no flat encoding.
	Object DataType = 64
)

var dtypeNames = map[DataType]string{
	Float32: "float32",
	Float64: "float64",
	Int32:   "int32",
	Int64:   "int64",
	Uint8:   "uint8",
	Bool:    "bool",
	Int8:    "int8",
	Int16:   "int16",
	Uint16:  "uint16",
	Uint32:  "uint32",
	Uint64:  "uint64",
	Int:     "int",
	Uint:    "uint",
	Object:  "object",
}

// Size returns the byte size of one element. Object has size 0.
func (dt DataType) Size() int {
	switch dt {
	case Uint8, Int8, Bool:
		return 1
	case Int16, Uint16:
		return 2
	case Float32, Int32, Uint32:
		return 4
	case Float64, Int64, Uint64, Int, Uint:
		return 8
	case Object:
		return 0
	default:
		panic("unknown data type")
	}
}

// String returns a human-readable name for the data type.
func (dt DataType) String() string {
	if name, ok := dtypeNames[dt]; ok {
		return name
	}
	return "unknown"
}

// Valid reports whether dt is a known data type.
func (dt DataType) Valid() bool {
	_, ok := dtypeNames[dt]
	return ok
}

// Flat reports whether values of dt have a fixed-size binary encoding.
func (dt DataType) Flat() bool {
	return dt.Valid() && dt != Object
}

// Numeric reports whether dt is an integer or floating-point type.
func (dt DataType) Numeric() bool {
	return dt.Flat() && dt != Bool
}

// ParseDataType converts a name produced by String back into a DataType.
func ParseDataType(s string) (DataType, error) {
	for dt, name := range dtypeNames {
		if name == s {
			return dt, nil
		}
	}
	return 0, fmt.Errorf("unknown data type %q", s)
}

// FromKind maps a reflect.Kind onto the DataType that stores it.
func FromKind(k reflect.Kind) (DataType, bool) {
	switch k {
	case reflect.Float32:
		return Float32, true
	case reflect.Float64:
		return Float64, true
	case reflect.Int8:
		return Int8, true
	case reflect.Int16:
		return Int16, true
	case reflect.Int32:
		return Int32, true
	case reflect.Int64:
		return Int64, true
	case reflect.Int:
		return Int, true
	case reflect.Uint8:
		return Uint8, true
	case reflect.Uint16:
		return Uint16, true
	case reflect.Uint32:
		return Uint32, true
	case reflect.Uint64:
		return Uint64, true
	case reflect.Uint:
		return Uint, true
	case reflect.Bool:
		return Bool, true
	default:
		return 0, false
	}
}

// GoType returns the builtin Go type for dt, or nil for Object.
func (dt DataType) GoType() reflect.Type {
	switch dt {
	case Float32:
		return reflect.TypeFor[float32]()
	case Float64:
		return reflect.TypeFor[float64]()
	case Int8:
		return reflect.TypeFor[int8]()
	case Int16:
		return reflect.TypeFor[int16]()
	case Int32:
		return reflect.TypeFor[int32]()
	case Int64:
		return reflect.TypeFor[int64]()
	case Int:
		return reflect.TypeFor[int]()
	case Uint8:
		return reflect.TypeFor[uint8]()
	case Uint16:
		return reflect.TypeFor[uint16]()
	case Uint32:
		return reflect.TypeFor[uint32]()
	case Uint64:
		return reflect.TypeFor[uint64]()
	case Uint:
		return reflect.TypeFor[uint]()
	case Bool:
		return reflect.TypeFor[bool]()
	default:
		return nil
	}
}

// inferDataType infers DataType from a generic type T.
func inferDataType[T DType]() DataType {
	var zero T
	dt, ok := FromKind(reflect.TypeOf(zero).Kind())
	if !ok {
		panic("unsupported type")
	}
	return dt
}
