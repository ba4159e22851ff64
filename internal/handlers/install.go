// Package handlers registers the built-in dumpers and loaders: builtin
// scalars, strings and bytes, mappings, sequences, tuples and sets,
// arbitrary-precision and complex numbers, pointers, nil, and tensors.
package handlers

import (
	"math/big"
	"reflect"

	"github.com/born-ml/hpickle/internal/registry"
	"github.com/born-ml/hpickle/internal/tensor"
)

// Install registers every built-in handler and the builtin types that
// must resolve in a process that never dumped them.
func Install(r *registry.Registry) {
	for _, f := range []registry.Family{
		registry.FamilyBool, registry.FamilyInt, registry.FamilyUint,
		registry.FamilyFloat, registry.FamilyString, registry.FamilyBytes,
	} {
		r.RegisterFamilyDumper(f, dumpScalar)
		r.RegisterFamilyLoader(f, loadScalar)
	}
	r.RegisterFamilyDumper(registry.FamilyComplex, dumpComplex)
	r.RegisterFamilyLoader(registry.FamilyComplex, loadComplex)

	r.RegisterFamilyDumper(registry.FamilyMapping, dumpMapping)
	r.RegisterFamilyLoader(registry.FamilyMapping, loadMapping)
	r.RegisterFamilyDumper(registry.FamilySequence, dumpSequence)
	r.RegisterFamilyLoader(registry.FamilySequence, loadSequence)
	r.RegisterFamilyDumper(registry.FamilyTuple, dumpSequence)
	r.RegisterFamilyLoader(registry.FamilyTuple, loadSequence)
	r.RegisterFamilyDumper(registry.FamilySet, dumpSet)
	r.RegisterFamilyLoader(registry.FamilySet, loadSet)

	r.RegisterFamilyDumper(registry.FamilyPointer, dumpPointer)
	r.RegisterFamilyLoader(registry.FamilyPointer, loadPointer)
	r.RegisterFamilyDumper(registry.FamilyNone, dumpNone)
	r.RegisterFamilyLoader(registry.FamilyNone, loadNone)

	r.RegisterDumper(reflect.TypeFor[*big.Int](), dumpBigInt)
	r.RegisterLoader(reflect.TypeFor[*big.Int](), loadBigInt)
	r.RegisterDumper(reflect.TypeFor[*big.Float](), dumpBigFloat)
	r.RegisterLoader(reflect.TypeFor[*big.Float](), loadBigFloat)
	r.RegisterDumper(reflect.TypeFor[*big.Rat](), dumpBigRat)
	r.RegisterLoader(reflect.TypeFor[*big.Rat](), loadBigRat)

	r.RegisterDumper(reflect.TypeFor[tensor.DataType](), dumpDataType)
	r.RegisterLoader(reflect.TypeFor[tensor.DataType](), loadDataType)
	r.RegisterDumper(reflect.TypeFor[*tensor.RawTensor](), dumpRawTensor)
	r.RegisterLoader(reflect.TypeFor[*tensor.RawTensor](), loadRawTensor)
	r.RegisterDumper(reflect.TypeFor[tensor.ObjectArray](), dumpObjectArray)
	r.RegisterLoader(reflect.TypeFor[tensor.ObjectArray](), loadObjectArray)

	// Untagged: a Mapping is written back as a plain group.
	r.RegisterDumper(reflect.TypeFor[*registry.Mapping](), dumpPlainMapping)

	for _, t := range builtinTypes {
		r.RegisterType(t)
	}
}

var builtinTypes = []reflect.Type{
	reflect.TypeFor[bool](),
	reflect.TypeFor[int](), reflect.TypeFor[int8](), reflect.TypeFor[int16](),
	reflect.TypeFor[int32](), reflect.TypeFor[int64](),
	reflect.TypeFor[uint](), reflect.TypeFor[uint8](), reflect.TypeFor[uint16](),
	reflect.TypeFor[uint32](), reflect.TypeFor[uint64](),
	reflect.TypeFor[float32](), reflect.TypeFor[float64](),
	reflect.TypeFor[complex64](), reflect.TypeFor[complex128](),
	reflect.TypeFor[string](), reflect.TypeFor[[]byte](),

	reflect.TypeFor[[]any](), reflect.TypeFor[[]string](), reflect.TypeFor[[]bool](),
	reflect.TypeFor[[]int](), reflect.TypeFor[[]int32](), reflect.TypeFor[[]int64](),
	reflect.TypeFor[[]uint32](), reflect.TypeFor[[]uint64](),
	reflect.TypeFor[[]float32](), reflect.TypeFor[[]float64](),

	reflect.TypeFor[map[string]any](), reflect.TypeFor[map[string]string](),
	reflect.TypeFor[map[string]int](), reflect.TypeFor[map[string]int64](),
	reflect.TypeFor[map[string]float64](), reflect.TypeFor[map[string]bool](),
	reflect.TypeFor[map[string]struct{}](), reflect.TypeFor[map[int]struct{}](),
	reflect.TypeFor[map[int64]struct{}](),
}
