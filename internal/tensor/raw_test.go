package tensor

import (
	"testing"
)

// RawTensor Tests

func TestRawTensorAsInt64(t *testing.T) {
	raw, _ := NewRaw(Shape{3, 2}, Int64)
	data := raw.AsInt64()

	if len(data) != 6 {
		t.Errorf("AsInt64 length = %d, want 6", len(data))
	}

	// Modify and verify zero-copy
	data[0] = 42
	if raw.AsInt64()[0] != 42 {
		t.Error("AsInt64 should return zero-copy slice")
	}
}

func TestRawTensorAsUint8(t *testing.T) {
	raw, _ := NewRaw(Shape{4, 4}, Uint8)
	data := raw.AsUint8()

	if len(data) != 16 {
		t.Errorf("AsUint8 length = %d, want 16", len(data))
	}

	data[0] = 255
	if raw.AsUint8()[0] != 255 {
		t.Error("AsUint8 should return zero-copy slice")
	}
}

func TestRawTensorAsBool(t *testing.T) {
	raw, _ := NewRaw(Shape{2, 2}, Bool)
	data := raw.AsBool()

	if len(data) != 4 {
		t.Errorf("AsBool length = %d, want 4", len(data))
	}

	data[0] = true
	if raw.AsBool()[0] != true {
		t.Error("AsBool should return zero-copy slice")
	}
}

func TestRawTensorEmpty(t *testing.T) {
	raw, err := NewRaw(Shape{0}, Float64)
	if err != nil {
		t.Fatalf("NewRaw(0) failed: %v", err)
	}
	if got := raw.AsFloat64(); len(got) != 0 {
		t.Errorf("AsFloat64 on empty tensor = %v, want []", got)
	}
	if raw.ByteSize() != 0 {
		t.Errorf("ByteSize = %d, want 0", raw.ByteSize())
	}
}

func TestRawTensorWrongDTypePanics(t *testing.T) {
	raw, _ := NewRaw(Shape{2}, Int32)
	defer func() {
		if recover() == nil {
			t.Error("AsFloat32 on an int32 tensor should panic")
		}
	}()
	_ = raw.AsFloat32()
}

func TestNewRawRejectsObject(t *testing.T) {
	if _, err := NewRaw(Shape{2}, Object); err == nil {
		t.Error("NewRaw(Object) should fail")
	}
	if _, err := NewRaw(Shape{-1}, Int32); err == nil {
		t.Error("NewRaw with a negative dimension should fail")
	}
}

func TestFromBytesLength(t *testing.T) {
	if _, err := FromBytes(Shape{2, 2}, Float32, make([]byte, 15)); err == nil {
		t.Error("FromBytes should reject a short payload")
	}
	raw, err := FromBytes(Shape{2, 2}, Float32, make([]byte, 16))
	if err != nil {
		t.Fatalf("FromBytes failed: %v", err)
	}
	if raw.NumElements() != 4 {
		t.Errorf("NumElements = %d, want 4", raw.NumElements())
	}
}

func TestFromSliceRoundTrip(t *testing.T) {
	ints := []int{1, -2, 3}
	raw := FromSlice(ints)
	if raw.DType() != Int {
		t.Errorf("DType = %s, want int", raw.DType())
	}
	got, err := ToSlice[int](raw)
	if err != nil {
		t.Fatalf("ToSlice failed: %v", err)
	}
	for i := range ints {
		if got[i] != ints[i] {
			t.Errorf("element %d = %d, want %d", i, got[i], ints[i])
		}
	}

	floats := []float32{1.5, -0.25}
	fr := FromSlice(floats)
	if v := fr.AsFloat32(); v[0] != 1.5 || v[1] != -0.25 {
		t.Errorf("AsFloat32 = %v, want %v", v, floats)
	}

	if _, err := ToSlice[int64](raw); err == nil {
		t.Error("ToSlice with the wrong element type should fail")
	}
}

type celsius float64

func TestToSliceNamedType(t *testing.T) {
	raw := FromSlice([]celsius{20.5, 30})
	if raw.DType() != Float64 {
		t.Fatalf("DType = %s, want float64", raw.DType())
	}
	got, err := ToSlice[celsius](raw)
	if err != nil {
		t.Fatalf("ToSlice failed: %v", err)
	}
	if got[0] != 20.5 || got[1] != 30 {
		t.Errorf("ToSlice = %v", got)
	}
}

func TestSetValue(t *testing.T) {
	raw, _ := NewRaw(Shape{3}, Uint16)
	if err := raw.SetValue(0, 7); err != nil {
		t.Errorf("SetValue(int) failed: %v", err)
	}
	if err := raw.SetValue(3, 1); err == nil {
		t.Error("SetValue out of range should fail")
	}
	if err := raw.SetValue(1, "x"); err == nil {
		t.Error("SetValue(string) should fail")
	}
	if err := raw.SetValue(1, true); err == nil {
		t.Error("SetValue(bool) on a numeric tensor should fail")
	}
	if v := raw.Value(0); v != uint16(7) {
		t.Errorf("Value(0) = %v (%T), want uint16(7)", v, v)
	}
}

func TestCloneAndEqual(t *testing.T) {
	raw := FromSlice([]int64{1, 2, 3})
	clone := raw.Clone()
	if !raw.Equal(clone) {
		t.Error("clone should equal original")
	}
	clone.AsInt64()[0] = 9
	if raw.AsInt64()[0] != 1 {
		t.Error("clone should not share memory")
	}
	if raw.Equal(clone) {
		t.Error("modified clone should differ")
	}
}

func TestObjectArray(t *testing.T) {
	arr, err := NewObjectArray(Shape{2, 2}, []any{"a", 1, nil, 2.5})
	if err != nil {
		t.Fatalf("NewObjectArray failed: %v", err)
	}
	if arr.DType() != Object || arr.NumElements() != 4 {
		t.Errorf("got dtype %s with %d elements", arr.DType(), arr.NumElements())
	}
	if _, err := NewObjectArray(Shape{3}, []any{1}); err == nil {
		t.Error("NewObjectArray should reject a mismatched shape")
	}
}
