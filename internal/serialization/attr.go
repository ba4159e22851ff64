package serialization

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/born-ml/hpickle/internal/container"
)

// AttrMeta is one attribute in the JSON header. Kind names the Go type of
// the value; floats are written as strings so that NaN and infinities
// survive.
type AttrMeta struct {
	Name  string          `json:"name"`
	Kind  string          `json:"kind"`
	Value json.RawMessage `json:"value"`
}

// Attribute kinds.
const (
	AttrBool     = "bool"
	AttrInt      = "int"
	AttrInt8     = "int8"
	AttrInt16    = "int16"
	AttrInt32    = "int32"
	AttrInt64    = "int64"
	AttrUint     = "uint"
	AttrUint8    = "uint8"
	AttrUint16   = "uint16"
	AttrUint32   = "uint32"
	AttrUint64   = "uint64"
	AttrFloat32  = "float32"
	AttrFloat64  = "float64"
	AttrString   = "string"
	AttrBytes    = "bytes"
	AttrOpaque   = "opaque"
	AttrBools    = "bools"
	AttrInt64s   = "int64s"
	AttrFloat64s = "float64s"
	AttrStrings  = "strings"
)

func encodeAttr(name string, v any) (AttrMeta, error) {
	var kind string
	var val any
	switch x := v.(type) {
	case bool:
		kind, val = AttrBool, x
	case int:
		kind, val = AttrInt, int64(x)
	case int8:
		kind, val = AttrInt8, int64(x)
	case int16:
		kind, val = AttrInt16, int64(x)
	case int32:
		kind, val = AttrInt32, int64(x)
	case int64:
		kind, val = AttrInt64, x
	case uint:
		kind, val = AttrUint, uint64(x)
	case uint8:
		kind, val = AttrUint8, uint64(x)
	case uint16:
		kind, val = AttrUint16, uint64(x)
	case uint32:
		kind, val = AttrUint32, uint64(x)
	case uint64:
		kind, val = AttrUint64, x
	case float32:
		kind, val = AttrFloat32, strconv.FormatFloat(float64(x), 'g', -1, 32)
	case float64:
		kind, val = AttrFloat64, strconv.FormatFloat(x, 'g', -1, 64)
	case string:
		kind, val = AttrString, x
	case []byte:
		kind, val = AttrBytes, x
	case container.Opaque:
		kind, val = AttrOpaque, []byte(x)
	case []bool:
		kind, val = AttrBools, x
	case []int64:
		kind, val = AttrInt64s, x
	case []float64:
		s := make([]string, len(x))
		for i, f := range x {
			s[i] = strconv.FormatFloat(f, 'g', -1, 64)
		}
		kind, val = AttrFloat64s, s
	case []string:
		kind, val = AttrStrings, x
	default:
		return AttrMeta{}, fmt.Errorf("%w: attribute %q has type %T", container.ErrInvalidAttribute, name, v)
	}

	raw, err := json.Marshal(val)
	if err != nil {
		return AttrMeta{}, fmt.Errorf("failed to encode attribute %q: %w", name, err)
	}
	return AttrMeta{Name: name, Kind: kind, Value: raw}, nil
}

func decodeAttr(a AttrMeta) (any, error) {
	switch a.Kind {
	case AttrBool:
		return decodeAs[bool](a)
	case AttrInt:
		return decodeInt[int](a, math.MinInt, math.MaxInt)
	case AttrInt8:
		return decodeInt[int8](a, math.MinInt8, math.MaxInt8)
	case AttrInt16:
		return decodeInt[int16](a, math.MinInt16, math.MaxInt16)
	case AttrInt32:
		return decodeInt[int32](a, math.MinInt32, math.MaxInt32)
	case AttrInt64:
		return decodeAs[int64](a)
	case AttrUint:
		return decodeUint[uint](a, math.MaxUint)
	case AttrUint8:
		return decodeUint[uint8](a, math.MaxUint8)
	case AttrUint16:
		return decodeUint[uint16](a, math.MaxUint16)
	case AttrUint32:
		return decodeUint[uint32](a, math.MaxUint32)
	case AttrUint64:
		return decodeAs[uint64](a)
	case AttrFloat32:
		f, err := decodeFloat(a, 32)
		return float32(f), err
	case AttrFloat64:
		return decodeFloat(a, 64)
	case AttrString:
		return decodeAs[string](a)
	case AttrBytes:
		b, err := decodeAs[[]byte](a)
		if err == nil && b == nil {
			b = []byte{}
		}
		return b, err
	case AttrOpaque:
		b, err := decodeAs[[]byte](a)
		return container.Opaque(b), err
	case AttrBools:
		return decodeAs[[]bool](a)
	case AttrInt64s:
		return decodeAs[[]int64](a)
	case AttrFloat64s:
		s, err := decodeAs[[]string](a)
		if err != nil {
			return nil, err
		}
		out := make([]float64, len(s))
		for i, v := range s {
			if out[i], err = strconv.ParseFloat(v, 64); err != nil {
				return nil, attrError(a, err)
			}
		}
		return out, nil
	case AttrStrings:
		return decodeAs[[]string](a)
	default:
		return nil, attrError(a, fmt.Errorf("unknown kind %q", a.Kind))
	}
}

func decodeAs[T any](a AttrMeta) (T, error) {
	var v T
	if err := json.Unmarshal(a.Value, &v); err != nil {
		return v, attrError(a, err)
	}
	return v, nil
}

func decodeInt[T ~int | ~int8 | ~int16 | ~int32](a AttrMeta, lo, hi int64) (T, error) {
	v, err := decodeAs[int64](a)
	if err != nil {
		return 0, err
	}
	if v < lo || v > hi {
		return 0, attrError(a, fmt.Errorf("%d overflows %s", v, a.Kind))
	}
	return T(v), nil
}

func decodeUint[T ~uint | ~uint8 | ~uint16 | ~uint32](a AttrMeta, hi uint64) (T, error) {
	v, err := decodeAs[uint64](a)
	if err != nil {
		return 0, err
	}
	if v > hi {
		return 0, attrError(a, fmt.Errorf("%d overflows %s", v, a.Kind))
	}
	return T(v), nil
}

func decodeFloat(a AttrMeta, bits int) (float64, error) {
	s, err := decodeAs[string](a)
	if err != nil {
		return 0, err
	}
	f, err := strconv.ParseFloat(s, bits)
	if err != nil {
		return 0, attrError(a, err)
	}
	return f, nil
}

func attrError(a AttrMeta, err error) error {
	return &ValidationError{
		Type:    "invalid_attribute",
		Node:    a.Name,
		Details: err.Error(),
	}
}
