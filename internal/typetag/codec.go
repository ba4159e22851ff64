package typetag

import (
	"fmt"

	cbor "github.com/fxamacker/cbor/v2"

	"github.com/born-ml/hpickle/internal/container"
)

// envelopeFormat marks an Opaque attribute as a typed envelope.
const envelopeFormat = "hpickle/envelope"

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	// Deterministic encoding so that identical values produce identical
	// attributes.
	if encMode, err = cbor.CanonicalEncOptions().EncMode(); err != nil {
		panic(err)
	}
	decMode, err = cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyEnforcedAPF,
		ExtraReturnErrors: cbor.ExtraDecErrorUnknownField,
	}.DecMode()
	if err != nil {
		panic(err)
	}
}

// Envelope carries the binary snapshot of a value together with the key
// of its type, so that an attribute can be turned back into a value.
type Envelope struct {
	Format string `cbor:"fmt"`
	Key    string `cbor:"key"`
	Name   string `cbor:"name"`
	Data   []byte `cbor:"data"`
}

// EncodeEnvelope wraps data into an Opaque attribute value.
func EncodeEnvelope(key, name string, data []byte) (container.Opaque, error) {
	b, err := encMode.Marshal(Envelope{Format: envelopeFormat, Key: key, Name: name, Data: data})
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}
	return container.Opaque(b), nil
}

// DecodeEnvelope parses an Opaque attribute value produced by
// EncodeEnvelope. Any other byte sequence is an error.
func DecodeEnvelope(b []byte) (Envelope, error) {
	var env Envelope
	if err := decMode.Unmarshal(b, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Format != envelopeFormat || env.Key == "" {
		return Envelope{}, fmt.Errorf("decode envelope: not an envelope")
	}
	return env, nil
}

func encodeDescriptor(d Descriptor) (container.Opaque, error) {
	b, err := encMode.Marshal(d)
	if err != nil {
		return nil, err
	}
	return container.Opaque(b), nil
}

func decodeDescriptor(b []byte) (Descriptor, error) {
	var d Descriptor
	if err := decMode.Unmarshal(b, &d); err != nil {
		return Descriptor{}, err
	}
	if d.Key == "" {
		return Descriptor{}, fmt.Errorf("descriptor has no key")
	}
	return d, nil
}
