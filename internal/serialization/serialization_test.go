package serialization

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/google/uuid"

	"github.com/born-ml/hpickle/internal/container"
	"github.com/born-ml/hpickle/internal/tensor"
)

var sampleAttrs = map[string]any{
	"title": "run 7",
	"n":     42,
	"i16":   int16(-7),
	"u":     uint(9),
	"u8":    uint8(255),
	"big":   uint64(math.MaxUint64),
	"f32":   float32(1.5),
	"f64":   0.1,
	"ok":    true,
	"raw":   []byte{0, 1, 2},
	"blob":  container.Opaque{0xde, 0xad},
	"ints":  []int64{-1, 2},
	"fs":    []float64{math.Inf(1), -0.5},
	"ss":    []string{"a", ""},
	"bs":    []bool{true, false},
}

// sampleTree builds:
//
//	/            attrs from sampleAttrs
//	/a           group
//	/a/x         float32 [2 3]
//	/a/b         group with attr nan
//	/a/b/empty   int64 [0]
//	/a/b/y       bool [3]
func sampleTree(t *testing.T) *container.Group {
	t.Helper()
	root := container.NewRoot()
	for _, k := range []string{"title", "n", "i16", "u", "u8", "big", "f32", "f64", "ok", "raw", "blob", "ints", "fs", "ss", "bs"} {
		if err := root.SetAttr(k, sampleAttrs[k]); err != nil {
			t.Fatalf("SetAttr(%s) failed: %v", k, err)
		}
	}

	a, _ := root.CreateGroup("a")
	x, _ := tensor.FromSliceShape([]float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
	if _, err := a.AddDataset("x", x); err != nil {
		t.Fatalf("AddDataset(x) failed: %v", err)
	}
	b, _ := a.CreateGroup("b")
	_ = b.SetAttr("nan", math.NaN())
	empty, _ := tensor.NewRaw(tensor.Shape{0}, tensor.Int64)
	if _, err := b.AddDataset("empty", empty); err != nil {
		t.Fatalf("AddDataset(empty) failed: %v", err)
	}
	if _, err := b.AddDataset("y", tensor.FromSlice([]bool{true, false, true})); err != nil {
		t.Fatalf("AddDataset(y) failed: %v", err)
	}
	return root
}

func checkSampleTree(t *testing.T, root *container.Group) {
	t.Helper()
	for k, want := range sampleAttrs {
		got, err := root.Attr(k)
		if err != nil {
			t.Errorf("Attr(%s) failed: %v", k, err)
			continue
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("Attr(%s) = %#v (%T), want %#v (%T)", k, got, got, want, want)
		}
	}
	if got := root.Attrs(); got[0] != "title" || got[len(got)-1] != "bs" {
		t.Errorf("attribute order not preserved: %v", got)
	}

	n, err := root.Lookup("a/x")
	if err != nil {
		t.Fatalf("Lookup(a/x) failed: %v", err)
	}
	x := n.(*container.Dataset)
	want, _ := tensor.FromSliceShape([]float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
	if !x.Raw().Equal(want) {
		t.Errorf("a/x = %v %v, want %v", x.Raw(), x.Raw().AsFloat32(), want.AsFloat32())
	}

	b, err := root.Lookup("a/b")
	if err != nil {
		t.Fatalf("Lookup(a/b) failed: %v", err)
	}
	nan, _ := b.(*container.Group).Attr("nan")
	if f, ok := nan.(float64); !ok || !math.IsNaN(f) {
		t.Errorf("nan attribute = %v", nan)
	}
	if got := b.(*container.Group).Children(); !reflect.DeepEqual(got, []string{"empty", "y"}) {
		t.Errorf("a/b children = %v", got)
	}
	e, _ := root.Lookup("a/b/empty")
	if ds := e.(*container.Dataset); ds.DType() != tensor.Int64 || ds.Raw().NumElements() != 0 {
		t.Errorf("a/b/empty = %v", ds.Raw())
	}
}

func TestRoundTrip(t *testing.T) {
	id := uuid.New()
	data, header, err := Marshal(sampleTree(t), WriterOptions{ID: id, Metadata: map[string]string{"k": "v"}})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if header.ID != id.String() || header.Creator != Creator {
		t.Errorf("header = %+v", header)
	}

	root, got, err := Decode(data, ReaderOptions{})
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if got.ID != id.String() || got.Metadata["k"] != "v" || got.FormatVersion != FormatVersion {
		t.Errorf("decoded header = %+v", got)
	}
	checkSampleTree(t, root)

	if !root.ReadOnly() {
		t.Error("decoded tree should be read-only")
	}
	if _, err := root.CreateGroup("new"); !errors.Is(err, container.ErrReadOnly) {
		t.Errorf("CreateGroup on read-only tree: got %v, want ErrReadOnly", err)
	}
}

func TestLayout(t *testing.T) {
	data, _, err := Marshal(sampleTree(t), WriterOptions{})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	if string(data[0:4]) != MagicBytes {
		t.Errorf("magic = %q", data[0:4])
	}
	if v := binary.LittleEndian.Uint32(data[4:8]); v != FormatVersion {
		t.Errorf("version = %d", v)
	}
	if flags := binary.LittleEndian.Uint32(data[8:12]); flags&FlagHasDatasets == 0 {
		t.Errorf("flags = %b, want FlagHasDatasets", flags)
	}

	fixed, err := parseFixedHeader(data)
	if err != nil {
		t.Fatalf("parseFixedHeader failed: %v", err)
	}
	if fixed.dataOffset()%HeaderAlignment != 0 {
		t.Errorf("data offset %d not aligned", fixed.dataOffset())
	}
	if int64(len(data)) != fixed.dataOffset()+int64(fixed.dataSize) {
		t.Errorf("file is %d bytes, header says %d", len(data), fixed.dataOffset()+int64(fixed.dataSize))
	}
	section := data[fixed.dataOffset():]
	if ComputeChecksum(section) != fixed.checksum {
		t.Error("stored checksum does not cover the data section")
	}

	h, _ := parseHeader(data[FixedHeaderSize : FixedHeaderSize+fixed.headerSize])
	var offsets []int64
	var walk func(n NodeMeta)
	walk = func(n NodeMeta) {
		if n.Kind == KindDataset {
			offsets = append(offsets, n.Offset)
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(h.Root)
	if len(offsets) != 3 {
		t.Fatalf("found %d datasets, want 3", len(offsets))
	}
	for _, off := range offsets {
		if off%HeaderAlignment != 0 {
			t.Errorf("payload offset %d not aligned", off)
		}
	}
}

func TestCorruptionDetection(t *testing.T) {
	data, _, err := Marshal(sampleTree(t), WriterOptions{})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	fixed, _ := parseFixedHeader(data)

	corrupted := bytes.Clone(data)
	corrupted[fixed.dataOffset()] ^= 0xFF
	if _, _, err := Decode(corrupted, ReaderOptions{}); !errors.Is(err, ErrChecksumMismatch) {
		t.Errorf("Decode of corrupted data: got %v, want ErrChecksumMismatch", err)
	}

	// Skipping the checksum accepts the file and exposes the flipped byte.
	root, _, err := Decode(corrupted, ReaderOptions{SkipChecksumValidation: true})
	if err != nil {
		t.Fatalf("Decode with SkipChecksumValidation failed: %v", err)
	}
	n, _ := root.Lookup("a/x")
	if v := n.(*container.Dataset).Raw().AsFloat32()[0]; v == 1 {
		t.Error("expected the corrupted payload to be visible")
	}
}

func TestDecodeErrors(t *testing.T) {
	data, _, err := Marshal(sampleTree(t), WriterOptions{})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	badMagic := bytes.Clone(data)
	copy(badMagic, "XXXX")

	newer := bytes.Clone(data)
	binary.LittleEndian.PutUint32(newer[4:8], FormatVersion+1)

	hugeHeader := bytes.Clone(data)
	binary.LittleEndian.PutUint64(hugeHeader[16:24], MaxHeaderSize+1)

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"empty", nil, ErrInvalidMagic},
		{"bad magic", badMagic, ErrInvalidMagic},
		{"short fixed header", data[:32], ErrTruncated},
		{"truncated data", data[:len(data)-1], ErrTruncated},
		{"newer version", newer, ErrUnsupportedVersion},
		{"header too large", hugeHeader, ErrHeaderTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := Decode(tt.data, ReaderOptions{}); !errors.Is(err, tt.want) {
				t.Errorf("Decode() error = %v, want %v", err, tt.want)
			}
		})
	}
}

// craftImage assembles a .hpk image around an arbitrary header.
func craftImage(t *testing.T, h Header, data []byte) []byte {
	t.Helper()
	js, err := json.Marshal(h)
	if err != nil {
		t.Fatalf("json.Marshal failed: %v", err)
	}
	fixed := fixedHeader{
		version:    FormatVersion,
		flags:      FlagHasDatasets,
		headerSize: uint64(len(js)),
		dataSize:   uint64(len(data)),
		checksum:   ComputeChecksum(data),
	}
	img := append(fixed.encode(), js...)
	img = append(img, make([]byte, fixed.dataOffset()-int64(len(img)))...)
	return append(img, data...)
}

func TestDecodeOffsetOverflow(t *testing.T) {
	h := Header{
		FormatVersion: FormatVersion,
		Root: NodeMeta{Kind: KindGroup, Children: []NodeMeta{
			{Name: "x", Kind: KindDataset, DType: "uint8", Shape: []int{16}, Offset: math.MaxInt64 - 7, Size: 16},
		}},
	}
	img := craftImage(t, h, make([]byte, 64))

	for _, level := range []ValidationLevel{ValidationNone, ValidationNormal, ValidationStrict} {
		_, _, err := Decode(img, ReaderOptions{ValidationLevel: level})
		if !errors.Is(err, ErrOutOfBounds) && !errors.Is(err, container.ErrCorruptData) {
			t.Errorf("level %v: Decode() error = %v, want out of bounds", level, err)
		}
	}

	h.Root.Children[0].Offset = 0
	if _, _, err := Decode(craftImage(t, h, make([]byte, 64)), ReaderOptions{ValidationLevel: ValidationStrict}); err != nil {
		t.Errorf("Decode of the in-bounds image failed: %v", err)
	}
}

func TestWritableDecode(t *testing.T) {
	data, _, err := Marshal(sampleTree(t), WriterOptions{})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	root, _, err := Decode(data, ReaderOptions{Writable: true})
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if root.ReadOnly() {
		t.Fatal("writable decode returned a read-only tree")
	}
	if _, err := root.CreateGroup("more"); err != nil {
		t.Errorf("CreateGroup failed: %v", err)
	}

	// Payloads must not alias the input.
	n, _ := root.Lookup("a/x")
	n.(*container.Dataset).Raw().AsFloat32()[0] = 99
	again, _, err := Decode(data, ReaderOptions{})
	if err != nil {
		t.Fatalf("second Decode failed: %v", err)
	}
	n, _ = again.Lookup("a/x")
	if v := n.(*container.Dataset).Raw().AsFloat32()[0]; v != 1 {
		t.Errorf("input modified through writable tree: %v", v)
	}
}

func TestUnsupportedAttribute(t *testing.T) {
	if _, err := encodeAttr("c", complex(1, 2)); !errors.Is(err, container.ErrInvalidAttribute) {
		t.Errorf("encodeAttr(complex) error = %v, want ErrInvalidAttribute", err)
	}
	if _, err := decodeAttr(AttrMeta{Name: "x", Kind: AttrInt8, Value: []byte("300")}); !errors.Is(err, container.ErrCorruptData) {
		t.Errorf("decodeAttr(overflow) error = %v, want ErrCorruptData", err)
	}
	if _, err := decodeAttr(AttrMeta{Name: "x", Kind: "mystery", Value: []byte("1")}); !errors.Is(err, container.ErrCorruptData) {
		t.Errorf("decodeAttr(unknown kind) error = %v, want ErrCorruptData", err)
	}
}

func TestFileReaderWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tree.hpk")

	w, err := NewWriter(path)
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}
	if _, err := w.WriteTree(sampleTree(t), WriterOptions{}); err != nil {
		t.Fatalf("WriteTree failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if _, err := w.WriteTree(container.NewRoot(), WriterOptions{}); err == nil {
		t.Error("WriteTree after Close should fail")
	}

	r, err := NewReader(path)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer r.Close()
	if r.Version() != FormatVersion {
		t.Errorf("Version = %d", r.Version())
	}
	root, err := r.ReadTree()
	if err != nil {
		t.Fatalf("ReadTree failed: %v", err)
	}
	checkSampleTree(t, root)
}

func TestFileReaderCorrupted(t *testing.T) {
	data, _, err := Marshal(sampleTree(t), WriterOptions{})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	data[len(data)-1] ^= 0xFF
	path := filepath.Join(t.TempDir(), "bad.hpk")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := NewReader(path); !errors.Is(err, ErrChecksumMismatch) {
		t.Errorf("NewReader error = %v, want ErrChecksumMismatch", err)
	}
	r, err := NewReaderWithOptions(path, ReaderOptions{SkipChecksumValidation: true})
	if err != nil {
		t.Fatalf("NewReaderWithOptions failed: %v", err)
	}
	_ = r.Close()
}

func TestReadFrom(t *testing.T) {
	var buf bytes.Buffer
	if _, err := Encode(&buf, sampleTree(t), WriterOptions{}); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	root, _, err := ReadFrom(&buf, ReaderOptions{ValidationLevel: ValidationNormal})
	if err != nil {
		t.Fatalf("ReadFrom failed: %v", err)
	}
	checkSampleTree(t, root)
}
