package serialization

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/born-ml/hpickle/internal/container"
)

func TestValidateDatasetOffsets(t *testing.T) {
	tests := []struct {
		name     string
		refs     []DatasetRef
		dataSize int64
		wantType string
	}{
		{
			name: "adjacent",
			refs: []DatasetRef{
				{Path: "/a", Offset: 0, Size: 100},
				{Path: "/b", Offset: 128, Size: 64},
			},
			dataSize: 192,
		},
		{
			name: "unsorted input",
			refs: []DatasetRef{
				{Path: "/b", Offset: 100, Size: 100},
				{Path: "/a", Offset: 0, Size: 100},
			},
			dataSize: 200,
		},
		{
			name: "empty payload shares an offset",
			refs: []DatasetRef{
				{Path: "/empty", Offset: 64, Size: 0},
				{Path: "/b", Offset: 64, Size: 8},
			},
			dataSize: 72,
		},
		{
			name: "overlap by one byte",
			refs: []DatasetRef{
				{Path: "/a", Offset: 0, Size: 100},
				{Path: "/b", Offset: 99, Size: 100},
			},
			dataSize: 200,
			wantType: "offset_overlap",
		},
		{
			name:     "past the end",
			refs:     []DatasetRef{{Path: "/a", Offset: 150, Size: 100}},
			dataSize: 200,
			wantType: "out_of_bounds",
		},
		{
			name:     "offset near max int64",
			refs:     []DatasetRef{{Path: "/a", Offset: math.MaxInt64 - 7, Size: 16}},
			dataSize: 200,
			wantType: "out_of_bounds",
		},
		{
			name:     "size larger than data",
			refs:     []DatasetRef{{Path: "/a", Offset: 0, Size: math.MaxInt64}},
			dataSize: 200,
			wantType: "out_of_bounds",
		},
		{
			name:     "negative offset",
			refs:     []DatasetRef{{Path: "/a", Offset: -1, Size: 10}},
			dataSize: 200,
			wantType: "negative_offset",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDatasetOffsets(tt.refs, tt.dataSize)
			if tt.wantType == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected *ValidationError, got %v", err)
			}
			if verr.Type != tt.wantType {
				t.Errorf("Type = %q, want %q", verr.Type, tt.wantType)
			}
		})
	}
}

func TestValidationErrorMessage(t *testing.T) {
	err := ValidateDatasetOffsets([]DatasetRef{
		{Path: "/a/x", Offset: 0, Size: 100},
		{Path: "/a/y", Offset: 50, Size: 100},
	}, 200)
	if err == nil {
		t.Fatal("expected overlap error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "/a/x") || !strings.Contains(msg, "/a/y") {
		t.Errorf("message should name both nodes: %s", msg)
	}
	if !errors.Is(err, container.ErrCorruptData) {
		t.Error("validation errors should match ErrCorruptData")
	}
}

func TestValidateNodeName(t *testing.T) {
	for _, name := range []string{"entry_0", "__type", "a b", "ünï"} {
		if err := ValidateNodeName("/", name); err != nil {
			t.Errorf("ValidateNodeName(%q) = %v", name, err)
		}
	}
	for _, name := range []string{"", "a/b", "a\x00b", strings.Repeat("n", container.MaxNameLength+1)} {
		err := ValidateNodeName("/g", name)
		var verr *ValidationError
		if !errors.As(err, &verr) || verr.Type != "invalid_name" || verr.Node != "/g" {
			t.Errorf("ValidateNodeName(%q) = %v, want invalid_name at /g", name, err)
		}
	}
}

func validHeader() Header {
	return Header{
		FormatVersion: FormatVersion,
		Root: NodeMeta{
			Kind: KindGroup,
			Children: []NodeMeta{
				{Name: "x", Kind: KindDataset, DType: "float32", Shape: []int{2, 2}, Offset: 0, Size: 16},
				{Name: "g", Kind: KindGroup, Children: []NodeMeta{
					{Name: "y", Kind: KindDataset, DType: "int64", Shape: []int{1}, Offset: 64, Size: 8},
				}},
			},
		},
	}
}

func TestValidateHeader(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(h *Header)
		level    ValidationLevel
		wantType string
	}{
		{name: "valid", mutate: func(*Header) {}},
		{
			name:     "named root",
			mutate:   func(h *Header) { h.Root.Name = "root" },
			wantType: "invalid_root",
		},
		{
			name:     "unknown kind",
			mutate:   func(h *Header) { h.Root.Children[1].Kind = "link" },
			wantType: "invalid_kind",
		},
		{
			name:     "duplicate child",
			mutate:   func(h *Header) { h.Root.Children[1].Name = "x" },
			wantType: "duplicate_name",
		},
		{
			name: "duplicate attribute",
			mutate: func(h *Header) {
				h.Root.Attrs = []AttrMeta{{Name: "a", Kind: AttrInt}, {Name: "a", Kind: AttrInt}}
			},
			wantType: "duplicate_name",
		},
		{
			name:     "bad child name",
			mutate:   func(h *Header) { h.Root.Children[0].Name = "a/b" },
			wantType: "invalid_name",
		},
		{
			name:     "unknown dtype",
			mutate:   func(h *Header) { h.Root.Children[0].DType = "float128" },
			wantType: "invalid_dtype",
		},
		{
			name:     "object dtype",
			mutate:   func(h *Header) { h.Root.Children[0].DType = "object" },
			wantType: "invalid_dtype",
		},
		{
			name:     "negative dimension",
			mutate:   func(h *Header) { h.Root.Children[0].Shape = []int{-2, 2} },
			wantType: "invalid_shape",
		},
		{
			name:     "size mismatch",
			mutate:   func(h *Header) { h.Root.Children[0].Size = 12 },
			wantType: "size_mismatch",
		},
		{
			name:     "overlap only checked in strict mode",
			mutate:   func(h *Header) { h.Root.Children[1].Children[0].Offset = 8 },
			level:    ValidationNormal,
			wantType: "",
		},
		{
			name:     "overlap in strict mode",
			mutate:   func(h *Header) { h.Root.Children[1].Children[0].Offset = 8 },
			wantType: "offset_overlap",
		},
		{
			name:   "none skips everything",
			mutate: func(h *Header) { h.Root.Kind = "bogus" },
			level:  ValidationNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := validHeader()
			tt.mutate(&h)
			err := ValidateHeader(&h, 72, tt.level)
			if tt.wantType == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected *ValidationError, got %v", err)
			}
			if verr.Type != tt.wantType {
				t.Errorf("Type = %q, want %q (%v)", verr.Type, tt.wantType, err)
			}
		})
	}
}

func TestParseValidationLevel(t *testing.T) {
	tests := []struct {
		in   string
		want ValidationLevel
	}{
		{"strict", ValidationStrict},
		{"normal", ValidationNormal},
		{"", ValidationStrict},
		{"none", ValidationNone},
	}
	for _, tt := range tests {
		got, err := ParseValidationLevel(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParseValidationLevel(%q) = %v, %v; want %v", tt.in, got, err, tt.want)
		}
		if tt.in != "" && got.String() != tt.in {
			t.Errorf("%v.String() = %q, want %q", got, got.String(), tt.in)
		}
	}
	if _, err := ParseValidationLevel("paranoid"); err == nil {
		t.Error("expected error for unknown level")
	}
}
