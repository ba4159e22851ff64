// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package hpickle

import (
	"github.com/born-ml/hpickle/internal/container"
	"github.com/born-ml/hpickle/internal/query"
	"github.com/born-ml/hpickle/internal/record"
	"github.com/born-ml/hpickle/internal/registry"
	"github.com/born-ml/hpickle/internal/serialization"
	"github.com/born-ml/hpickle/internal/store"
	"github.com/born-ml/hpickle/internal/typetag"
)

// Container errors.
var (
	ErrNameCollision    = container.ErrNameCollision
	ErrInvalidName      = container.ErrInvalidName
	ErrNotFound         = container.ErrNotFound
	ErrReadOnly         = container.ErrReadOnly
	ErrInvalidAttribute = container.ErrInvalidAttribute
	ErrInvalidDataset   = container.ErrInvalidDataset
	ErrCorruptData      = container.ErrCorruptData
)

// Type tag errors.
var (
	ErrMissingTag          = typetag.ErrMissingTag
	ErrAlreadyTagged       = typetag.ErrAlreadyTagged
	ErrIncompatibleVersion = typetag.ErrIncompatibleVersion
)

// Dispatch errors.
var (
	ErrUnsupportedType = registry.ErrUnsupportedType
	ErrUnserializable  = registry.ErrUnserializable
	ErrReservedName    = registry.ErrReservedName
)

// ErrNotStruct is returned by RegisterStruct for non-struct types.
var ErrNotStruct = record.ErrNotStruct

// Backend errors.
var (
	ErrAlreadyOpen = store.ErrAlreadyOpen
	ErrNotOpen     = store.ErrNotOpen
)

// File format errors.
var (
	ErrChecksumMismatch   = serialization.ErrChecksumMismatch
	ErrInvalidMagic       = serialization.ErrInvalidMagic
	ErrUnsupportedVersion = serialization.ErrUnsupportedVersion
	ErrHeaderTooLarge     = serialization.ErrHeaderTooLarge
)

// NodeError records the operation, node path and type name of a failure.
type NodeError = container.NodeError

// ValidationError describes a structurally invalid .hpk file.
type ValidationError = serialization.ValidationError

// ExprError reports an expression that failed to compile or evaluate.
type ExprError = query.ExprError
