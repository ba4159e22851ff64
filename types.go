// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package hpickle

import (
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/born-ml/hpickle/internal/container"
	"github.com/born-ml/hpickle/internal/query"
	"github.com/born-ml/hpickle/internal/registry"
	"github.com/born-ml/hpickle/internal/serialization"
	"github.com/born-ml/hpickle/internal/store"
	"github.com/born-ml/hpickle/internal/typetag"
)

// Container tree.
type (
	// Group is a container node holding attributes and children.
	Group = container.Group
	// Dataset is a flat typed array stored in the container.
	Dataset = container.Dataset
	// Node is a Group or a Dataset.
	Node = container.Node
	// Opaque is an attribute value holding bytes with no declared structure.
	Opaque = container.Opaque
	// DatasetOptions are backend hints attached to every dataset.
	DatasetOptions = container.DatasetOptions
	// Kind tells groups and datasets apart.
	Kind = container.Kind
)

// Node kinds.
const (
	KindGroup   = container.KindGroup
	KindDataset = container.KindDataset
)

// NewRoot returns an empty, writable in-memory tree for DumpInto.
func NewRoot() *Group {
	return container.NewRoot()
}

// Registry and handler types.
type (
	// Registry maps Go types to dumpers and loaders.
	Registry = registry.Registry
	// DumpFunc writes a value under a parent group.
	DumpFunc = registry.DumpFunc
	// LoadFunc rebuilds a value from a tagged group.
	LoadFunc = registry.LoadFunc
	// Type is the Go type recorded in a type tag, or a placeholder when
	// the type is not known to this process.
	Type = typetag.Type
	// Mapping is an insertion-ordered string-keyed map.
	Mapping = registry.Mapping
	// Stater values pickle through an explicit state.
	Stater = registry.Stater
	// Restorer values restore themselves from that state.
	Restorer = registry.Restorer
)

// NewMapping returns an empty Mapping.
func NewMapping() *Mapping {
	return registry.NewMapping()
}

// Entry describes one node in a Walk listing.
type Entry = query.Entry

// Walk lists root and every node below it in pre-order.
func Walk(root *Group) []Entry {
	return query.Walk(root)
}

// Backends.
type (
	// Backend stores one encoded container.
	Backend = store.Backend
	// FileBackend stores the container in a .hpk file.
	FileBackend = store.FileBackend
	// MemoryBackend keeps the encoded container in memory.
	MemoryBackend = store.MemoryBackend
	// RedisBackend stores the container in a Redis hash.
	RedisBackend = store.RedisBackend
	// BackendOption configures a backend.
	BackendOption = store.Option
	// Mode selects how a container is opened.
	Mode = store.Mode
	// ValidationLevel controls how thoroughly stored containers are checked.
	ValidationLevel = serialization.ValidationLevel
)

// Open modes.
const (
	ModeRead   = store.ModeRead
	ModeWrite  = store.ModeWrite
	ModeAppend = store.ModeAppend
)

// Validation levels.
const (
	ValidationStrict = serialization.ValidationStrict
	ValidationNormal = serialization.ValidationNormal
	ValidationNone   = serialization.ValidationNone
)

// Backend options.
var (
	WithBackendMmap   = store.WithMmap
	WithValidation    = store.WithValidation
	WithSkipChecksum  = store.WithSkipChecksum
	WithMetadata      = store.WithMetadata
	WithBackendLogger = store.WithLogger
)

// NewFileBackend returns a backend for the .hpk file at path.
func NewFileBackend(path string, opts ...BackendOption) *FileBackend {
	return store.NewFileBackend(path, opts...)
}

// NewMemoryBackend returns an empty in-memory backend.
func NewMemoryBackend(opts ...BackendOption) *MemoryBackend {
	return store.NewMemoryBackend(opts...)
}

// NewRedisBackend stores the container under key. A positive ttl expires
// the key after every commit.
func NewRedisBackend(client redis.UniversalClient, key string, ttl time.Duration, opts ...BackendOption) (*RedisBackend, error) {
	return store.NewRedisBackend(client, key, ttl, opts...)
}
