// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package hpickle

import (
	"go.uber.org/zap"

	"github.com/born-ml/hpickle/internal/container"
	"github.com/born-ml/hpickle/internal/registry"
	"github.com/born-ml/hpickle/internal/store"
)

// Option configures a single top-level operation.
type Option func(*settings)

type settings struct {
	registry       *Registry
	threshold      int
	datasetOptions DatasetOptions
	mode           Mode
	modeSet        bool
	mmap           bool
	name           string
	logger         *zap.Logger
}

func newSettings(opts []Option) *settings {
	s := &settings{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// WithRegistry dispatches through r instead of Default().
func WithRegistry(r *Registry) Option {
	return func(s *settings) {
		s.registry = r
	}
}

// WithThreshold sets the size in bytes at which opaque blobs are stored as
// uint8 datasets instead of attributes.
func WithThreshold(n int) Option {
	return func(s *settings) {
		s.threshold = n
	}
}

// WithDatasetOptions attaches creation hints (chunking, compression, ...)
// to every dataset written by a dump.
func WithDatasetOptions(opts DatasetOptions) Option {
	return func(s *settings) {
		s.datasetOptions = opts.Clone()
	}
}

// WithMode selects the open mode of a dump: ModeWrite (the default)
// replaces the stored container, ModeAppend adds to it.
func WithMode(m Mode) Option {
	return func(s *settings) {
		s.mode = m
		s.modeSet = true
	}
}

// WithMmap memory-maps files for LoadFile and friends.
func WithMmap(enabled bool) Option {
	return func(s *settings) {
		s.mmap = enabled
	}
}

// WithName stores the value as the named child of the root instead of in
// the root itself, and loads it from there. Appending several values to
// one container needs a distinct name for each.
func WithName(name string) Option {
	return func(s *settings) {
		s.name = name
	}
}

// WithLogger logs dispatch and backend decisions to l at debug level.
func WithLogger(l *zap.Logger) Option {
	return func(s *settings) {
		s.logger = l
	}
}

// resolve returns the registry to dispatch through. Threshold and logger
// overrides apply to a copy so that the shared registry is left alone.
func (s *settings) resolve() *Registry {
	r := s.registry
	if r == nil {
		r = Default()
	}
	var overrides []registry.Option
	if s.threshold > 0 {
		overrides = append(overrides, registry.WithThreshold(s.threshold))
	}
	if s.logger != nil {
		overrides = append(overrides, registry.WithLogger(s.logger))
	}
	if len(overrides) > 0 {
		r = r.Clone(overrides...)
	}
	return r
}

func (s *settings) dumpMode() Mode {
	if s.modeSet {
		return s.mode
	}
	return ModeWrite
}

func (s *settings) handle(b Backend, mode Mode) *store.Handle {
	var rootOpts []container.Option
	if s.datasetOptions != nil {
		rootOpts = append(rootOpts, container.WithDatasetOptions(s.datasetOptions))
	}
	return store.NewHandle(b, mode,
		store.WithRootOptions(rootOpts...),
		store.WithHandleLogger(s.logger))
}

func (s *settings) fileBackend(path string) *FileBackend {
	opts := []BackendOption{store.WithMmap(s.mmap)}
	if s.logger != nil {
		opts = append(opts, store.WithLogger(s.logger))
	}
	return store.NewFileBackend(path, opts...)
}
