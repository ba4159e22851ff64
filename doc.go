// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package hpickle pickles arbitrary Go values into a hierarchical container
// of named groups, attributes and typed datasets, and loads them back.
//
// # Overview
//
// Every value is written by a dumper picked from a Registry. Dispatch tries
// the exact type first, then registered interfaces, then the kind family
// (mapping, sequence, set, scalar, ...) and finally a catch-all for
// objects. Composite values land in groups carrying a type tag, so that
// Load can pick the matching loader and rebuild the original type.
//
// Small scalars are stored as attributes, homogeneous numeric slices as
// flat datasets, and opaque blobs as attributes or datasets depending on
// their size (see WithThreshold).
//
// # Basic Usage
//
//	import "github.com/born-ml/hpickle"
//
//	type Run struct {
//	    Name   string    `hpickle:"name"`
//	    Losses []float64 `hpickle:"losses"`
//	}
//
//	func main() {
//	    _ = hpickle.RegisterStruct[Run](hpickle.Default())
//
//	    run := Run{Name: "baseline", Losses: []float64{0.9, 0.4}}
//	    if err := hpickle.DumpFile(run, "run.hpk"); err != nil {
//	        log.Fatal(err)
//	    }
//	    loaded, err := hpickle.LoadFileAs[Run]("run.hpk")
//	}
//
// # Backends
//
// DumpFile and LoadFile use .hpk files. Dump and Load take any Backend:
// NewFileBackend, NewMemoryBackend (also a stream adapter) or
// NewRedisBackend. A stored container is held by one top-level operation
// at a time; nesting Dump or Load on the same file path, Redis key or
// memory backend fails with ErrAlreadyOpen.
//
// # Partial Loads
//
// LoadFrom rebuilds the value stored in any group of an opened tree,
// LoadSubtreeAsMapping loads a group's children as an ordered Mapping and
// FindByPattern, FindByRegexp and FindByExpr load the first node or
// attribute that matches.
package hpickle
