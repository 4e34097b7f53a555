// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package nopb implements a schema-driven, in-place mutable binary
// buffer format: a value can be read, written, or deleted at any depth
// without re-encoding the whole buffer, and may be compacted back down
// once mutation has left orphaned bytes behind.
package nopb

import (
	"github.com/pkg/errors"

	"github.com/solidcoredata/nopb/arena"
	"github.com/solidcoredata/nopb/schema"

	_ "github.com/solidcoredata/nopb/collection" // registers Table/List/Map/Tuple codecs
)

// Factory holds a parsed, validated schema shared by every buffer built
// from it. A Factory is immutable and safe for concurrent use; Buffers it
// produces are not.
type Factory struct {
	graph *schema.Graph
}

// NewFactoryFromJSON parses a schema description (spec.md §6's JSON front
// end) into a Factory.
func NewFactoryFromJSON(desc []byte) (*Factory, error) {
	_, g, err := schema.FromJSON(desc)
	if err != nil {
		return nil, errors.Wrap(err, "nopb: parse schema json")
	}
	return &Factory{graph: g}, nil
}

// NewFactoryFromBytes parses a schema's compact byte form into a Factory.
func NewFactoryFromBytes(desc []byte) (*Factory, error) {
	g, err := schema.FromBytes(desc)
	if err != nil {
		return nil, errors.Wrap(err, "nopb: parse schema bytes")
	}
	if err := schema.Validate(g); err != nil {
		return nil, errors.Wrap(err, "nopb: validate schema")
	}
	return &Factory{graph: g}, nil
}

// Graph exposes the factory's parsed schema for callers that need direct
// access to node metadata.
func (f *Factory) Graph() *schema.Graph { return f.graph }

// SchemaJSON renders the factory's schema back into its JSON description.
func (f *Factory) SchemaJSON() ([]byte, error) {
	b, err := schema.ToJSON(f.graph)
	return b, errors.Wrap(err, "nopb: render schema json")
}

// SchemaBytes renders the factory's schema into its compact byte form.
func (f *Factory) SchemaBytes() ([]byte, error) {
	b, err := schema.ToBytes(f.graph)
	return b, errors.Wrap(err, "nopb: render schema bytes")
}

// Empty returns a new, empty Buffer for this schema: a 4-byte arena with
// a zero root pointer.
func (f *Factory) Empty() *Buffer {
	return &Buffer{g: f.graph, a: arena.New()}
}

// Open wraps existing buffer bytes previously produced by this schema.
// The bytes are not re-validated against the schema; a mismatched schema
// will surface as corrupt-buffer errors on first access.
func (f *Factory) Open(b []byte) (*Buffer, error) {
	a, err := arena.Load(b)
	if err != nil {
		return nil, errors.Wrap(err, "nopb: open buffer")
	}
	return &Buffer{g: f.graph, a: a}, nil
}
