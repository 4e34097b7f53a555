// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package cursor implements the transient navigation handle every get/set/
// del operation walks through: a binding of (buffer address, schema index,
// parent address, parent schema index) plus a uniform view over whichever
// pointer cell shape the parent kind implies. Cursors are cheap to
// recreate and are invalidated by any allocation after they were built.
package cursor

import (
	"github.com/solidcoredata/nopb/arena"
	"github.com/solidcoredata/nopb/errs"
	"github.com/solidcoredata/nopb/ptr"
	"github.com/solidcoredata/nopb/schema"
)

// Cursor binds a schema node to the pointer cell that references its
// value. All three pointer cell shapes (scalar, list-item, map-item) begin
// with the same 2-byte addr_value field, so Cursor exposes that field
// uniformly regardless of shape; collection engines reach for the richer
// ptr.ListItemPtr/ptr.MapItemPtr/ptr.Vtable views when they need the
// chain-specific fields.
type Cursor struct {
	A *arena.Arena
	G *schema.Graph

	// SchemaIndex is this cursor's own schema node.
	SchemaIndex int

	// ParentKind is the schema.Kind of the enclosing collection, or the
	// zero Kind value to mean "root" (CellSize treats it like Table).
	ParentKind schema.Kind

	// CellAddr is the address of this value's pointer cell. Meaningless
	// when Valid is false.
	CellAddr uint16

	// Valid is false when no pointer cell has been allocated yet for this
	// value (an unset table column, or a list/map index with no item):
	// the value is "virtual" and reads as absent without touching the
	// arena.
	Valid bool

	// Cache is a free slot for caller-owned navigation state. No package
	// in this module sets or reads it; cursors from Root and Child leave
	// it nil.
	Cache interface{}
}

// Root returns the cursor for a schema's root value.
func Root(a *arena.Arena, g *schema.Graph) *Cursor {
	return &Cursor{A: a, G: g, SchemaIndex: 0, ParentKind: 0, CellAddr: 0, Valid: true}
}

// Node returns the schema node this cursor's value must conform to.
func (c *Cursor) Node() *schema.Node {
	if c.SchemaIndex < 0 || c.SchemaIndex >= len(c.G.Nodes) {
		return nil
	}
	return &c.G.Nodes[c.SchemaIndex]
}

// CellSize is the width of this cursor's pointer cell, determined by the
// parent kind.
func (c *Cursor) CellSize() int {
	return ptr.CellSize(c.ParentKind)
}

// AddrValue reads the value allocation's address. A virtual cursor (no
// pointer cell allocated) reads as 0 without touching the arena, same as
// an allocated cell whose addr_value has never been written.
func (c *Cursor) AddrValue() (uint16, error) {
	if !c.Valid {
		return 0, nil
	}
	return c.A.ReadU16(c.CellAddr)
}

// SetAddrValue stores a new value allocation address. It fails if the
// cursor is virtual: the caller (a collection engine) must allocate and
// link the pointer cell first.
func (c *Cursor) SetAddrValue(addr uint16) error {
	if !c.Valid {
		return errs.Corrupt("cannot set value address on a virtual cursor (schema index %d)", c.SchemaIndex)
	}
	return c.A.WriteAddress(c.CellAddr, addr)
}

// Child returns a new cursor for a value nested at cellAddr under this
// cursor's node (used by collection engines once they've located or
// allocated the child's pointer cell).
func (c *Cursor) Child(schemaIndex int, parentKind schema.Kind, cellAddr uint16, valid bool) *Cursor {
	return &Cursor{A: c.A, G: c.G, SchemaIndex: schemaIndex, ParentKind: parentKind, CellAddr: cellAddr, Valid: valid}
}
