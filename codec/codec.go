// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package codec implements the per-type encode/decode/size/compact/json
// contract (spec.md §4.4) for every scalar variant, dispatched through a
// tagged-variant registry keyed by schema.Kind. Collection engines
// (package collection) implement the same Codec interface for Table,
// List, Map, and Tuple so the compactor can treat every schema node
// uniformly.
package codec

import (
	"github.com/solidcoredata/nopb/cursor"
	"github.com/solidcoredata/nopb/schema"
)

// Codec is the uniform contract every schema kind's handler satisfies.
type Codec interface {
	// Set writes value at cur, allocating or overwriting in place per the
	// type's fixed/variable-size rule. It fails with a TypeMismatch error
	// if value's Go type is incompatible with the schema node.
	Set(cur *cursor.Cursor, value interface{}) error

	// Get decodes the value at cur. present is false only when the value
	// is absent (addr_value == 0, or cur is virtual) and the schema node
	// has no default.
	Get(cur *cursor.Cursor) (value interface{}, present bool, err error)

	// Size returns the number of bytes this cursor's pointer cell plus
	// value allocation occupy (0 if the cursor is virtual).
	Size(cur *cursor.Cursor) (int, error)

	// Compact copies the value, if any is actually stored (not merely
	// defaulted), from one buffer's cursor to another's.
	Compact(from, to *cursor.Cursor) error

	// ToJSON renders the cursor's value (default applied) in the type's
	// canonical JSON representation, or nil if truly absent.
	ToJSON(cur *cursor.Cursor) (interface{}, error)
}

var registry = make(map[schema.Kind]Codec, 32)

// Register adds a codec to the dispatch table. Called from each codec
// file's init(); adding a new scalar means adding one call here.
func Register(k schema.Kind, c Codec) {
	registry[k] = c
}

// Dispatch resolves the codec for a schema kind.
func Dispatch(k schema.Kind) (Codec, bool) {
	c, ok := registry[k]
	return c, ok
}

// RawPresent reports whether cur's value allocation actually exists,
// independent of any schema default. Compact uses this instead of Get so
// that an absent-with-default field stays absent (and small) in the
// destination buffer rather than being materialized.
func RawPresent(cur *cursor.Cursor) (bool, error) {
	addr, err := cur.AddrValue()
	if err != nil {
		return false, err
	}
	return addr != 0, nil
}

// compactScalar is shared by every fixed-shape scalar codec: copy the
// stored value across only if one is actually stored.
func compactScalar(c Codec, from, to *cursor.Cursor) error {
	present, err := RawPresent(from)
	if err != nil {
		return err
	}
	if !present {
		return nil
	}
	v, _, err := c.Get(from)
	if err != nil {
		return err
	}
	return c.Set(to, v)
}

// ensureAlloc returns cur's existing value address, or allocates width
// bytes and links them if none exists yet.
func ensureAlloc(cur *cursor.Cursor, width int) (uint16, error) {
	addr, err := cur.AddrValue()
	if err != nil {
		return 0, err
	}
	if addr != 0 {
		return addr, nil
	}
	addr, err = cur.A.Malloc(width)
	if err != nil {
		return 0, err
	}
	if err := cur.SetAddrValue(addr); err != nil {
		return 0, err
	}
	return addr, nil
}
