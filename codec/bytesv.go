// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package codec

import (
	"github.com/solidcoredata/nopb/cursor"
	"github.com/solidcoredata/nopb/errs"
	"github.com/solidcoredata/nopb/schema"
)

func init() {
	Register(schema.KindBytes, bytesCodec{})
}

// bytesCodec handles raw byte payloads. Declaring a fixed Size makes the
// value fixed-width (overwritten in place, zero-padded or truncated);
// leaving Size zero makes it variable-width (length-prefixed, always
// reallocated on Set).
type bytesCodec struct{}

func (bytesCodec) Set(cur *cursor.Cursor, value interface{}) error {
	b, ok := value.([]byte)
	if !ok {
		return errs.TypeMismatch("expected []byte, got %T", value)
	}
	n := cur.Node()
	if n.Size > 0 {
		return setFixedBytes(cur, int(n.Size), b)
	}
	return setVarBytes(cur, b)
}

func (bytesCodec) Get(cur *cursor.Cursor) (interface{}, bool, error) {
	n := cur.Node()
	var b []byte
	var present bool
	var err error
	if n.Size > 0 {
		b, present, err = getFixedBytes(cur, int(n.Size))
	} else {
		b, present, err = getVarBytes(cur)
	}
	if err != nil {
		return nil, false, err
	}
	if !present {
		if d, ok := n.Default.([]byte); ok {
			return d, true, nil
		}
		return nil, false, nil
	}
	return b, true, nil
}

func (bytesCodec) Size(cur *cursor.Cursor) (int, error) {
	n := cur.Node()
	if n.Size > 0 {
		return sizeFixed(cur, int(n.Size))
	}
	return sizeVar(cur)
}

func (c bytesCodec) Compact(from, to *cursor.Cursor) error {
	return compactScalar(c, from, to)
}

func (c bytesCodec) ToJSON(cur *cursor.Cursor) (interface{}, error) {
	v, present, err := c.Get(cur)
	if err != nil || !present {
		return nil, err
	}
	return v, nil
}

// setFixedBytes stores b truncated or zero-padded to exactly size bytes,
// reusing the existing allocation since fixed-size payloads never change
// length (invariant: fixed-width scalars keep addr_value stable).
func setFixedBytes(cur *cursor.Cursor, size int, b []byte) error {
	padded := make([]byte, size)
	copy(padded, b) // truncates automatically if len(b) > size
	addr, err := ensureAlloc(cur, size)
	if err != nil {
		return err
	}
	return cur.A.WriteBytes(addr, padded)
}

func getFixedBytes(cur *cursor.Cursor, size int) ([]byte, bool, error) {
	addr, err := cur.AddrValue()
	if err != nil {
		return nil, false, err
	}
	if addr == 0 {
		return nil, false, nil
	}
	b, err := cur.A.ReadSlice(addr, size)
	if err != nil {
		return nil, false, err
	}
	out := make([]byte, size)
	copy(out, b)
	return out, true, nil
}

// setVarBytes always allocates a fresh length[4]||bytes record and orphans
// whatever allocation addr_value previously pointed at, since a
// variable-width payload's length generally changes between writes.
func setVarBytes(cur *cursor.Cursor, b []byte) error {
	oldAddr, err := cur.AddrValue()
	if err != nil {
		return err
	}
	var oldLen uint32
	if oldAddr != 0 {
		oldLen, err = cur.A.ReadU32(oldAddr)
		if err != nil {
			return err
		}
	}
	total := 4 + len(b)
	addr, err := cur.A.Malloc(total)
	if err != nil {
		return err
	}
	if err := cur.A.WriteU32(addr, uint32(len(b))); err != nil {
		return err
	}
	if err := cur.A.WriteBytes(addr+4, b); err != nil {
		return err
	}
	if err := cur.SetAddrValue(addr); err != nil {
		return err
	}
	if oldAddr != 0 {
		cur.A.OrphanAlloc(4 + int(oldLen))
	}
	return nil
}

func getVarBytes(cur *cursor.Cursor) ([]byte, bool, error) {
	addr, err := cur.AddrValue()
	if err != nil {
		return nil, false, err
	}
	if addr == 0 {
		return nil, false, nil
	}
	length, err := cur.A.ReadU32(addr)
	if err != nil {
		return nil, false, err
	}
	b, err := cur.A.ReadSlice(addr+4, int(length))
	if err != nil {
		return nil, false, err
	}
	out := make([]byte, length)
	copy(out, b)
	return out, true, nil
}

func sizeVar(cur *cursor.Cursor) (int, error) {
	if !cur.Valid {
		return 0, nil
	}
	addr, err := cur.AddrValue()
	if err != nil {
		return 0, err
	}
	n := cur.CellSize()
	if addr == 0 {
		return n, nil
	}
	length, err := cur.A.ReadU32(addr)
	if err != nil {
		return 0, err
	}
	return n + 4 + int(length), nil
}
