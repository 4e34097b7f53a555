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
	Register(schema.KindBool, boolCodec{})
}

type boolCodec struct{}

func (boolCodec) Set(cur *cursor.Cursor, value interface{}) error {
	b, ok := value.(bool)
	if !ok {
		return errs.TypeMismatch("expected a bool, got %T", value)
	}
	addr, err := ensureAlloc(cur, 1)
	if err != nil {
		return err
	}
	var raw uint8
	if b {
		raw = 1
	}
	return cur.A.WriteU8(addr, raw)
}

func (boolCodec) Get(cur *cursor.Cursor) (interface{}, bool, error) {
	addr, err := cur.AddrValue()
	if err != nil {
		return nil, false, err
	}
	if addr == 0 {
		if d := cur.Node().Default; d != nil {
			return d, true, nil
		}
		return nil, false, nil
	}
	raw, err := cur.A.ReadU8(addr)
	if err != nil {
		return nil, false, err
	}
	return raw != 0, true, nil
}

func (c boolCodec) Size(cur *cursor.Cursor) (int, error) {
	return sizeFixed(cur, 1)
}

func (c boolCodec) Compact(from, to *cursor.Cursor) error {
	return compactScalar(c, from, to)
}

func (c boolCodec) ToJSON(cur *cursor.Cursor) (interface{}, error) {
	v, present, err := c.Get(cur)
	if err != nil || !present {
		return nil, err
	}
	return v, nil
}
