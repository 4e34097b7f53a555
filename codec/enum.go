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
	Register(schema.KindEnum, enumCodec{})
}

// enumCodec stores a single byte holding the index of value within the
// schema node's declared Choices.
type enumCodec struct{}

func (enumCodec) Set(cur *cursor.Cursor, value interface{}) error {
	s, ok := value.(string)
	if !ok {
		return errs.TypeMismatch("expected a string choice, got %T", value)
	}
	choices := cur.Node().Choices
	idx := -1
	for i, c := range choices {
		if c == s {
			idx = i
			break
		}
	}
	if idx < 0 {
		return errs.TypeMismatch("%q is not one of the declared choices", s)
	}
	addr, err := ensureAlloc(cur, 1)
	if err != nil {
		return err
	}
	return cur.A.WriteU8(addr, uint8(idx))
}

func (enumCodec) Get(cur *cursor.Cursor) (interface{}, bool, error) {
	addr, err := cur.AddrValue()
	if err != nil {
		return nil, false, err
	}
	if addr == 0 {
		if d, ok := cur.Node().Default.(string); ok {
			return d, true, nil
		}
		return nil, false, nil
	}
	idx, err := cur.A.ReadU8(addr)
	if err != nil {
		return nil, false, err
	}
	choices := cur.Node().Choices
	if int(idx) >= len(choices) {
		return nil, false, errs.Corrupt("enum index %d out of range for %d choices", idx, len(choices))
	}
	return choices[idx], true, nil
}

func (enumCodec) Size(cur *cursor.Cursor) (int, error) {
	return sizeFixed(cur, 1)
}

func (c enumCodec) Compact(from, to *cursor.Cursor) error {
	return compactScalar(c, from, to)
}

func (c enumCodec) ToJSON(cur *cursor.Cursor) (interface{}, error) {
	v, present, err := c.Get(cur)
	if err != nil || !present {
		return nil, err
	}
	return v, nil
}
