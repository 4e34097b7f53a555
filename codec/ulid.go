// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package codec

import (
	"github.com/oklog/ulid/v2"

	"github.com/solidcoredata/nopb/cursor"
	"github.com/solidcoredata/nopb/errs"
	"github.com/solidcoredata/nopb/schema"
)

func init() {
	Register(schema.KindUlid, ulidCodec{})
}

// ulidCodec stores the 16 raw bytes of a ULID. A ULID's leading 48 bits
// are a millisecond timestamp, so plain byte order is already
// chronologically sortable.
type ulidCodec struct{}

func (ulidCodec) Set(cur *cursor.Cursor, value interface{}) error {
	id, ok := toULID(value)
	if !ok {
		return errs.TypeMismatch("expected a ulid.ULID or string, got %T", value)
	}
	addr, err := ensureAlloc(cur, 16)
	if err != nil {
		return err
	}
	return cur.A.WriteBytes(addr, id[:])
}

func (ulidCodec) Get(cur *cursor.Cursor) (interface{}, bool, error) {
	addr, err := cur.AddrValue()
	if err != nil {
		return nil, false, err
	}
	if addr == 0 {
		if d, ok := toULID(cur.Node().Default); ok {
			return d, true, nil
		}
		return nil, false, nil
	}
	raw, err := cur.A.ReadSlice(addr, 16)
	if err != nil {
		return nil, false, err
	}
	var id ulid.ULID
	copy(id[:], raw)
	return id, true, nil
}

func (ulidCodec) Size(cur *cursor.Cursor) (int, error) {
	return sizeFixed(cur, 16)
}

func (c ulidCodec) Compact(from, to *cursor.Cursor) error {
	return compactScalar(c, from, to)
}

func (c ulidCodec) ToJSON(cur *cursor.Cursor) (interface{}, error) {
	v, present, err := c.Get(cur)
	if err != nil || !present {
		return nil, err
	}
	return v.(ulid.ULID).String(), nil
}

func toULID(value interface{}) (ulid.ULID, bool) {
	switch v := value.(type) {
	case ulid.ULID:
		return v, true
	case string:
		id, err := ulid.ParseStrict(v)
		if err != nil {
			return ulid.ULID{}, false
		}
		return id, true
	case [16]byte:
		return ulid.ULID(v), true
	}
	return ulid.ULID{}, false
}
