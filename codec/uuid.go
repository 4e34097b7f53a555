// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package codec

import (
	"github.com/google/uuid"

	"github.com/solidcoredata/nopb/cursor"
	"github.com/solidcoredata/nopb/errs"
	"github.com/solidcoredata/nopb/schema"
)

func init() {
	Register(schema.KindUuid, uuidCodec{})
}

// uuidCodec stores the 16 raw bytes of a UUID; byte order already sorts
// correctly for RFC 4122 UUIDs, so no transform is applied.
type uuidCodec struct{}

func (uuidCodec) Set(cur *cursor.Cursor, value interface{}) error {
	id, ok := toUUID(value)
	if !ok {
		return errs.TypeMismatch("expected a uuid.UUID or string, got %T", value)
	}
	addr, err := ensureAlloc(cur, 16)
	if err != nil {
		return err
	}
	return cur.A.WriteBytes(addr, id[:])
}

func (uuidCodec) Get(cur *cursor.Cursor) (interface{}, bool, error) {
	addr, err := cur.AddrValue()
	if err != nil {
		return nil, false, err
	}
	if addr == 0 {
		if d, ok := toUUID(cur.Node().Default); ok {
			return d, true, nil
		}
		return nil, false, nil
	}
	raw, err := cur.A.ReadSlice(addr, 16)
	if err != nil {
		return nil, false, err
	}
	var id uuid.UUID
	copy(id[:], raw)
	return id, true, nil
}

func (uuidCodec) Size(cur *cursor.Cursor) (int, error) {
	return sizeFixed(cur, 16)
}

func (c uuidCodec) Compact(from, to *cursor.Cursor) error {
	return compactScalar(c, from, to)
}

func (c uuidCodec) ToJSON(cur *cursor.Cursor) (interface{}, error) {
	v, present, err := c.Get(cur)
	if err != nil || !present {
		return nil, err
	}
	return v.(uuid.UUID).String(), nil
}

func toUUID(value interface{}) (uuid.UUID, bool) {
	switch v := value.(type) {
	case uuid.UUID:
		return v, true
	case string:
		id, err := uuid.Parse(v)
		if err != nil {
			return uuid.UUID{}, false
		}
		return id, true
	case [16]byte:
		return uuid.UUID(v), true
	}
	return uuid.UUID{}, false
}
