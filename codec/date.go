// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package codec

import (
	"time"

	"github.com/solidcoredata/nopb/cursor"
	"github.com/solidcoredata/nopb/errs"
	"github.com/solidcoredata/nopb/schema"
)

func init() {
	Register(schema.KindDate, dateCodec{})
}

// dateCodec stores milliseconds since the Unix epoch as a sign-flipped
// sortable 64-bit integer, reusing intCodec's storage so dates before
// 1970 still sort correctly.
type dateCodec struct{}

var dateBits = intCodec{bits: 64, signed: true}

func (dateCodec) Set(cur *cursor.Cursor, value interface{}) error {
	t, ok := value.(time.Time)
	if !ok {
		return errs.TypeMismatch("expected a time.Time, got %T", value)
	}
	return dateBits.Set(cur, t.UnixMilli())
}

func (dateCodec) Get(cur *cursor.Cursor) (interface{}, bool, error) {
	present, err := RawPresent(cur)
	if err != nil {
		return nil, false, err
	}
	if !present {
		if d, ok := cur.Node().Default.(uint64); ok {
			return time.UnixMilli(int64(d)).UTC(), true, nil
		}
		return nil, false, nil
	}
	v, _, err := dateBits.Get(cur)
	if err != nil {
		return nil, false, err
	}
	return time.UnixMilli(v.(int64)).UTC(), true, nil
}

func (dateCodec) Size(cur *cursor.Cursor) (int, error) {
	return dateBits.Size(cur)
}

func (c dateCodec) Compact(from, to *cursor.Cursor) error {
	return compactScalar(c, from, to)
}

func (c dateCodec) ToJSON(cur *cursor.Cursor) (interface{}, error) {
	v, present, err := c.Get(cur)
	if err != nil || !present {
		return nil, err
	}
	return v.(time.Time).Format(time.RFC3339Nano), nil
}
