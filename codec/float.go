// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package codec

import (
	"math"

	"github.com/solidcoredata/nopb/cursor"
	"github.com/solidcoredata/nopb/errs"
	"github.com/solidcoredata/nopb/schema"
)

func init() {
	Register(schema.KindFloat, floatCodec{double: false})
	Register(schema.KindDouble, floatCodec{double: true})
}

// floatCodec stores IEEE-754 big-endian bits with a sign-flip transform
// that preserves ordering for non-NaN values: for non-negative numbers
// flip only the sign bit; for negative numbers flip every bit. This is the
// standard "totally ordered" float-to-uint transform.
type floatCodec struct {
	double bool
}

func (c floatCodec) width() int {
	if c.double {
		return 8
	}
	return 4
}

func orderedBits64(f float64) uint64 {
	b := math.Float64bits(f)
	if b&(1<<63) != 0 {
		return ^b
	}
	return b | (1 << 63)
}

func orderedBitsToFloat64(b uint64) float64 {
	if b&(1<<63) != 0 {
		return math.Float64frombits(b &^ (1 << 63))
	}
	return math.Float64frombits(^b)
}

func orderedBits32(f float32) uint32 {
	b := math.Float32bits(f)
	if b&(1<<31) != 0 {
		return ^b
	}
	return b | (1 << 31)
}

func orderedBitsToFloat32(b uint32) float32 {
	if b&(1<<31) != 0 {
		return math.Float32frombits(b &^ (1 << 31))
	}
	return math.Float32frombits(^b)
}

func (c floatCodec) Set(cur *cursor.Cursor, value interface{}) error {
	f, ok := toFloat64(value)
	if !ok {
		return errs.TypeMismatch("expected a float, got %T", value)
	}
	addr, err := ensureAlloc(cur, c.width())
	if err != nil {
		return err
	}
	if c.double {
		return cur.A.WriteU64(addr, orderedBits64(f))
	}
	return cur.A.WriteU32(addr, orderedBits32(float32(f)))
}

func (c floatCodec) Get(cur *cursor.Cursor) (interface{}, bool, error) {
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
	if c.double {
		raw, err := cur.A.ReadU64(addr)
		if err != nil {
			return nil, false, err
		}
		return orderedBitsToFloat64(raw), true, nil
	}
	raw, err := cur.A.ReadU32(addr)
	if err != nil {
		return nil, false, err
	}
	return float64(orderedBitsToFloat32(raw)), true, nil
}

func (c floatCodec) Size(cur *cursor.Cursor) (int, error) {
	return sizeFixed(cur, c.width())
}

func (c floatCodec) Compact(from, to *cursor.Cursor) error {
	return compactScalar(c, from, to)
}

func (c floatCodec) ToJSON(cur *cursor.Cursor) (interface{}, error) {
	v, present, err := c.Get(cur)
	if err != nil || !present {
		return nil, err
	}
	return v, nil
}

func toFloat64(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float32:
		return float64(v), true
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}
