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
	Register(schema.KindInt8, intCodec{bits: 8, signed: true})
	Register(schema.KindInt16, intCodec{bits: 16, signed: true})
	Register(schema.KindInt32, intCodec{bits: 32, signed: true})
	Register(schema.KindInt64, intCodec{bits: 64, signed: true})
	Register(schema.KindUint8, intCodec{bits: 8, signed: false})
	Register(schema.KindUint16, intCodec{bits: 16, signed: false})
	Register(schema.KindUint32, intCodec{bits: 32, signed: false})
	Register(schema.KindUint64, intCodec{bits: 64, signed: false})
}

// intCodec handles every fixed-width integer variant. Unsigned values are
// stored plain big-endian; signed values have their sign bit flipped so
// lexicographic byte order matches signed numeric order (sortable).
type intCodec struct {
	bits   int
	signed bool
}

func (c intCodec) width() int { return c.bits / 8 }

func (c intCodec) signBit() uint64 {
	return uint64(1) << (c.bits - 1)
}

func (c intCodec) mask() uint64 {
	if c.bits == 64 {
		return ^uint64(0)
	}
	return (uint64(1) << c.bits) - 1
}

func (c intCodec) Set(cur *cursor.Cursor, value interface{}) error {
	var raw uint64
	if c.signed {
		iv, ok := toInt64(value)
		if !ok {
			return errs.TypeMismatch("expected a signed integer, got %T", value)
		}
		if !fitsSigned(iv, c.bits) {
			return errs.TypeMismatch("value %d does not fit in a signed %d-bit integer", iv, c.bits)
		}
		raw = (uint64(iv) & c.mask()) ^ c.signBit()
	} else {
		uv, ok := toUint64(value)
		if !ok {
			return errs.TypeMismatch("expected an unsigned integer, got %T", value)
		}
		if uv&^c.mask() != 0 {
			return errs.TypeMismatch("value %d does not fit in an unsigned %d-bit integer", uv, c.bits)
		}
		raw = uv
	}
	addr, err := ensureAlloc(cur, c.width())
	if err != nil {
		return err
	}
	return writeRaw(cur, addr, raw, c.width())
}

func (c intCodec) Get(cur *cursor.Cursor) (interface{}, bool, error) {
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
	raw, err := readRaw(cur, addr, c.width())
	if err != nil {
		return nil, false, err
	}
	if c.signed {
		return decodeSigned(raw, c), true, nil
	}
	return raw, true, nil
}

// decodeSigned un-flips the sign bit and sign-extends the result above
// c.bits, so narrower widths still produce a correct int64.
func decodeSigned(raw uint64, c intCodec) int64 {
	v := (raw ^ c.signBit()) & c.mask()
	if v&c.signBit() != 0 {
		return int64(v | ^c.mask())
	}
	return int64(v)
}

func (c intCodec) Size(cur *cursor.Cursor) (int, error) {
	return sizeFixed(cur, c.width())
}

func (c intCodec) Compact(from, to *cursor.Cursor) error {
	return compactScalar(c, from, to)
}

func (c intCodec) ToJSON(cur *cursor.Cursor) (interface{}, error) {
	v, present, err := c.Get(cur)
	if err != nil || !present {
		return nil, err
	}
	return v, nil
}

func sizeFixed(cur *cursor.Cursor, width int) (int, error) {
	if !cur.Valid {
		return 0, nil
	}
	addr, err := cur.AddrValue()
	if err != nil {
		return 0, err
	}
	n := cur.CellSize()
	if addr != 0 {
		n += width
	}
	return n, nil
}

func writeRaw(cur *cursor.Cursor, addr uint16, raw uint64, width int) error {
	switch width {
	case 1:
		return cur.A.WriteU8(addr, uint8(raw))
	case 2:
		return cur.A.WriteAddress(addr, uint16(raw))
	case 4:
		return cur.A.WriteU32(addr, uint32(raw))
	case 8:
		return cur.A.WriteU64(addr, raw)
	}
	return errs.Corrupt("unsupported integer width %d", width)
}

func readRaw(cur *cursor.Cursor, addr uint16, width int) (uint64, error) {
	switch width {
	case 1:
		v, err := cur.A.ReadU8(addr)
		return uint64(v), err
	case 2:
		v, err := cur.A.ReadU16(addr)
		return uint64(v), err
	case 4:
		v, err := cur.A.ReadU32(addr)
		return uint64(v), err
	case 8:
		return cur.A.ReadU64(addr)
	}
	return 0, errs.Corrupt("unsupported integer width %d", width)
}

func toInt64(value interface{}) (int64, bool) {
	switch v := value.(type) {
	case int:
		return int64(v), true
	case int8:
		return int64(v), true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	}
	return 0, false
}

func toUint64(value interface{}) (uint64, bool) {
	switch v := value.(type) {
	case uint:
		return uint64(v), true
	case uint8:
		return uint64(v), true
	case uint16:
		return uint64(v), true
	case uint32:
		return uint64(v), true
	case uint64:
		return v, true
	case int:
		if v < 0 {
			return 0, false
		}
		return uint64(v), true
	}
	return 0, false
}

func fitsSigned(v int64, bits int) bool {
	if bits >= 64 {
		return true
	}
	min := -(int64(1) << (bits - 1))
	max := (int64(1) << (bits - 1)) - 1
	return v >= min && v <= max
}
