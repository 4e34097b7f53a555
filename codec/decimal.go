// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package codec

import (
	"github.com/shopspring/decimal"

	"github.com/solidcoredata/nopb/cursor"
	"github.com/solidcoredata/nopb/errs"
	"github.com/solidcoredata/nopb/schema"
)

func init() {
	Register(schema.KindDecimal, decimalCodec{})
}

// decimalCodec stores a fixed-scale decimal as a sign-flipped, sortable
// 64-bit mantissa: value * 10^-Exp, rounded to the nearest integer, so
// that value = mantissa * 10^Exp (Exp -2 keeps two decimal places). The
// schema's Exp field fixes the number of decimal places, so two decimals
// under the same node compare correctly as plain signed integers.
type decimalCodec struct{}

var decimalBits = intCodec{bits: 64, signed: true}

func (decimalCodec) Set(cur *cursor.Cursor, value interface{}) error {
	d, ok := toDecimal(value)
	if !ok {
		return errs.TypeMismatch("expected a decimal, got %T", value)
	}
	exp := int32(cur.Node().Exp)
	scaled := d.Shift(-exp).Round(0)
	return decimalBits.Set(cur, scaled.IntPart())
}

func (decimalCodec) Get(cur *cursor.Cursor) (interface{}, bool, error) {
	present, err := RawPresent(cur)
	if err != nil {
		return nil, false, err
	}
	if !present {
		if d, ok := toDecimal(cur.Node().Default); ok {
			return d, true, nil
		}
		return nil, false, nil
	}
	v, _, err := decimalBits.Get(cur)
	if err != nil {
		return nil, false, err
	}
	exp := int32(cur.Node().Exp)
	mantissa := v.(int64)
	return decimal.New(mantissa, exp), true, nil
}

func (decimalCodec) Size(cur *cursor.Cursor) (int, error) {
	return decimalBits.Size(cur)
}

func (c decimalCodec) Compact(from, to *cursor.Cursor) error {
	return compactScalar(c, from, to)
}

func (c decimalCodec) ToJSON(cur *cursor.Cursor) (interface{}, error) {
	v, present, err := c.Get(cur)
	if err != nil || !present {
		return nil, err
	}
	d := v.(decimal.Decimal)
	return d.String(), nil
}

func toDecimal(value interface{}) (decimal.Decimal, bool) {
	switch v := value.(type) {
	case decimal.Decimal:
		return v, true
	case string:
		d, err := decimal.NewFromString(v)
		if err != nil {
			return decimal.Decimal{}, false
		}
		return d, true
	case float64:
		return decimal.NewFromFloat(v), true
	case int64:
		return decimal.NewFromInt(v), true
	case int:
		return decimal.NewFromInt(int64(v)), true
	}
	return decimal.Decimal{}, false
}
