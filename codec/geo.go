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
	Register(schema.KindGeo, geoCodec{})
}

// geoCodec stores a lat/lon pair as two fixed-width, sign-flipped
// sortable integers, each scaled by a per-precision multiplier so a
// narrower GeoPrecision trades range for a smaller on-disk footprint.
// GeoPrecision names the total byte width of the pair (validated to one
// of 4, 8, 16 in schema.Validate); half of that is each coordinate's
// width.
type geoCodec struct{}

func coordWidth(precision uint8) int {
	return int(precision) / 2
}

func coordScale(width int) float64 {
	switch width {
	case 2:
		return 1e2
	case 4:
		return 1e7
	case 8:
		return 1e9
	}
	return 1
}

func coordCodec(width int) intCodec {
	return intCodec{bits: width * 8, signed: true}
}

func (geoCodec) Set(cur *cursor.Cursor, value interface{}) error {
	p, ok := value.(schema.GeoPoint)
	if !ok {
		return errs.TypeMismatch("expected a GeoPoint, got %T", value)
	}
	width := coordWidth(cur.Node().GeoPrecision)
	scale := coordScale(width)
	cc := coordCodec(width)

	addr, err := ensureAlloc(cur, width*2)
	if err != nil {
		return err
	}
	latRaw := (uint64(int64(p.Lat*scale)) & cc.mask()) ^ cc.signBit()
	lonRaw := (uint64(int64(p.Lon*scale)) & cc.mask()) ^ cc.signBit()
	if err := writeRaw(cur, addr, latRaw, width); err != nil {
		return err
	}
	return writeRaw(cur, addr+uint16(width), lonRaw, width)
}

func (geoCodec) Get(cur *cursor.Cursor) (interface{}, bool, error) {
	addr, err := cur.AddrValue()
	if err != nil {
		return nil, false, err
	}
	if addr == 0 {
		if d, ok := cur.Node().Default.(schema.GeoPoint); ok {
			return d, true, nil
		}
		return nil, false, nil
	}
	width := coordWidth(cur.Node().GeoPrecision)
	scale := coordScale(width)
	cc := coordCodec(width)

	latRaw, err := readRaw(cur, addr, width)
	if err != nil {
		return nil, false, err
	}
	lonRaw, err := readRaw(cur, addr+uint16(width), width)
	if err != nil {
		return nil, false, err
	}
	lat := float64(decodeSigned(latRaw, cc)) / scale
	lon := float64(decodeSigned(lonRaw, cc)) / scale
	return schema.GeoPoint{Lat: lat, Lon: lon}, true, nil
}

func (c geoCodec) Size(cur *cursor.Cursor) (int, error) {
	width := coordWidth(cur.Node().GeoPrecision)
	return sizeFixed(cur, width*2)
}

func (c geoCodec) Compact(from, to *cursor.Cursor) error {
	return compactScalar(c, from, to)
}

func (c geoCodec) ToJSON(cur *cursor.Cursor) (interface{}, error) {
	v, present, err := c.Get(cur)
	if err != nil || !present {
		return nil, err
	}
	p := v.(schema.GeoPoint)
	return map[string]interface{}{"lat": p.Lat, "lon": p.Lon}, nil
}
