// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package codec

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solidcoredata/nopb/arena"
	"github.com/solidcoredata/nopb/cursor"
	"github.com/solidcoredata/nopb/schema"
)

// rootCursor builds a fresh arena whose root value is n, wired up exactly
// the way cursor.Root does for a schema graph's index-0 node.
func rootCursor(n schema.Node) *cursor.Cursor {
	g := &schema.Graph{Nodes: []schema.Node{n}}
	a := arena.New()
	return cursor.Root(a, g)
}

func TestIntCodecSetGet(t *testing.T) {
	cur := rootCursor(schema.Node{Kind: schema.KindInt32})
	cc, ok := Dispatch(schema.KindInt32)
	require.True(t, ok)

	require.NoError(t, cc.Set(cur, int32(-42)))
	v, present, err := cc.Get(cur)
	require.NoError(t, err)
	assert.True(t, present)
	assert.Equal(t, int64(-42), v)
}

func TestIntCodecOverflowFails(t *testing.T) {
	cur := rootCursor(schema.Node{Kind: schema.KindInt8})
	cc, _ := Dispatch(schema.KindInt8)
	err := cc.Set(cur, int64(1000))
	assert.Error(t, err, "a value that doesn't fit the declared width must fail cleanly")
}

func TestUintCodecRejectsWrongType(t *testing.T) {
	cur := rootCursor(schema.Node{Kind: schema.KindUint16})
	cc, _ := Dispatch(schema.KindUint16)
	err := cc.Set(cur, "not a number")
	assert.Error(t, err)
}

func TestIntCodecSortableOrdering(t *testing.T) {
	n := schema.Node{Kind: schema.KindInt32, Sortable: true}
	cc, _ := Dispatch(schema.KindInt32)

	neg := rootCursor(n)
	require.NoError(t, cc.Set(neg, int32(-5)))
	pos := rootCursor(n)
	require.NoError(t, cc.Set(pos, int32(5)))

	cmp, err := Compare(neg, pos)
	require.NoError(t, err)
	assert.Negative(t, cmp, "sign-flipped encoding must keep -5 sorting before 5")
}

func TestFloatCodecRoundTripAndOrdering(t *testing.T) {
	n := schema.Node{Kind: schema.KindDouble, Sortable: true}
	cc, _ := Dispatch(schema.KindDouble)

	a := rootCursor(n)
	require.NoError(t, cc.Set(a, -2.5))
	v, _, err := cc.Get(a)
	require.NoError(t, err)
	assert.Equal(t, -2.5, v)

	b := rootCursor(n)
	require.NoError(t, cc.Set(b, 2.5))
	cmp, err := Compare(a, b)
	require.NoError(t, err)
	assert.Negative(t, cmp, "totally-ordered float transform must keep -2.5 sorting before 2.5")
}

func TestFloat32CodecRoundTrip(t *testing.T) {
	cur := rootCursor(schema.Node{Kind: schema.KindFloat})
	cc, _ := Dispatch(schema.KindFloat)
	require.NoError(t, cc.Set(cur, float32(1.25)))
	v, _, err := cc.Get(cur)
	require.NoError(t, err)
	assert.Equal(t, 1.25, v)
}

func TestBoolCodec(t *testing.T) {
	cur := rootCursor(schema.Node{Kind: schema.KindBool, Default: false})
	cc, _ := Dispatch(schema.KindBool)

	v, present, err := cc.Get(cur)
	require.NoError(t, err)
	assert.True(t, present)
	assert.Equal(t, false, v)

	require.NoError(t, cc.Set(cur, true))
	v, _, err = cc.Get(cur)
	require.NoError(t, err)
	assert.Equal(t, true, v)
}

func TestStringCodecVariableLength(t *testing.T) {
	cur := rootCursor(schema.Node{Kind: schema.KindString})
	cc, _ := Dispatch(schema.KindString)

	require.NoError(t, cc.Set(cur, "hello"))
	v, _, err := cc.Get(cur)
	require.NoError(t, err)
	assert.Equal(t, "hello", v)

	require.NoError(t, cc.Set(cur, "a much longer replacement string"))
	v, _, err = cc.Get(cur)
	require.NoError(t, err)
	assert.Equal(t, "a much longer replacement string", v)
}

func TestStringCodecFixedLengthPadsAndTrims(t *testing.T) {
	cur := rootCursor(schema.Node{Kind: schema.KindString, Size: 8})
	cc, _ := Dispatch(schema.KindString)

	require.NoError(t, cc.Set(cur, "hi"))
	v, _, err := cc.Get(cur)
	require.NoError(t, err)
	assert.Equal(t, "hi", v)
}

func TestStringCodecRejectsInvalidUTF8(t *testing.T) {
	cur := rootCursor(schema.Node{Kind: schema.KindString})
	cc, _ := Dispatch(schema.KindString)
	err := cc.Set(cur, string([]byte{0xff, 0xfe}))
	assert.Error(t, err)
}

func TestBytesCodecFixedAndVariable(t *testing.T) {
	fixed := rootCursor(schema.Node{Kind: schema.KindBytes, Size: 4})
	cc, _ := Dispatch(schema.KindBytes)
	require.NoError(t, cc.Set(fixed, []byte{1, 2}))
	v, _, err := cc.Get(fixed)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 0, 0}, v)

	variable := rootCursor(schema.Node{Kind: schema.KindBytes})
	require.NoError(t, cc.Set(variable, []byte{9, 9, 9}))
	v, _, err = cc.Get(variable)
	require.NoError(t, err)
	assert.Equal(t, []byte{9, 9, 9}, v)
}

func TestDecimalCodecRoundTrip(t *testing.T) {
	cur := rootCursor(schema.Node{Kind: schema.KindDecimal, Exp: -2})
	cc, _ := Dispatch(schema.KindDecimal)

	d := decimal.RequireFromString("19.99")
	require.NoError(t, cc.Set(cur, d))
	v, present, err := cc.Get(cur)
	require.NoError(t, err)
	assert.True(t, present)
	assert.True(t, v.(decimal.Decimal).Equal(d))
}

func TestDecimalCodecAbsentWithoutDefault(t *testing.T) {
	cur := rootCursor(schema.Node{Kind: schema.KindDecimal, Exp: -2})
	cc, _ := Dispatch(schema.KindDecimal)
	_, present, err := cc.Get(cur)
	require.NoError(t, err)
	assert.False(t, present, "a decimal with no schema default and no stored value must come back absent, not panic")
}

func TestDecimalCodecDefaultApplies(t *testing.T) {
	def := decimal.RequireFromString("1.50")
	cur := rootCursor(schema.Node{Kind: schema.KindDecimal, Exp: -2, Default: def})
	cc, _ := Dispatch(schema.KindDecimal)
	v, present, err := cc.Get(cur)
	require.NoError(t, err)
	assert.True(t, present)
	assert.True(t, v.(decimal.Decimal).Equal(def))
}

func TestGeoCodecRoundTrip(t *testing.T) {
	cur := rootCursor(schema.Node{Kind: schema.KindGeo, GeoPrecision: 16})
	cc, _ := Dispatch(schema.KindGeo)

	p := schema.GeoPoint{Lat: 37.7749, Lon: -122.4194}
	require.NoError(t, cc.Set(cur, p))
	v, _, err := cc.Get(cur)
	require.NoError(t, err)
	got := v.(schema.GeoPoint)
	assert.InDelta(t, p.Lat, got.Lat, 1e-6)
	assert.InDelta(t, p.Lon, got.Lon, 1e-6)
}

func TestGeoCodecLowPrecisionRoundTrip(t *testing.T) {
	cur := rootCursor(schema.Node{Kind: schema.KindGeo, GeoPrecision: 4})
	cc, _ := Dispatch(schema.KindGeo)

	p := schema.GeoPoint{Lat: 10.5, Lon: -20.25}
	require.NoError(t, cc.Set(cur, p))
	v, _, err := cc.Get(cur)
	require.NoError(t, err)
	got := v.(schema.GeoPoint)
	assert.InDelta(t, p.Lat, got.Lat, 0.02)
	assert.InDelta(t, p.Lon, got.Lon, 0.02)
}

func TestUUIDCodecRoundTrip(t *testing.T) {
	cur := rootCursor(schema.Node{Kind: schema.KindUuid})
	cc, _ := Dispatch(schema.KindUuid)

	id := uuid.New()
	require.NoError(t, cc.Set(cur, id))
	v, _, err := cc.Get(cur)
	require.NoError(t, err)
	assert.Equal(t, id, v)
}

func TestUUIDCodecFromString(t *testing.T) {
	cur := rootCursor(schema.Node{Kind: schema.KindUuid})
	cc, _ := Dispatch(schema.KindUuid)

	s := "f47ac10b-58cc-4372-a567-0e02b2c3d479"
	require.NoError(t, cc.Set(cur, s))
	v, _, err := cc.Get(cur)
	require.NoError(t, err)
	assert.Equal(t, s, v.(uuid.UUID).String())
}

func TestULIDCodecRoundTrip(t *testing.T) {
	cur := rootCursor(schema.Node{Kind: schema.KindUlid})
	cc, _ := Dispatch(schema.KindUlid)

	id := ulid.Make()
	require.NoError(t, cc.Set(cur, id))
	v, _, err := cc.Get(cur)
	require.NoError(t, err)
	assert.Equal(t, id, v)
}

func TestDateCodecRoundTrip(t *testing.T) {
	cur := rootCursor(schema.Node{Kind: schema.KindDate})
	cc, _ := Dispatch(schema.KindDate)

	ts := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, cc.Set(cur, ts))
	v, _, err := cc.Get(cur)
	require.NoError(t, err)
	assert.True(t, ts.Equal(v.(time.Time)))
}

func TestDateCodecDefaultIsUint64Millis(t *testing.T) {
	def := uint64(1000)
	cur := rootCursor(schema.Node{Kind: schema.KindDate, Default: def})
	cc, _ := Dispatch(schema.KindDate)
	v, present, err := cc.Get(cur)
	require.NoError(t, err)
	assert.True(t, present)
	assert.Equal(t, time.UnixMilli(1000).UTC(), v)
}

func TestEnumCodecRoundTrip(t *testing.T) {
	cur := rootCursor(schema.Node{Kind: schema.KindEnum, Choices: []string{"red", "green", "blue"}})
	cc, _ := Dispatch(schema.KindEnum)

	require.NoError(t, cc.Set(cur, "green"))
	v, _, err := cc.Get(cur)
	require.NoError(t, err)
	assert.Equal(t, "green", v)
}

func TestEnumCodecRejectsUnknownChoice(t *testing.T) {
	cur := rootCursor(schema.Node{Kind: schema.KindEnum, Choices: []string{"red"}})
	cc, _ := Dispatch(schema.KindEnum)
	err := cc.Set(cur, "purple")
	assert.Error(t, err)
}

func TestSortKeyAbsentIsAllZeroBytes(t *testing.T) {
	cur := rootCursor(schema.Node{Kind: schema.KindInt32, Sortable: true})
	key, err := SortKey(cur)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0, 0}, key)
}

func TestSortKeyRejectsUnsortableKind(t *testing.T) {
	cur := rootCursor(schema.Node{Kind: schema.KindString, Sortable: false})
	_, err := SortKey(cur)
	assert.Error(t, err)
}
