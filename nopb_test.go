// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package nopb

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solidcoredata/nopb/errs"
)

const personSchema = `{
	"type": "table",
	"columns": [
		["name", {"type": "string"}],
		["age", {"type": "uint8", "default": 0}],
		["tags", {"type": "list", "of": {"type": "string"}}],
		["scores", {"type": "map", "value": {"type": "int32"}}],
		["coord", {"type": "tuple", "values": [{"type": "double"}, {"type": "double"}]}]
	]
}`

func openFactory(t *testing.T) *Factory {
	t.Helper()
	f, err := NewFactoryFromJSON([]byte(personSchema))
	require.NoError(t, err)
	return f
}

func TestSetGetRoundTrip(t *testing.T) {
	f := openFactory(t)
	buf := f.Empty()

	require.NoError(t, buf.Set(Path{Col("name")}, "Ada"))
	require.NoError(t, buf.Set(Path{Col("age")}, uint64(36)))

	name, present, err := buf.Get(Path{Col("name")})
	require.NoError(t, err)
	assert.True(t, present)
	assert.Equal(t, "Ada", name)

	age, present, err := buf.Get(Path{Col("age")})
	require.NoError(t, err)
	assert.True(t, present)
	assert.Equal(t, uint64(36), age)
}

func TestBytesReopenRoundTrip(t *testing.T) {
	f := openFactory(t)
	buf := f.Empty()
	require.NoError(t, buf.Set(Path{Col("name")}, "Grace"))

	reopened, err := f.Open(buf.Bytes())
	require.NoError(t, err)

	name, present, err := reopened.Get(Path{Col("name")})
	require.NoError(t, err)
	assert.True(t, present)
	assert.Equal(t, "Grace", name)
}

func TestDefaultAppliesWhenAbsent(t *testing.T) {
	f := openFactory(t)
	buf := f.Empty()

	age, present, err := buf.Get(Path{Col("age")})
	require.NoError(t, err)
	assert.True(t, present, "a default value should read as present")
	assert.Equal(t, uint64(0), age)

	name, present, err := buf.Get(Path{Col("name")})
	require.NoError(t, err)
	assert.False(t, present, "no default means absent")
	assert.Nil(t, name)
}

func TestSetIsIdempotent(t *testing.T) {
	f := openFactory(t)
	buf := f.Empty()

	require.NoError(t, buf.Set(Path{Col("age")}, uint64(36)))
	before, _ := buf.CalcBytes()
	require.NoError(t, buf.Set(Path{Col("age")}, uint64(36)))
	after, _ := buf.CalcBytes()
	assert.Equal(t, before, after, "re-setting a fixed-shape value in place should not grow the buffer")

	age, _, err := buf.Get(Path{Col("age")})
	require.NoError(t, err)
	assert.Equal(t, uint64(36), age)
}

func TestDelClearsTableColumn(t *testing.T) {
	f := openFactory(t)
	buf := f.Empty()
	require.NoError(t, buf.Set(Path{Col("name")}, "Ada"))
	require.NoError(t, buf.Del(Path{Col("name")}))

	_, present, err := buf.Get(Path{Col("name")})
	require.NoError(t, err)
	assert.False(t, present)
}

func TestListPushGetDel(t *testing.T) {
	f := openFactory(t)
	buf := f.Empty()

	require.NoError(t, buf.Push(Path{Col("tags")}, "red"))
	require.NoError(t, buf.Push(Path{Col("tags")}, "green"))
	require.NoError(t, buf.Push(Path{Col("tags")}, "blue"))

	v, present, err := buf.Get(Path{Col("tags")})
	require.NoError(t, err)
	require.True(t, present)
	assert.Equal(t, []interface{}{"red", "green", "blue"}, v)

	require.NoError(t, buf.Del(Path{Col("tags"), Idx(1)}))
	v, _, err = buf.Get(Path{Col("tags")})
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"red", nil, "blue"}, v, "deleting an index leaves a gap rather than renumbering later items")
}

// TestListSparseSet exercises scenario S3: set(5, 99) on an empty list
// must yield len()==1, get(3)==None, get(5)==Some(99).
func TestListSparseSet(t *testing.T) {
	f := openFactory(t)
	buf := f.Empty()

	require.NoError(t, buf.Set(Path{Col("tags"), Idx(5)}, "late"))

	all, present, err := buf.Get(Path{Col("tags")})
	require.NoError(t, err)
	require.True(t, present)
	items := all.([]interface{})
	count := 0
	for _, item := range items {
		if item != nil {
			count++
		}
	}
	assert.Equal(t, 1, count, "len() counts items, not the sparse array's highest index")

	_, present, err = buf.Get(Path{Col("tags"), Idx(3)})
	require.NoError(t, err)
	assert.False(t, present)

	v, present, err := buf.Get(Path{Col("tags"), Idx(5)})
	require.NoError(t, err)
	require.True(t, present)
	assert.Equal(t, "late", v)
}

// listOfBytesFactory builds the S6 scenario's schema: a bare list of
// variable-width byte payloads.
func listOfBytesFactory(t *testing.T) *Factory {
	t.Helper()
	f, err := NewFactoryFromJSON([]byte(`{"type": "list", "of": {"type": "bytes"}}`))
	require.NoError(t, err)
	return f
}

// TestPushOutOfSpaceLeavesBufferUnchanged exercises scenario S6:
// repeatedly pushing 1 KiB payloads onto a list of bytes, the first push
// that would cross 65,535 bytes fails with OutOfSpace and leaves the
// buffer unchanged and still readable.
func TestPushOutOfSpaceLeavesBufferUnchanged(t *testing.T) {
	f := listOfBytesFactory(t)
	buf := f.Empty()

	payload := bytes.Repeat([]byte{0xAB}, 1024)
	var lastErr error
	pushed := 0
	for i := 0; i < 128; i++ {
		before := append([]byte(nil), buf.Bytes()...)
		beforeCur, beforeWasted := buf.CalcBytes()

		if err := buf.Push(Path{}, payload); err != nil {
			lastErr = err
			assert.Equal(t, before, buf.Bytes(), "a failed push must not mutate the buffer")
			afterCur, afterWasted := buf.CalcBytes()
			assert.Equal(t, beforeCur, afterCur)
			assert.Equal(t, beforeWasted, afterWasted, "a failed push must not double-count orphaned bytes")
			break
		}
		pushed++
	}
	require.Error(t, lastErr, "repeated 1 KiB pushes must eventually exhaust the 16-bit arena")
	assert.True(t, errs.Is(lastErr, errs.KindOutOfSpace))
	assert.Greater(t, pushed, 0, "some pushes must succeed before the arena fills")

	v, present, err := buf.Get(Path{})
	require.NoError(t, err)
	require.True(t, present)
	assert.Len(t, v, pushed, "the buffer must remain readable with every successfully pushed item intact")
}

func TestMapSetGetDelKey(t *testing.T) {
	f := openFactory(t)
	buf := f.Empty()

	require.NoError(t, buf.Set(Path{Col("scores"), Key("math")}, int64(90)))
	require.NoError(t, buf.Set(Path{Col("scores"), Key("art")}, int64(75)))

	v, present, err := buf.Get(Path{Col("scores"), Key("math")})
	require.NoError(t, err)
	require.True(t, present)
	assert.Equal(t, int64(90), v)

	require.NoError(t, buf.Del(Path{Col("scores"), Key("math")}))
	_, present, err = buf.Get(Path{Col("scores"), Key("math")})
	require.NoError(t, err)
	assert.False(t, present)

	v, present, err = buf.Get(Path{Col("scores"), Key("art")})
	require.NoError(t, err)
	require.True(t, present)
	assert.Equal(t, int64(75), v)
}

func TestTuplePositions(t *testing.T) {
	f := openFactory(t)
	buf := f.Empty()

	require.NoError(t, buf.Set(Path{Col("coord"), Idx(0)}, 1.5))
	require.NoError(t, buf.Set(Path{Col("coord"), Idx(1)}, -2.25))

	lat, _, err := buf.Get(Path{Col("coord"), Idx(0)})
	require.NoError(t, err)
	assert.Equal(t, 1.5, lat)

	lon, _, err := buf.Get(Path{Col("coord"), Idx(1)})
	require.NoError(t, err)
	assert.Equal(t, -2.25, lon)
}

func TestCompactPreservesSemanticsAndShrinksBuffer(t *testing.T) {
	f := openFactory(t)
	buf := f.Empty()

	require.NoError(t, buf.Set(Path{Col("name")}, "Ada Lovelace"))
	require.NoError(t, buf.Set(Path{Col("name")}, "Ada"))
	for i := 0; i < 5; i++ {
		require.NoError(t, buf.Push(Path{Col("tags")}, "tag"))
	}
	require.NoError(t, buf.Del(Path{Col("tags"), Idx(0)}))

	before, wastedBefore := buf.CalcBytes()
	assert.Greater(t, wastedBefore, 0, "mutation should have orphaned some bytes")

	require.NoError(t, buf.Compact())
	after, wastedAfter := buf.CalcBytes()
	assert.Less(t, after, before)
	assert.Equal(t, 0, wastedAfter)

	name, present, err := buf.Get(Path{Col("name")})
	require.NoError(t, err)
	assert.True(t, present)
	assert.Equal(t, "Ada", name)

	tags, _, err := buf.Get(Path{Col("tags")})
	require.NoError(t, err)
	items := tags.([]interface{})
	assert.Equal(t, []interface{}{nil, "tag", "tag", "tag", "tag"}, items, "index 0's gap survives compaction since later items keep their original index")
}

func TestSchemaJSONRoundTrip(t *testing.T) {
	f := openFactory(t)
	out, err := f.SchemaJSON()
	require.NoError(t, err)

	f2, err := NewFactoryFromJSON(out)
	require.NoError(t, err)

	buf := f2.Empty()
	require.NoError(t, buf.Set(Path{Col("name")}, "round trip"))
	v, _, err := buf.Get(Path{Col("name")})
	require.NoError(t, err)
	assert.Equal(t, "round trip", v)
}

func TestSchemaBytesRoundTrip(t *testing.T) {
	f := openFactory(t)
	b, err := f.SchemaBytes()
	require.NoError(t, err)

	f2, err := NewFactoryFromBytes(b)
	require.NoError(t, err)

	buf := f2.Empty()
	require.NoError(t, buf.Set(Path{Col("age")}, uint64(5)))
	v, _, err := buf.Get(Path{Col("age")})
	require.NoError(t, err)
	assert.Equal(t, uint64(5), v)
}

func TestToJSONAppliesDefaults(t *testing.T) {
	f := openFactory(t)
	buf := f.Empty()
	require.NoError(t, buf.Set(Path{Col("name")}, "Ada"))

	out, err := buf.ToJSON()
	require.NoError(t, err)
	assert.Contains(t, string(out), `"age":0`)
	assert.Contains(t, string(out), `"name":"Ada"`)
}

func TestBufferSafeOnArbitraryBytes(t *testing.T) {
	f := openFactory(t)
	junk := []byte{0xFF, 0xFF, 0xFF, 0xFF}
	buf, err := f.Open(junk)
	require.NoError(t, err, "a well-formed header with a garbage root pointer should not panic on open")

	_, _, err = buf.Get(Path{Col("name")})
	assert.Error(t, err, "reading through a bogus root pointer should surface as a corrupt-buffer error, not a panic")
}

func TestOpenRejectsShortBuffer(t *testing.T) {
	f := openFactory(t)
	_, err := f.Open([]byte{0x00})
	assert.Error(t, err)
}

func TestPushOnNonListFails(t *testing.T) {
	f := openFactory(t)
	buf := f.Empty()
	err := buf.Push(Path{Col("name")}, "x")
	assert.Error(t, err)
}

func TestPathString(t *testing.T) {
	p := Path{Col("tags"), Idx(2), Key("k")}
	assert.Equal(t, `$.tags[2]["k"]`, p.String())
}
