// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package collection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solidcoredata/nopb/arena"
	"github.com/solidcoredata/nopb/codec"
	"github.com/solidcoredata/nopb/cursor"
	"github.com/solidcoredata/nopb/schema"
)

// tableGraph builds a table of the given number of int32 columns (more
// than 4 forces a second vtable link, since each vtable only holds 4
// scalar slots).
func tableGraph(t *testing.T, columns int) (*schema.Graph, *cursor.Cursor) {
	t.Helper()
	g := &schema.Graph{Nodes: make([]schema.Node, 1, columns+1)}
	cols := make([]schema.Column, columns)
	for i := 0; i < columns; i++ {
		idx := len(g.Nodes)
		g.Nodes = append(g.Nodes, schema.Node{Kind: schema.KindInt32})
		cols[i] = schema.Column{Name: colName(i), Index: idx}
	}
	g.Nodes[0] = schema.Node{Kind: schema.KindTable, Columns: cols}
	a := arena.New()
	return g, cursor.Root(a, g)
}

func colName(i int) string {
	return string(rune('a' + i))
}

func TestTableColumnAllocatesVtableChain(t *testing.T) {
	_, cur := tableGraph(t, 6) // forces a second vtable link (6 > 4)
	for i := 0; i < 6; i++ {
		child, err := Column(cur, colName(i), true)
		require.NoError(t, err)
		cc, _ := codec.Dispatch(child.Node().Kind)
		require.NoError(t, cc.Set(child, int32(i)))
	}
	for i := 0; i < 6; i++ {
		child, err := Column(cur, colName(i), false)
		require.NoError(t, err)
		cc, _ := codec.Dispatch(child.Node().Kind)
		v, present, err := cc.Get(child)
		require.NoError(t, err)
		assert.True(t, present)
		assert.Equal(t, int64(i), v)
	}
}

func TestTableColumnUnknownNameFails(t *testing.T) {
	_, cur := tableGraph(t, 2)
	_, err := Column(cur, "nope", false)
	assert.Error(t, err)
}

func TestTableGetOnUnallocatedIsAbsent(t *testing.T) {
	_, cur := tableGraph(t, 2)
	v, present, err := tableCodec{}.Get(cur)
	require.NoError(t, err)
	assert.False(t, present)
	assert.Nil(t, v)
}

func listGraph(t *testing.T) (*schema.Graph, *cursor.Cursor) {
	t.Helper()
	g := &schema.Graph{Nodes: []schema.Node{
		{Kind: schema.KindList, Of: 1},
		{Kind: schema.KindInt32},
	}}
	a := arena.New()
	return g, cursor.Root(a, g)
}

func TestListPushLenGet(t *testing.T) {
	_, cur := listGraph(t)
	for i := 0; i < 10; i++ {
		require.NoError(t, Push(cur, int32(i*10)))
	}
	n, err := Len(cur)
	require.NoError(t, err)
	assert.Equal(t, 10, n)

	v, present, err := listCodec{}.Get(cur)
	require.NoError(t, err)
	require.True(t, present)
	values := v.([]interface{})
	assert.Equal(t, int64(50), values[5])
}

func TestListDelLeavesGapWithoutReindexing(t *testing.T) {
	_, cur := listGraph(t)
	for i := 0; i < 5; i++ {
		require.NoError(t, Push(cur, int32(i)))
	}
	require.NoError(t, Del(cur, 2))

	n, err := Len(cur)
	require.NoError(t, err)
	assert.Equal(t, 4, n, "len counts items, not the array's highest index")

	v, _, err := listCodec{}.Get(cur)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{int64(0), int64(1), nil, int64(3), int64(4)}, v, "index 3 and 4 must keep their original index after deleting index 2")
}

func TestListSetInsertsSparseIndex(t *testing.T) {
	_, cur := listGraph(t)
	child, err := ListItem(cur, 5, true)
	require.NoError(t, err)
	cc, _ := codec.Dispatch(schema.KindInt32)
	require.NoError(t, cc.Set(child, int32(99)))

	n, err := Len(cur)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	missing, err := ListItem(cur, 3, false)
	require.NoError(t, err)
	assert.False(t, missing.Valid)

	got, err := ListItem(cur, 5, false)
	require.NoError(t, err)
	require.True(t, got.Valid)
	v, present, err := cc.Get(got)
	require.NoError(t, err)
	require.True(t, present)
	assert.Equal(t, int64(99), v)
}

func TestListSetInsertsBetweenExistingIndices(t *testing.T) {
	_, cur := listGraph(t)
	cc, _ := codec.Dispatch(schema.KindInt32)

	low, err := ListItem(cur, 1, true)
	require.NoError(t, err)
	require.NoError(t, cc.Set(low, int32(10)))

	high, err := ListItem(cur, 9, true)
	require.NoError(t, err)
	require.NoError(t, cc.Set(high, int32(90)))

	mid, err := ListItem(cur, 5, true)
	require.NoError(t, err)
	require.NoError(t, cc.Set(mid, int32(50)))

	v, _, err := listCodec{}.Get(cur)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{nil, int64(10), nil, nil, nil, int64(50), nil, nil, nil, int64(90)}, v)
}

func TestListPushBeyondMaxLenFails(t *testing.T) {
	_, cur := listGraph(t)
	for i := 0; i < MaxListLen; i++ {
		require.NoError(t, Push(cur, int32(i)))
	}
	err := Push(cur, int32(999))
	assert.Error(t, err, "pushing past the 1-byte Index field's range must fail, not wrap around")
}

func TestListDelUnknownIndexFails(t *testing.T) {
	_, cur := listGraph(t)
	require.NoError(t, Push(cur, int32(1)))
	err := Del(cur, 5)
	assert.Error(t, err)
}

func mapGraph(t *testing.T) (*schema.Graph, *cursor.Cursor) {
	t.Helper()
	g := &schema.Graph{Nodes: []schema.Node{
		{Kind: schema.KindMap, Value: 1},
		{Kind: schema.KindInt32},
	}}
	a := arena.New()
	return g, cursor.Root(a, g)
}

func TestMapSetGetKeys(t *testing.T) {
	_, cur := mapGraph(t)
	cc, _ := codec.Dispatch(schema.KindInt32)

	for _, k := range []string{"one", "two", "three"} {
		child, err := MapItem(cur, k, true)
		require.NoError(t, err)
		require.NoError(t, cc.Set(child, int32(len(k))))
	}

	keys, err := Keys(cur)
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two", "three"}, keys, "map iteration must preserve insertion order")

	child, err := MapItem(cur, "two", false)
	require.NoError(t, err)
	v, present, err := cc.Get(child)
	require.NoError(t, err)
	assert.True(t, present)
	assert.Equal(t, int64(3), v)
}

func TestMapValueCellIsScalarWidth(t *testing.T) {
	_, cur := mapGraph(t)
	cc, _ := codec.Dispatch(schema.KindInt32)
	child, err := MapItem(cur, "k", true)
	require.NoError(t, err)
	require.NoError(t, cc.Set(child, int32(1)))

	// Re-resolve and confirm the cell width used for size accounting is 2
	// bytes (an ordinary scalar pointer), not 8 (a MapItemPtr).
	again, err := MapItem(cur, "k", false)
	require.NoError(t, err)
	assert.Equal(t, 2, again.CellSize())
}

func TestMapDelKeyOrphansAndRemoves(t *testing.T) {
	_, cur := mapGraph(t)
	cc, _ := codec.Dispatch(schema.KindInt32)
	for _, k := range []string{"a", "b"} {
		child, err := MapItem(cur, k, true)
		require.NoError(t, err)
		require.NoError(t, cc.Set(child, int32(1)))
	}
	require.NoError(t, DelKey(cur, "a"))

	keys, err := Keys(cur)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, keys)

	err = DelKey(cur, "a")
	assert.Error(t, err, "deleting an already-removed key must fail cleanly")
}

func TestMapHashCollisionFallsBackToByteCompare(t *testing.T) {
	_, cur := mapGraph(t)
	cc, _ := codec.Dispatch(schema.KindInt32)

	// "glbvs" and "yacxa" share the FNV-1a-32 hash 2713492047.
	k1, err := MapItem(cur, "glbvs", true)
	require.NoError(t, err)
	require.NoError(t, cc.Set(k1, int32(1)))
	k2, err := MapItem(cur, "yacxa", true)
	require.NoError(t, err)
	require.NoError(t, cc.Set(k2, int32(2)))

	got1, err := MapItem(cur, "glbvs", false)
	require.NoError(t, err)
	v1, _, err := cc.Get(got1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v1)

	got2, err := MapItem(cur, "yacxa", false)
	require.NoError(t, err)
	v2, _, err := cc.Get(got2)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v2)
}

func tupleGraph(t *testing.T, sorted bool) (*schema.Graph, *cursor.Cursor) {
	t.Helper()
	g := &schema.Graph{Nodes: []schema.Node{
		{Kind: schema.KindTuple, Values: []int{1, 2}, Sorted: sorted},
		{Kind: schema.KindInt32, Sortable: true},
		{Kind: schema.KindInt32, Sortable: true},
	}}
	a := arena.New()
	return g, cursor.Root(a, g)
}

func TestTupleSetGetPositional(t *testing.T) {
	_, cur := tupleGraph(t, false)
	cc, _ := codec.Dispatch(schema.KindInt32)

	a, err := TupleItem(cur, 0, true)
	require.NoError(t, err)
	require.NoError(t, cc.Set(a, int32(1)))
	b, err := TupleItem(cur, 1, true)
	require.NoError(t, err)
	require.NoError(t, cc.Set(b, int32(2)))

	v, present, err := tupleCodec{}.Get(cur)
	require.NoError(t, err)
	require.True(t, present)
	assert.Equal(t, []interface{}{int64(1), int64(2)}, v)
}

func TestTupleOutOfRangePositionFails(t *testing.T) {
	_, cur := tupleGraph(t, false)
	_, err := TupleItem(cur, 5, false)
	assert.Error(t, err)
}

func TestCompareTupleRequiresSorted(t *testing.T) {
	_, a := tupleGraph(t, false)
	_, b := tupleGraph(t, false)
	_, err := CompareTuple(a, b)
	assert.Error(t, err)
}

func TestCompareTupleOrdersPositionally(t *testing.T) {
	_, a := tupleGraph(t, true)
	_, b := tupleGraph(t, true)
	cc, _ := codec.Dispatch(schema.KindInt32)

	a0, _ := TupleItem(a, 0, true)
	require.NoError(t, cc.Set(a0, int32(1)))
	a1, _ := TupleItem(a, 1, true)
	require.NoError(t, cc.Set(a1, int32(5)))

	b0, _ := TupleItem(b, 0, true)
	require.NoError(t, cc.Set(b0, int32(1)))
	b1, _ := TupleItem(b, 1, true)
	require.NoError(t, cc.Set(b1, int32(9)))

	cmp, err := CompareTuple(a, b)
	require.NoError(t, err)
	assert.Negative(t, cmp, "equal first position must fall through to compare the second")
}
