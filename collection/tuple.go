// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package collection

import (
	"github.com/solidcoredata/nopb/codec"
	"github.com/solidcoredata/nopb/cursor"
	"github.com/solidcoredata/nopb/errs"
	"github.com/solidcoredata/nopb/ptr"
	"github.com/solidcoredata/nopb/schema"
)

func init() {
	codec.Register(schema.KindTuple, tupleCodec{})
}

type tupleCodec struct{}

// TupleItem resolves a positional tuple slot, sharing the same vtable
// chain walk a table uses for named columns.
func TupleItem(cur *cursor.Cursor, pos int, allocate bool) (*cursor.Cursor, error) {
	n := cur.Node()
	if pos < 0 || pos >= len(n.Values) {
		return nil, errs.PathInvalid("tuple position %d out of range for %d values", pos, len(n.Values))
	}
	cellAddr, valid, err := vtableSlot(cur, pos, allocate)
	if err != nil {
		return nil, err
	}
	return cur.Child(n.Values[pos], schema.KindTuple, cellAddr, valid), nil
}

// CompareTuple orders two tuple values positionally. Both cursors must
// reference nodes with Sorted set; a member whose kind is not sortable
// makes the comparison fail with a type-mismatch error.
func CompareTuple(a, b *cursor.Cursor) (int, error) {
	n := a.Node()
	if !n.Sorted {
		return 0, errs.TypeMismatch("tuple is not declared sorted")
	}
	for pos := range n.Values {
		ca, err := TupleItem(a, pos, false)
		if err != nil {
			return 0, err
		}
		cb, err := TupleItem(b, pos, false)
		if err != nil {
			return 0, err
		}
		cmp, err := codec.Compare(ca, cb)
		if err != nil {
			return 0, err
		}
		if cmp != 0 {
			return cmp, nil
		}
	}
	return 0, nil
}

func (tupleCodec) Set(cur *cursor.Cursor, value interface{}) error {
	values, ok := value.([]interface{})
	if !ok {
		return errs.TypeMismatch("expected []interface{} for tuple, got %T", value)
	}
	n := cur.Node()
	if len(values) != len(n.Values) {
		return errs.TypeMismatch("tuple expects %d values, got %d", len(n.Values), len(values))
	}
	for pos, v := range values {
		if v == nil {
			continue
		}
		child, err := TupleItem(cur, pos, true)
		if err != nil {
			return err
		}
		cc, ok := codec.Dispatch(cur.G.Nodes[n.Values[pos]].Kind)
		if !ok {
			return errs.SchemaInvalid("no codec for tuple position %d", pos)
		}
		if err := cc.Set(child, v); err != nil {
			return err
		}
	}
	return nil
}

func (tupleCodec) Get(cur *cursor.Cursor) (interface{}, bool, error) {
	present, err := codec.RawPresent(cur)
	if err != nil {
		return nil, false, err
	}
	if !present {
		return nil, false, nil
	}
	n := cur.Node()
	out := make([]interface{}, len(n.Values))
	for pos := range n.Values {
		child, err := TupleItem(cur, pos, false)
		if err != nil {
			return nil, false, err
		}
		cc, ok := codec.Dispatch(cur.G.Nodes[n.Values[pos]].Kind)
		if !ok {
			return nil, false, errs.SchemaInvalid("no codec for tuple position %d", pos)
		}
		v, present, err := cc.Get(child)
		if err != nil {
			return nil, false, err
		}
		if present {
			out[pos] = v
		}
	}
	return out, true, nil
}

func (tupleCodec) Size(cur *cursor.Cursor) (int, error) {
	if !cur.Valid {
		return 0, nil
	}
	total := cur.CellSize()
	root, err := cur.AddrValue()
	if err != nil {
		return 0, err
	}
	if root == 0 {
		return total, nil
	}
	addr := root
	for {
		total += ptr.VtableCellSize
		v, err := ptr.ReadVtable(cur.A, addr)
		if err != nil {
			return 0, err
		}
		if v.Next == 0 {
			break
		}
		addr = v.Next
	}
	n := cur.Node()
	for pos := range n.Values {
		child, err := TupleItem(cur, pos, false)
		if err != nil {
			return 0, err
		}
		if !child.Valid {
			continue
		}
		cc, ok := codec.Dispatch(cur.G.Nodes[n.Values[pos]].Kind)
		if !ok {
			continue
		}
		sz, err := cc.Size(child)
		if err != nil {
			return 0, err
		}
		total += sz - child.CellSize()
	}
	return total, nil
}

func (tupleCodec) Compact(from, to *cursor.Cursor) error {
	present, err := codec.RawPresent(from)
	if err != nil {
		return err
	}
	if !present {
		return nil
	}
	n := from.Node()
	for pos := range n.Values {
		fromChild, err := TupleItem(from, pos, false)
		if err != nil {
			return err
		}
		fp, err := codec.RawPresent(fromChild)
		if err != nil {
			return err
		}
		if !fp {
			continue
		}
		cc, ok := codec.Dispatch(from.G.Nodes[n.Values[pos]].Kind)
		if !ok {
			return errs.SchemaInvalid("no codec for tuple position %d", pos)
		}
		toChild, err := TupleItem(to, pos, true)
		if err != nil {
			return err
		}
		if err := cc.Compact(fromChild, toChild); err != nil {
			return err
		}
	}
	return nil
}

func (tupleCodec) ToJSON(cur *cursor.Cursor) (interface{}, error) {
	present, err := codec.RawPresent(cur)
	if err != nil {
		return nil, err
	}
	if !present {
		return nil, nil
	}
	n := cur.Node()
	out := make([]interface{}, len(n.Values))
	for pos := range n.Values {
		child, err := TupleItem(cur, pos, false)
		if err != nil {
			return nil, err
		}
		cc, ok := codec.Dispatch(cur.G.Nodes[n.Values[pos]].Kind)
		if !ok {
			continue
		}
		v, err := cc.ToJSON(child)
		if err != nil {
			return nil, err
		}
		out[pos] = v
	}
	return out, nil
}
