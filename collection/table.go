// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package collection implements the four composite schema kinds (Table,
// List, Map, Tuple) on top of package ptr's pointer-cell layouts. Each
// registers itself as a codec.Codec so the compactor and JSON renderer
// can treat a composite node the same way they treat a scalar.
package collection

import (
	"github.com/solidcoredata/nopb/arena"
	"github.com/solidcoredata/nopb/codec"
	"github.com/solidcoredata/nopb/cursor"
	"github.com/solidcoredata/nopb/errs"
	"github.com/solidcoredata/nopb/ptr"
	"github.com/solidcoredata/nopb/schema"
)

func init() {
	codec.Register(schema.KindTable, tableCodec{})
}

type tableCodec struct{}

// columnPos returns name's declaration-order position among n.Columns,
// which determines its vtable chain index (pos/4) and slot (pos%4).
func columnPos(n *schema.Node, name string) (int, bool) {
	for i, c := range n.Columns {
		if c.Name == name {
			return i, true
		}
	}
	return -1, false
}

// Column resolves a table cursor and column name to the column's child
// cursor. When allocate is false (reads) a column whose vtable chain
// hasn't been extended that far comes back as a virtual cursor rather
// than allocating one; when true (writes) the chain is extended as
// needed.
func Column(cur *cursor.Cursor, name string, allocate bool) (*cursor.Cursor, error) {
	n := cur.Node()
	pos, ok := columnPos(n, name)
	if !ok {
		return nil, errs.PathInvalid("table has no column %q", name)
	}
	cellAddr, valid, err := vtableSlot(cur, pos, allocate)
	if err != nil {
		return nil, err
	}
	return cur.Child(n.Columns[pos].Index, schema.KindTable, cellAddr, valid), nil
}

// vtableSlot walks (and, if allocate, extends) the 10-byte vtable chain
// rooted at cur's own value address to find the 2-byte scalar pointer
// cell for declaration position pos.
func vtableSlot(cur *cursor.Cursor, pos int, allocate bool) (uint16, bool, error) {
	a := cur.A
	root, err := cur.AddrValue()
	if err != nil {
		return 0, false, err
	}
	if root == 0 {
		if !allocate {
			return 0, false, nil
		}
		addr, err := newVtable(a)
		if err != nil {
			return 0, false, err
		}
		if err := cur.SetAddrValue(addr); err != nil {
			return 0, false, err
		}
		root = addr
	}
	vtableIdx, slot := pos/4, pos%4
	addr := root
	for i := 0; i < vtableIdx; i++ {
		v, err := ptr.ReadVtable(a, addr)
		if err != nil {
			return 0, false, err
		}
		if v.Next == 0 {
			if !allocate {
				return 0, false, nil
			}
			next, err := newVtable(a)
			if err != nil {
				return 0, false, err
			}
			v.Next = next
			if err := ptr.WriteVtable(a, addr, v); err != nil {
				return 0, false, err
			}
		}
		addr = v.Next
	}
	return addr + uint16(slot*2), true, nil
}

func newVtable(a *arena.Arena) (uint16, error) {
	addr, err := a.Malloc(ptr.VtableCellSize)
	if err != nil {
		return 0, err
	}
	if err := ptr.WriteVtable(a, addr, ptr.Vtable{}); err != nil {
		return 0, err
	}
	return addr, nil
}

func (tableCodec) Set(cur *cursor.Cursor, value interface{}) error {
	m, ok := value.(map[string]interface{})
	if !ok {
		return errs.TypeMismatch("expected map[string]interface{} for table, got %T", value)
	}
	for name, v := range m {
		childCur, err := Column(cur, name, true)
		if err != nil {
			return err
		}
		cc, ok := codec.Dispatch(childCur.Node().Kind)
		if !ok {
			return errs.SchemaInvalid("no codec for column %q", name)
		}
		if err := cc.Set(childCur, v); err != nil {
			return err
		}
	}
	return nil
}

func (tableCodec) Get(cur *cursor.Cursor) (interface{}, bool, error) {
	present, err := codec.RawPresent(cur)
	if err != nil {
		return nil, false, err
	}
	if !present {
		return nil, false, nil
	}
	n := cur.Node()
	out := make(map[string]interface{}, len(n.Columns))
	for _, c := range n.Columns {
		childCur, err := Column(cur, c.Name, false)
		if err != nil {
			return nil, false, err
		}
		cc, ok := codec.Dispatch(cur.G.Nodes[c.Index].Kind)
		if !ok {
			return nil, false, errs.SchemaInvalid("no codec for column %q", c.Name)
		}
		v, present, err := cc.Get(childCur)
		if err != nil {
			return nil, false, err
		}
		if present {
			out[c.Name] = v
		}
	}
	return out, true, nil
}

func (tableCodec) Size(cur *cursor.Cursor) (int, error) {
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
	for _, c := range n.Columns {
		childCur, err := Column(cur, c.Name, false)
		if err != nil {
			return 0, err
		}
		if !childCur.Valid {
			continue
		}
		cc, ok := codec.Dispatch(cur.G.Nodes[c.Index].Kind)
		if !ok {
			continue
		}
		sz, err := cc.Size(childCur)
		if err != nil {
			return 0, err
		}
		total += sz - childCur.CellSize()
	}
	return total, nil
}

func (tableCodec) Compact(from, to *cursor.Cursor) error {
	present, err := codec.RawPresent(from)
	if err != nil {
		return err
	}
	if !present {
		return nil
	}
	n := from.Node()
	for _, c := range n.Columns {
		fromChild, err := Column(from, c.Name, false)
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
		cc, ok := codec.Dispatch(from.G.Nodes[c.Index].Kind)
		if !ok {
			return errs.SchemaInvalid("no codec for column %q", c.Name)
		}
		toChild, err := Column(to, c.Name, true)
		if err != nil {
			return err
		}
		if err := cc.Compact(fromChild, toChild); err != nil {
			return err
		}
	}
	return nil
}

func (tableCodec) ToJSON(cur *cursor.Cursor) (interface{}, error) {
	present, err := codec.RawPresent(cur)
	if err != nil {
		return nil, err
	}
	if !present {
		return nil, nil
	}
	n := cur.Node()
	out := make(map[string]interface{}, len(n.Columns))
	for _, c := range n.Columns {
		childCur, err := Column(cur, c.Name, false)
		if err != nil {
			return nil, err
		}
		cc, ok := codec.Dispatch(cur.G.Nodes[c.Index].Kind)
		if !ok {
			continue
		}
		v, err := cc.ToJSON(childCur)
		if err != nil {
			return nil, err
		}
		if v != nil {
			out[c.Name] = v
		}
	}
	return out, nil
}
