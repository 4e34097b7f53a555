// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

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
	codec.Register(schema.KindList, listCodec{})
}

type listCodec struct{}

// MaxListLen is the largest index a list item's 1-byte Index field can
// hold, plus one.
const MaxListLen = 256

// header returns the list's (head, tail) record, allocating it (and
// linking it via cur's own value address) when allocate is true and none
// exists yet.
func header(cur *cursor.Cursor, allocate bool) (ptr.ListHeader, bool, error) {
	addr, err := cur.AddrValue()
	if err != nil {
		return ptr.ListHeader{}, false, err
	}
	if addr == 0 {
		if !allocate {
			return ptr.ListHeader{}, false, nil
		}
		newAddr, err := cur.A.Malloc(ptr.ListHeaderSize)
		if err != nil {
			return ptr.ListHeader{}, false, err
		}
		if err := ptr.WriteListHeader(cur.A, newAddr, ptr.ListHeader{}); err != nil {
			return ptr.ListHeader{}, false, err
		}
		if err := cur.SetAddrValue(newAddr); err != nil {
			return ptr.ListHeader{}, false, err
		}
		return ptr.ListHeader{}, true, nil
	}
	h, err := ptr.ReadListHeader(cur.A, addr)
	if err != nil {
		return ptr.ListHeader{}, false, err
	}
	return h, true, nil
}

func headerAddr(cur *cursor.Cursor) (uint16, error) {
	return cur.AddrValue()
}

// Len reports the number of items currently in the list.
func Len(cur *cursor.Cursor) (int, error) {
	h, present, err := header(cur, false)
	if err != nil || !present {
		return 0, err
	}
	count := 0
	addr := h.Head
	for addr != 0 {
		count++
		item, err := ptr.ReadListItemPtr(cur.A, addr)
		if err != nil {
			return 0, err
		}
		addr = item.Next
	}
	return count, nil
}

// locate walks the chain looking for index. If found, cellAddr is its
// cell. If not found, prevAddr/nextAddr bracket the sorted position
// index belongs at (either may be 0 at the ends of the chain), so a
// caller can splice a new cell in without a second walk.
func locate(cur *cursor.Cursor, index int) (cellAddr, prevAddr, nextAddr uint16, found bool, err error) {
	h, present, err := header(cur, false)
	if err != nil || !present {
		return 0, 0, 0, false, err
	}
	addr := h.Head
	prev := uint16(0)
	for addr != 0 {
		item, err := ptr.ReadListItemPtr(cur.A, addr)
		if err != nil {
			return 0, 0, 0, false, err
		}
		if int(item.Index) == index {
			return addr, prev, item.Next, true, nil
		}
		if int(item.Index) > index {
			return 0, prev, addr, false, nil
		}
		prev = addr
		addr = item.Next
	}
	return 0, prev, 0, false, nil
}

// walk visits every item currently in the list, in ascending index
// order, passing each item's real (possibly sparse) index.
func walk(cur *cursor.Cursor, fn func(index int, child *cursor.Cursor) error) error {
	n := cur.Node()
	h, present, err := header(cur, false)
	if err != nil || !present {
		return err
	}
	addr := h.Head
	for addr != 0 {
		item, err := ptr.ReadListItemPtr(cur.A, addr)
		if err != nil {
			return err
		}
		if err := fn(int(item.Index), cur.Child(n.Of, schema.KindList, addr, true)); err != nil {
			return err
		}
		addr = item.Next
	}
	return nil
}

// ListItem resolves index to a child cursor. When allocate is false
// (reads) an index with no matching item comes back as a virtual
// cursor. When true (writes) a missing index gets a new cell spliced
// into the chain in sorted position; an existing index is reused.
// Sparse indices are permitted.
func ListItem(cur *cursor.Cursor, index int, allocate bool) (*cursor.Cursor, error) {
	n := cur.Node()
	if index < 0 {
		return nil, errs.PathInvalid("list index %d is negative", index)
	}
	cellAddr, prevAddr, nextAddr, found, err := locate(cur, index)
	if err != nil {
		return nil, err
	}
	if found {
		return cur.Child(n.Of, schema.KindList, cellAddr, true), nil
	}
	if !allocate {
		return cur.Child(n.Of, schema.KindList, 0, false), nil
	}
	if index >= MaxListLen {
		return nil, errs.ErrListFull
	}
	h, _, err := header(cur, true)
	if err != nil {
		return nil, err
	}
	cellAddr, err = cur.A.Malloc(ptr.ListItemCellSize)
	if err != nil {
		return nil, err
	}
	if err := ptr.WriteListItemPtr(cur.A, cellAddr, ptr.ListItemPtr{Index: uint8(index), Next: nextAddr}); err != nil {
		return nil, err
	}
	if prevAddr == 0 {
		h.Head = cellAddr
	} else {
		prev, err := ptr.ReadListItemPtr(cur.A, prevAddr)
		if err != nil {
			return nil, err
		}
		prev.Next = cellAddr
		if err := ptr.WriteListItemPtr(cur.A, prevAddr, prev); err != nil {
			return nil, err
		}
	}
	if nextAddr == 0 {
		h.Tail = cellAddr
	}
	headAddr, err := headerAddr(cur)
	if err != nil {
		return nil, err
	}
	if err := ptr.WriteListHeader(cur.A, headAddr, h); err != nil {
		return nil, err
	}
	return cur.Child(n.Of, schema.KindList, cellAddr, true), nil
}

// Push appends value after the current tail item, at tail_index+1 (or
// 0 if the list is empty).
func Push(cur *cursor.Cursor, value interface{}) error {
	n := cur.Node()
	h, _, err := header(cur, false)
	if err != nil {
		return err
	}
	nextIndex := 0
	if h.Tail != 0 {
		tail, err := ptr.ReadListItemPtr(cur.A, h.Tail)
		if err != nil {
			return err
		}
		nextIndex = int(tail.Index) + 1
	}
	if nextIndex >= MaxListLen {
		return errs.ErrListFull
	}
	// A push can run out of space after its item cell is linked but before
	// its value is written; restoring this copy leaves the buffer as it was.
	snapshot, err := arena.Load(cur.A.Bytes())
	if err != nil {
		return err
	}
	child, err := ListItem(cur, nextIndex, true)
	if err != nil {
		*cur.A = *snapshot
		return err
	}
	cc, ok := codec.Dispatch(cur.G.Nodes[n.Of].Kind)
	if !ok {
		return errs.SchemaInvalid("no codec for list element")
	}
	if err := cc.Set(child, value); err != nil {
		*cur.A = *snapshot
		return err
	}
	return nil
}

// Del removes index and orphans its value and cell. Sparse indices are
// permitted, so later items keep their Index unchanged.
func Del(cur *cursor.Cursor, index int) error {
	n := cur.Node()
	cellAddr, prevAddr, _, found, err := locate(cur, index)
	if err != nil {
		return err
	}
	if !found {
		return errs.PathInvalid("list index %d does not exist", index)
	}
	item, err := ptr.ReadListItemPtr(cur.A, cellAddr)
	if err != nil {
		return err
	}
	if item.Addr != 0 {
		child := cur.Child(n.Of, schema.KindList, cellAddr, true)
		cc, ok := codec.Dispatch(cur.G.Nodes[n.Of].Kind)
		if ok {
			sz, err := cc.Size(child)
			if err == nil {
				cur.A.OrphanAlloc(sz - child.CellSize())
			}
		}
	}
	h, _, err := header(cur, false)
	if err != nil {
		return err
	}
	if prevAddr == 0 {
		h.Head = item.Next
	} else {
		prev, err := ptr.ReadListItemPtr(cur.A, prevAddr)
		if err != nil {
			return err
		}
		prev.Next = item.Next
		if err := ptr.WriteListItemPtr(cur.A, prevAddr, prev); err != nil {
			return err
		}
	}
	if h.Tail == cellAddr {
		h.Tail = prevAddr
	}
	headAddr, err := headerAddr(cur)
	if err != nil {
		return err
	}
	if err := ptr.WriteListHeader(cur.A, headAddr, h); err != nil {
		return err
	}
	cur.A.OrphanAlloc(ptr.ListItemCellSize)
	return nil
}

func (listCodec) Set(cur *cursor.Cursor, value interface{}) error {
	items, ok := value.([]interface{})
	if !ok {
		return errs.TypeMismatch("expected []interface{} for list, got %T", value)
	}
	for _, v := range items {
		if err := Push(cur, v); err != nil {
			return err
		}
	}
	return nil
}

func (listCodec) Get(cur *cursor.Cursor) (interface{}, bool, error) {
	present, err := codec.RawPresent(cur)
	if err != nil || !present {
		return nil, false, err
	}
	n := cur.Node()
	cc, ok := codec.Dispatch(cur.G.Nodes[n.Of].Kind)
	if !ok {
		return nil, false, errs.SchemaInvalid("no codec for list element")
	}
	out := []interface{}{}
	err = walk(cur, func(index int, child *cursor.Cursor) error {
		for len(out) <= index {
			out = append(out, nil)
		}
		v, present, err := cc.Get(child)
		if err != nil {
			return err
		}
		if present {
			out[index] = v
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return out, true, nil
}

func (listCodec) Size(cur *cursor.Cursor) (int, error) {
	if !cur.Valid {
		return 0, nil
	}
	total := cur.CellSize()
	addr, err := cur.AddrValue()
	if err != nil {
		return 0, err
	}
	if addr == 0 {
		return total, nil
	}
	total += ptr.ListHeaderSize
	n := cur.Node()
	cc, ok := codec.Dispatch(cur.G.Nodes[n.Of].Kind)
	if !ok {
		return 0, errs.SchemaInvalid("no codec for list element")
	}
	err = walk(cur, func(index int, child *cursor.Cursor) error {
		sz, err := cc.Size(child)
		if err != nil {
			return err
		}
		total += sz + ptr.ListItemCellSize - child.CellSize()
		return nil
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}

func (listCodec) Compact(from, to *cursor.Cursor) error {
	present, err := codec.RawPresent(from)
	if err != nil || !present {
		return err
	}
	n := from.Node()
	cc, ok := codec.Dispatch(from.G.Nodes[n.Of].Kind)
	if !ok {
		return errs.SchemaInvalid("no codec for list element")
	}
	return walk(from, func(index int, fromChild *cursor.Cursor) error {
		toChild, err := ListItem(to, index, true)
		if err != nil {
			return err
		}
		return cc.Compact(fromChild, toChild)
	})
}

func (listCodec) ToJSON(cur *cursor.Cursor) (interface{}, error) {
	present, err := codec.RawPresent(cur)
	if err != nil || !present {
		return nil, err
	}
	n := cur.Node()
	cc, ok := codec.Dispatch(cur.G.Nodes[n.Of].Kind)
	if !ok {
		return nil, errs.SchemaInvalid("no codec for list element")
	}
	out := []interface{}{}
	err = walk(cur, func(index int, child *cursor.Cursor) error {
		for len(out) <= index {
			out = append(out, nil)
		}
		v, err := cc.ToJSON(child)
		if err != nil {
			return err
		}
		out[index] = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
