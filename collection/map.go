// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package collection

import (
	"hash/fnv"

	"github.com/solidcoredata/nopb/codec"
	"github.com/solidcoredata/nopb/cursor"
	"github.com/solidcoredata/nopb/errs"
	"github.com/solidcoredata/nopb/ptr"
	"github.com/solidcoredata/nopb/schema"
)

func init() {
	codec.Register(schema.KindMap, mapCodec{})
}

type mapCodec struct{}

// keyHash is the normative FNV-1a-32 hash used to pre-filter map-item
// candidates before the byte-exact key comparison.
func keyHash(key string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(key))
	return h.Sum32()
}

// A map's own value address points at a 4-byte (head, tail) chain header,
// exactly like a list's. Each link in the chain is an 8-byte MapItemPtr
// whose Addr field points not at the value directly but at a key record:
//
//	key_len[2] || key_bytes || value_pointer_cell[2]
//
// The trailing 2 bytes are an ordinary scalar pointer cell, so once
// resolved a map value is addressed exactly like a table column.
func mapHeader(cur *cursor.Cursor, allocate bool) (ptr.ListHeader, bool, error) {
	return header(cur, allocate)
}

func readKeyRecord(cur *cursor.Cursor, keyRecordAddr uint16) (string, uint16, error) {
	klen, err := cur.A.ReadU16(keyRecordAddr)
	if err != nil {
		return "", 0, err
	}
	kb, err := cur.A.ReadSlice(keyRecordAddr+2, int(klen))
	if err != nil {
		return "", 0, err
	}
	valueCellAddr := keyRecordAddr + 2 + klen
	return string(kb), valueCellAddr, nil
}

// findMapItem walks the chain looking for key, returning the map-item
// cell address, the previous item's cell address (0 if it's the head),
// and whether it was found.
func findMapItem(cur *cursor.Cursor, key string) (cellAddr, prevAddr uint16, found bool, err error) {
	h, present, err := mapHeader(cur, false)
	if err != nil || !present {
		return 0, 0, false, err
	}
	hash := keyHash(key)
	addr := h.Head
	prev := uint16(0)
	for addr != 0 {
		item, err := ptr.ReadMapItemPtr(cur.A, addr)
		if err != nil {
			return 0, 0, false, err
		}
		if item.KeyHash == hash {
			k, _, err := readKeyRecord(cur, item.Addr)
			if err != nil {
				return 0, 0, false, err
			}
			if k == key {
				return addr, prev, true, nil
			}
		}
		prev = addr
		addr = item.Next
	}
	return 0, 0, false, nil
}

// MapItem resolves key to the value's child cursor, allocating the key
// record and map-item chain link when allocate is true and the key isn't
// already present. The child's parent kind is the zero Kind rather than
// KindMap: its cell is the nested 2-byte value-pointer scalar cell inside
// the key record, not the 8-byte MapItemPtr itself.
func MapItem(cur *cursor.Cursor, key string, allocate bool) (*cursor.Cursor, error) {
	n := cur.Node()
	cellAddr, _, found, err := findMapItem(cur, key)
	if err != nil {
		return nil, err
	}
	if found {
		item, err := ptr.ReadMapItemPtr(cur.A, cellAddr)
		if err != nil {
			return nil, err
		}
		_, valueCellAddr, err := readKeyRecord(cur, item.Addr)
		if err != nil {
			return nil, err
		}
		return cur.Child(n.Value, 0, valueCellAddr, true), nil
	}
	if !allocate {
		return cur.Child(n.Value, 0, 0, false), nil
	}

	keyRecordAddr, err := cur.A.Malloc(2 + len(key) + ptr.ScalarCellSize)
	if err != nil {
		return nil, err
	}
	if err := cur.A.WriteAddress(keyRecordAddr, uint16(len(key))); err != nil {
		return nil, err
	}
	if err := cur.A.WriteBytes(keyRecordAddr+2, []byte(key)); err != nil {
		return nil, err
	}
	valueCellAddr := keyRecordAddr + 2 + uint16(len(key))
	if err := cur.A.WriteAddress(valueCellAddr, 0); err != nil {
		return nil, err
	}

	itemAddr, err := cur.A.Malloc(ptr.MapItemCellSize)
	if err != nil {
		return nil, err
	}
	if err := ptr.WriteMapItemPtr(cur.A, itemAddr, ptr.MapItemPtr{Addr: keyRecordAddr, KeyHash: keyHash(key)}); err != nil {
		return nil, err
	}

	h, _, err := mapHeader(cur, true)
	if err != nil {
		return nil, err
	}
	if h.Head == 0 {
		h.Head = itemAddr
	} else {
		tail, err := ptr.ReadMapItemPtr(cur.A, h.Tail)
		if err != nil {
			return nil, err
		}
		tail.Next = itemAddr
		if err := ptr.WriteMapItemPtr(cur.A, h.Tail, tail); err != nil {
			return nil, err
		}
	}
	h.Tail = itemAddr
	headAddr, err := headerAddr(cur)
	if err != nil {
		return nil, err
	}
	if err := ptr.WriteListHeader(cur.A, headAddr, h); err != nil {
		return nil, err
	}
	return cur.Child(n.Value, 0, valueCellAddr, true), nil
}

// Keys returns the map's keys in insertion order.
func Keys(cur *cursor.Cursor) ([]string, error) {
	h, present, err := mapHeader(cur, false)
	if err != nil || !present {
		return nil, err
	}
	var out []string
	addr := h.Head
	for addr != 0 {
		item, err := ptr.ReadMapItemPtr(cur.A, addr)
		if err != nil {
			return nil, err
		}
		k, _, err := readKeyRecord(cur, item.Addr)
		if err != nil {
			return nil, err
		}
		out = append(out, k)
		addr = item.Next
	}
	return out, nil
}

// DelKey removes key, orphaning its value, key record, and chain cell.
func DelKey(cur *cursor.Cursor, key string) error {
	n := cur.Node()
	cellAddr, prevAddr, found, err := findMapItem(cur, key)
	if err != nil {
		return err
	}
	if !found {
		return errs.PathInvalid("map has no key %q", key)
	}
	item, err := ptr.ReadMapItemPtr(cur.A, cellAddr)
	if err != nil {
		return err
	}
	_, valueCellAddr, err := readKeyRecord(cur, item.Addr)
	if err != nil {
		return err
	}
	child := cur.Child(n.Value, 0, valueCellAddr, true)
	if cc, ok := codec.Dispatch(cur.G.Nodes[n.Value].Kind); ok {
		if addr, err := child.AddrValue(); err == nil && addr != 0 {
			if sz, err := cc.Size(child); err == nil {
				cur.A.OrphanAlloc(sz - child.CellSize())
			}
		}
	}
	keyLen := uint16(valueCellAddr - item.Addr - 2)
	cur.A.OrphanAlloc(2 + int(keyLen) + ptr.ScalarCellSize)
	cur.A.OrphanAlloc(ptr.MapItemCellSize)

	h, _, err := mapHeader(cur, false)
	if err != nil {
		return err
	}
	if prevAddr == 0 {
		h.Head = item.Next
	} else {
		prev, err := ptr.ReadMapItemPtr(cur.A, prevAddr)
		if err != nil {
			return err
		}
		prev.Next = item.Next
		if err := ptr.WriteMapItemPtr(cur.A, prevAddr, prev); err != nil {
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
	return ptr.WriteListHeader(cur.A, headAddr, h)
}

func (mapCodec) Set(cur *cursor.Cursor, value interface{}) error {
	m, ok := value.(map[string]interface{})
	if !ok {
		return errs.TypeMismatch("expected map[string]interface{} for map, got %T", value)
	}
	n := cur.Node()
	cc, ok := codec.Dispatch(cur.G.Nodes[n.Value].Kind)
	if !ok {
		return errs.SchemaInvalid("no codec for map value")
	}
	for k, v := range m {
		child, err := MapItem(cur, k, true)
		if err != nil {
			return err
		}
		if err := cc.Set(child, v); err != nil {
			return err
		}
	}
	return nil
}

func (mapCodec) Get(cur *cursor.Cursor) (interface{}, bool, error) {
	present, err := codec.RawPresent(cur)
	if err != nil || !present {
		return nil, false, err
	}
	n := cur.Node()
	cc, ok := codec.Dispatch(cur.G.Nodes[n.Value].Kind)
	if !ok {
		return nil, false, errs.SchemaInvalid("no codec for map value")
	}
	keys, err := Keys(cur)
	if err != nil {
		return nil, false, err
	}
	out := make(map[string]interface{}, len(keys))
	for _, k := range keys {
		child, err := MapItem(cur, k, false)
		if err != nil {
			return nil, false, err
		}
		v, present, err := cc.Get(child)
		if err != nil {
			return nil, false, err
		}
		if present {
			out[k] = v
		}
	}
	return out, true, nil
}

func (mapCodec) Size(cur *cursor.Cursor) (int, error) {
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
	cc, ok := codec.Dispatch(cur.G.Nodes[n.Value].Kind)
	if !ok {
		return 0, errs.SchemaInvalid("no codec for map value")
	}
	keys, err := Keys(cur)
	if err != nil {
		return 0, err
	}
	for _, k := range keys {
		child, err := MapItem(cur, k, false)
		if err != nil {
			return 0, err
		}
		sz, err := cc.Size(child)
		if err != nil {
			return 0, err
		}
		total += sz - child.CellSize() + ptr.MapItemCellSize + 2 + len(k) + ptr.ScalarCellSize
	}
	return total, nil
}

func (mapCodec) Compact(from, to *cursor.Cursor) error {
	present, err := codec.RawPresent(from)
	if err != nil || !present {
		return err
	}
	n := from.Node()
	cc, ok := codec.Dispatch(from.G.Nodes[n.Value].Kind)
	if !ok {
		return errs.SchemaInvalid("no codec for map value")
	}
	keys, err := Keys(from)
	if err != nil {
		return err
	}
	for _, k := range keys {
		fromChild, err := MapItem(from, k, false)
		if err != nil {
			return err
		}
		toChild, err := MapItem(to, k, true)
		if err != nil {
			return err
		}
		if err := cc.Compact(fromChild, toChild); err != nil {
			return err
		}
	}
	return nil
}

func (mapCodec) ToJSON(cur *cursor.Cursor) (interface{}, error) {
	present, err := codec.RawPresent(cur)
	if err != nil || !present {
		return nil, err
	}
	n := cur.Node()
	cc, ok := codec.Dispatch(cur.G.Nodes[n.Value].Kind)
	if !ok {
		return nil, errs.SchemaInvalid("no codec for map value")
	}
	keys, err := Keys(cur)
	if err != nil {
		return nil, err
	}
	out := make(map[string]interface{}, len(keys))
	for _, k := range keys {
		child, err := MapItem(cur, k, false)
		if err != nil {
			return nil, err
		}
		v, err := cc.ToJSON(child)
		if err != nil {
			return nil, err
		}
		if v != nil {
			out[k] = v
		}
	}
	return out, nil
}
