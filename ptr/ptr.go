// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package ptr defines the fixed-layout pointer cells a nopb buffer uses to
// link values together, and the 10-byte vtable cell tables and tuples
// chain through. Every offset is a 16-bit big-endian integer.
package ptr

import (
	"github.com/solidcoredata/nopb/arena"
	"github.com/solidcoredata/nopb/schema"
)

// Cell sizes, per spec.md §3.1.
const (
	ScalarCellSize   = 2
	ListItemCellSize = 5
	MapItemCellSize  = 8
	VtableCellSize   = 10
	ListHeaderSize   = 4
)

// CellSize returns the pointer cell shape a child of parentKind uses, per
// the table in spec.md §4.3: Root/Table/Tuple parents use a scalar
// pointer, List parents use a list-item pointer, Map parents use a
// map-item pointer.
func CellSize(parentKind schema.Kind) int {
	switch parentKind {
	case schema.KindList:
		return ListItemCellSize
	case schema.KindMap:
		return MapItemCellSize
	default:
		return ScalarCellSize
	}
}

// ScalarPtr is the 2-byte pointer cell used by Root, Table, and Tuple
// parents.
type ScalarPtr struct {
	Addr uint16
}

func ReadScalarPtr(a *arena.Arena, at uint16) (ScalarPtr, error) {
	addr, err := a.ReadU16(at)
	if err != nil {
		return ScalarPtr{}, err
	}
	return ScalarPtr{Addr: addr}, nil
}

func WriteScalarPtr(a *arena.Arena, at uint16, p ScalarPtr) error {
	return a.WriteAddress(at, p.Addr)
}

// ListItemPtr is the 5-byte pointer cell used by list member cells.
type ListItemPtr struct {
	Addr  uint16
	Next  uint16
	Index uint8
}

func ReadListItemPtr(a *arena.Arena, at uint16) (ListItemPtr, error) {
	b, err := a.ReadSlice(at, ListItemCellSize)
	if err != nil {
		return ListItemPtr{}, err
	}
	return ListItemPtr{
		Addr:  beU16(b[0:2]),
		Next:  beU16(b[2:4]),
		Index: b[4],
	}, nil
}

func WriteListItemPtr(a *arena.Arena, at uint16, p ListItemPtr) error {
	var b [ListItemCellSize]byte
	putBeU16(b[0:2], p.Addr)
	putBeU16(b[2:4], p.Next)
	b[4] = p.Index
	return a.WriteBytes(at, b[:])
}

// MapItemPtr is the 8-byte pointer cell used by map member cells.
type MapItemPtr struct {
	Addr    uint16
	Next    uint16
	KeyHash uint32
}

func ReadMapItemPtr(a *arena.Arena, at uint16) (MapItemPtr, error) {
	b, err := a.ReadSlice(at, MapItemCellSize)
	if err != nil {
		return MapItemPtr{}, err
	}
	return MapItemPtr{
		Addr:    beU16(b[0:2]),
		Next:    beU16(b[2:4]),
		KeyHash: beU32(b[4:8]),
	}, nil
}

func WriteMapItemPtr(a *arena.Arena, at uint16, p MapItemPtr) error {
	var b [MapItemCellSize]byte
	putBeU16(b[0:2], p.Addr)
	putBeU16(b[2:4], p.Next)
	putBeU32(b[4:8], p.KeyHash)
	return a.WriteBytes(at, b[:])
}

// Vtable is the 10-byte cell tables and tuples use to hold up to four
// scalar pointers plus a chain link to the next vtable.
type Vtable struct {
	Slots [4]uint16
	Next  uint16
}

func ReadVtable(a *arena.Arena, at uint16) (Vtable, error) {
	b, err := a.ReadSlice(at, VtableCellSize)
	if err != nil {
		return Vtable{}, err
	}
	var v Vtable
	for i := 0; i < 4; i++ {
		v.Slots[i] = beU16(b[i*2 : i*2+2])
	}
	v.Next = beU16(b[8:10])
	return v, nil
}

func WriteVtable(a *arena.Arena, at uint16, v Vtable) error {
	var b [VtableCellSize]byte
	for i := 0; i < 4; i++ {
		putBeU16(b[i*2:i*2+2], v.Slots[i])
	}
	putBeU16(b[8:10], v.Next)
	return a.WriteBytes(at, b[:])
}

// ListHeader is the 4-byte (head, tail) header of a List or Map collection.
type ListHeader struct {
	Head uint16
	Tail uint16
}

func ReadListHeader(a *arena.Arena, at uint16) (ListHeader, error) {
	b, err := a.ReadSlice(at, ListHeaderSize)
	if err != nil {
		return ListHeader{}, err
	}
	return ListHeader{Head: beU16(b[0:2]), Tail: beU16(b[2:4])}, nil
}

func WriteListHeader(a *arena.Arena, at uint16, h ListHeader) error {
	var b [ListHeaderSize]byte
	putBeU16(b[0:2], h.Head)
	putBeU16(b[2:4], h.Tail)
	return a.WriteBytes(at, b[:])
}

func beU16(b []byte) uint16 {
	return uint16(b[0])<<8 | uint16(b[1])
}

func beU32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

func putBeU16(b []byte, v uint16) {
	b[0] = byte(v >> 8)
	b[1] = byte(v)
}

func putBeU32(b []byte, v uint32) {
	b[0] = byte(v >> 24)
	b[1] = byte(v >> 16)
	b[2] = byte(v >> 8)
	b[3] = byte(v)
}
