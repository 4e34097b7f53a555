// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package schema parses a schema description into a flat, index-addressed
// array of nodes shared by every buffer produced from it. Two front ends
// (JSON and a compact byte form) produce the same node sequence; see
// json.go and bytes.go.
package schema

import "github.com/shopspring/decimal"

// Kind tags a Node with which variant it is. The numeric value doubles as
// the on-disk type_key byte.
type Kind byte

const (
	KindInt8 Kind = iota + 1
	KindInt16
	KindInt32
	KindInt64
	KindUint8
	KindUint16
	KindUint32
	KindUint64
	KindFloat
	KindDouble
	KindDecimal
	KindBool
	KindString
	KindBytes
	KindGeo
	KindUuid
	KindUlid
	KindDate
	KindEnum
	KindTable
	KindList
	KindMap
	KindTuple
)

// IsScalar reports whether k is a leaf (non-collection) kind.
func (k Kind) IsScalar() bool {
	return k < KindTable
}

func (k Kind) String() string {
	switch k {
	case KindInt8:
		return "int8"
	case KindInt16:
		return "int16"
	case KindInt32:
		return "int32"
	case KindInt64:
		return "int64"
	case KindUint8:
		return "uint8"
	case KindUint16:
		return "uint16"
	case KindUint32:
		return "uint32"
	case KindUint64:
		return "uint64"
	case KindFloat:
		return "float"
	case KindDouble:
		return "double"
	case KindDecimal:
		return "decimal"
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	case KindBytes:
		return "bytes"
	case KindGeo:
		return "geo"
	case KindUuid:
		return "uuid"
	case KindUlid:
		return "ulid"
	case KindDate:
		return "date"
	case KindEnum:
		return "enum"
	case KindTable:
		return "table"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	case KindTuple:
		return "tuple"
	}
	return "unknown"
}

// GeoPoint is the decoded value of a Geo scalar.
type GeoPoint struct {
	Lat float64
	Lon float64
}

// Column is one named slot of a Table, in declared order.
type Column struct {
	Name  string
	Index int // index into Graph.Nodes of the column's schema
}

// Node is one parsed schema node. Only the fields relevant to Kind are
// populated; the rest are zero.
type Node struct {
	Kind     Kind
	TypeKey  byte
	Sortable bool

	// Fixed-size scalars (string/bytes): 0 means variable length.
	Size uint32

	// Decimal exponent.
	Exp int8

	// Geo precision in total bytes (4, 8, or 16).
	GeoPrecision uint8

	// Enum choices, in declared order; the stored byte is an index here.
	Choices []string

	// Default holds the schema-level default, or nil if the type has none.
	// Concrete type depends on Kind:
	//   bool -> bool, string -> string, bytes -> []byte,
	//   signed ints -> int64, unsigned ints -> uint64,
	//   float/double -> float64, decimal -> decimal.Decimal,
	//   geo -> GeoPoint, date -> uint64 (ms since epoch), enum -> string.
	Default interface{}

	// Table.
	Columns []Column

	// List.
	Of int

	// Map.
	Value int

	// Tuple.
	Values []int
	Sorted bool
}

// Graph is the flat, parsed schema shared by every buffer built from it.
// It is immutable after Validate succeeds and may be shared across buffers
// and goroutines (read-only).
type Graph struct {
	Nodes []Node
}

// Root returns the schema node for path index 0.
func (g *Graph) Root() *Node {
	return &g.Nodes[0]
}

// decimalZero is a zero decimal value; no code in the module refers to it.
var decimalZero = decimal.New(0, 0)
