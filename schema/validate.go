// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package schema

import "github.com/solidcoredata/nopb/errs"

// Validate runs the structural checks required of every parsed graph:
// unique table column names, unique non-empty enum choices and a Geo
// precision in {4,8,16}. A Decimal exponent needs no check here: Exp is
// an int8, so it always fits in a signed 8-bit integer.
func Validate(g *Graph) error {
	for i := range g.Nodes {
		n := &g.Nodes[i]
		switch n.Kind {
		case KindTable:
			seen := make(map[string]bool, len(n.Columns))
			for _, c := range n.Columns {
				if seen[c.Name] {
					return errs.SchemaInvalid("table node %d: duplicate column name %q", i, c.Name)
				}
				seen[c.Name] = true
				if c.Index < 0 || c.Index >= len(g.Nodes) {
					return errs.SchemaInvalid("table node %d: column %q references out-of-range node %d", i, c.Name, c.Index)
				}
			}
		case KindEnum:
			if len(n.Choices) == 0 {
				return errs.SchemaInvalid("enum node %d: no choices", i)
			}
			seen := make(map[string]bool, len(n.Choices))
			for _, c := range n.Choices {
				if c == "" {
					return errs.SchemaInvalid("enum node %d: empty choice name", i)
				}
				if seen[c] {
					return errs.SchemaInvalid("enum node %d: duplicate choice %q", i, c)
				}
				seen[c] = true
			}
		case KindGeo:
			if n.GeoPrecision != 4 && n.GeoPrecision != 8 && n.GeoPrecision != 16 {
				return errs.SchemaInvalid("geo node %d: precision must be 4, 8, or 16, got %d", i, n.GeoPrecision)
			}
		case KindList:
			if n.Of < 0 || n.Of >= len(g.Nodes) {
				return errs.SchemaInvalid("list node %d: references out-of-range node %d", i, n.Of)
			}
		case KindMap:
			if n.Value < 0 || n.Value >= len(g.Nodes) {
				return errs.SchemaInvalid("map node %d: references out-of-range node %d", i, n.Value)
			}
		case KindTuple:
			for _, v := range n.Values {
				if v < 0 || v >= len(g.Nodes) {
					return errs.SchemaInvalid("tuple node %d: references out-of-range node %d", i, v)
				}
			}
		}
	}
	return nil
}

// sortableFor computes the Sortable flag for a freshly built node, per
// spec: true iff lexicographic compare of the encoded form matches the
// type's natural value order. Variable-length string/bytes are not
// sortable because their length prefix precedes the payload; fixed-size
// ones are, since the padded/truncated payload alone determines order.
func sortableFor(n *Node) bool {
	switch n.Kind {
	case KindInt8, KindInt16, KindInt32, KindInt64,
		KindUint8, KindUint16, KindUint32, KindUint64,
		KindFloat, KindDouble, KindDecimal,
		KindBool, KindUuid, KindUlid, KindDate, KindEnum, KindGeo:
		return true
	case KindString, KindBytes:
		return n.Size > 0
	case KindTuple:
		return n.Sorted
	default:
		return false
	}
}
