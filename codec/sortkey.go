// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package codec

import (
	"bytes"

	"github.com/solidcoredata/nopb/cursor"
	"github.com/solidcoredata/nopb/errs"
	"github.com/solidcoredata/nopb/schema"
)

// scalarWidth returns the fixed on-disk width of a sortable scalar kind.
// Every sortable scalar is stored with an encoding that is already
// lexicographically comparable byte-for-byte (sign-flipped integers,
// totally-ordered float bits, zero-padded fixed strings/bytes), so a sort
// key is just those raw stored bytes.
func scalarWidth(n *schema.Node) (int, bool) {
	switch n.Kind {
	case schema.KindInt8, schema.KindUint8, schema.KindBool, schema.KindEnum:
		return 1, true
	case schema.KindInt16, schema.KindUint16:
		return 2, true
	case schema.KindInt32, schema.KindUint32, schema.KindFloat:
		return 4, true
	case schema.KindInt64, schema.KindUint64, schema.KindDouble, schema.KindDate, schema.KindDecimal:
		return 8, true
	case schema.KindUuid, schema.KindUlid:
		return 16, true
	case schema.KindString, schema.KindBytes:
		if n.Size > 0 {
			return int(n.Size), true
		}
		return 0, false
	case schema.KindGeo:
		return int(n.GeoPrecision), true
	}
	return 0, false
}

// SortKey returns cur's raw comparison bytes: a fixed-width, all-zero key
// if the value is absent, or the stored bytes otherwise. Only schema
// nodes with Sortable set (the schema parser sets it by kind) support this.
func SortKey(cur *cursor.Cursor) ([]byte, error) {
	n := cur.Node()
	if !n.Sortable {
		return nil, errs.TypeMismatch("%s is not a sortable kind", n.Kind)
	}
	width, ok := scalarWidth(n)
	if !ok {
		return nil, errs.TypeMismatch("%s has no fixed sort width", n.Kind)
	}
	if !cur.Valid {
		return make([]byte, width), nil
	}
	addr, err := cur.AddrValue()
	if err != nil {
		return nil, err
	}
	if addr == 0 {
		return make([]byte, width), nil
	}
	raw, err := cur.A.ReadSlice(addr, width)
	if err != nil {
		return nil, err
	}
	out := make([]byte, width)
	copy(out, raw)
	return out, nil
}

// Compare orders two cursors of the same sortable kind by their raw
// on-disk bytes.
func Compare(a, b *cursor.Cursor) (int, error) {
	ka, err := SortKey(a)
	if err != nil {
		return 0, err
	}
	kb, err := SortKey(b)
	if err != nil {
		return 0, err
	}
	return bytes.Compare(ka, kb), nil
}
