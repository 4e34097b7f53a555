// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package schema

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/shopspring/decimal"

	"github.com/solidcoredata/nopb/errs"
)

// ToBytes serializes a graph into its compact depth-first byte form: each
// node is prefixed by its 1-byte type key followed by type-specific
// fields. Node indices are implied by traversal order (pre-order, parent
// before children, left sibling subtree before right) so no index table is
// needed on the wire.
func ToBytes(g *Graph) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeNode(&buf, g, 0); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// FromBytes is the symmetric inverse of ToBytes.
func FromBytes(b []byte) (*Graph, error) {
	r := &byteReader{buf: b}
	g := &Graph{Nodes: make([]Node, 1)}
	if err := readInto(r, g, 0); err != nil {
		return nil, err
	}
	if err := Validate(g); err != nil {
		return nil, err
	}
	return g, nil
}

func writeNode(buf *bytes.Buffer, g *Graph, idx int) error {
	n := &g.Nodes[idx]
	buf.WriteByte(n.TypeKey)

	switch n.Kind {
	case KindInt8, KindInt16, KindInt32, KindInt64:
		v, ok := n.Default.(int64)
		writePresence(buf, ok)
		if ok {
			writeU64(buf, uint64(v))
		}
	case KindUint8, KindUint16, KindUint32, KindUint64:
		v, ok := n.Default.(uint64)
		writePresence(buf, ok)
		if ok {
			writeU64(buf, v)
		}
	case KindFloat, KindDouble:
		v, ok := n.Default.(float64)
		writePresence(buf, ok)
		if ok {
			writeU64(buf, math.Float64bits(v))
		}
	case KindBool:
		v, ok := n.Default.(bool)
		writePresence(buf, ok)
		if ok {
			if v {
				buf.WriteByte(1)
			} else {
				buf.WriteByte(0)
			}
		}
	case KindString:
		writeU32(buf, n.Size)
		v, ok := n.Default.(string)
		writePresence(buf, ok)
		if ok {
			writeLenBytes(buf, []byte(v))
		}
	case KindBytes:
		writeU32(buf, n.Size)
		v, ok := n.Default.([]byte)
		writePresence(buf, ok)
		if ok {
			writeLenBytes(buf, v)
		}
	case KindGeo:
		buf.WriteByte(n.GeoPrecision)
		v, ok := n.Default.(GeoPoint)
		writePresence(buf, ok)
		if ok {
			writeU64(buf, math.Float64bits(v.Lat))
			writeU64(buf, math.Float64bits(v.Lon))
		}
	case KindUuid, KindUlid:
		// No extra fields.
	case KindDate:
		v, ok := n.Default.(uint64)
		writePresence(buf, ok)
		if ok {
			writeU64(buf, v)
		}
	case KindEnum:
		writeU16(buf, uint16(len(n.Choices)))
		for _, c := range n.Choices {
			writeLenBytes(buf, []byte(c))
		}
		v, ok := n.Default.(string)
		writePresence(buf, ok)
		if ok {
			writeLenBytes(buf, []byte(v))
		}
	case KindDecimal:
		buf.WriteByte(byte(n.Exp))
		v, ok := n.Default.(decimal.Decimal)
		writePresence(buf, ok)
		if ok {
			writeLenBytes(buf, []byte(v.String()))
		}
	case KindTable:
		writeU16(buf, uint16(len(n.Columns)))
		for _, c := range n.Columns {
			writeLenBytes(buf, []byte(c.Name))
			if err := writeNode(buf, g, c.Index); err != nil {
				return err
			}
		}
	case KindList:
		if err := writeNode(buf, g, n.Of); err != nil {
			return err
		}
	case KindMap:
		if err := writeNode(buf, g, n.Value); err != nil {
			return err
		}
	case KindTuple:
		if n.Sorted {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}
		writeU16(buf, uint16(len(n.Values)))
		for _, v := range n.Values {
			if err := writeNode(buf, g, v); err != nil {
				return err
			}
		}
	default:
		return errs.SchemaInvalid("node %d: unknown kind %d", idx, n.Kind)
	}
	return nil
}

func readNode(r *byteReader, g *Graph) (int, error) {
	idx := len(g.Nodes)
	g.Nodes = append(g.Nodes, Node{})
	if err := readInto(r, g, idx); err != nil {
		return 0, err
	}
	return idx, nil
}

func readInto(r *byteReader, g *Graph, idx int) error {
	typeKey, err := r.u8()
	if err != nil {
		return err
	}
	kind := Kind(typeKey)
	n := Node{Kind: kind, TypeKey: typeKey}

	switch kind {
	case KindInt8, KindInt16, KindInt32, KindInt64:
		present, err := r.presence()
		if err != nil {
			return err
		}
		if present {
			v, err := r.u64()
			if err != nil {
				return err
			}
			n.Default = int64(v)
		}
	case KindUint8, KindUint16, KindUint32, KindUint64:
		present, err := r.presence()
		if err != nil {
			return err
		}
		if present {
			v, err := r.u64()
			if err != nil {
				return err
			}
			n.Default = v
		}
	case KindFloat, KindDouble:
		present, err := r.presence()
		if err != nil {
			return err
		}
		if present {
			v, err := r.u64()
			if err != nil {
				return err
			}
			n.Default = math.Float64frombits(v)
		}
	case KindBool:
		present, err := r.presence()
		if err != nil {
			return err
		}
		if present {
			v, err := r.u8()
			if err != nil {
				return err
			}
			n.Default = v != 0
		}
	case KindString:
		sz, err := r.u32()
		if err != nil {
			return err
		}
		n.Size = sz
		present, err := r.presence()
		if err != nil {
			return err
		}
		if present {
			b, err := r.lenBytes()
			if err != nil {
				return err
			}
			n.Default = string(b)
		}
	case KindBytes:
		sz, err := r.u32()
		if err != nil {
			return err
		}
		n.Size = sz
		present, err := r.presence()
		if err != nil {
			return err
		}
		if present {
			b, err := r.lenBytes()
			if err != nil {
				return err
			}
			n.Default = b
		}
	case KindGeo:
		prec, err := r.u8()
		if err != nil {
			return err
		}
		n.GeoPrecision = prec
		present, err := r.presence()
		if err != nil {
			return err
		}
		if present {
			lat, err := r.u64()
			if err != nil {
				return err
			}
			lon, err := r.u64()
			if err != nil {
				return err
			}
			n.Default = GeoPoint{Lat: math.Float64frombits(lat), Lon: math.Float64frombits(lon)}
		}
	case KindUuid, KindUlid:
		// No extra fields.
	case KindDate:
		present, err := r.presence()
		if err != nil {
			return err
		}
		if present {
			v, err := r.u64()
			if err != nil {
				return err
			}
			n.Default = v
		}
	case KindEnum:
		count, err := r.u16()
		if err != nil {
			return err
		}
		choices := make([]string, count)
		for i := range choices {
			b, err := r.lenBytes()
			if err != nil {
				return err
			}
			choices[i] = string(b)
		}
		n.Choices = choices
		present, err := r.presence()
		if err != nil {
			return err
		}
		if present {
			b, err := r.lenBytes()
			if err != nil {
				return err
			}
			n.Default = string(b)
		}
	case KindDecimal:
		exp, err := r.u8()
		if err != nil {
			return err
		}
		n.Exp = int8(exp)
		present, err := r.presence()
		if err != nil {
			return err
		}
		if present {
			b, err := r.lenBytes()
			if err != nil {
				return err
			}
			dec, err := decimal.NewFromString(string(b))
			if err != nil {
				return errs.SchemaInvalid("decimal default %q: %v", string(b), err)
			}
			n.Default = dec
		}
	case KindTable:
		count, err := r.u16()
		if err != nil {
			return err
		}
		cols := make([]Column, count)
		for i := range cols {
			nameB, err := r.lenBytes()
			if err != nil {
				return err
			}
			childIdx, err := readNode(r, g)
			if err != nil {
				return err
			}
			cols[i] = Column{Name: string(nameB), Index: childIdx}
		}
		n.Columns = cols
	case KindList:
		childIdx, err := readNode(r, g)
		if err != nil {
			return err
		}
		n.Of = childIdx
	case KindMap:
		childIdx, err := readNode(r, g)
		if err != nil {
			return err
		}
		n.Value = childIdx
	case KindTuple:
		sorted, err := r.u8()
		if err != nil {
			return err
		}
		n.Sorted = sorted != 0
		count, err := r.u16()
		if err != nil {
			return err
		}
		vals := make([]int, count)
		for i := range vals {
			childIdx, err := readNode(r, g)
			if err != nil {
				return err
			}
			vals[i] = childIdx
		}
		n.Values = vals
	default:
		return errs.SchemaInvalid("node %d: unknown type key %d", idx, typeKey)
	}

	n.Sortable = sortableFor(&n)
	g.Nodes[idx] = n
	return nil
}

func writePresence(buf *bytes.Buffer, present bool) {
	if present {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}
}

func writeU16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeU64(buf *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	buf.Write(b[:])
}

func writeLenBytes(buf *bytes.Buffer, b []byte) {
	writeU32(buf, uint32(len(b)))
	buf.Write(b)
}

// byteReader is a small bounds-checked cursor over the compact schema byte
// form. Any overflow is a malformed schema, not a malformed buffer, so it
// reports SchemaInvalid rather than Corrupt.
type byteReader struct {
	buf []byte
	off int
}

func (r *byteReader) need(n int) error {
	if r.off+n > len(r.buf) {
		return errs.SchemaInvalid("compact schema bytes truncated at offset %d", r.off)
	}
	return nil
}

func (r *byteReader) u8() (uint8, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	v := r.buf[r.off]
	r.off++
	return v, nil
}

func (r *byteReader) presence() (bool, error) {
	v, err := r.u8()
	return v != 0, err
}

func (r *byteReader) u16() (uint16, error) {
	if err := r.need(2); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint16(r.buf[r.off:])
	r.off += 2
	return v, nil
}

func (r *byteReader) u32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint32(r.buf[r.off:])
	r.off += 4
	return v, nil
}

func (r *byteReader) u64() (uint64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint64(r.buf[r.off:])
	r.off += 8
	return v, nil
}

func (r *byteReader) lenBytes() ([]byte, error) {
	n, err := r.u32()
	if err != nil {
		return nil, err
	}
	if err := r.need(int(n)); err != nil {
		return nil, err
	}
	b := r.buf[r.off : r.off+int(n)]
	r.off += int(n)
	return b, nil
}
