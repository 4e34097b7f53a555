// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package schema

import (
	"encoding/hex"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/shopspring/decimal"

	"github.com/solidcoredata/nopb/errs"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// columnPair unmarshals a table's ["name", <schema>] pair per spec.md §6.
type columnPair struct {
	Name   string
	Schema jsoniter.RawMessage
}

func (c *columnPair) UnmarshalJSON(b []byte) error {
	var arr []jsoniter.RawMessage
	if err := jsonAPI.Unmarshal(b, &arr); err != nil {
		return err
	}
	if len(arr) != 2 {
		return errs.SchemaInvalid("column entry must have 2 elements, got %d", len(arr))
	}
	if err := jsonAPI.Unmarshal(arr[0], &c.Name); err != nil {
		return err
	}
	c.Schema = arr[1]
	return nil
}

func (c columnPair) MarshalJSON() ([]byte, error) {
	return jsonAPI.Marshal([2]interface{}{c.Name, jsoniter.RawMessage(c.Schema)})
}

type jsonDesc struct {
	Type    string                 `json:"type"`
	Default jsoniter.RawMessage    `json:"default,omitempty"`
	Size    *uint32                `json:"size,omitempty"`
	Columns []columnPair           `json:"columns,omitempty"`
	Of      jsoniter.RawMessage    `json:"of,omitempty"`
	Value   jsoniter.RawMessage    `json:"value,omitempty"`
	Values  []jsoniter.RawMessage  `json:"values,omitempty"`
	Sorted  *bool                  `json:"sorted,omitempty"`
	Choices []string               `json:"choices,omitempty"`
	Exp     *int8                  `json:"exp,omitempty"`
}

// FromJSON parses a schema description into a flat node graph and its
// equivalent compact byte form.
func FromJSON(desc []byte) ([]byte, *Graph, error) {
	g := &Graph{Nodes: make([]Node, 1)}
	if err := parseInto(g, desc, 0); err != nil {
		return nil, nil, err
	}
	if err := Validate(g); err != nil {
		return nil, nil, err
	}
	b, err := ToBytes(g)
	if err != nil {
		return nil, nil, err
	}
	return b, g, nil
}

// parseNode reserves a fresh slot, recursively parses raw into it, and
// returns the slot's index. Reserving before recursing, then filling after,
// is what keeps the top-level caller's reservation (index 0) stable while
// every child is fully parsed before its parent's node records the child's
// index.
func parseNode(g *Graph, raw []byte) (int, error) {
	idx := len(g.Nodes)
	g.Nodes = append(g.Nodes, Node{})
	if err := parseInto(g, raw, idx); err != nil {
		return 0, err
	}
	return idx, nil
}

func parseInto(g *Graph, raw []byte, idx int) error {
	var d jsonDesc
	if err := jsonAPI.Unmarshal(raw, &d); err != nil {
		return errs.SchemaInvalid("malformed schema json: %v", err)
	}

	var n Node
	switch d.Type {
	case "int8", "int16", "int32", "int64":
		n.Kind = signedKind(d.Type)
		if v, err := optInt64(d.Default); err != nil {
			return err
		} else if v != nil {
			n.Default = *v
		}
	case "uint8", "u8", "uint16", "u16", "uint32", "u32", "uint64", "u64":
		n.Kind = unsignedKind(d.Type)
		if v, err := optUint64(d.Default); err != nil {
			return err
		} else if v != nil {
			n.Default = *v
		}
	case "float", "f32":
		n.Kind = KindFloat
		if v, err := optFloat64(d.Default); err != nil {
			return err
		} else if v != nil {
			n.Default = *v
		}
	case "double", "f64":
		n.Kind = KindDouble
		if v, err := optFloat64(d.Default); err != nil {
			return err
		} else if v != nil {
			n.Default = *v
		}
	case "bool":
		n.Kind = KindBool
		if len(d.Default) > 0 {
			var v bool
			if err := jsonAPI.Unmarshal(d.Default, &v); err != nil {
				return errs.SchemaInvalid("bool default: %v", err)
			}
			n.Default = v
		}
	case "string":
		n.Kind = KindString
		if d.Size != nil {
			n.Size = *d.Size
		}
		if len(d.Default) > 0 {
			var v string
			if err := jsonAPI.Unmarshal(d.Default, &v); err != nil {
				return errs.SchemaInvalid("string default: %v", err)
			}
			n.Default = v
		}
	case "bytes":
		n.Kind = KindBytes
		if d.Size != nil {
			n.Size = *d.Size
		}
		if len(d.Default) > 0 {
			var s string
			if err := jsonAPI.Unmarshal(d.Default, &s); err != nil {
				return errs.SchemaInvalid("bytes default: %v", err)
			}
			b, err := decodeBytesDefault(s)
			if err != nil {
				return err
			}
			n.Default = b
		}
	case "geo":
		n.Kind = KindGeo
		if d.Size == nil {
			return errs.SchemaInvalid("geo node missing size")
		}
		n.GeoPrecision = uint8(*d.Size)
		if len(d.Default) > 0 {
			var gp struct {
				Lat float64 `json:"lat"`
				Lon float64 `json:"lon"`
			}
			if err := jsonAPI.Unmarshal(d.Default, &gp); err != nil {
				return errs.SchemaInvalid("geo default: %v", err)
			}
			n.Default = GeoPoint{Lat: gp.Lat, Lon: gp.Lon}
		}
	case "uuid":
		n.Kind = KindUuid
	case "ulid":
		n.Kind = KindUlid
	case "date":
		n.Kind = KindDate
		if len(d.Default) > 0 {
			var v uint64
			if err := jsonAPI.Unmarshal(d.Default, &v); err != nil {
				return errs.SchemaInvalid("date default: %v", err)
			}
			n.Default = v
		}
	case "enum":
		n.Kind = KindEnum
		n.Choices = d.Choices
		if len(d.Default) > 0 {
			var v string
			if err := jsonAPI.Unmarshal(d.Default, &v); err != nil {
				return errs.SchemaInvalid("enum default: %v", err)
			}
			n.Default = v
		}
	case "decimal":
		n.Kind = KindDecimal
		if d.Exp == nil {
			return errs.SchemaInvalid("decimal node missing exp")
		}
		n.Exp = *d.Exp
		if len(d.Default) > 0 {
			var s string
			if err := jsonAPI.Unmarshal(d.Default, &s); err != nil {
				return errs.SchemaInvalid("decimal default: %v", err)
			}
			dec, err := decimal.NewFromString(s)
			if err != nil {
				return errs.SchemaInvalid("decimal default %q: %v", s, err)
			}
			n.Default = dec
		}
	case "table":
		n.Kind = KindTable
		cols := make([]Column, len(d.Columns))
		for i, cp := range d.Columns {
			childIdx, err := parseNode(g, cp.Schema)
			if err != nil {
				return err
			}
			cols[i] = Column{Name: cp.Name, Index: childIdx}
		}
		n.Columns = cols
	case "list":
		n.Kind = KindList
		if len(d.Of) == 0 {
			return errs.SchemaInvalid("list node missing of")
		}
		childIdx, err := parseNode(g, d.Of)
		if err != nil {
			return err
		}
		n.Of = childIdx
	case "map":
		n.Kind = KindMap
		if len(d.Value) == 0 {
			return errs.SchemaInvalid("map node missing value")
		}
		childIdx, err := parseNode(g, d.Value)
		if err != nil {
			return err
		}
		n.Value = childIdx
	case "tuple":
		n.Kind = KindTuple
		vals := make([]int, len(d.Values))
		for i, v := range d.Values {
			childIdx, err := parseNode(g, v)
			if err != nil {
				return err
			}
			vals[i] = childIdx
		}
		n.Values = vals
		if d.Sorted != nil {
			n.Sorted = *d.Sorted
		}
	default:
		return errs.SchemaInvalid("unknown type %q", d.Type)
	}

	n.TypeKey = byte(n.Kind)
	n.Sortable = sortableFor(&n)
	g.Nodes[idx] = n
	return nil
}

func signedKind(t string) Kind {
	switch t {
	case "int8":
		return KindInt8
	case "int16":
		return KindInt16
	case "int32":
		return KindInt32
	default:
		return KindInt64
	}
}

func unsignedKind(t string) Kind {
	switch t {
	case "uint8", "u8":
		return KindUint8
	case "uint16", "u16":
		return KindUint16
	case "uint32", "u32":
		return KindUint32
	default:
		return KindUint64
	}
}

func optInt64(raw jsoniter.RawMessage) (*int64, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var v int64
	if err := jsonAPI.Unmarshal(raw, &v); err != nil {
		return nil, errs.SchemaInvalid("integer default: %v", err)
	}
	return &v, nil
}

func optUint64(raw jsoniter.RawMessage) (*uint64, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var v uint64
	if err := jsonAPI.Unmarshal(raw, &v); err != nil {
		return nil, errs.SchemaInvalid("unsigned default: %v", err)
	}
	return &v, nil
}

func optFloat64(raw jsoniter.RawMessage) (*float64, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var v float64
	if err := jsonAPI.Unmarshal(raw, &v); err != nil {
		return nil, errs.SchemaInvalid("float default: %v", err)
	}
	return &v, nil
}

func decodeBytesDefault(s string) ([]byte, error) {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		b, err := hex.DecodeString(s[2:])
		if err != nil {
			return nil, errs.SchemaInvalid("hex bytes default %q: %v", s, err)
		}
		return b, nil
	}
	return []byte(s), nil
}

// ToJSON renders a parsed graph back into its schema description form. The
// result round-trips through FromJSON for every valid schema, modulo key
// ordering.
func ToJSON(g *Graph) ([]byte, error) {
	return jsonAPI.Marshal(buildDesc(g, 0))
}

func buildDesc(g *Graph, idx int) map[string]interface{} {
	n := &g.Nodes[idx]
	m := map[string]interface{}{"type": n.Kind.String()}
	switch n.Kind {
	case KindInt8, KindInt16, KindInt32, KindInt64,
		KindUint8, KindUint16, KindUint32, KindUint64,
		KindFloat, KindDouble, KindBool, KindDate:
		if n.Default != nil {
			m["default"] = n.Default
		}
	case KindString:
		if n.Size > 0 {
			m["size"] = n.Size
		}
		if n.Default != nil {
			m["default"] = n.Default
		}
	case KindBytes:
		if n.Size > 0 {
			m["size"] = n.Size
		}
		if b, ok := n.Default.([]byte); ok {
			m["default"] = "0x" + hex.EncodeToString(b)
		}
	case KindGeo:
		m["size"] = n.GeoPrecision
		if gp, ok := n.Default.(GeoPoint); ok {
			m["default"] = map[string]float64{"lat": gp.Lat, "lon": gp.Lon}
		}
	case KindEnum:
		m["choices"] = n.Choices
		if n.Default != nil {
			m["default"] = n.Default
		}
	case KindDecimal:
		m["exp"] = n.Exp
		if dec, ok := n.Default.(decimal.Decimal); ok {
			m["default"] = dec.String()
		}
	case KindTable:
		cols := make([]columnPair, len(n.Columns))
		for i, c := range n.Columns {
			childJSON, _ := jsonAPI.Marshal(buildDesc(g, c.Index))
			cols[i] = columnPair{Name: c.Name, Schema: childJSON}
		}
		m["columns"] = cols
	case KindList:
		m["of"] = buildDesc(g, n.Of)
	case KindMap:
		m["value"] = buildDesc(g, n.Value)
	case KindTuple:
		vals := make([]interface{}, len(n.Values))
		for i, v := range n.Values {
			vals[i] = buildDesc(g, v)
		}
		m["values"] = vals
		if n.Sorted {
			m["sorted"] = true
		}
	}
	return m
}
