// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package nopb

import "fmt"

type segKind int

const (
	segColumn segKind = iota
	segIndex
	segKey
)

// Segment is one step of a Path: a table column name, a list/tuple
// position, or a map key. Build one with Col, Idx, or Key.
type Segment struct {
	kind  segKind
	name  string
	index int
}

// Col addresses a table column.
func Col(name string) Segment { return Segment{kind: segColumn, name: name} }

// Idx addresses a list or tuple position.
func Idx(i int) Segment { return Segment{kind: segIndex, index: i} }

// Key addresses a map key.
func Key(k string) Segment { return Segment{kind: segKey, name: k} }

func (s Segment) String() string {
	switch s.kind {
	case segColumn:
		return "." + s.name
	case segIndex:
		return fmt.Sprintf("[%d]", s.index)
	case segKey:
		return fmt.Sprintf("[%q]", s.name)
	}
	return "?"
}

// Path is a sequence of segments from a buffer's root to a value.
type Path []Segment

func (p Path) String() string {
	s := "$"
	for _, seg := range p {
		s += seg.String()
	}
	return s
}
