// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package codec

import (
	"unicode/utf8"

	"github.com/solidcoredata/nopb/cursor"
	"github.com/solidcoredata/nopb/errs"
	"github.com/solidcoredata/nopb/schema"
)

func init() {
	Register(schema.KindString, stringCodec{})
}

// stringCodec mirrors the fixed-size-vs-length-prefixed split of
// bytesCodec but additionally validates UTF-8, grounded on the rune-by-
// rune validation in the teacher's coderString.
type stringCodec struct{}

func (stringCodec) Set(cur *cursor.Cursor, value interface{}) error {
	s, ok := value.(string)
	if !ok {
		return errs.TypeMismatch("expected a string, got %T", value)
	}
	if !utf8.ValidString(s) {
		return errs.Utf8("value is not valid utf8")
	}
	n := cur.Node()
	if n.Size > 0 {
		return setFixedBytes(cur, int(n.Size), []byte(s))
	}
	return setVarBytes(cur, []byte(s))
}

func (stringCodec) Get(cur *cursor.Cursor) (interface{}, bool, error) {
	n := cur.Node()
	var b []byte
	var present bool
	var err error
	if n.Size > 0 {
		b, present, err = getFixedBytes(cur, int(n.Size))
	} else {
		b, present, err = getVarBytes(cur)
	}
	if err != nil {
		return nil, false, err
	}
	if !present {
		if d, ok := n.Default.(string); ok {
			return d, true, nil
		}
		return nil, false, nil
	}
	if n.Size > 0 {
		b = trimTrailingZero(b)
	}
	if !utf8.Valid(b) {
		return nil, false, errs.Utf8("stored value is not valid utf8")
	}
	return string(b), true, nil
}

func (stringCodec) Size(cur *cursor.Cursor) (int, error) {
	n := cur.Node()
	if n.Size > 0 {
		return sizeFixed(cur, int(n.Size))
	}
	return sizeVar(cur)
}

func (c stringCodec) Compact(from, to *cursor.Cursor) error {
	return compactScalar(c, from, to)
}

func (c stringCodec) ToJSON(cur *cursor.Cursor) (interface{}, error) {
	v, present, err := c.Get(cur)
	if err != nil || !present {
		return nil, err
	}
	return v, nil
}

func trimTrailingZero(b []byte) []byte {
	i := len(b)
	for i > 0 && b[i-1] == 0 {
		i--
	}
	return b[:i]
}
