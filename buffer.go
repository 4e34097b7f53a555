// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package nopb

import (
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"

	"github.com/solidcoredata/nopb/arena"
	"github.com/solidcoredata/nopb/codec"
	"github.com/solidcoredata/nopb/collection"
	"github.com/solidcoredata/nopb/compact"
	"github.com/solidcoredata/nopb/cursor"
	"github.com/solidcoredata/nopb/errs"
	"github.com/solidcoredata/nopb/schema"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// Buffer is a single schema-bound value: an arena of bytes plus the
// shared schema graph that gives it meaning. A Buffer is not safe for
// concurrent use; callers needing concurrent access must serialize their
// own Get/Set/Del/Compact calls.
type Buffer struct {
	g *schema.Graph
	a *arena.Arena
}

// Bytes returns the buffer's raw on-disk representation.
func (b *Buffer) Bytes() []byte { return b.a.Bytes() }

// CalcBytes reports the buffer's current length and its running count of
// bytes orphaned by in-place mutation since the buffer was created or
// last compacted.
func (b *Buffer) CalcBytes() (current, wasted int) {
	return b.a.Len(), int(b.a.Wasted())
}

// Get reads the value at path. present is false if the value (or any
// container along path) hasn't been set and has no schema default.
func (b *Buffer) Get(path Path) (interface{}, bool, error) {
	cur, err := b.navigate(path, false)
	if err != nil {
		return nil, false, errors.Wrapf(err, "nopb: get %s", path)
	}
	cc, ok := codec.Dispatch(cur.Node().Kind)
	if !ok {
		return nil, false, errors.Errorf("nopb: get %s: no codec for %s", path, cur.Node().Kind)
	}
	v, present, err := cc.Get(cur)
	if err != nil {
		return nil, false, errors.Wrapf(err, "nopb: get %s", path)
	}
	return v, present, nil
}

// Set writes value at path, allocating any container cells along the way
// that don't exist yet.
func (b *Buffer) Set(path Path, value interface{}) error {
	cur, err := b.navigate(path, true)
	if err != nil {
		return errors.Wrapf(err, "nopb: set %s", path)
	}
	cc, ok := codec.Dispatch(cur.Node().Kind)
	if !ok {
		return errors.Errorf("nopb: set %s: no codec for %s", path, cur.Node().Kind)
	}
	if err := cc.Set(cur, value); err != nil {
		return errors.Wrapf(err, "nopb: set %s", path)
	}
	return nil
}

// Push appends value to the list at path.
func (b *Buffer) Push(path Path, value interface{}) error {
	cur, err := b.navigate(path, true)
	if err != nil {
		return errors.Wrapf(err, "nopb: push %s", path)
	}
	if cur.Node().Kind != schema.KindList {
		return errors.Errorf("nopb: push %s: not a list", path)
	}
	if err := collection.Push(cur, value); err != nil {
		return errors.Wrapf(err, "nopb: push %s", path)
	}
	return nil
}

// Del removes the value addressed by path. For a list index or map key
// this removes the entry entirely; for a table column or tuple position
// (whose slots are fixed by the schema) it clears the value back to
// absent.
func (b *Buffer) Del(path Path) error {
	if len(path) == 0 {
		return errors.New("nopb: cannot delete the root value")
	}
	parent, err := b.navigate(path[:len(path)-1], true)
	if err != nil {
		return errors.Wrapf(err, "nopb: del %s", path)
	}
	last := path[len(path)-1]
	n := parent.Node()
	switch n.Kind {
	case schema.KindTable:
		if last.kind != segColumn {
			return errors.Errorf("nopb: del %s: table requires a column segment", path)
		}
		child, err := collection.Column(parent, last.name, false)
		if err != nil {
			return errors.Wrapf(err, "nopb: del %s", path)
		}
		return errors.Wrapf(clearValue(child), "nopb: del %s", path)
	case schema.KindTuple:
		if last.kind != segIndex {
			return errors.Errorf("nopb: del %s: tuple requires an index segment", path)
		}
		child, err := collection.TupleItem(parent, last.index, false)
		if err != nil {
			return errors.Wrapf(err, "nopb: del %s", path)
		}
		return errors.Wrapf(clearValue(child), "nopb: del %s", path)
	case schema.KindList:
		if last.kind != segIndex {
			return errors.Errorf("nopb: del %s: list requires an index segment", path)
		}
		return errors.Wrapf(collection.Del(parent, last.index), "nopb: del %s", path)
	case schema.KindMap:
		if last.kind != segKey {
			return errors.Errorf("nopb: del %s: map requires a key segment", path)
		}
		return errors.Wrapf(collection.DelKey(parent, last.name), "nopb: del %s", path)
	default:
		return errors.Errorf("nopb: del %s: %s is not a container", path, n.Kind)
	}
}

// Compact re-emits the buffer's live values into a fresh arena,
// eliminating bytes orphaned by Set/Del/Push/Del since creation.
func (b *Buffer) Compact() error {
	fresh, err := compact.Run(b.g, b.a)
	if err != nil {
		return errors.Wrap(err, "nopb: compact")
	}
	b.a = fresh
	return nil
}

// ToJSON renders the buffer's entire value tree (defaults applied) as
// JSON.
func (b *Buffer) ToJSON() ([]byte, error) {
	cur := cursor.Root(b.a, b.g)
	cc, ok := codec.Dispatch(b.g.Root().Kind)
	if !ok {
		return nil, errors.New("nopb: to json: no codec for root kind")
	}
	v, err := cc.ToJSON(cur)
	if err != nil {
		return nil, errors.Wrap(err, "nopb: to json")
	}
	out, err := jsonAPI.Marshal(v)
	return out, errors.Wrap(err, "nopb: to json: marshal")
}

// navigate walks path from the buffer's root, resolving each segment
// against the container kind it lands on. allocate controls whether
// missing pointer cells along the way are created (Set/Push/Del's parent
// lookup) or left virtual (Get).
func (b *Buffer) navigate(path Path, allocate bool) (*cursor.Cursor, error) {
	cur := cursor.Root(b.a, b.g)
	for _, seg := range path {
		n := cur.Node()
		var next *cursor.Cursor
		var err error
		switch n.Kind {
		case schema.KindTable:
			if seg.kind != segColumn {
				return nil, errs.PathInvalid("table requires a column segment, got %s", seg)
			}
			next, err = collection.Column(cur, seg.name, allocate)
		case schema.KindTuple:
			if seg.kind != segIndex {
				return nil, errs.PathInvalid("tuple requires an index segment, got %s", seg)
			}
			next, err = collection.TupleItem(cur, seg.index, allocate)
		case schema.KindList:
			if seg.kind != segIndex {
				return nil, errs.PathInvalid("list requires an index segment, got %s", seg)
			}
			next, err = collection.ListItem(cur, seg.index, allocate)
		case schema.KindMap:
			if seg.kind != segKey {
				return nil, errs.PathInvalid("map requires a key segment, got %s", seg)
			}
			next, err = collection.MapItem(cur, seg.name, allocate)
		default:
			return nil, errs.PathInvalid("%s is not a container, cannot apply %s", n.Kind, seg)
		}
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}

// clearValue orphans whatever cur currently holds and resets its pointer
// cell to absent.
func clearValue(cur *cursor.Cursor) error {
	present, err := codec.RawPresent(cur)
	if err != nil {
		return err
	}
	if !present {
		return nil
	}
	if cc, ok := codec.Dispatch(cur.Node().Kind); ok {
		if sz, err := cc.Size(cur); err == nil {
			cur.A.OrphanAlloc(sz - cur.CellSize())
		}
	}
	return cur.SetAddrValue(0)
}
