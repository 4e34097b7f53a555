// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package compact implements buffer compaction: a depth-first,
// schema-guided re-emission of a buffer's live values into a fresh
// arena, eliminating orphaned allocations accumulated by in-place
// mutation.
package compact

import (
	"github.com/solidcoredata/nopb/arena"
	"github.com/solidcoredata/nopb/codec"
	"github.com/solidcoredata/nopb/cursor"
	"github.com/solidcoredata/nopb/errs"
	"github.com/solidcoredata/nopb/schema"

	_ "github.com/solidcoredata/nopb/collection" // registers Table/List/Map/Tuple codecs
)

// Run builds a fresh arena holding the same logical value as src,
// dispatching through the same codec registry get/set/compact use so a
// newly added schema kind only needs to be taught to codec.Register once.
func Run(g *schema.Graph, src *arena.Arena) (*arena.Arena, error) {
	dst := arena.New()
	from := cursor.Root(src, g)
	to := cursor.Root(dst, g)

	cc, ok := codec.Dispatch(g.Root().Kind)
	if !ok {
		return nil, errs.SchemaInvalid("no codec for root kind %s", g.Root().Kind)
	}
	if err := cc.Compact(from, to); err != nil {
		return nil, err
	}
	return dst, nil
}
