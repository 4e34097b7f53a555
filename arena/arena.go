// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package arena owns the raw bytes of a nopb buffer: a bump allocator over
// a 16-bit address space, plus bounds-checked accessors used by every other
// package in this module.
package arena

import (
	"encoding/binary"

	"github.com/solidcoredata/nopb/errs"
)

// MaxSize is the largest a buffer may grow to: 65,535 bytes, one short of
// the 16-bit address space so that 0xFFFF never has to double as both a
// valid offset and "one past the end".
const MaxSize = 0xFFFF

// HeaderSize is the number of bytes reserved at the front of every buffer:
// a root pointer and a wasted-bytes counter.
const HeaderSize = 4

// Arena owns a buffer's bytes and bump-allocates within them. It never
// frees individual allocations; reclamation is compaction's job.
type Arena struct {
	buf []byte
}

// New returns an empty arena: header only, root pointer zero.
func New() *Arena {
	return &Arena{buf: make([]byte, HeaderSize)}
}

// Load wraps an existing byte slice as an arena. The bytes are copied so the
// caller's slice can be reused or mutated independently.
func Load(b []byte) (*Arena, error) {
	if len(b) < HeaderSize {
		return nil, errs.Corrupt("buffer shorter than header (%d bytes)", len(b))
	}
	cp := make([]byte, len(b))
	copy(cp, b)
	return &Arena{buf: cp}, nil
}

// Bytes returns the arena's backing bytes. Callers must not retain the
// slice across a Malloc, which may reallocate the backing array.
func (a *Arena) Bytes() []byte {
	return a.buf
}

// Len is the current size of the buffer, header included.
func (a *Arena) Len() int {
	return len(a.buf)
}

// RootAddr reads the 16-bit root pointer from the header.
func (a *Arena) RootAddr() uint16 {
	return binary.BigEndian.Uint16(a.buf[0:2])
}

// SetRootAddr writes the 16-bit root pointer into the header.
func (a *Arena) SetRootAddr(addr uint16) {
	binary.BigEndian.PutUint16(a.buf[0:2], addr)
}

// Wasted reads the running count of bytes orphaned since creation or the
// last compaction.
func (a *Arena) Wasted() uint16 {
	return binary.BigEndian.Uint16(a.buf[2:4])
}

// OrphanAlloc records n additional bytes as wasted, saturating at 0xFFFF.
func (a *Arena) OrphanAlloc(n int) {
	if n <= 0 {
		return
	}
	total := uint32(a.Wasted()) + uint32(n)
	if total > 0xFFFF {
		total = 0xFFFF
	}
	binary.BigEndian.PutUint16(a.buf[2:4], uint16(total))
}

// Malloc bump-allocates n bytes and returns their starting offset.
func (a *Arena) Malloc(n int) (uint16, error) {
	if n < 0 {
		n = 0
	}
	start := len(a.buf)
	end := start + n
	if end > MaxSize {
		return 0, errs.ErrOutOfSpace
	}
	a.buf = append(a.buf, make([]byte, n)...)
	return uint16(start), nil
}

// MallocBorrow allocates len(b) bytes and copies b into them.
func (a *Arena) MallocBorrow(b []byte) (uint16, error) {
	addr, err := a.Malloc(len(b))
	if err != nil {
		return 0, err
	}
	copy(a.buf[addr:], b)
	return addr, nil
}

func (a *Arena) bounds(addr uint16, n int) error {
	if int(addr)+n > len(a.buf) {
		return errs.Corrupt("offset %d+%d exceeds buffer length %d", addr, n, len(a.buf))
	}
	return nil
}

// ReadU8 reads a single byte at addr.
func (a *Arena) ReadU8(addr uint16) (uint8, error) {
	if err := a.bounds(addr, 1); err != nil {
		return 0, err
	}
	return a.buf[addr], nil
}

// ReadU16 reads a big-endian uint16 at addr.
func (a *Arena) ReadU16(addr uint16) (uint16, error) {
	if err := a.bounds(addr, 2); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(a.buf[addr:]), nil
}

// ReadU32 reads a big-endian uint32 at addr.
func (a *Arena) ReadU32(addr uint16) (uint32, error) {
	if err := a.bounds(addr, 4); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(a.buf[addr:]), nil
}

// ReadU64 reads a big-endian uint64 at addr.
func (a *Arena) ReadU64(addr uint16) (uint64, error) {
	if err := a.bounds(addr, 8); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(a.buf[addr:]), nil
}

// ReadSlice returns a bounds-checked view of n bytes starting at addr. The
// slice aliases the arena's backing array; callers that need to keep it
// past a subsequent Malloc should copy it.
func (a *Arena) ReadSlice(addr uint16, n int) ([]byte, error) {
	if err := a.bounds(addr, n); err != nil {
		return nil, err
	}
	return a.buf[addr : int(addr)+n], nil
}

// WriteAddress stores a 16-bit big-endian address at at.
func (a *Arena) WriteAddress(at uint16, value uint16) error {
	if err := a.bounds(at, 2); err != nil {
		return err
	}
	binary.BigEndian.PutUint16(a.buf[at:], value)
	return nil
}

// WriteU8 stores a single byte at addr.
func (a *Arena) WriteU8(addr uint16, value uint8) error {
	if err := a.bounds(addr, 1); err != nil {
		return err
	}
	a.buf[addr] = value
	return nil
}

// WriteU32 stores a big-endian uint32 at addr.
func (a *Arena) WriteU32(addr uint16, value uint32) error {
	if err := a.bounds(addr, 4); err != nil {
		return err
	}
	binary.BigEndian.PutUint32(a.buf[addr:], value)
	return nil
}

// WriteU64 stores a big-endian uint64 at addr.
func (a *Arena) WriteU64(addr uint16, value uint64) error {
	if err := a.bounds(addr, 8); err != nil {
		return err
	}
	binary.BigEndian.PutUint64(a.buf[addr:], value)
	return nil
}

// WriteBytes copies b into the arena starting at addr, bounds-checked
// against the already-allocated region (it does not grow the arena).
func (a *Arena) WriteBytes(addr uint16, b []byte) error {
	if err := a.bounds(addr, len(b)); err != nil {
		return err
	}
	copy(a.buf[addr:], b)
	return nil
}
