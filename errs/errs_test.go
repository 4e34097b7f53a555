// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package errs

import (
	"testing"

	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestIsMatchesDirectError(t *testing.T) {
	err := TypeMismatch("bad value")
	assert.True(t, Is(err, KindTypeMismatch))
	assert.False(t, Is(err, KindCorrupt))
}

func TestIsUnwrapsWrappedErrors(t *testing.T) {
	err := pkgerrors.Wrap(Corrupt("bad header"), "nopb: open buffer")
	assert.True(t, Is(err, KindCorrupt))
}

func TestIsFalseForNonNopbError(t *testing.T) {
	assert.False(t, Is(pkgerrors.New("plain error"), KindCorrupt))
}

func TestSentinelsHaveStableKinds(t *testing.T) {
	assert.True(t, Is(ErrOutOfSpace, KindOutOfSpace))
	assert.True(t, Is(ErrListFull, KindListFull))
}

func TestKindStringer(t *testing.T) {
	assert.Equal(t, "Corrupt", KindCorrupt.String())
	assert.Equal(t, "Unknown", Kind(99).String())
}
