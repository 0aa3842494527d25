// Package cc implements reference-counted shared ownership with a trial-deletion
// cycle collector (Bacon & Rajan, "Concurrent Cycle Collection in Reference
// Counted Systems", stop-the-world variant).
/*
 * Copyright (c) 2018-2020, NVIDIA CORPORATION. All rights reserved.
 */
package cc

import (
	"github.com/fitzgen/bacon-rajan-cc/cmn/debug"
)

// Weak observes a managed box without keeping the payload alive: the header
// outlives the payload for as long as any weak observer remains.
type Weak[T Trace] struct {
	b *ccBox[T]
}

// Downgrade produces a weak observer of the handle's box.
func (c Cc[T]) Downgrade() Weak[T] {
	debug.Assert(c.b != nil)
	c.b.h.weak++
	return Weak[T]{c.b}
}

// Upgrade attempts to mint a new owning handle. It fails - a normal outcome,
// not an error - once the strong count has reached zero, including while a
// payload parked in the roots buffer still awaits the next collection.
func (w Weak[T]) Upgrade() (Cc[T], bool) {
	if w.b == nil || w.b.h.strong == 0 {
		return Cc[T]{}, false
	}
	h := &w.b.h
	h.strong++
	if h.color != colorGreen {
		h.color = colorBlack
	}
	return Cc[T]{w.b}, true
}

// Release drops this weak observer. The box header is freed when the last
// weak reference - observer or the strong set's reservation - goes away.
func (w Weak[T]) Release() {
	debug.Assert(w.b != nil)
	decWeak(&w.b.h)
}
