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

// Cc is a single-word owning handle to a managed, heap-allocated payload.
// The zero value is an empty handle: it owns nothing, traces as no edge,
// and must not be dereferenced or released.
//
// Handles and the process-wide collector are not synchronized; all handle
// operations and collections must stay confined to a single goroutine or be
// serialized externally.
type Cc[T Trace] struct {
	b *ccBox[T]
}

// New allocates a managed box and moves v into it. The box starts with one
// strong handle, the strong set's single weak reservation, and colour Black -
// or Green when the payload embeds NoCycles.
func New[T Trace](v T) Cc[T] {
	gcc() // collector state initializes on first handle creation
	b := &ccBox[T]{
		h:     header{strong: 1, weak: 1, color: colorBlack},
		value: &v,
	}
	if _, ok := any(v).(acyclicMarker); ok {
		b.h.color = colorGreen
	}
	return Cc[T]{b}
}

// Clone returns an additional owning handle to the same payload. A touched
// box cannot be a live cycle root, so the colour resets to Black; a stale
// entry it may have in the roots buffer is discarded lazily by the collector.
func (c Cc[T]) Clone() Cc[T] {
	debug.Assert(c.b != nil)
	h := &c.b.h
	h.strong++
	if h.color != colorGreen {
		h.color = colorBlack
	}
	return c
}

// Release drops this handle. The last strong release drops the payload (and
// its outgoing edges) - unless the box sits in the roots buffer, in which
// case only the outgoing edges drop now and the payload drops when the
// collector drains the buffer. A non-final release records a non-Green box
// as a possible cycle root, which may trigger a collection when the roots
// buffer reaches the configured threshold.
//
// Each handle must be released exactly once; the zero handle is not released.
func (c Cc[T]) Release() {
	debug.Assert(c.b != nil)
	releaseStrong(c.b)
}

// Get returns a shared view of the payload. It must not be called after the
// payload has been dropped - which cannot happen through the safe operations
// above while this handle is live.
func (c Cc[T]) Get() *T {
	debug.AssertMsg(c.b.value != nil, "deref of a reclaimed payload")
	return c.b.value
}

// Empty reports whether this is the zero handle.
func (c Cc[T]) Empty() bool { return c.b == nil }

func (c Cc[T]) managed() (box, bool) {
	if c.b == nil {
		return nil, false
	}
	return c.b, true
}

// interface guard
var _ Handle = Cc[NoCycles]{}
