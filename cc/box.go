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

type color uint8

const (
	colorBlack  color = iota // in use or recently touched - assumed live
	colorGray                // being examined by mark-gray (edges subtracted)
	colorWhite               // provisionally dead; reclaimed unless scan proves otherwise
	colorPurple              // possible cycle root, present in the roots buffer
	colorGreen               // payload declared acyclic; never buffered
)

func (c color) String() string {
	switch c {
	case colorBlack:
		return "black"
	case colorGray:
		return "gray"
	case colorWhite:
		return "white"
	case colorPurple:
		return "purple"
	case colorGreen:
		return "green"
	}
	return "<invalid>"
}

type (
	// header is the per-box bookkeeping the fast path and the collector share.
	// Outside a collection crc is meaningless; mark-gray (re)initializes it
	// from strong before the first subtraction.
	header struct {
		strong   int
		weak     int // weak observers, plus one reservation held by the strong set while the payload lives
		crc      int // trial count: strong minus in-edges observed from the traced subgraph
		color    color
		buffered bool
	}

	// box is the type-erased view of a ccBox the collector operates on.
	box interface {
		hdr() *header
		// payloadGone reports whether the payload has already been dropped
		// (the header may still be alive through weak observers).
		payloadGone() bool
		// traceEdges feeds the payload's outgoing edges to tr; no-op once
		// the payload is gone or when the payload is Green.
		traceEdges(tr Tracer)
		// freePayload drops a payload whose outgoing edges were already
		// released - a payload parked while buffered (release() drops the
		// edges eagerly, the collector drops the rest when it drains the
		// buffer). Runs the finalizer and returns the strong set's weak
		// reservation. Idempotent.
		freePayload()
		// detach takes the payload out of a box condemned as cyclic
		// garbage; re-entering the box afterwards is a no-op on every
		// reclamation path.
		detach()
		// reclaim finishes off a detached payload: finalizer, then the
		// payload's outgoing edges (still counted - trial deletion only
		// subtracted them on scratch), then the weak reservation.
		reclaim()
	}

	ccBox[T Trace] struct {
		h     header
		value *T // nil once the payload has been dropped (or detached)
		dead  *T // payload between detach and reclaim, phase III only
	}
)

func (b *ccBox[T]) hdr() *header      { return &b.h }
func (b *ccBox[T]) payloadGone() bool { return b.value == nil }

func (b *ccBox[T]) traceEdges(tr Tracer) {
	if b.value == nil || b.h.color == colorGreen {
		return
	}
	(*b.value).Trace(tr)
}

func (b *ccBox[T]) freePayload() {
	if b.value == nil {
		return
	}
	v := b.value
	b.value = nil
	finalize[T](v)
	decWeak(&b.h)
}

func (b *ccBox[T]) detach() {
	debug.Assert(b.dead == nil && b.value != nil)
	b.dead = b.value
	b.value = nil
}

func (b *ccBox[T]) reclaim() {
	if b.dead == nil {
		return
	}
	v := b.dead
	b.dead = nil
	finalize[T](v)
	(*v).Trace(releaseEdge)
	decWeak(&b.h)
}

func finalize[T Trace](v *T) {
	if f, ok := any(*v).(Finalizer); ok {
		f.Finalize()
		return
	}
	if f, ok := any(v).(Finalizer); ok {
		f.Finalize()
	}
}

// releaseEdge is the Tracer that drops one strong reference from a payload
// that is going away.
func releaseEdge(h Handle) {
	if b, ok := h.managed(); ok {
		releaseStrong(b)
	}
}

// releaseStrong is the decrement fast path shared by handle Release and by
// edge dropping during payload teardown.
func releaseStrong(b box) {
	h := b.hdr()
	debug.Assert(h.strong > 0)
	h.strong--
	if h.strong == 0 {
		release(b)
		return
	}
	if b.payloadGone() {
		// Detached by the collector within this very pass: the box is dead
		// and its remaining in-edges are still cascading down - it must not
		// re-enter the roots buffer.
		return
	}
	possibleRoot(b)
}

// release runs when a box's strong count reaches zero: drop the payload now -
// or, if the box sits in the roots buffer, drop only its outgoing edges and
// leave the payload parked for the collector. A parked payload holds no live
// edge, so draining it later cannot perturb a collection in progress.
func release(b box) {
	h := b.hdr()
	if b.payloadGone() {
		// The collector detached the payload earlier in this cascade; the
		// last counted in-edge has now caught up.
		h.color = colorBlack
		return
	}
	if h.color != colorGreen { // Green is permanent
		h.color = colorBlack
	}
	if h.buffered {
		b.traceEdges(releaseEdge)
		return
	}
	// finalizer first, then the outgoing edges - the same order as cyclic
	// reclamation
	b.detach()
	b.reclaim()
	gcc().stats.freedAcyclic.Inc()
}

// possibleRoot records that the strong count went down but not to zero -
// the box might be the root of a garbage cycle.
func possibleRoot(b box) {
	h := b.hdr()
	if h.color == colorGreen || b.payloadGone() {
		return
	}
	h.color = colorPurple
	if h.buffered {
		return
	}
	h.buffered = true
	c := gcc()
	debug.AssertMsg(!c.tracing, "mutation from within a traversal")
	c.roots = append(c.roots, b)
	if c.threshold > 0 && len(c.roots) >= c.threshold && !c.collecting {
		c.collect()
	}
}

func decWeak(h *header) {
	debug.Assert(h.weak > 0)
	h.weak--
	if h.weak == 0 {
		// Header storage is garbage-collected; account for it going away.
		gcc().stats.headersFreed.Inc()
	}
}
