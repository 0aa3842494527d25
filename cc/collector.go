// Package cc implements reference-counted shared ownership with a trial-deletion
// cycle collector (Bacon & Rajan, "Concurrent Cycle Collection in Reference
// Counted Systems", stop-the-world variant).
/*
 * Copyright (c) 2018-2020, NVIDIA CORPORATION. All rights reserved.
 */
package cc

import (
	"os"
	"strconv"
	"sync"

	"github.com/fitzgen/bacon-rajan-cc/cmn"
	"github.com/golang/glog"
	"github.com/pkg/errors"
)

// The collector owns the roots buffer - the boxes whose strong count went
// down but not to zero since the last collection - and drains it in a single
// synchronous stop-the-world pass of three phases:
//
//	I   mark-roots:  trial-delete from each live Purple candidate (mark-gray),
//	                 subtracting in-edges of the traced subgraph from crc;
//	II  scan:        crc > 0 proves external reachability - repaint the
//	                 subtree Black and restore the counts (scan-black);
//	                 crc == 0 paints White;
//	III collect-white: reclaim every box still White.
//
// All three phases run over explicit worklists; recursion depth never
// depends on the heap shape. The collector is deliberately not safe for
// concurrent use: handles and the roots buffer must stay confined to one
// goroutine (or be externally serialized) - see the Cc documentation.

// rootsThresholdEnv overrides the automatic-collection trigger; the
// default is dfltRootsThreshold buffered roots. A threshold of 0 disables
// automatic collection (explicit CollectCycles only).
const (
	rootsThresholdEnv  = "CC_ROOTS_THRESHOLD"
	dfltRootsThreshold = 128

	rootsBufCap = 256 // initial capacity of the roots buffer
)

type collector struct {
	roots []box // candidate buffer, insertion-ordered, duplicate-free (buffered flag guards insertion)
	work  []box // phase-local worklist, reused across phases
	white []box // cyclic garbage gathered by phase III

	threshold  int
	collecting bool // re-entry guard: collect() is not reentrant
	tracing    bool // set while phase I/II traversals run; guards against mutating tracers (debug)

	stats ccStats
}

var (
	gccInst *collector
	gccOnce sync.Once
)

// gcc returns the process-wide collector, initializing it lazily on first use.
func gcc() *collector {
	gccOnce.Do(func() {
		gccInst = &collector{
			roots:     make([]box, 0, rootsBufCap),
			threshold: dfltRootsThreshold,
		}
		cmn.AssertNoErr(gccInst.env())
	})
	return gccInst
}

func (c *collector) env() error {
	a := os.Getenv(rootsThresholdEnv)
	if a == "" {
		return nil
	}
	n, err := strconv.Atoi(a)
	if err != nil {
		return errors.Wrapf(err, "cannot parse %s %q", rootsThresholdEnv, a)
	}
	if n < 0 {
		return errors.Errorf("invalid %s %q", rootsThresholdEnv, a)
	}
	c.threshold = n
	return nil
}

//
// collection: three phases over the drained buffer
//

func (c *collector) collect() {
	if c.collecting {
		return
	}
	c.collecting = true
	defer func() { c.collecting = false }()

	// Decrements performed while reclaiming (phase III cascades) may buffer
	// new candidates; those accumulate for the next collection.
	candidates := c.roots
	c.roots = make([]box, 0, rootsBufCap)

	c.stats.collections.Inc()
	c.stats.candidates.Add(int64(len(candidates)))
	if glog.V(4) {
		glog.Infof("cc: collecting, %d candidate(s)", len(candidates))
	}

	candidates = c.markRoots(candidates)
	c.scanRoots(candidates)
	c.collectRoots(candidates)
}

// markRoots filters the candidates down to live Purple roots and runs
// mark-gray from each; stale entries leave the buffer, and boxes that were
// released while buffered give up their parked payload here.
func (c *collector) markRoots(candidates []box) []box {
	live := candidates[:0]
	c.tracing = true
	for _, b := range candidates {
		h := b.hdr()
		if h.color == colorPurple && h.strong > 0 {
			c.markGray(b)
			live = append(live, b)
			continue
		}
		h.buffered = false
		if h.strong == 0 && !b.payloadGone() {
			// released while buffered: the payload was parked with its
			// edges already dropped - finish it off
			b.freePayload()
			c.stats.freedAcyclic.Inc()
		}
	}
	c.tracing = false
	return live
}

// markGray trial-deletes the subgraph reachable from s: every box reachable
// from a candidate ends up Gray with crc = strong minus the in-edges observed
// within the subgraph.
func (c *collector) markGray(s box) {
	h := s.hdr()
	if h.color == colorGray {
		return
	}
	h.color = colorGray
	h.crc = h.strong
	c.work = append(c.work[:0], s)
	for len(c.work) > 0 {
		b := c.work[len(c.work)-1]
		c.work = c.work[:len(c.work)-1]
		b.traceEdges(c.grayEdge)
	}
}

func (c *collector) grayEdge(e Handle) {
	t, ok := e.managed()
	if !ok {
		return
	}
	h := t.hdr()
	if h.color == colorGreen {
		// Acyclic by declaration: not part of any cycle, its count is
		// left alone (scan-black skips it symmetrically).
		return
	}
	if h.color == colorGray {
		h.crc--
		return
	}
	h.crc = h.strong - 1
	h.color = colorGray
	c.work = append(c.work, t)
}

// scanRoots decides each Gray subgraph: externally referenced subtrees turn
// Black with their trial counts restored, the rest turn White.
func (c *collector) scanRoots(candidates []box) {
	c.tracing = true
	for _, b := range candidates {
		c.scan(b)
	}
	c.tracing = false
}

func (c *collector) scan(s box) {
	c.work = append(c.work[:0], s)
	for len(c.work) > 0 {
		b := c.work[len(c.work)-1]
		c.work = c.work[:len(c.work)-1]
		h := b.hdr()
		if h.color != colorGray {
			continue
		}
		if h.crc > 0 {
			c.scanBlack(b)
			continue
		}
		h.color = colorWhite
		b.traceEdges(c.scanEdge)
	}
}

func (c *collector) scanEdge(e Handle) {
	if t, ok := e.managed(); ok {
		c.work = append(c.work, t)
	}
}

// scanBlack repaints the subtree reachable from s Black, restoring the
// decrements mark-gray made. Runs on its own worklist so that scan's
// pending entries are left untouched.
func (c *collector) scanBlack(s box) {
	s.hdr().color = colorBlack
	black := []box{s}
	for len(black) > 0 {
		b := black[len(black)-1]
		black = black[:len(black)-1]
		b.traceEdges(func(e Handle) {
			t, ok := e.managed()
			if !ok {
				return
			}
			h := t.hdr()
			if h.color == colorGreen {
				return // never subtracted by mark-gray
			}
			h.crc++
			if h.color != colorBlack {
				h.color = colorBlack
				black = append(black, t)
			}
		})
	}
}

// collectRoots drains the buffer: every box still White is cyclic garbage.
// The buffered flag comes off before the white walk so that a box that is
// both a buffered root and deep inside another root's White subtree is
// gathered exactly once, at the top level of the drain.
func (c *collector) collectRoots(candidates []box) {
	c.white = c.white[:0]
	for _, b := range candidates {
		b.hdr().buffered = false
		c.collectWhite(b)
	}
	// Detach every condemned payload first, so that decrements cascading out
	// of one reclamation find the other white boxes already payload-less and
	// cannot double-free or re-enter them.
	for _, b := range c.white {
		b.detach()
	}
	for _, b := range c.white {
		b.reclaim()
	}
	c.stats.freedCyclic.Add(int64(len(c.white)))
	if glog.V(4) && len(c.white) > 0 {
		glog.Infof("cc: reclaimed %d white box(es)", len(c.white))
	}
	for i := range c.white {
		c.white[i] = nil
	}
}

func (c *collector) collectWhite(s box) {
	c.work = append(c.work[:0], s)
	for len(c.work) > 0 {
		b := c.work[len(c.work)-1]
		c.work = c.work[:len(c.work)-1]
		h := b.hdr()
		if h.color != colorWhite || h.buffered {
			continue
		}
		h.color = colorBlack // break cycles in the walk
		b.traceEdges(c.scanEdge)
		c.white = append(c.white, b)
	}
}

//
// public API
//

// CollectCycles forces a full collection now. A collection is synchronous:
// the call returns when reclamation is complete.
func CollectCycles() { gcc().collect() }

// NumberOfRootsBuffered returns the current number of cycle candidates
// awaiting inspection.
func NumberOfRootsBuffered() int { return len(gcc().roots) }

// SetThreshold configures the roots-buffer length at which a collection
// triggers automatically. Zero disables automatic collection.
func SetThreshold(n int) {
	cmn.Assert(n >= 0)
	gcc().threshold = n
}

// GetThreshold returns the automatic-collection trigger; the default is
// dfltRootsThreshold and may be overridden at init time via CC_ROOTS_THRESHOLD.
func GetThreshold() int { return gcc().threshold }
