// Package cc implements reference-counted shared ownership with a trial-deletion
// cycle collector (Bacon & Rajan, "Concurrent Cycle Collection in Reference
// Counted Systems", stop-the-world variant).
/*
 * Copyright (c) 2018-2020, NVIDIA CORPORATION. All rights reserved.
 */
package cc_test

import (
	"testing"

	"github.com/fitzgen/bacon-rajan-cc/cc"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

func TestCollectorMain(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Collector Suite")
}

var _ = Describe("Collector", func() {
	BeforeEach(func() {
		cc.SetThreshold(0) // explicit collections only
		cc.CollectCycles()
		cc.CollectCycles()
		Expect(cc.NumberOfRootsBuffered()).To(BeZero())
	})

	newNode := func(name string, freed *int) cc.Cc[node] {
		return cc.New(node{name: name, freed: freed})
	}
	link := func(from, to cc.Cc[node]) {
		from.Get().out = append(from.Get().out, to.Clone())
	}

	Describe("self-loop", func() {
		It("reclaims a node that owns itself", func() {
			freed := 0
			a := newNode("a", &freed)
			a.Get().out = append(a.Get().out, a.Clone()) // two strong: user, self

			a.Release() // strong 2 -> 1: candidate
			Expect(cc.NumberOfRootsBuffered()).To(Equal(1))
			Expect(freed).To(BeZero())

			cc.CollectCycles()
			Expect(freed).To(Equal(1))
			Expect(cc.NumberOfRootsBuffered()).To(BeZero())
		})
	})

	Describe("two-node cycle", func() {
		var (
			freedA, freedB int
			a, b           cc.Cc[node]
		)
		BeforeEach(func() {
			freedA, freedB = 0, 0
			a = newNode("a", &freedA)
			b = newNode("b", &freedB)
			link(a, b)
			link(b, a)
		})

		It("is kept alive by an external handle", func() {
			b.Release()
			Expect(cc.NumberOfRootsBuffered()).To(Equal(1))

			cc.CollectCycles()
			Expect(freedA).To(BeZero())
			Expect(freedB).To(BeZero())
			Expect(cc.NumberOfRootsBuffered()).To(BeZero())

			// cleanup: dropping the last external handle makes the cycle garbage
			a.Release()
			cc.CollectCycles()
			Expect(freedA).To(Equal(1))
			Expect(freedB).To(Equal(1))
		})

		It("is reclaimed once no external handle remains", func() {
			b.Release()
			a.Release()
			cc.CollectCycles()
			Expect(freedA).To(Equal(1))
			Expect(freedB).To(Equal(1))
			Expect(cc.NumberOfRootsBuffered()).To(BeZero())
		})

		It("reclaims each payload exactly once across repeated collections", func() {
			b.Release()
			a.Release()
			before := cc.GetStats()
			cc.CollectCycles()
			cc.CollectCycles()
			cc.CollectCycles()
			after := cc.GetStats()
			Expect(freedA).To(Equal(1))
			Expect(freedB).To(Equal(1))
			Expect(after.FreedCyclic - before.FreedCyclic).To(Equal(int64(2)))
		})
	})

	Describe("cycle with an acyclic child", func() {
		It("reclaims the dangling subtree along with the cycle", func() {
			var freedA, freedB, freedC int
			a := newNode("a", &freedA)
			b := newNode("b", &freedB)
			link(a, b)
			link(b, a)

			c := newNode("c", &freedC)
			b.Get().out = append(b.Get().out, c) // move: b owns the only handle to c

			a.Release()
			b.Release()
			cc.CollectCycles()
			Expect(freedA).To(Equal(1))
			Expect(freedB).To(Equal(1))
			Expect(freedC).To(Equal(1))
			Expect(cc.NumberOfRootsBuffered()).To(BeZero())
		})

		It("keeps an externally held child while reclaiming the cycle", func() {
			var freedA, freedB, freedC int
			a := newNode("a", &freedA)
			b := newNode("b", &freedB)
			c := newNode("c", &freedC)
			link(a, b)
			link(b, a)
			link(b, c) // b's edge; the external c handle stays with the test

			a.Release()
			b.Release()
			cc.CollectCycles()
			Expect(freedA).To(Equal(1))
			Expect(freedB).To(Equal(1))
			Expect(freedC).To(BeZero(), "externally referenced child must survive")

			c.Release()
			cc.CollectCycles() // drain any candidate left by the cascade
			Expect(freedC).To(Equal(1))
		})
	})

	Describe("idempotence", func() {
		It("performs no reclamations on a back-to-back second collection", func() {
			freed := 0
			a := newNode("a", &freed)
			a.Get().out = append(a.Get().out, a.Clone())
			a.Release()

			cc.CollectCycles()
			Expect(freed).To(Equal(1))

			before := cc.GetStats()
			cc.CollectCycles()
			after := cc.GetStats()
			Expect(after.FreedCyclic - before.FreedCyclic).To(BeZero())
			Expect(after.FreedAcyclic - before.FreedAcyclic).To(BeZero())
		})
	})

	Describe("diamond cycle", func() {
		It("reclaims a member with two internal in-edges exactly once", func() {
			var freedA, freedB, freedC, freedD int
			a := newNode("a", &freedA)
			b := newNode("b", &freedB)
			c := newNode("c", &freedC)
			d := newNode("d", &freedD)
			link(a, b)
			link(a, c)
			link(b, d)
			link(c, d) // second internal in-edge into d
			link(d, a)

			b.Release()
			c.Release()
			d.Release()
			a.Release()
			cc.CollectCycles()
			Expect(freedA).To(Equal(1))
			Expect(freedB).To(Equal(1))
			Expect(freedC).To(Equal(1))
			Expect(freedD).To(Equal(1))
			// the cascade partially releases d before its own reclamation
			// finishes; a dead box must not re-enter the roots buffer
			Expect(cc.NumberOfRootsBuffered()).To(BeZero())

			before := cc.GetStats()
			cc.CollectCycles()
			Expect(cc.GetStats().FreedCyclic - before.FreedCyclic).To(BeZero())
		})
	})

	Describe("larger cycles", func() {
		It("reclaims a ring of nodes in one pass", func() {
			const ringSize = 100
			var (
				freed = 0
				ring  = make([]cc.Cc[node], 0, ringSize)
			)
			for i := 0; i < ringSize; i++ {
				ring = append(ring, newNode("r", &freed))
			}
			for i := range ring {
				link(ring[i], ring[(i+1)%ringSize])
			}
			for _, h := range ring {
				h.Release() // each node remains held by its in-ring edge
			}
			Expect(freed).To(BeZero())
			Expect(cc.NumberOfRootsBuffered()).To(Equal(ringSize))

			cc.CollectCycles()
			Expect(freed).To(Equal(ringSize))
			Expect(cc.NumberOfRootsBuffered()).To(BeZero())
		})
	})
})
