// Package cc implements reference-counted shared ownership with a trial-deletion
// cycle collector (Bacon & Rajan, "Concurrent Cycle Collection in Reference
// Counted Systems", stop-the-world variant).
/*
 * Copyright (c) 2018-2020, NVIDIA CORPORATION. All rights reserved.
 */
package cc

import (
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/atomic"
)

type (
	// ccStats are the collector's private counters.
	ccStats struct {
		collections  atomic.Int64
		candidates   atomic.Int64
		freedAcyclic atomic.Int64
		freedCyclic  atomic.Int64
		headersFreed atomic.Int64
	}

	// Stats is a point-in-time snapshot of the collector's counters.
	Stats struct {
		Collections  int64 `json:"collections"`   // collect passes run
		Candidates   int64 `json:"candidates"`    // roots-buffer entries inspected, cumulative
		FreedAcyclic int64 `json:"freed_acyclic"` // payloads dropped on the strong-reaches-zero path
		FreedCyclic  int64 `json:"freed_cyclic"`  // payloads reclaimed as cyclic garbage (White)
		HeadersFreed int64 `json:"headers_freed"` // headers whose weak count reached zero
	}
)

// GetStats snapshots the collector's counters.
func GetStats() (s Stats) {
	cs := &gcc().stats
	s.Collections = cs.collections.Load()
	s.Candidates = cs.candidates.Load()
	s.FreedAcyclic = cs.freedAcyclic.Load()
	s.FreedCyclic = cs.freedCyclic.Load()
	s.HeadersFreed = cs.headersFreed.Load()
	return
}

func (s Stats) String() string {
	b, err := jsoniter.Marshal(s)
	if err != nil {
		return err.Error()
	}
	return string(b)
}
