// Package cc implements reference-counted shared ownership with a trial-deletion
// cycle collector (Bacon & Rajan, "Concurrent Cycle Collection in Reference
// Counted Systems", stop-the-world variant).
/*
 * Copyright (c) 2018-2020, NVIDIA CORPORATION. All rights reserved.
 */
package cc

// Tracer is the sink a payload's Trace method feeds with the payload's
// outgoing managed edges, one call per owned handle. Zero-value handles
// may be reported; the sink skips them.
type Tracer func(h Handle)

// Trace is implemented by every managed payload. The contract:
//   - report every outgoing handle the payload owns, each exactly once;
//   - no side effects visible to the collector - no cloning, releasing,
//     or payload mutation from within Trace;
//   - deterministic for a given payload state.
//
// A payload that cannot transitively own managed handles embeds NoCycles
// instead of hand-writing an empty Trace.
type Trace interface {
	Trace(tr Tracer)
}

// Handle is the non-generic view of a managed handle that a Tracer accepts.
// Only Cc[T] implements it.
type Handle interface {
	managed() (box, bool)
}

// Finalizer is optionally implemented by payloads that need teardown logic.
// Finalize runs exactly once, when the payload is dropped - either on the
// last strong release or when the collector reclaims the payload as cyclic
// garbage - and before the payload's own outgoing handles are released.
// The one exception to the ordering is a payload parked in the roots buffer:
// its outgoing handles drop when the strong count reaches zero, and the
// finalizer runs when the collector drains the buffer. Finalize must not
// clone, release, or otherwise touch managed handles (same constraint as
// Trace).
type Finalizer interface {
	Finalize()
}

// NoCycles declares that the embedding payload cannot transitively own
// managed handles. Such payloads are created Green and the collector
// never considers them cycle candidates.
type NoCycles struct{}

func (NoCycles) Trace(Tracer) {}

func (NoCycles) acyclic() {}

type acyclicMarker interface{ acyclic() }
