// Package graph maintains the in-process mirror of the audio server's
// object graph.
//
// The Mirror is the single source of truth for mirrored state: nodes, ports,
// links, modules, per-node controls, the resolved default devices, the clock
// settings and the latest profiler snapshot. It subscribes to the server's
// registry on the connection's event loop, keeps per-object bindings alive
// for exactly as long as the objects exist, and coalesces mutation bursts
// into debounced change notifications.
//
// # Architecture
//
//	registry events (loop goroutine)
//	        │
//	        ▼
//	┌──────────────────────────────────────────────────┐
//	│                     Mirror                       │
//	│                                                  │
//	│  maps: nodes / ports / links / modules /         │
//	│        controls / metadata / profiler            │
//	│  bindings: one per object id, at most one        │
//	│  notifier: coalesced change delivery             │
//	└──────────────────────────────────────────────────┘
//	        │ copy-out reads              │ notifications
//	        ▼                             ▼
//	  any goroutine               consumer goroutine
//
// # Thread safety
//
// All mirrored state sits behind one internal mutex, distinct from the
// connection's loop lock. Writers are the loop goroutine; readers are
// arbitrary goroutines. Every read accessor copies values out and releases
// the lock immediately, so no live references escape. A read that happens
// after a change notification was delivered observes that change.
//
// Absence is a normal outcome everywhere: a missing node, missing controls
// or an unavailable capability yields an empty result, never an error.
package graph
