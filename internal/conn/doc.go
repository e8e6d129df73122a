// Package conn defines the boundary to the external audio server.
//
// Exactly one server connection exists per process. The connection owns a
// dedicated event-loop goroutine (Loop); every registry, binding and handle
// operation is confined to that goroutine. Registry add/remove events,
// parameter events, metadata property events and profiler events are all
// delivered on the loop with its lock held.
//
// Threads other than the loop interact with the connection only through
// Loop.RunLocked, which executes a function at a loop safe point. Calls are
// synchronous from the caller's perspective but bounded: the loop reaches a
// safe point between event dispatches.
//
// The Conn interface is the injection seam for the real server transport.
// Sim is a complete in-process implementation (a small simulated server)
// used by the daemon's sim backend and by tests; it echoes parameter writes,
// fans out metadata changes and assigns object serials the way the real
// server does.
package conn
