package graph

import (
	"sync"
	"time"
)

// Change is a bitmask of mutation kinds accumulated between notification
// deliveries.
type Change uint32

const (
	// ChangeTopology covers node/port/link/module additions and removals.
	ChangeTopology Change = 1 << iota
	// ChangeNodeControls covers volume/mute parameter updates.
	ChangeNodeControls
	// ChangeMetadata covers metadata binds, unbinds and property updates.
	ChangeMetadata
	// ChangeProfiler covers profiler availability and new snapshots.
	ChangeProfiler
)

// Has reports whether all bits in mask are set.
func (c Change) Has(mask Change) bool { return c&mask == mask }

// Listener receives coalesced change notifications. All callbacks are
// optional and run serially on the notifier's delivery goroutine, never on
// the connection loop. Per delivery cycle each specific callback fires at
// most once for its set bit, and GraphChanged always fires last with the
// full drained mask.
type Listener struct {
	TopologyChanged     func()
	NodeControlsChanged func()
	MetadataChanged     func()
	ProfilerChanged     func()
	GraphChanged        func(Change)
}

// Notifier coalesces mutation bursts into single debounced deliveries.
//
// The first mutation in a quiescent period schedules exactly one delivery;
// mutations arriving while a delivery is pending only OR into the mask.
type Notifier struct {
	delay time.Duration

	mu        sync.Mutex
	pending   Change
	scheduled bool
	closed    bool
	listeners []Listener
	inflight  sync.WaitGroup
}

// NewNotifier creates a notifier with the given debounce delay.
func NewNotifier(delay time.Duration) *Notifier {
	return &Notifier{delay: delay}
}

// Subscribe registers a listener. Safe to call at any time; a delivery
// already in flight uses the listener list captured at drain time.
func (n *Notifier) Subscribe(l Listener) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.listeners = append(n.listeners, l)
}

// Notify accumulates mask and schedules a delivery if none is pending.
func (n *Notifier) Notify(mask Change) {
	if mask == 0 {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}
	n.pending |= mask
	if n.scheduled {
		return
	}
	n.scheduled = true
	n.inflight.Add(1)
	time.AfterFunc(n.delay, n.deliver)
}

// deliver drains the pending mask and runs the callbacks.
func (n *Notifier) deliver() {
	defer n.inflight.Done()

	n.mu.Lock()
	mask := n.pending
	n.pending = 0
	n.scheduled = false
	closed := n.closed
	listeners := append([]Listener(nil), n.listeners...)
	n.mu.Unlock()

	if closed || mask == 0 {
		return
	}
	for _, l := range listeners {
		if mask.Has(ChangeTopology) && l.TopologyChanged != nil {
			l.TopologyChanged()
		}
		if mask.Has(ChangeNodeControls) && l.NodeControlsChanged != nil {
			l.NodeControlsChanged()
		}
		if mask.Has(ChangeMetadata) && l.MetadataChanged != nil {
			l.MetadataChanged()
		}
		if mask.Has(ChangeProfiler) && l.ProfilerChanged != nil {
			l.ProfilerChanged()
		}
		if l.GraphChanged != nil {
			l.GraphChanged(mask)
		}
	}
}

// Close stops future deliveries and waits for an in-flight one to finish.
func (n *Notifier) Close() {
	n.mu.Lock()
	n.closed = true
	n.mu.Unlock()
	n.inflight.Wait()
}
