package graph

import (
	"sync"
	"testing"
	"time"
)

// collectingListener records delivery cycles for assertions.
type collectingListener struct {
	mu       sync.Mutex
	cycles   []Change
	topology int
	controls int
	metadata int
	profiler int
	signal   chan struct{}
}

func newCollectingListener() *collectingListener {
	return &collectingListener{signal: make(chan struct{}, 16)}
}

func (c *collectingListener) listener() Listener {
	return Listener{
		TopologyChanged:     func() { c.mu.Lock(); c.topology++; c.mu.Unlock() },
		NodeControlsChanged: func() { c.mu.Lock(); c.controls++; c.mu.Unlock() },
		MetadataChanged:     func() { c.mu.Lock(); c.metadata++; c.mu.Unlock() },
		ProfilerChanged:     func() { c.mu.Lock(); c.profiler++; c.mu.Unlock() },
		GraphChanged: func(mask Change) {
			c.mu.Lock()
			c.cycles = append(c.cycles, mask)
			c.mu.Unlock()
			c.signal <- struct{}{}
		},
	}
}

// waitCycle blocks until one full delivery cycle has completed.
func (c *collectingListener) waitCycle(t *testing.T) {
	t.Helper()
	select {
	case <-c.signal:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a notification cycle")
	}
}

func TestNotifierCoalescesBurst(t *testing.T) {
	n := NewNotifier(20 * time.Millisecond)
	defer n.Close()

	c := newCollectingListener()
	n.Subscribe(c.listener())

	// Three mutations before the delivery fires: one cycle, OR'd mask.
	n.Notify(ChangeTopology)
	n.Notify(ChangeTopology)
	n.Notify(ChangeMetadata)
	c.waitCycle(t)

	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.cycles) != 1 {
		t.Fatalf("got %d cycles, want 1", len(c.cycles))
	}
	if c.cycles[0] != ChangeTopology|ChangeMetadata {
		t.Errorf("mask = %b, want Topology|Metadata", c.cycles[0])
	}
	if c.topology != 1 || c.metadata != 1 {
		t.Errorf("specific signals: topology=%d metadata=%d, want 1/1", c.topology, c.metadata)
	}
	if c.controls != 0 || c.profiler != 0 {
		t.Errorf("unexpected signals: controls=%d profiler=%d", c.controls, c.profiler)
	}
}

func TestNotifierSchedulesAgainAfterQuiescence(t *testing.T) {
	n := NewNotifier(time.Millisecond)
	defer n.Close()

	c := newCollectingListener()
	n.Subscribe(c.listener())

	n.Notify(ChangeNodeControls)
	c.waitCycle(t)
	n.Notify(ChangeNodeControls)
	c.waitCycle(t)

	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.cycles) != 2 {
		t.Fatalf("got %d cycles, want 2", len(c.cycles))
	}
	if c.controls != 2 {
		t.Errorf("controls signals = %d, want 2", c.controls)
	}
}

func TestNotifierZeroMaskIsIgnored(t *testing.T) {
	n := NewNotifier(time.Millisecond)
	defer n.Close()

	c := newCollectingListener()
	n.Subscribe(c.listener())

	n.Notify(0)
	time.Sleep(20 * time.Millisecond)

	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.cycles) != 0 {
		t.Errorf("got %d cycles for an empty mask, want 0", len(c.cycles))
	}
}

func TestNotifierCloseStopsDelivery(t *testing.T) {
	n := NewNotifier(10 * time.Millisecond)
	c := newCollectingListener()
	n.Subscribe(c.listener())

	n.Notify(ChangeTopology)
	n.Close()
	n.Notify(ChangeMetadata)
	time.Sleep(30 * time.Millisecond)

	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.cycles) != 0 {
		t.Errorf("delivery ran after Close: %v", c.cycles)
	}
}

func TestChangeHas(t *testing.T) {
	mask := ChangeTopology | ChangeMetadata
	if !mask.Has(ChangeTopology) || !mask.Has(ChangeMetadata) {
		t.Error("Has failed for set bits")
	}
	if mask.Has(ChangeNodeControls) {
		t.Error("Has reported an unset bit")
	}
	if !mask.Has(ChangeTopology | ChangeMetadata) {
		t.Error("Has failed for a multi-bit mask")
	}
}
