package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/pepperpepperpepper/pipegraph/internal/conn"
	"github.com/pepperpepperpepper/pipegraph/internal/graph"
	"github.com/pepperpepperpepper/pipegraph/internal/pod"
)

func startMirror(t *testing.T) (*conn.Sim, *graph.Mirror) {
	t.Helper()
	s := conn.NewSim()
	m := graph.New(s, time.Millisecond)
	m.Start()
	t.Cleanup(func() {
		m.Close()
		s.Close()
	})
	return s, m
}

// waitForCycle subscribes before mutating and blocks until one delivery
// has fully run, so the collector callbacks have fired too.
func cycleWaiter(t *testing.T, m *graph.Mirror) func() {
	t.Helper()
	signal := make(chan struct{}, 16)
	m.Notifier().Subscribe(graph.Listener{GraphChanged: func(graph.Change) {
		signal <- struct{}{}
	}})
	return func() {
		select {
		case <-signal:
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for a notification cycle")
		}
	}
}

func TestCollectorTopologyGauges(t *testing.T) {
	s, m := startMirror(t)
	c := NewCollector(m)
	wait := cycleWaiter(t, m)

	sink := s.AddSinkNode("sink", "Built-in Audio", 2)
	s.AddSourceNode("mic", "Built-in Microphone", 1)
	stream := s.AddPlaybackStream("music", "Music Player", 2)
	outPort := s.AddPort(stream, "output_FL", "out", "FL")
	inPort := s.AddPort(sink, "playback_FL", "in", "FL")
	s.CreateLink(stream, outPort, sink, inPort)
	wait()

	// The collector runs on the same notifier; its callback has completed
	// once GraphChanged for the cycle has been observed.
	if got := testutil.ToFloat64(NodeCount.WithLabelValues("sink")); got != 1 {
		t.Errorf("sink gauge = %v", got)
	}
	if got := testutil.ToFloat64(NodeCount.WithLabelValues("source")); got != 1 {
		t.Errorf("source gauge = %v", got)
	}
	if got := testutil.ToFloat64(NodeCount.WithLabelValues("playback_stream")); got != 1 {
		t.Errorf("playback stream gauge = %v", got)
	}
	if got := testutil.ToFloat64(NodeCount.WithLabelValues("total")); got != 3 {
		t.Errorf("total gauge = %v", got)
	}
	if got := testutil.ToFloat64(LinkCount); got != 1 {
		t.Errorf("link gauge = %v", got)
	}

	s.RemoveGlobal(stream)
	wait()

	if got := testutil.ToFloat64(NodeCount.WithLabelValues("playback_stream")); got != 0 {
		t.Errorf("playback stream gauge after removal = %v", got)
	}

	c.Refresh()
	if got := testutil.ToFloat64(NodeCount.WithLabelValues("sink")); got != 1 {
		t.Errorf("sink gauge after refresh = %v", got)
	}
}

func TestCollectorProfilerGauges(t *testing.T) {
	s, m := startMirror(t)
	NewCollector(m)
	wait := cycleWaiter(t, m)

	s.AddProfiler()
	wait()

	s.EmitProfile(pod.ProfileSource{
		CPULoadFast:   0.25,
		CPULoadMedium: 0.2,
		CPULoadSlow:   0.15,
		XRunCount:     4,
		HasClock:      true,
		RateNum:       1,
		RateDenom:     48000,
		Duration:      1024,
	})
	wait()

	if got := testutil.ToFloat64(CPULoad.WithLabelValues("fast")); got < 0.24 || got > 0.26 {
		t.Errorf("fast load gauge = %v", got)
	}
	if got := testutil.ToFloat64(XRunCount); got != 4 {
		t.Errorf("xrun gauge = %v", got)
	}
}

func TestCollectorCycleCounters(t *testing.T) {
	s, m := startMirror(t)
	NewCollector(m)
	wait := cycleWaiter(t, m)

	before := testutil.ToFloat64(NotificationCycles.WithLabelValues("topology"))
	beforeAny := testutil.ToFloat64(NotificationCycles.WithLabelValues("any"))

	s.AddSinkNode("sink", "Built-in Audio", 2)
	wait()

	if got := testutil.ToFloat64(NotificationCycles.WithLabelValues("topology")); got != before+1 {
		t.Errorf("topology cycles = %v, want %v", got, before+1)
	}
	if got := testutil.ToFloat64(NotificationCycles.WithLabelValues("any")); got != beforeAny+1 {
		t.Errorf("any cycles = %v, want %v", got, beforeAny+1)
	}
}
