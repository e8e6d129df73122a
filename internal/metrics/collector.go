package metrics

import (
	"github.com/pepperpepperpepper/pipegraph/internal/graph"
)

// Collector keeps the package gauges in sync with a graph mirror.
//
// It subscribes to the mirror's notifier, so gauge updates run on the
// notifier's delivery goroutine and every read sees a settled snapshot.
type Collector struct {
	mirror *graph.Mirror
}

// NewCollector creates a collector bound to the given mirror and
// subscribes it to the mirror's change notifications. A Refresh is
// performed immediately so that a quiet graph still reports gauges.
func NewCollector(m *graph.Mirror) *Collector {
	c := &Collector{mirror: m}
	m.Notifier().Subscribe(graph.Listener{
		TopologyChanged: c.refreshTopology,
		ProfilerChanged: c.refreshProfiler,
		GraphChanged:    c.recordCycle,
	})
	c.Refresh()
	return c
}

// Refresh recomputes every gauge from the current mirror state.
func (c *Collector) Refresh() {
	c.refreshTopology()
	c.refreshProfiler()
}

func (c *Collector) refreshTopology() {
	SetNodeCount("sink", float64(len(c.mirror.AudioSinks())))
	SetNodeCount("source", float64(len(c.mirror.AudioSources())))
	SetNodeCount("playback_stream", float64(len(c.mirror.AudioPlaybackStreams())))
	SetNodeCount("capture_stream", float64(len(c.mirror.AudioCaptureStreams())))
	SetNodeCount("total", float64(len(c.mirror.Nodes())))
	LinkCount.Set(float64(len(c.mirror.Links())))
	ModuleCount.Set(float64(len(c.mirror.Modules())))
}

func (c *Collector) refreshProfiler() {
	snap, ok := c.mirror.ProfilerSnapshot()
	if !ok {
		return
	}
	if snap.HasInfo {
		CPULoad.WithLabelValues("fast").Set(float64(snap.CPULoadFast))
		CPULoad.WithLabelValues("medium").Set(float64(snap.CPULoadMedium))
		CPULoad.WithLabelValues("slow").Set(float64(snap.CPULoadSlow))
		XRunCount.Set(float64(snap.XRunCount))
	}
	if snap.HasClock {
		QuantumMs.Set(snap.ClockDurationMs)
	}
}

func (c *Collector) recordCycle(mask graph.Change) {
	if mask.Has(graph.ChangeTopology) {
		RecordNotificationCycle("topology")
	}
	if mask.Has(graph.ChangeNodeControls) {
		RecordNotificationCycle("node_controls")
	}
	if mask.Has(graph.ChangeMetadata) {
		RecordNotificationCycle("metadata")
	}
	if mask.Has(graph.ChangeProfiler) {
		RecordNotificationCycle("profiler")
	}
	RecordNotificationCycle("any")
}
