package telemetry

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/pepperpepperpepper/pipegraph/internal/graph"
)

// RecordProfiler writes one profiler snapshot as a set of points.
//
// One "profiler" point carries the server-side CPU load windows, the
// xrun counter and the clock timing; one "driver" point per driver
// block carries per-driver wait and busy timing. Followers are skipped,
// their cost is attributed to the driver that schedules them.
//
// The write is non-blocking; data is batched and sent asynchronously.
func (c *Client) RecordProfiler(snap graph.ProfilerSnapshot) {
	if !c.IsConnected() || snap.Seq == 0 {
		return
	}

	now := time.Now()

	if snap.HasInfo || snap.HasClock {
		fields := map[string]interface{}{
			"seq": int64(snap.Seq),
		}
		if snap.HasInfo {
			fields["cpu_load_fast"] = float64(snap.CPULoadFast)
			fields["cpu_load_medium"] = float64(snap.CPULoadMedium)
			fields["cpu_load_slow"] = float64(snap.CPULoadSlow)
			fields["xrun_count"] = int64(snap.XRunCount)
		}
		if snap.HasClock {
			fields["quantum_ms"] = snap.ClockDurationMs
			fields["delay_ms"] = snap.ClockDelayMs
			fields["xrun_duration_ms"] = snap.ClockXRunDurationMs
		}
		c.writeAPI.WritePoint(write.NewPoint("profiler", nil, fields, now))
	}

	for _, d := range snap.Drivers {
		fields := map[string]interface{}{
			"xrun_count": int64(d.XRunCount),
		}
		if d.HasWait {
			fields["wait_ms"] = d.WaitMs
			fields["wait_ratio"] = d.WaitRatio
		}
		if d.HasBusy {
			fields["busy_ms"] = d.BusyMs
			fields["busy_ratio"] = d.BusyRatio
		}
		tags := map[string]string{"driver": d.Name}
		c.writeAPI.WritePoint(write.NewPoint("driver", tags, fields, now))
	}
}

// RecordNodeVolume writes the control state of one node.
//
// Called when a node-controls change is observed; muted nodes are
// recorded with their last volume so un-muting is visible as a step.
func (c *Client) RecordNodeVolume(nodeName string, controls graph.NodeControls) {
	if !c.IsConnected() || nodeName == "" || !controls.HasVolume {
		return
	}

	point := write.NewPoint(
		"node_volume",
		map[string]string{"node": nodeName},
		map[string]interface{}{
			"volume": float64(controls.Volume),
			"muted":  controls.Mute,
		},
		time.Now(),
	)
	c.writeAPI.WritePoint(point)
}

// WritePoint writes an arbitrary measurement.
//
// Escape hatch for measurements the typed helpers don't cover.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, time.Now()))
}
