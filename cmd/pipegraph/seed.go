package main

import (
	"context"
	"fmt"
	"time"

	"github.com/pepperpepperpepper/pipegraph/internal/conn"
	"github.com/pepperpepperpepper/pipegraph/internal/graph"
	"github.com/pepperpepperpepper/pipegraph/internal/pod"
)

// seedSim populates the simulated server with a small plausible graph:
// a sink and a source with ports, a playback stream linked to the sink,
// default/settings metadata and a profiler.
func seedSim(s *conn.Sim) {
	sink := s.AddSinkNode("alsa_output.pci-0000_00_1f.3.analog-stereo", "Built-in Audio", 2)
	source := s.AddSourceNode("alsa_input.pci-0000_00_1f.3.analog-stereo", "Built-in Microphone", 2)
	stream := s.AddPlaybackStream("music-player", "Music Player", 2)

	sinkFL := s.AddPort(sink, "playback_FL", "in", "FL")
	sinkFR := s.AddPort(sink, "playback_FR", "in", "FR")
	s.AddPort(source, "capture_FL", "out", "FL")
	s.AddPort(source, "capture_FR", "out", "FR")
	streamFL := s.AddPort(stream, "output_FL", "out", "FL")
	streamFR := s.AddPort(stream, "output_FR", "out", "FR")

	s.CreateLink(stream, streamFL, sink, sinkFL)
	s.CreateLink(stream, streamFR, sink, sinkFR)

	s.PushNodeControls(sink, pod.PropUpdate{
		HasVolume: true, Volume: 1,
		HasChannelVolumes: true, ChannelVolumes: []float32{1, 1},
		HasMute: true, Mute: false,
	})
	s.PushNodeControls(stream, pod.PropUpdate{
		HasVolume: true, Volume: 0.8,
		HasChannelVolumes: true, ChannelVolumes: []float32{0.8, 0.8},
		HasMute: true, Mute: false,
	})

	defaults := s.AddMetadata(graph.MetaNameDefault)
	s.SetMetadataProperty(defaults, 0, graph.MetaKeyDefaultSink, "Spa:String:JSON", fmt.Sprintf("%d", sink))
	s.SetMetadataProperty(defaults, 0, graph.MetaKeyDefaultSource, "Spa:String:JSON", fmt.Sprintf("%d", source))

	settings := s.AddMetadata(graph.MetaNameSettings)
	s.SetMetadataProperty(settings, 0, graph.MetaKeyClockRate, "", "48000")
	s.SetMetadataProperty(settings, 0, graph.MetaKeyClockAllowedRates, "", "[ 44100 48000 96000 ]")
	s.SetMetadataProperty(settings, 0, graph.MetaKeyClockQuantum, "", "1024")
	s.SetMetadataProperty(settings, 0, graph.MetaKeyClockMinQuantum, "", "32")
	s.SetMetadataProperty(settings, 0, graph.MetaKeyClockMaxQuantum, "", "8192")

	s.AddProfiler()
}

// profileTicker emits a synthetic profiler sample every tick until the
// context is cancelled. Signal timestamps advance by one quantum per
// tick so wait/busy ratios stay plausible.
func profileTicker(ctx context.Context, s *conn.Sim) {
	ticker := time.NewTicker(profileTickInterval)
	defer ticker.Stop()

	var prevSignal int64
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			signal := now.UnixNano()
			s.EmitProfile(pod.ProfileSource{
				Counter:       signal,
				CPULoadFast:   0.05,
				CPULoadMedium: 0.04,
				CPULoadSlow:   0.03,
				HasClock:      true,
				RateNum:       1,
				RateDenom:     48000,
				Duration:      1024,
				Drivers: []pod.BlockSource{{
					ID:         1,
					Name:       "alsa-driver",
					PrevSignal: prevSignal,
					Signal:     signal,
					Awake:      signal + 100_000,
					Finish:     signal + 600_000,
					Status:     3,
					LatNum:     1024,
					LatDenom:   48000,
				}},
			})
			prevSignal = signal
		}
	}
}
