package control

import (
	"math"
	"testing"
	"time"

	"github.com/pepperpepperpepper/pipegraph/internal/conn"
	"github.com/pepperpepperpepper/pipegraph/internal/graph"
	"github.com/pepperpepperpepper/pipegraph/internal/pod"
)

func newFixture(t *testing.T) (*conn.Sim, *graph.Mirror, *Ops) {
	t.Helper()
	s := conn.NewSim()
	m := graph.New(s, time.Millisecond)
	m.Start()
	o := New(s, m)
	o.SetRetryBounds(250*time.Millisecond, 5*time.Millisecond)
	t.Cleanup(func() {
		m.Close()
		s.Close()
	})
	return s, m, o
}

func almostEqual(a, b float32) bool {
	return math.Abs(float64(a)-float64(b)) < 1e-4
}

func TestSetNodeVolume(t *testing.T) {
	s, m, o := newFixture(t)
	sink := s.AddSinkNode("dac", "DAC", 2)

	if !o.SetNodeVolume(sink, 0.5) {
		t.Fatal("volume write refused")
	}
	c, ok := m.ControlsByID(sink)
	if !ok {
		t.Fatal("no controls after write")
	}
	if len(c.ChannelVolumes) != 2 || !almostEqual(c.ChannelVolumes[0], 0.5) {
		t.Errorf("channels = %v, want [0.5 0.5]", c.ChannelVolumes)
	}
	if !almostEqual(c.Volume, 0.5) {
		t.Errorf("volume = %v, want 0.5", c.Volume)
	}

	// Values beyond the amplification ceiling clamp before encoding.
	if !o.SetNodeVolume(sink, 9.0) {
		t.Fatal("clamped write refused")
	}
	c, _ = m.ControlsByID(sink)
	if !almostEqual(c.Volume, pod.VolumeMax) {
		t.Errorf("volume = %v, want %v", c.Volume, pod.VolumeMax)
	}
}

func TestSetNodeVolumeScalarFallback(t *testing.T) {
	s, m, o := newFixture(t)
	sink := s.AddSinkNode("scalar-dev", "Scalar Device", 2)
	s.SetNodeScalarOnly(sink, true)

	if !o.SetNodeVolume(sink, 0.7) {
		t.Fatal("scalar fallback did not land")
	}
	c, ok := m.ControlsByID(sink)
	if !ok || !almostEqual(c.Volume, 0.7) {
		t.Errorf("controls = %+v, want scalar 0.7", c)
	}
}

func TestSetNodeVolumeUnknownNode(t *testing.T) {
	_, _, o := newFixture(t)
	if o.SetNodeVolume(999, 0.5) {
		t.Error("write to unknown node reported success")
	}
}

func TestSetNodeMutePreservesVolume(t *testing.T) {
	s, m, o := newFixture(t)
	sink := s.AddSinkNode("dac", "DAC", 2)
	s.PushNodeControls(sink, pod.PropUpdate{
		HasChannelVolumes: true, ChannelVolumes: []float32{0.8, 0.6},
	})

	if !o.SetNodeMute(sink, true) {
		t.Fatal("mute write refused")
	}
	c, _ := m.ControlsByID(sink)
	if !c.Mute {
		t.Error("node not muted")
	}
	if len(c.ChannelVolumes) != 2 ||
		!almostEqual(c.ChannelVolumes[0], 0.8) || !almostEqual(c.ChannelVolumes[1], 0.6) {
		t.Errorf("channels after mute = %v, want [0.8 0.6]", c.ChannelVolumes)
	}

	if !o.SetNodeMute(sink, false) {
		t.Fatal("unmute write refused")
	}
	if c, _ := m.ControlsByID(sink); c.Mute {
		t.Error("node still muted")
	}
}

func TestSetNodeVolumeCarriesMute(t *testing.T) {
	s, m, o := newFixture(t)
	sink := s.AddSinkNode("dac", "DAC", 2)
	s.PushNodeControls(sink, pod.PropUpdate{
		HasMute: true, Mute: true,
		HasChannelVolumes: true, ChannelVolumes: []float32{0.8, 0.8},
	})

	// Both write forms encode the cached mute flag alongside the volume.
	multi, scalar := o.volumeWrites(sink, 0.25)
	if !multi.HasMute || !multi.Mute {
		t.Errorf("channel write = %+v, want mute carried", multi)
	}
	if !scalar.HasMute || !scalar.Mute {
		t.Errorf("scalar write = %+v, want mute carried", scalar)
	}
	if !multi.HasChannelVolumes || len(multi.ChannelVolumes) != 2 {
		t.Errorf("channel write = %+v, want 2 channels", multi)
	}
	if !scalar.HasVolume || !almostEqual(scalar.Volume, 0.25) {
		t.Errorf("scalar write = %+v, want volume 0.25", scalar)
	}

	if !o.SetNodeVolume(sink, 0.25) {
		t.Fatal("volume write refused")
	}
	c, _ := m.ControlsByID(sink)
	if !c.HasMute || !c.Mute {
		t.Error("mute lost across the volume write")
	}
	if !almostEqual(c.Volume, 0.25) {
		t.Errorf("volume = %v, want 0.25", c.Volume)
	}
}

func TestCreateAndDestroyLink(t *testing.T) {
	s, m, o := newFixture(t)
	stream := s.AddPlaybackStream("player", "Player", 2)
	sink := s.AddSinkNode("dac", "DAC", 2)
	outPort := s.AddPort(stream, "output_FL", "out", "FL")
	inPort := s.AddPort(sink, "playback_FL", "in", "FL")

	if !o.CreateLink(stream, outPort, sink, inPort) {
		t.Fatal("link creation refused")
	}
	links := m.Links()
	if len(links) != 1 {
		t.Fatalf("links = %d, want 1", len(links))
	}

	// Only link ids may be destroyed through this operation.
	if o.DestroyLink(sink) {
		t.Error("node id accepted as a link")
	}
	if _, ok := m.NodeByID(sink); !ok {
		t.Fatal("sink vanished")
	}

	if !o.DestroyLink(links[0].ID) {
		t.Fatal("link destruction refused")
	}
	if got := m.Links(); len(got) != 0 {
		t.Errorf("links after destroy = %+v", got)
	}
}

func TestSetDefaultAudioSink(t *testing.T) {
	s, m, o := newFixture(t)
	first := s.AddSinkNode("first", "First Sink", 2)
	second := s.AddSinkNode("second", "Second Sink", 2)

	// No metadata object yet: the write must fail closed.
	if o.SetDefaultAudioSink(first) {
		t.Fatal("default write succeeded without metadata support")
	}

	s.AddMetadata(graph.MetaNameDefault)
	if !o.SetDefaultAudioSink(second) {
		t.Fatal("default write refused")
	}
	if id, ok := m.DefaultAudioSinkID(); !ok || id != second {
		t.Errorf("default sink = %d/%v, want %d/true", id, ok, second)
	}

	if !o.SetDefaultAudioSink(first) {
		t.Fatal("switching default refused")
	}
	if id, _ := m.DefaultAudioSinkID(); id != first {
		t.Errorf("default sink = %d, want %d", id, first)
	}

	if o.SetDefaultAudioSink(12345) {
		t.Error("unknown node accepted as default")
	}
}

func TestSetDefaultAudioSource(t *testing.T) {
	s, m, o := newFixture(t)
	mic := s.AddSourceNode("mic", "Microphone", 1)
	s.AddMetadata(graph.MetaNameDefault)

	if !o.SetDefaultAudioSource(mic) {
		t.Fatal("default source write refused")
	}
	if id, ok := m.DefaultAudioSourceID(); !ok || id != mic {
		t.Errorf("default source = %d/%v, want %d/true", id, ok, mic)
	}
}

func TestClockWrites(t *testing.T) {
	s, m, o := newFixture(t)

	rate := uint32(48000)
	if o.SetClockForceRate(&rate) {
		t.Fatal("clock write succeeded without settings metadata")
	}

	s.AddMetadata(graph.MetaNameSettings)
	if !o.SetClockForceRate(&rate) {
		t.Fatal("force-rate write refused")
	}
	if got := m.ClockSettings().ForceRate; got != 48000 {
		t.Errorf("force rate = %d, want 48000", got)
	}

	min, max := uint32(64), uint32(2048)
	if !o.SetClockMinQuantum(&min) || !o.SetClockMaxQuantum(&max) {
		t.Fatal("quantum bound writes refused")
	}
	c := m.ClockSettings()
	if c.MinQuantum != 64 || c.MaxQuantum != 2048 {
		t.Errorf("quantum bounds = %d..%d, want 64..2048", c.MinQuantum, c.MaxQuantum)
	}

	// nil releases the force.
	if !o.SetClockForceRate(nil) {
		t.Fatal("force-rate clear refused")
	}
	if got := m.ClockSettings().ForceRate; got != 0 {
		t.Errorf("force rate after clear = %d, want 0", got)
	}
}
