package bridge

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/pepperpepperpepper/pipegraph/internal/conn"
	"github.com/pepperpepperpepper/pipegraph/internal/control"
	"github.com/pepperpepperpepper/pipegraph/internal/graph"
	"github.com/pepperpepperpepper/pipegraph/internal/infrastructure/mqtt"
	"github.com/pepperpepperpepper/pipegraph/internal/pod"
)

// fakeMQTT is an in-memory broker stand-in recording publishes and
// delivering injected messages to subscribed handlers.
type fakeMQTT struct {
	mu       sync.Mutex
	messages map[string][][]byte
	handlers map[string]mqtt.MessageHandler
}

func newFakeMQTT() *fakeMQTT {
	return &fakeMQTT{
		messages: make(map[string][][]byte),
		handlers: make(map[string]mqtt.MessageHandler),
	}
}

func (f *fakeMQTT) Publish(topic string, payload []byte, qos byte, retained bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages[topic] = append(f.messages[topic], payload)
	return nil
}

func (f *fakeMQTT) Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[topic] = handler
	return nil
}

func (f *fakeMQTT) IsConnected() bool { return true }

// inject delivers a command payload to the pipegraph/command/+ handler.
func (f *fakeMQTT) inject(t *testing.T, topic string, payload []byte) {
	t.Helper()
	f.mu.Lock()
	handler := f.handlers[mqtt.Topics{}.AllCommands()]
	f.mu.Unlock()
	if handler == nil {
		t.Fatal("no command handler subscribed")
	}
	handler(topic, payload) //nolint:errcheck // handler errors are acked, not returned
}

// last returns the most recent payload published on topic.
func (f *fakeMQTT) last(topic string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	msgs := f.messages[topic]
	if len(msgs) == 0 {
		return nil, false
	}
	return msgs[len(msgs)-1], true
}

func newBridgeFixture(t *testing.T) (*conn.Sim, *graph.Mirror, *fakeMQTT, func()) {
	t.Helper()
	s := conn.NewSim()
	m := graph.New(s, time.Millisecond)
	m.Start()
	o := control.New(s, m)
	o.SetRetryBounds(250*time.Millisecond, 5*time.Millisecond)

	f := newFakeMQTT()
	b, err := New(Options{Mirror: m, Ops: o, MQTT: f})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := b.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() {
		b.Stop()
		m.Close()
		s.Close()
	})

	// Subscribed after the bridge, so once this fires the bridge's
	// publish callbacks for the same cycle have completed.
	signal := make(chan struct{}, 16)
	m.Notifier().Subscribe(graph.Listener{GraphChanged: func(graph.Change) {
		signal <- struct{}{}
	}})
	wait := func() {
		select {
		case <-signal:
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for a notification cycle")
		}
	}
	return s, m, f, wait
}

func TestBridgeRequiredOptions(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Error("New() with no options succeeded")
	}
}

func TestBridgePublishesSummary(t *testing.T) {
	s, _, f, wait := newBridgeFixture(t)

	s.AddSinkNode("builtin", "Built-in Audio", 2)
	s.AddPlaybackStream("music", "Music Player", 2)
	wait()

	body, ok := f.last(mqtt.Topics{}.StateSummary())
	if !ok {
		t.Fatal("no summary published")
	}
	var summary SummaryState
	if err := json.Unmarshal(body, &summary); err != nil {
		t.Fatalf("summary payload: %v", err)
	}
	if len(summary.Sinks) != 1 || summary.Sinks[0].Description != "Built-in Audio" {
		t.Errorf("sinks = %+v", summary.Sinks)
	}
	if len(summary.PlaybackStream) != 1 {
		t.Errorf("playback streams = %+v", summary.PlaybackStream)
	}
}

func TestBridgePublishesAndClearsControls(t *testing.T) {
	s, _, f, wait := newBridgeFixture(t)

	sink := s.AddSinkNode("builtin", "Built-in Audio", 2)
	wait()

	s.PushNodeControls(sink, pod.PropUpdate{
		HasVolume: true, Volume: 1,
		HasChannelVolumes: true, ChannelVolumes: []float32{0.5, 0.5},
		HasMute: true, Mute: false,
	})
	wait()

	topic := mqtt.Topics{}.StateNodeControls(sink)
	body, ok := f.last(topic)
	if !ok {
		t.Fatal("no controls published")
	}
	var controls ControlsState
	if err := json.Unmarshal(body, &controls); err != nil {
		t.Fatalf("controls payload: %v", err)
	}
	if controls.NodeID != sink || controls.Volume != 0.5 || len(controls.ChannelVolumes) != 2 {
		t.Errorf("controls = %+v", controls)
	}

	s.RemoveGlobal(sink)
	wait()

	body, ok = f.last(topic)
	if !ok {
		t.Fatal("controls topic never touched after removal")
	}
	if len(body) != 0 {
		t.Errorf("controls topic not cleared, last payload = %s", body)
	}
}

func TestBridgePublishesDefaults(t *testing.T) {
	s, _, f, wait := newBridgeFixture(t)

	sink := s.AddSinkNode("builtin", "Built-in Audio", 2)
	meta := s.AddMetadata(graph.MetaNameDefault)
	wait()

	s.SetMetadataProperty(meta, 0, "default.audio.sink", "Spa:String:JSON", fmt.Sprintf("%d", sink))
	wait()

	body, ok := f.last(mqtt.Topics{}.StateDefaults())
	if !ok {
		t.Fatal("no defaults published")
	}
	var defaults DefaultsState
	if err := json.Unmarshal(body, &defaults); err != nil {
		t.Fatalf("defaults payload: %v", err)
	}
	if !defaults.Supported || defaults.SinkID == nil || *defaults.SinkID != sink {
		t.Errorf("defaults = %+v", defaults)
	}
}

func TestBridgePublishesProfiler(t *testing.T) {
	s, _, f, wait := newBridgeFixture(t)

	s.AddProfiler()
	wait()

	s.EmitProfile(pod.ProfileSource{
		CPULoadFast: 0.3,
		XRunCount:   2,
		Drivers: []pod.BlockSource{{
			ID: 9, Name: "alsa-driver",
			PrevSignal: 1_000_000, Signal: 11_000_000,
			Awake: 12_000_000, Finish: 14_000_000,
		}},
	})
	wait()

	body, ok := f.last(mqtt.Topics{}.StateProfiler())
	if !ok {
		t.Fatal("no profiler state published")
	}
	var prof ProfilerState
	if err := json.Unmarshal(body, &prof); err != nil {
		t.Fatalf("profiler payload: %v", err)
	}
	if prof.Seq != 1 || prof.XRunCount != 2 || len(prof.Drivers) != 1 {
		t.Errorf("profiler state = %+v", prof)
	}
	if prof.Drivers[0].Name != "alsa-driver" {
		t.Errorf("driver = %+v", prof.Drivers[0])
	}
}

func decodeAck(t *testing.T, f *fakeMQTT, commandID string) AckMessage {
	t.Helper()
	body, ok := f.last(mqtt.Topics{}.CommandAck(commandID))
	if !ok {
		t.Fatalf("no ack published for %s", commandID)
	}
	var ack AckMessage
	if err := json.Unmarshal(body, &ack); err != nil {
		t.Fatalf("ack payload: %v", err)
	}
	return ack
}

func TestBridgeSetVolumeCommand(t *testing.T) {
	s, m, f, wait := newBridgeFixture(t)

	sink := s.AddSinkNode("builtin", "Built-in Audio", 2)
	wait()
	s.PushNodeControls(sink, pod.PropUpdate{
		HasVolume: true, Volume: 1,
		HasChannelVolumes: true, ChannelVolumes: []float32{1, 1},
	})
	wait()

	payload := fmt.Sprintf(`{"id":"cmd-1","nodeId":%d,"volume":0.25}`, sink)
	f.inject(t, mqtt.Topics{}.Command(ActionSetVolume), []byte(payload))
	wait() // param echo cycle

	ack := decodeAck(t, f, "cmd-1")
	if ack.Status != AckAccepted || ack.Action != ActionSetVolume {
		t.Errorf("ack = %+v", ack)
	}

	controls, ok := m.ControlsByID(sink)
	if !ok || controls.Volume < 0.24 || controls.Volume > 0.26 {
		t.Errorf("controls after command = %+v", controls)
	}
}

func TestBridgeSetMuteCommand(t *testing.T) {
	s, m, f, wait := newBridgeFixture(t)

	sink := s.AddSinkNode("builtin", "Built-in Audio", 2)
	wait()
	s.PushNodeControls(sink, pod.PropUpdate{
		HasVolume: true, Volume: 1,
		HasChannelVolumes: true, ChannelVolumes: []float32{1, 1},
		HasMute: true, Mute: false,
	})
	wait()

	payload := fmt.Sprintf(`{"id":"cmd-2","nodeId":%d,"mute":true}`, sink)
	f.inject(t, mqtt.Topics{}.Command(ActionSetMute), []byte(payload))
	wait()

	if ack := decodeAck(t, f, "cmd-2"); ack.Status != AckAccepted {
		t.Errorf("ack = %+v", ack)
	}
	if controls, ok := m.ControlsByID(sink); !ok || !controls.Mute {
		t.Errorf("controls after mute = %+v", controls)
	}
}

func TestBridgeCommandFailures(t *testing.T) {
	_, _, f, _ := newBridgeFixture(t)

	tests := []struct {
		name     string
		action   string
		payload  string
		wantCode string
	}{
		{
			name:     "unknown action",
			action:   "reboot",
			payload:  `{"id":"cmd-3"}`,
			wantCode: ErrCodeInvalidCommand,
		},
		{
			name:     "volume missing",
			action:   ActionSetVolume,
			payload:  `{"id":"cmd-4","nodeId":1}`,
			wantCode: ErrCodeInvalidParameters,
		},
		{
			name:     "volume on unknown node",
			action:   ActionSetVolume,
			payload:  `{"id":"cmd-5","nodeId":999,"volume":0.5}`,
			wantCode: ErrCodeRejected,
		},
		{
			name:     "default without target",
			action:   ActionSetDefault,
			payload:  `{"id":"cmd-6","nodeId":1}`,
			wantCode: ErrCodeInvalidParameters,
		},
		{
			name:     "preset without clock support",
			action:   ActionApplyPreset,
			payload:  `{"id":"cmd-7","presetId":"balanced-48k-256"}`,
			wantCode: ErrCodeRejected,
		},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f.inject(t, mqtt.Topics{}.Command(tt.action), []byte(tt.payload))
			ack := decodeAck(t, f, fmt.Sprintf("cmd-%d", i+3))
			if ack.Status != AckFailed {
				t.Fatalf("ack = %+v", ack)
			}
			if ack.Error == nil || ack.Error.Code != tt.wantCode {
				t.Errorf("ack error = %+v, want code %s", ack.Error, tt.wantCode)
			}
		})
	}
}

func TestBridgeGeneratesCorrelationID(t *testing.T) {
	_, _, f, _ := newBridgeFixture(t)

	f.inject(t, mqtt.Topics{}.Command("bogus"), []byte(`{}`))

	f.mu.Lock()
	defer f.mu.Unlock()
	found := false
	for topic := range f.messages {
		var ack AckMessage
		if body := f.messages[topic]; len(body) > 0 {
			if err := json.Unmarshal(body[len(body)-1], &ack); err == nil &&
				ack.Status == AckFailed && ack.CommandID != "" &&
				topic == (mqtt.Topics{}).CommandAck(ack.CommandID) {
				found = true
			}
		}
	}
	if !found {
		t.Error("no ack with a generated correlation id")
	}
}
