package bridge

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pepperpepperpepper/pipegraph/internal/control"
	"github.com/pepperpepperpepper/pipegraph/internal/graph"
	"github.com/pepperpepperpepper/pipegraph/internal/infrastructure/mqtt"
)

// minTopicParts is the minimum number of parts in a valid command topic.
const minTopicParts = 3

// stateQoS is the QoS for retained state publishes.
const stateQoS byte = 1

// Logger is the minimal logging interface the bridge needs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// MQTTClient is the interface for MQTT operations.
// Satisfied by *mqtt.Client; tests use an in-memory fake.
type MQTTClient interface {
	// Publish sends a message to a topic.
	Publish(topic string, payload []byte, qos byte, retained bool) error

	// Subscribe registers a handler for a topic pattern.
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error

	// IsConnected returns true if connected to the broker.
	IsConnected() bool
}

// Bridge publishes mirror state over MQTT and executes inbound commands.
//
// Thread Safety: All methods are safe for concurrent use. State
// publishes run on the notifier's delivery goroutine; command handling
// runs on the MQTT client's handler goroutines.
type Bridge struct {
	mirror *graph.Mirror
	ops    *control.Ops
	mqtt   MQTTClient
	topics mqtt.Topics

	// publishedControls tracks node ids with a retained controls topic,
	// so removals can be cleared with an empty retained payload.
	publishedControls map[uint32]struct{}
	publishedMu       sync.Mutex

	stopOnce sync.Once
	done     chan struct{}

	logger   Logger
	loggerMu sync.RWMutex
}

// Options holds configuration for creating a bridge.
type Options struct {
	// Mirror is the graph mirror to publish from.
	Mirror *graph.Mirror

	// Ops executes inbound control commands.
	Ops *control.Ops

	// MQTT is the broker client.
	MQTT MQTTClient

	// Logger is optional structured logging.
	Logger Logger
}

// New creates a bridge. Call Start to begin operation.
func New(opts Options) (*Bridge, error) {
	if opts.Mirror == nil {
		return nil, fmt.Errorf("mirror is required")
	}
	if opts.Ops == nil {
		return nil, fmt.Errorf("ops is required")
	}
	if opts.MQTT == nil {
		return nil, fmt.Errorf("MQTT client is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	return &Bridge{
		mirror:            opts.Mirror,
		ops:               opts.Ops,
		mqtt:              opts.MQTT,
		publishedControls: make(map[uint32]struct{}),
		done:              make(chan struct{}),
		logger:            logger,
	}, nil
}

// Start subscribes to command topics and hooks state publishing into
// the mirror's change notifications, then publishes the current state
// so a fresh broker immediately carries retained documents.
func (b *Bridge) Start() error {
	commandTopic := b.topics.AllCommands()
	if err := b.mqtt.Subscribe(commandTopic, 1, b.handleCommandMessage); err != nil {
		return fmt.Errorf("subscribe to commands: %w", err)
	}
	b.logInfo("subscribed to commands", "topic", commandTopic)

	// Topology changes republish controls too: a removed node's retained
	// controls topic has to be cleared even though no parameter event fires.
	b.mirror.Notifier().Subscribe(graph.Listener{
		TopologyChanged: func() {
			b.publishSummary()
			b.publishControls()
		},
		NodeControlsChanged: b.publishControls,
		MetadataChanged:     b.publishMetadataState,
		ProfilerChanged:     b.publishProfiler,
	})

	b.publishAll()
	b.logInfo("bridge started")
	return nil
}

// Stop shuts the bridge down. Subscriptions are left to the MQTT
// client's own teardown.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		close(b.done)
		b.logInfo("bridge stopped")
	})
}

// publishAll pushes every state document from the current mirror state.
func (b *Bridge) publishAll() {
	b.publishSummary()
	b.publishControls()
	b.publishMetadataState()
	b.publishProfiler()
}

func (b *Bridge) publishSummary() {
	state := SummaryState{
		Timestamp:      time.Now().UTC(),
		Sinks:          summarise(b.mirror.AudioSinks()),
		Sources:        summarise(b.mirror.AudioSources()),
		PlaybackStream: summarise(b.mirror.AudioPlaybackStreams()),
		CaptureStream:  summarise(b.mirror.AudioCaptureStreams()),
		LinkCount:      len(b.mirror.Links()),
	}
	b.publishJSON(b.topics.StateSummary(), state)
}

func summarise(nodes []graph.NodeInfo) []NodeSummary {
	out := make([]NodeSummary, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, NodeSummary{
			ID:          n.ID,
			Name:        n.Name,
			Description: n.Description,
			Channels:    n.AudioChannels,
		})
	}
	return out
}

// publishControls republishes the controls topic of every node with
// known controls and clears topics of nodes that disappeared.
func (b *Bridge) publishControls() {
	current := make(map[uint32]struct{})
	for _, n := range b.mirror.Nodes() {
		controls, ok := b.mirror.ControlsByID(n.ID)
		if !ok {
			continue
		}
		current[n.ID] = struct{}{}
		b.publishJSON(b.topics.StateNodeControls(n.ID), ControlsState{
			NodeID:         n.ID,
			Volume:         controls.Volume,
			ChannelVolumes: controls.ChannelVolumes,
			Mute:           controls.Mute,
		})
	}

	b.publishedMu.Lock()
	var stale []uint32
	for id := range b.publishedControls {
		if _, ok := current[id]; !ok {
			stale = append(stale, id)
		}
	}
	b.publishedControls = current
	b.publishedMu.Unlock()

	// An empty retained payload deletes the topic on the broker.
	for _, id := range stale {
		if err := b.mqtt.Publish(b.topics.StateNodeControls(id), nil, stateQoS, true); err != nil {
			b.logError("failed to clear controls topic", err)
		}
	}
}

// publishMetadataState covers both metadata-sourced documents.
func (b *Bridge) publishMetadataState() {
	b.publishDefaults()
	b.publishClock()
}

func (b *Bridge) publishDefaults() {
	state := DefaultsState{Supported: b.mirror.HasDefaultDeviceSupport()}
	if id, ok := b.mirror.DefaultAudioSinkID(); ok {
		state.SinkID = &id
	}
	if id, ok := b.mirror.DefaultAudioSourceID(); ok {
		state.SourceID = &id
	}
	b.publishJSON(b.topics.StateDefaults(), state)
}

func (b *Bridge) publishClock() {
	clock := b.mirror.ClockSettings()
	b.publishJSON(b.topics.StateClock(), ClockState{
		Supported:    b.mirror.HasClockSettingsSupport(),
		Rate:         clock.Rate,
		AllowedRates: clock.AllowedRates,
		Quantum:      clock.Quantum,
		MinQuantum:   clock.MinQuantum,
		MaxQuantum:   clock.MaxQuantum,
		ForceRate:    clock.ForceRate,
		ForceQuantum: clock.ForceQuantum,
	})
}

func (b *Bridge) publishProfiler() {
	snap, ok := b.mirror.ProfilerSnapshot()
	if !ok || snap.Seq == 0 {
		return
	}

	state := ProfilerState{
		Seq:           snap.Seq,
		CPULoadFast:   snap.CPULoadFast,
		CPULoadMedium: snap.CPULoadMedium,
		CPULoadSlow:   snap.CPULoadSlow,
		XRunCount:     snap.XRunCount,
		QuantumMs:     snap.ClockDurationMs,
	}
	for _, d := range snap.Drivers {
		state.Drivers = append(state.Drivers, DriverState{
			Name:      d.Name,
			WaitMs:    d.WaitMs,
			BusyMs:    d.BusyMs,
			XRunCount: d.XRunCount,
		})
	}
	b.publishJSON(b.topics.StateProfiler(), state)
}

func (b *Bridge) publishJSON(topic string, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		b.logError("failed to marshal state", err)
		return
	}
	if err := b.mqtt.Publish(topic, body, stateQoS, true); err != nil {
		b.logError("failed to publish state", err)
	}
}

// logInfo logs an info message.
func (b *Bridge) logInfo(msg string, keysAndValues ...any) {
	b.loggerMu.RLock()
	logger := b.logger
	b.loggerMu.RUnlock()
	logger.Info(msg, keysAndValues...)
}

// logError logs an error message.
func (b *Bridge) logError(msg string, err error) {
	b.loggerMu.RLock()
	logger := b.logger
	b.loggerMu.RUnlock()
	logger.Error(msg, "error", err)
}

// SetLogger replaces the bridge's logger.
func (b *Bridge) SetLogger(logger Logger) {
	b.loggerMu.Lock()
	defer b.loggerMu.Unlock()
	if logger == nil {
		logger = noopLogger{}
	}
	b.logger = logger
}

// handleCommandMessage routes one inbound command.
func (b *Bridge) handleCommandMessage(topic string, payload []byte) error {
	parts := strings.Split(topic, "/")
	if len(parts) < minTopicParts {
		return fmt.Errorf("invalid command topic: %s", topic)
	}
	action := parts[len(parts)-1]

	var cmd CommandMessage
	if err := json.Unmarshal(payload, &cmd); err != nil {
		b.logError("failed to parse command", err)
		return err
	}
	if cmd.ID == "" {
		cmd.ID = uuid.NewString()
	}

	b.logInfo("received command", "command_id", cmd.ID, "action", action)
	b.executeCommand(action, cmd)
	return nil
}

func (b *Bridge) executeCommand(action string, cmd CommandMessage) {
	switch action {
	case ActionSetVolume:
		if cmd.Volume == nil {
			b.publishAckError(action, cmd, ErrCodeInvalidParameters, "volume is required")
			return
		}
		b.ackBool(action, cmd, b.ops.SetNodeVolume(cmd.NodeID, *cmd.Volume),
			fmt.Sprintf("node %d has no adjustable volume", cmd.NodeID))
	case ActionSetMute:
		if cmd.Mute == nil {
			b.publishAckError(action, cmd, ErrCodeInvalidParameters, "mute is required")
			return
		}
		b.ackBool(action, cmd, b.ops.SetNodeMute(cmd.NodeID, *cmd.Mute),
			fmt.Sprintf("node %d has no mute control", cmd.NodeID))
	case ActionSetDefault:
		b.executeSetDefault(action, cmd)
	case ActionApplyPreset:
		b.ackBool(action, cmd, b.ops.ApplyClockPreset(cmd.PresetID),
			fmt.Sprintf("preset %q could not be applied", cmd.PresetID))
	default:
		b.publishAckError(action, cmd, ErrCodeInvalidCommand,
			fmt.Sprintf("unknown action: %s", action))
	}
}

func (b *Bridge) executeSetDefault(action string, cmd CommandMessage) {
	switch cmd.Target {
	case "sink":
		b.ackBool(action, cmd, b.ops.SetDefaultAudioSink(cmd.NodeID),
			fmt.Sprintf("node %d could not become default sink", cmd.NodeID))
	case "source":
		b.ackBool(action, cmd, b.ops.SetDefaultAudioSource(cmd.NodeID),
			fmt.Sprintf("node %d could not become default source", cmd.NodeID))
	default:
		b.publishAckError(action, cmd, ErrCodeInvalidParameters,
			fmt.Sprintf("target must be sink or source, got %q", cmd.Target))
	}
}

// ackBool publishes an accepted or rejected ack from a mutator result.
func (b *Bridge) ackBool(action string, cmd CommandMessage, ok bool, failMsg string) {
	if ok {
		b.publishAck(AckMessage{
			CommandID: cmd.ID,
			Timestamp: time.Now().UTC(),
			Action:    action,
			Status:    AckAccepted,
		})
		return
	}
	b.publishAckError(action, cmd, ErrCodeRejected, failMsg)
}

func (b *Bridge) publishAckError(action string, cmd CommandMessage, code, message string) {
	b.publishAck(AckMessage{
		CommandID: cmd.ID,
		Timestamp: time.Now().UTC(),
		Action:    action,
		Status:    AckFailed,
		Error:     &AckError{Code: code, Message: message},
	})
}

func (b *Bridge) publishAck(ack AckMessage) {
	body, err := json.Marshal(ack)
	if err != nil {
		b.logError("failed to marshal ack", err)
		return
	}
	if err := b.mqtt.Publish(b.topics.CommandAck(ack.CommandID), body, 1, false); err != nil {
		b.logError("failed to publish ack", err)
	}
}
