package bridge

import "time"

// Command actions accepted on pipegraph/command/{action}.
const (
	ActionSetVolume   = "set-volume"
	ActionSetMute     = "set-mute"
	ActionSetDefault  = "set-default"
	ActionApplyPreset = "apply-preset"
)

// CommandMessage is a control request received over MQTT.
// Topic: pipegraph/command/{action}
type CommandMessage struct {
	// ID uniquely identifies this command for correlation with the ack.
	// Assigned by the bridge when the sender omits it.
	ID string `json:"id,omitempty"`

	// NodeID targets a node for set-volume and set-mute.
	NodeID uint32 `json:"nodeId,omitempty"`

	// Volume is the linear volume for set-volume.
	Volume *float32 `json:"volume,omitempty"`

	// Mute is the mute state for set-mute.
	Mute *bool `json:"mute,omitempty"`

	// Target selects the default-device role for set-default:
	// "sink" or "source".
	Target string `json:"target,omitempty"`

	// PresetID names a clock preset for apply-preset.
	PresetID string `json:"presetId,omitempty"`
}

// AckStatus is the outcome of a command.
type AckStatus string

const (
	// AckAccepted indicates the command was applied.
	AckAccepted AckStatus = "accepted"

	// AckFailed indicates the command could not be applied.
	AckFailed AckStatus = "failed"
)

// Error codes for failed commands.
const (
	ErrCodeInvalidCommand    = "INVALID_COMMAND"
	ErrCodeInvalidParameters = "INVALID_PARAMETERS"
	ErrCodeRejected          = "REJECTED"
)

// AckMessage answers a command.
// Topic: pipegraph/ack/{command id}
type AckMessage struct {
	CommandID string    `json:"command_id"`
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`
	Status    AckStatus `json:"status"`
	Error     *AckError `json:"error,omitempty"`
}

// AckError carries details for a failed command.
type AckError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NodeSummary is one node in the summary document.
type NodeSummary struct {
	ID          uint32 `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Channels    int    `json:"channels,omitempty"`
}

// SummaryState is the retained graph summary.
// Topic: pipegraph/state/summary
type SummaryState struct {
	Timestamp      time.Time     `json:"timestamp"`
	Sinks          []NodeSummary `json:"sinks"`
	Sources        []NodeSummary `json:"sources"`
	PlaybackStream []NodeSummary `json:"playbackStreams"`
	CaptureStream  []NodeSummary `json:"captureStreams"`
	LinkCount      int           `json:"linkCount"`
}

// ControlsState is the retained control state of one node.
// Topic: pipegraph/state/node/{id}/controls
type ControlsState struct {
	NodeID         uint32    `json:"nodeId"`
	Volume         float32   `json:"volume"`
	ChannelVolumes []float32 `json:"channelVolumes,omitempty"`
	Mute           bool      `json:"mute"`
}

// DefaultsState is the retained default-device selection.
// Topic: pipegraph/state/defaults
type DefaultsState struct {
	Supported bool    `json:"supported"`
	SinkID    *uint32 `json:"sinkId,omitempty"`
	SourceID  *uint32 `json:"sourceId,omitempty"`
}

// ClockState is the retained clock configuration.
// Topic: pipegraph/state/clock
type ClockState struct {
	Supported    bool     `json:"supported"`
	Rate         uint32   `json:"rate,omitempty"`
	AllowedRates []uint32 `json:"allowedRates,omitempty"`
	Quantum      uint32   `json:"quantum,omitempty"`
	MinQuantum   uint32   `json:"minQuantum,omitempty"`
	MaxQuantum   uint32   `json:"maxQuantum,omitempty"`
	ForceRate    uint32   `json:"forceRate,omitempty"`
	ForceQuantum uint32   `json:"forceQuantum,omitempty"`
}

// DriverState is one driver's timing in the profiler document.
type DriverState struct {
	Name      string  `json:"name"`
	WaitMs    float64 `json:"waitMs"`
	BusyMs    float64 `json:"busyMs"`
	XRunCount int32   `json:"xrunCount"`
}

// ProfilerState is the retained profiler load document.
// Topic: pipegraph/state/profiler
type ProfilerState struct {
	Seq           uint64        `json:"seq"`
	CPULoadFast   float32       `json:"cpuLoadFast"`
	CPULoadMedium float32       `json:"cpuLoadMedium"`
	CPULoadSlow   float32       `json:"cpuLoadSlow"`
	XRunCount     int32         `json:"xrunCount"`
	QuantumMs     float64       `json:"quantumMs"`
	Drivers       []DriverState `json:"drivers,omitempty"`
}
