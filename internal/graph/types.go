package graph

import (
	"strconv"
	"strings"

	"github.com/pepperpepperpepper/pipegraph/internal/conn"
)

// MediaKind is the closed media classification of a node, computed once from
// its media class string and cached on the NodeInfo.
type MediaKind int

const (
	MediaOther MediaKind = iota
	MediaAudio
	MediaMidi
)

// NodeRole is the closed role classification of a node.
type NodeRole int

const (
	RoleOther NodeRole = iota
	RoleSink
	RoleSource
	RolePlaybackStream
	RoleCaptureStream
)

// classify derives the cached media kind and role from a media class string.
// Device classes match exactly; stream classes match on prefix so variants
// such as "Stream/Output/Audio/Internal" still classify.
func classify(mediaClass string) (MediaKind, NodeRole) {
	switch {
	case mediaClass == "Audio/Sink":
		return MediaAudio, RoleSink
	case mediaClass == "Audio/Source":
		return MediaAudio, RoleSource
	case strings.HasPrefix(mediaClass, "Stream/Output/Audio"):
		return MediaAudio, RolePlaybackStream
	case strings.HasPrefix(mediaClass, "Stream/Input/Audio"):
		return MediaAudio, RoleCaptureStream
	case strings.Contains(mediaClass, "Midi"):
		return MediaMidi, RoleOther
	default:
		return MediaOther, RoleOther
	}
}

// NodeInfo describes one server node.
type NodeInfo struct {
	ID               uint32
	Name             string
	Description      string
	MediaClass       string
	AppName          string
	AppProcessBinary string
	AudioChannels    int
	AudioPosition    []string
	ObjectSerial     uint64

	Media MediaKind
	Role  NodeRole
}

func (n *NodeInfo) clone() NodeInfo {
	cpy := *n
	if n.AudioPosition != nil {
		cpy.AudioPosition = append([]string(nil), n.AudioPosition...)
	}
	return cpy
}

// PortInfo describes one port. NodeID is a weak back-reference; the node is
// not guaranteed to still exist.
type PortInfo struct {
	ID           uint32
	NodeID       uint32
	Name         string
	Alias        string
	Direction    PortDirection
	AudioChannel string
	MediaType    string
	FormatDSP    string
}

// PortDirection is a port's data direction.
type PortDirection int

const (
	DirectionUnknown PortDirection = iota
	DirectionInput
	DirectionOutput
)

// LinkInfo describes one directed port-to-port connection. Link existence is
// registry-driven, never locally inferred.
type LinkInfo struct {
	ID           uint32
	OutputNodeID uint32
	OutputPortID uint32
	InputNodeID  uint32
	InputPortID  uint32
}

// ModuleInfo describes one loaded server module. Modules are mirrored only
// for capability detection.
type ModuleInfo struct {
	ID          uint32
	Name        string
	Description string
}

// NodeControls mirrors a node's volume and mute state. An entry exists only
// once at least one parameter event has been observed for the node; absence
// means "unknown", not zero.
type NodeControls struct {
	Volume         float32
	ChannelVolumes []float32
	Mute           bool
	HasVolume      bool
	HasMute        bool

	// lastScalar is the scalar value the server most recently reported,
	// kept apart from Volume (the mean mirror) because it is the rescale
	// base for scalar-only updates.
	lastScalar    float32
	hasLastScalar bool
}

func (c *NodeControls) clone() NodeControls {
	cpy := *c
	if c.ChannelVolumes != nil {
		cpy.ChannelVolumes = append([]float32(nil), c.ChannelVolumes...)
	}
	return cpy
}

// ClockSettings mirrors the "settings" metadata object. Force values of 0
// mean "auto" (the observed convention treats 0 and absent alike).
type ClockSettings struct {
	Rate         uint32
	AllowedRates []uint32
	Quantum      uint32
	MinQuantum   uint32
	MaxQuantum   uint32
	ForceRate    uint32
	ForceQuantum uint32
}

func (c *ClockSettings) clone() ClockSettings {
	cpy := *c
	if c.AllowedRates != nil {
		cpy.AllowedRates = append([]uint32(nil), c.AllowedRates...)
	}
	return cpy
}

// ProfilerSnapshot is the latest decoded profiler state. Seq starts at 0
// ("never received") and strictly increases; each profiler event replaces
// the snapshot wholesale.
type ProfilerSnapshot struct {
	Seq uint64

	HasInfo       bool
	CPULoadFast   float32
	CPULoadMedium float32
	CPULoadSlow   float32
	XRunCount     int32

	HasClock            bool
	ClockDurationMs     float64
	ClockDelayMs        float64
	ClockXRunDurationMs float64
	ClockCycle          int64

	Drivers   []ProfilerBlock
	Followers []ProfilerBlock
}

func (p *ProfilerSnapshot) clone() ProfilerSnapshot {
	cpy := *p
	if p.Drivers != nil {
		cpy.Drivers = append([]ProfilerBlock(nil), p.Drivers...)
	}
	if p.Followers != nil {
		cpy.Followers = append([]ProfilerBlock(nil), p.Followers...)
	}
	return cpy
}

// ProfilerBlock is one driver or follower timing entry.
type ProfilerBlock struct {
	ID        int32
	Name      string
	Status    int32
	XRunCount int32

	HasLatency bool
	LatencyMs  float64

	HasWait   bool
	WaitMs    float64
	WaitRatio float64

	HasBusy   bool
	BusyMs    float64
	BusyRatio float64
}

// ---------------------------------------------------------------------------
// Construction from registry globals

func nodeFromGlobal(g conn.Global) *NodeInfo {
	n := &NodeInfo{
		ID:               g.ID,
		Name:             g.Props[conn.PropNodeName],
		Description:      g.Props[conn.PropNodeDescription],
		MediaClass:       g.Props[conn.PropMediaClass],
		AppName:          g.Props[conn.PropAppName],
		AppProcessBinary: g.Props[conn.PropAppProcessBinary],
		AudioChannels:    parseInt(g.Props[conn.PropAudioChannels]),
		ObjectSerial:     parseUint64(g.Props[conn.PropObjectSerial]),
	}
	if pos := g.Props[conn.PropAudioPosition]; pos != "" {
		n.AudioPosition = strings.Split(pos, ",")
	}
	n.Media, n.Role = classify(n.MediaClass)
	return n
}

func portFromGlobal(g conn.Global) *PortInfo {
	dir := DirectionUnknown
	switch g.Props[conn.PropPortDirection] {
	case "in":
		dir = DirectionInput
	case "out":
		dir = DirectionOutput
	}
	return &PortInfo{
		ID:           g.ID,
		NodeID:       uint32(parseUint64(g.Props[conn.PropPortNodeID])),
		Name:         g.Props[conn.PropPortName],
		Alias:        g.Props[conn.PropPortAlias],
		Direction:    dir,
		AudioChannel: g.Props[conn.PropPortAudioChannel],
		MediaType:    g.Props[conn.PropPortMediaType],
		FormatDSP:    g.Props[conn.PropPortFormatDSP],
	}
}

func linkFromGlobal(g conn.Global) *LinkInfo {
	return &LinkInfo{
		ID:           g.ID,
		OutputNodeID: uint32(parseUint64(g.Props[conn.PropLinkOutputNode])),
		OutputPortID: uint32(parseUint64(g.Props[conn.PropLinkOutputPort])),
		InputNodeID:  uint32(parseUint64(g.Props[conn.PropLinkInputNode])),
		InputPortID:  uint32(parseUint64(g.Props[conn.PropLinkInputPort])),
	}
}

func moduleFromGlobal(g conn.Global) *ModuleInfo {
	return &ModuleInfo{
		ID:          g.ID,
		Name:        g.Props[conn.PropModuleName],
		Description: g.Props[conn.PropModuleDescription],
	}
}

func parseInt(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func parseUint64(s string) uint64 {
	n, _ := strconv.ParseUint(s, 10, 64)
	return n
}
